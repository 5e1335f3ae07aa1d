package dataflows

import (
	"context"
	"errors"
	"time"

	"github.com/dyike/WheelGo/config"
	"github.com/dyike/WheelGo/models"
)

// Config is an alias for the main application config
type Config = config.Config

var (
	// ErrDataUnavailable means the source has no bars for the ticker or range.
	ErrDataUnavailable = errors.New("dataflows: data unavailable")
	// ErrMarketDataUnavailable means a live quote lookup failed in transport.
	ErrMarketDataUnavailable = errors.New("dataflows: market data unavailable")
)

// HistorySource is a named provider of daily bars
type HistorySource interface {
	Name() string
	GetPriceHistory(ctx context.Context, ticker string, start, end time.Time) ([]models.PriceBar, error)
}
