package wheel

import (
	"context"
	"time"

	"github.com/dyike/WheelGo/models"
)

// PriceHistoryProvider supplies ordered daily bars for a ticker.
type PriceHistoryProvider interface {
	GetPriceHistory(ctx context.Context, ticker string, start, end time.Time) ([]models.PriceBar, error)
}

// QuoteProvider supplies an observed premium for one contract.
// A nil quote with a nil error means no quote exists.
type QuoteProvider interface {
	GetOptionQuote(ctx context.Context, req models.OptionQuoteRequest) (*models.OptionQuote, error)
}
