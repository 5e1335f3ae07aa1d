package dataflows

import (
	"context"
	"fmt"
	"time"

	"github.com/dyike/WheelGo/consts"
	"github.com/dyike/WheelGo/models"
	"github.com/sirupsen/logrus"
)

// DataFlowInterface provides high-level access to the configured data sources
type DataFlowInterface struct {
	history HistorySource
	offline *CSVSource
	quotes  *YahooFinanceClient
	config  *Config
	logger  *logrus.Logger
}

// NewDataFlowInterface wires the history source named by config.DataSource. Live option
// quotes come from Yahoo and are only consulted when online tools are enabled.
func NewDataFlowInterface(config *Config, cache *CacheManager, logger *logrus.Logger) (*DataFlowInterface, error) {
	if logger == nil {
		logger = logrus.New()
	}

	dfi := &DataFlowInterface{
		offline: NewCSVSource(config.DataDir, logger),
		config:  config,
		logger:  logger,
	}

	switch config.DataSource {
	case consts.SourceYahoo, "":
		dfi.history = NewYahooFinanceClient(cache, logger)
	case consts.SourceFinnhub:
		dfi.history = NewFinnhubClient(config.FinnhubAPIKey, cache, logger)
	case consts.SourceLongport:
		client, err := NewLongportClient(LongportConfig{
			AppKey:      config.LongportAppKey,
			AppSecret:   config.LongportAppSecret,
			AccessToken: config.LongportAccessToken,
		}, cache, logger)
		if err != nil {
			return nil, fmt.Errorf("longport: %w", err)
		}
		dfi.history = client
	case consts.SourceCSV:
		dfi.history = dfi.offline
	default:
		return nil, fmt.Errorf("unknown data source %q", config.DataSource)
	}

	if config.OnlineTools {
		dfi.quotes = NewYahooFinanceClient(cache, logger)
	}

	return dfi, nil
}

// HistorySource is the configured source of daily bars.
func (dfi *DataFlowInterface) HistorySource() HistorySource {
	return dfi.history
}

// Name reports the source GetPriceHistory actually reads from.
func (dfi *DataFlowInterface) Name() string {
	if !dfi.config.OnlineTools {
		return dfi.offline.Name()
	}
	return dfi.history.Name()
}

// Offline is the CSV store used for exports and offline runs.
func (dfi *DataFlowInterface) Offline() *CSVSource {
	return dfi.offline
}

// GetPriceHistory gets daily bars (offline first when online tools are disabled)
func (dfi *DataFlowInterface) GetPriceHistory(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error) {
	if !dfi.config.OnlineTools && dfi.history != HistorySource(dfi.offline) {
		bars, err := dfi.offline.GetPriceHistory(ctx, symbol, start, end)
		if err != nil {
			return nil, fmt.Errorf("online tools disabled: %w", err)
		}
		return bars, nil
	}
	return dfi.history.GetPriceHistory(ctx, symbol, start, end)
}

// GetOptionQuote returns (nil, nil) when online tools are disabled so callers fall back
// to the model estimate.
func (dfi *DataFlowInterface) GetOptionQuote(ctx context.Context, req models.OptionQuoteRequest) (*models.OptionQuote, error) {
	if dfi.quotes == nil {
		return nil, nil
	}
	return dfi.quotes.GetOptionQuote(ctx, req)
}

// LiveQuotes reports whether option quotes will be looked up at all.
func (dfi *DataFlowInterface) LiveQuotes() bool {
	return dfi.quotes != nil
}
