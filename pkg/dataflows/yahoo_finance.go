package dataflows

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dyike/WheelGo/consts"
	"github.com/dyike/WheelGo/models"
	"github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/options"
	"github.com/sirupsen/logrus"
)

// YahooFinanceClient handles Yahoo Finance data operations
type YahooFinanceClient struct {
	cache  *CacheManager
	retry  *RetryConfig
	logger *logrus.Logger
}

// NewYahooFinanceClient creates a new Yahoo Finance client
func NewYahooFinanceClient(cache *CacheManager, logger *logrus.Logger) *YahooFinanceClient {
	if logger == nil {
		logger = logrus.New()
	}
	return &YahooFinanceClient{
		cache:  cache,
		retry:  DefaultRetryConfig(),
		logger: logger,
	}
}

func (yf *YahooFinanceClient) Name() string {
	return consts.SourceYahoo
}

// GetPriceHistory gets daily bars for a symbol over [start, end]
func (yf *YahooFinanceClient) GetPriceHistory(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	symbol = NormalizeSymbol(symbol)

	cacheKey := historyKey(symbol, start, end)

	// Check cache first
	var cached []models.PriceBar
	if yf.cache.Get(yf.Name(), "history", cacheKey, &cached) && len(cached) > 0 {
		return cached, nil
	}

	var result []models.PriceBar
	err := WithRetry(ctx, yf.retry, func() error {
		// the chart end is exclusive
		from := models.TruncateDay(start)
		to := models.TruncateDay(end).AddDate(0, 0, 1)
		params := &chart.Params{
			Symbol:   symbol,
			Start:    datetime.New(&from),
			End:      datetime.New(&to),
			Interval: datetime.OneDay,
		}

		iter := chart.Get(params)

		result = make([]models.PriceBar, 0)
		for iter.Next() {
			bar := iter.Bar()
			result = append(result, models.PriceBar{
				Symbol: symbol,
				Date:   models.TruncateDay(time.Unix(int64(bar.Timestamp), 0).UTC()),
				Open:   bar.Open,
				High:   bar.High,
				Low:    bar.Low,
				Close:  bar.Close,
				Volume: int64(bar.Volume),
			})
		}

		if err := iter.Err(); err != nil {
			return fmt.Errorf("failed to get historical data for %s: %w", symbol, err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%s): %w", ErrDataUnavailable, symbol, FormatDateRange(start, end), err)
	}

	result = FilterRange(result, start, end)
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: no bars for %s (%s)", ErrDataUnavailable, symbol, FormatDateRange(start, end))
	}

	if err := yf.cache.Set(yf.Name(), "history", cacheKey, result); err != nil {
		yf.logger.WithError(err).Warn("failed to cache yahoo history")
	}

	yf.logger.WithFields(logrus.Fields{
		"symbol": symbol,
		"bars":   len(result),
		"range":  FormatDateRange(start, end),
	}).Debug("fetched yahoo history")

	return result, nil
}

// GetOptionQuote looks up the contract nearest to req.Strike on the exact expiry date.
// No contract on that date yields (nil, nil).
func (yf *YahooFinanceClient) GetOptionQuote(ctx context.Context, req models.OptionQuoteRequest) (*models.OptionQuote, error) {
	if err := ValidateSymbol(req.Ticker); err != nil {
		return nil, nil
	}
	symbol := NormalizeSymbol(req.Ticker)

	type outcome struct {
		quote *models.OptionQuote
		err   error
	}
	done := make(chan outcome, 1)

	// finance-go has no per-request cancellation, so the lookup races the context
	go func() {
		q, err := yf.fetchNearestContract(symbol, req)
		done <- outcome{q, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s %s %.2f: %w", ErrMarketDataUnavailable, symbol, req.Type, req.Strike, ctx.Err())
	case out := <-done:
		return out.quote, out.err
	}
}

func (yf *YahooFinanceClient) fetchNearestContract(symbol string, req models.OptionQuoteRequest) (*models.OptionQuote, error) {
	// Yahoo keys expirations by midnight UTC of the expiry date
	expiry := models.TruncateDay(req.Expiry)
	iter := options.GetStraddleP(&options.Params{
		UnderlyingSymbol: symbol,
		Expiration:       datetime.New(&expiry),
	})

	var best *finance.Contract
	bestDiff := math.Inf(1)
	for iter.Next() {
		straddle := iter.Straddle()
		contract := straddle.Put
		if req.Type == models.OptionTypeCall {
			contract = straddle.Call
		}
		if contract == nil {
			continue
		}
		if diff := math.Abs(contract.Strike - req.Strike); diff < bestDiff {
			best, bestDiff = contract, diff
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: option chain for %s: %w", ErrMarketDataUnavailable, symbol, err)
	}
	if best == nil {
		return nil, nil
	}

	return models.NewOptionQuote(best.Symbol, best.Strike, best.Bid, best.Ask, yf.Name()), nil
}
