package dataflows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dyike/WheelGo/consts"
	"github.com/dyike/WheelGo/models"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const finnhubBaseURL = "https://finnhub.io/api/v1"

// FinnhubClient handles Finnhub API operations
type FinnhubClient struct {
	client *resty.Client
	cache  *CacheManager
	apiKey string
	retry  *RetryConfig
	logger *logrus.Logger
}

// NewFinnhubClient creates a new Finnhub client
func NewFinnhubClient(apiKey string, cache *CacheManager, logger *logrus.Logger) *FinnhubClient {
	if logger == nil {
		logger = logrus.New()
	}

	client := resty.New()
	client.SetBaseURL(finnhubBaseURL)
	client.SetTimeout(30 * time.Second)

	return &FinnhubClient{
		client: client,
		cache:  cache,
		apiKey: apiKey,
		retry:  DefaultRetryConfig(),
		logger: logger,
	}
}

// SetBaseURL points the client at another endpoint.
func (fc *FinnhubClient) SetBaseURL(url string) *FinnhubClient {
	fc.client.SetBaseURL(url)
	return fc
}

// SetRetryConfig replaces the default backoff.
func (fc *FinnhubClient) SetRetryConfig(cfg *RetryConfig) *FinnhubClient {
	fc.retry = cfg
	return fc
}

func (fc *FinnhubClient) Name() string {
	return consts.SourceFinnhub
}

// FinnhubCandles is the column-oriented /stock/candle response
type FinnhubCandles struct {
	Close     []float64 `json:"c"`
	High      []float64 `json:"h"`
	Low       []float64 `json:"l"`
	Open      []float64 `json:"o"`
	Status    string    `json:"s"`
	Timestamp []int64   `json:"t"`
	Volume    []float64 `json:"v"`
}

// GetPriceHistory gets daily candles for a symbol over [start, end]
func (fc *FinnhubClient) GetPriceHistory(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error) {
	if fc.apiKey == "" {
		return nil, errors.New("Finnhub API key not configured")
	}
	if err := ValidateSymbol(symbol); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	symbol = NormalizeSymbol(symbol)

	cacheKey := historyKey(symbol, start, end)
	var cached []models.PriceBar
	if fc.cache.Get(fc.Name(), "history", cacheKey, &cached) && len(cached) > 0 {
		return cached, nil
	}

	var result []models.PriceBar
	err := WithRetry(ctx, fc.retry, func() error {
		resp, err := fc.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"symbol":     symbol,
				"resolution": "D",
				"from":       strconv.FormatInt(models.TruncateDay(start).Unix(), 10),
				"to":         strconv.FormatInt(models.TruncateDay(end).AddDate(0, 0, 1).Unix()-1, 10),
				"token":      fc.apiKey,
			}).
			Get("/stock/candle")

		if err != nil {
			return fmt.Errorf("failed to fetch candles for %s: %w", symbol, err)
		}

		if resp.StatusCode() == http.StatusForbidden || resp.StatusCode() == http.StatusUnauthorized {
			return fmt.Errorf("%w: finnhub rejected the request (%d)", ErrDataUnavailable, resp.StatusCode())
		}
		if resp.StatusCode() != http.StatusOK {
			return fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
		}

		var candles FinnhubCandles
		if err := json.Unmarshal(resp.Body(), &candles); err != nil {
			return fmt.Errorf("failed to parse candle response: %w", err)
		}
		if candles.Status != "ok" {
			return fmt.Errorf("%w: finnhub status %q for %s", ErrDataUnavailable, candles.Status, symbol)
		}

		result, err = candles.toBars(symbol)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrDataUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s (%s): %w", ErrDataUnavailable, symbol, FormatDateRange(start, end), err)
	}

	result = FilterRange(result, start, end)
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: no bars for %s (%s)", ErrDataUnavailable, symbol, FormatDateRange(start, end))
	}

	if err := fc.cache.Set(fc.Name(), "history", cacheKey, result); err != nil {
		fc.logger.WithError(err).Warn("failed to cache finnhub history")
	}
	return result, nil
}

func (c FinnhubCandles) toBars(symbol string) ([]models.PriceBar, error) {
	n := len(c.Timestamp)
	if len(c.Open) != n || len(c.High) != n || len(c.Low) != n || len(c.Close) != n {
		return nil, fmt.Errorf("%w: ragged candle arrays for %s", ErrDataUnavailable, symbol)
	}

	bars := make([]models.PriceBar, 0, n)
	for i := 0; i < n; i++ {
		var volume int64
		if i < len(c.Volume) {
			volume = int64(c.Volume[i])
		}
		bars = append(bars, models.PriceBar{
			Symbol: symbol,
			Date:   models.TruncateDay(time.Unix(c.Timestamp[i], 0).UTC()),
			Open:   decimal.NewFromFloat(c.Open[i]),
			High:   decimal.NewFromFloat(c.High[i]),
			Low:    decimal.NewFromFloat(c.Low[i]),
			Close:  decimal.NewFromFloat(c.Close[i]),
			Volume: volume,
		})
	}
	return bars, nil
}
