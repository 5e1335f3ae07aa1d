package dataflows

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dyike/WheelGo/consts"
	"github.com/dyike/WheelGo/models"
	lpconfig "github.com/longportapp/openapi-go/config"
	"github.com/longportapp/openapi-go/quote"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// maxCandlesticks is the largest count a single candlestick request may ask for.
const maxCandlesticks = 1000

type LongportConfig struct {
	AppKey      string
	AppSecret   string
	AccessToken string
}

type LongportClient struct {
	quoteCtx *quote.QuoteContext
	cache    *CacheManager
	logger   *logrus.Logger
}

func NewLongportClient(conf LongportConfig, cache *CacheManager, logger *logrus.Logger) (*LongportClient, error) {
	if conf.AppKey == "" || conf.AppSecret == "" || conf.AccessToken == "" {
		return nil, errors.New("longport API credentials not configured")
	}
	if logger == nil {
		logger = logrus.New()
	}

	lpConf, err := lpconfig.New(lpconfig.WithConfigKey(conf.AppKey, conf.AppSecret, conf.AccessToken))
	if err != nil {
		return nil, err
	}

	quoteContext, err := quote.NewFromCfg(lpConf)
	if err != nil {
		return nil, err
	}

	return &LongportClient{
		quoteCtx: quoteContext,
		cache:    cache,
		logger:   logger,
	}, nil
}

func (lpc *LongportClient) Name() string {
	return consts.SourceLongport
}

func (lpc *LongportClient) GetStaticInfo(ctx context.Context, symbols []string) (staticInfos []*quote.StaticInfo, err error) {
	if lpc.quoteCtx != nil {
		return lpc.quoteCtx.StaticInfo(ctx, symbols)
	}
	return nil, errors.New("quote context is nil")
}

func (lpc *LongportClient) GetSticksWithDay(ctx context.Context, symbol string, count int) (sticks []*quote.Candlestick, err error) {
	if lpc.quoteCtx != nil {
		return lpc.quoteCtx.Candlesticks(ctx, symbol, quote.PeriodDay, int32(count), quote.AdjustTypeNo)
	}
	return nil, errors.New("quote context is nil")
}

// GetPriceHistory pulls the most recent daily candlesticks reaching back to start and keeps
// those within [start, end].
func (lpc *LongportClient) GetPriceHistory(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	symbol = LongportSymbol(symbol)

	cacheKey := historyKey(symbol, start, end)
	var cached []models.PriceBar
	if lpc.cache.Get(lpc.Name(), "history", cacheKey, &cached) && len(cached) > 0 {
		return cached, nil
	}

	count := candlestickCount(start, time.Now())
	var sticks []*quote.Candlestick
	err := WithRetry(ctx, DefaultRetryConfig(), func() error {
		var err error
		sticks, err = lpc.GetSticksWithDay(ctx, symbol, count)
		if err != nil {
			return fmt.Errorf("failed to get candlesticks for %s: %w", symbol, err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%s): %w", ErrDataUnavailable, symbol, FormatDateRange(start, end), err)
	}

	bars := make([]models.PriceBar, 0, len(sticks))
	for _, s := range sticks {
		if s == nil || s.Open == nil || s.Close == nil {
			continue
		}
		bars = append(bars, models.PriceBar{
			Symbol: symbol,
			Date:   models.TruncateDay(time.Unix(s.Timestamp, 0).UTC()),
			Open:   *s.Open,
			High:   valueOr(s.High, *s.Open),
			Low:    valueOr(s.Low, *s.Open),
			Close:  *s.Close,
			Volume: s.Volume,
		})
	}

	bars = FilterRange(bars, start, end)
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no bars for %s (%s)", ErrDataUnavailable, symbol, FormatDateRange(start, end))
	}

	if err := lpc.cache.Set(lpc.Name(), "history", cacheKey, bars); err != nil {
		lpc.logger.WithError(err).Warn("failed to cache longport history")
	}
	return bars, nil
}

// LongportSymbol maps a bare ticker onto the US market suffix Longport expects.
func LongportSymbol(symbol string) string {
	symbol = NormalizeSymbol(symbol)
	if !strings.Contains(symbol, ".") {
		symbol += ".US"
	}
	return symbol
}

// candlestickCount estimates how many daily sessions lie between start and now.
func candlestickCount(start, now time.Time) int {
	days := now.Sub(start).Hours() / 24
	sessions := int(math.Ceil(days*5/7)) + 5
	if sessions < 1 {
		sessions = 1
	}
	if sessions > maxCandlesticks {
		sessions = maxCandlesticks
	}
	return sessions
}

func valueOr(v *decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
	if v == nil {
		return fallback
	}
	return *v
}
