package dataflows

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dyike/WheelGo/consts"
	"github.com/dyike/WheelGo/models"
)

// StaticProvider serves a fixed bar series, and optionally fixed quotes, from memory.
// It is never mutated after construction, so many engines may read it at once.
type StaticProvider struct {
	symbol string
	bars   []models.PriceBar
	quotes []models.OptionQuote
}

// NewStaticProvider copies bars so later changes by the caller are not observed.
func NewStaticProvider(symbol string, bars []models.PriceBar, quotes ...models.OptionQuote) *StaticProvider {
	b := make([]models.PriceBar, len(bars))
	copy(b, bars)
	q := make([]models.OptionQuote, len(quotes))
	copy(q, quotes)
	return &StaticProvider{symbol: NormalizeSymbol(symbol), bars: FilterRange(b, time.Time{}, maxDay), quotes: q}
}

var maxDay = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

func (sp *StaticProvider) Name() string {
	return consts.SourceStatic
}

// Bars returns a copy of the full series.
func (sp *StaticProvider) Bars() []models.PriceBar {
	out := make([]models.PriceBar, len(sp.bars))
	copy(out, sp.bars)
	return out
}

func (sp *StaticProvider) GetPriceHistory(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if NormalizeSymbol(symbol) != sp.symbol {
		return nil, fmt.Errorf("%w: unknown symbol %s", ErrDataUnavailable, symbol)
	}
	bars := FilterRange(sp.bars, start, end)
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no bars for %s (%s)", ErrDataUnavailable, symbol, FormatDateRange(start, end))
	}
	return bars, nil
}

// GetOptionQuote returns the configured quote nearest to the requested strike.
func (sp *StaticProvider) GetOptionQuote(ctx context.Context, req models.OptionQuoteRequest) (*models.OptionQuote, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMarketDataUnavailable, err)
	}
	if NormalizeSymbol(req.Ticker) != sp.symbol || len(sp.quotes) == 0 {
		return nil, nil
	}

	best := -1
	bestDiff := math.Inf(1)
	for i, q := range sp.quotes {
		if diff := math.Abs(q.Strike - req.Strike); diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	q := sp.quotes[best]
	return &q, nil
}
