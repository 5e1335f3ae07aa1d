// Package wheel simulates the options wheel: cash-secured puts until assigned, then covered
// calls until called away, one contract per calendar week.
package wheel

import (
	"context"
	"fmt"
	"time"

	"github.com/dyike/WheelGo/consts"
	"github.com/dyike/WheelGo/models"
	"github.com/dyike/WheelGo/pkg/pricing"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Engine runs wheel backtests for one parameter set. Run keeps all mutable state local,
// so an Engine can be shared between goroutines.
type Engine struct {
	params       Params
	history      PriceHistoryProvider
	quotes       QuoteProvider
	estimator    pricing.Estimator
	logger       *logrus.Logger
	quoteTimeout time.Duration
}

// Option customises an Engine
type Option func(*Engine)

// WithQuoteProvider enables live premium lookups.
func WithQuoteProvider(q QuoteProvider) Option {
	return func(e *Engine) { e.quotes = q }
}

// WithEstimator replaces the Black-Scholes estimator.
func WithEstimator(est pricing.Estimator) Option {
	return func(e *Engine) { e.estimator = est }
}

// WithLogger routes engine progress to logger. A fresh logrus logger is used otherwise.
func WithLogger(logger *logrus.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithQuoteTimeout bounds each live quote lookup.
func WithQuoteTimeout(d time.Duration) Option {
	return func(e *Engine) { e.quoteTimeout = d }
}

// Result is the read-only outcome of a completed run.
type Result struct {
	Params       Params                   `json:"params"`
	Records      []models.ActionRecord    `json:"records"`
	Summary      models.SimulationSummary `json:"summary"`
	EquityCurve  []models.EquityPoint     `json:"equity_curve"`
	FinalState   PortfolioState           `json:"final_state"`
	SkippedWeeks int                      `json:"skipped_weeks"`
	Weeks        int                      `json:"weeks"`
}

// NewEngine validates params eagerly; nothing is applied if validation fails.
func NewEngine(params Params, history PriceHistoryProvider, opts ...Option) (*Engine, error) {
	if history == nil {
		return nil, fmt.Errorf("%w: price history provider is required", ErrInvalidParameters)
	}

	params = params.withDefaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		params:       params,
		history:      history,
		estimator:    pricing.NewBlackScholes(),
		logger:       logrus.New(),
		quoteTimeout: consts.DefaultQuoteTimeoutSeconds * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.estimator == nil {
		return nil, fmt.Errorf("%w: estimator is required", ErrInvalidParameters)
	}
	if e.logger == nil {
		e.logger = logrus.New()
	}
	if e.quoteTimeout <= 0 {
		e.quoteTimeout = consts.DefaultQuoteTimeoutSeconds * time.Second
	}
	return e, nil
}

// Params returns the defaulted parameters the engine runs with.
func (e *Engine) Params() Params {
	return e.params
}

// run holds the state owned by a single Run call.
type run struct {
	bars    []models.PriceBar
	state   PortfolioState
	records []models.ActionRecord
	pct     decimal.Decimal
	lot     decimal.Decimal
	skipped int
}

// Run fetches the history once and steps through every scheduled week. Any fatal error
// discards the partial records.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	p := e.params
	log := e.logger.WithFields(logrus.Fields{
		"ticker":     p.Ticker,
		"strike_pct": p.StrikePct,
	})

	fetchStart := p.StartDate.AddDate(0, 0, -p.HistoryBufferDays)
	bars, err := e.history.GetPriceHistory(ctx, p.Ticker, fetchStart, p.EndDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDataUnavailable, p.Ticker, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s: no bars between %s and %s", ErrDataUnavailable, p.Ticker,
			fetchStart.Format(consts.DateLayout), p.EndDate.Format(consts.DateLayout))
	}

	mondays := Schedule(p.StartDate, p.EndDate)
	log.WithFields(logrus.Fields{
		"bars":  len(bars),
		"weeks": len(mondays),
		"start": p.StartDate.Format(consts.DateLayout),
		"end":   p.EndDate.Format(consts.DateLayout),
	}).Info("starting wheel backtest")

	r := &run{
		bars:    sortBars(bars),
		state:   NewPortfolioState(p.StartingCapital),
		records: make([]models.ActionRecord, 0, 2*len(mondays)),
		pct:     decimal.NewFromFloat(p.StrikePct),
		lot:     decimal.NewFromInt(int64(p.LotSize)),
	}

	for _, monday := range mondays {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		week, err := locateWeek(r.bars, monday)
		if err != nil {
			return nil, err
		}
		if err := e.step(ctx, r, week, log); err != nil {
			return nil, err
		}
	}

	summary := Summarize(r.records, p.StartingCapital)
	log.WithFields(logrus.Fields{
		"records":        len(r.records),
		"skipped_weeks":  r.skipped,
		"ending_capital": summary.EndingCapital.StringFixed(2),
		"return_pct":     fmt.Sprintf("%.2f", summary.TotalReturnPct),
	}).Info("wheel backtest finished")

	return &Result{
		Params:       p,
		Records:      r.records,
		Summary:      summary,
		EquityCurve:  EquityCurve(r.records),
		FinalState:   r.state,
		SkippedWeeks: r.skipped,
		Weeks:        len(mondays),
	}, nil
}

// step sells the phase's contract on the week's first session and resolves it on the last.
func (e *Engine) step(ctx context.Context, r *run, w Week, log *logrus.Entry) error {
	tr, ok := transitions[r.state.Phase]
	if !ok {
		return fmt.Errorf("%w: unknown phase %q", ErrInvariantViolated, r.state.Phase)
	}

	entry, resolution := r.bars[w.entry], r.bars[w.resolution]
	strike := tr.strike(entry.Open, r.pct)
	weekLog := log.WithField("week", w.Monday.Format(consts.DateLayout))

	if tr.option == models.OptionTypePut && r.state.Cash.LessThan(strike.Mul(r.lot)) {
		r.skipped++
		weekLog.WithFields(logrus.Fields{
			"cash":     r.state.Cash.StringFixed(2),
			"required": strike.Mul(r.lot).StringFixed(2),
		}).Warn("insufficient cash to secure put, skipping week")
		return nil
	}

	in := pricing.Inputs{
		Spot:         entry.Open.InexactFloat64(),
		Strike:       strike.InexactFloat64(),
		TimeToExpiry: pricing.YearFraction(SessionOpen(entry.Day()), SessionClose(w.Friday)),
		Volatility:   pricing.HistoricalVolatility(closesBefore(r.bars, w.entry), e.params.VolatilityWindow),
		RiskFreeRate: e.params.riskFreeRate(),
	}
	req := models.OptionQuoteRequest{
		Ticker: e.params.Ticker,
		Type:   tr.option,
		Strike: in.Strike,
		Expiry: w.Friday,
	}

	perShare, source, err := e.premiumFor(ctx, req, in, weekLog)
	if err != nil {
		return fmt.Errorf("week of %s: %w", w.Monday.Format(consts.DateLayout), err)
	}
	premium := decimal.NewFromFloat(perShare).Round(consts.PremiumDecimals).Mul(r.lot)

	r.state.Cash = r.state.Cash.Add(premium)
	if err := e.record(r, entry.Day(), tr.sale, entry.Open, strike, premium, w.Friday, source, weekLog); err != nil {
		return err
	}

	action := tr.expired
	if tr.isExercised(resolution.Close, strike) {
		tr.exercise(&r.state, strike, e.params.LotSize)
		r.state.Phase = tr.next
		action = tr.exercised
	}
	return e.record(r, resolution.Day(), action, resolution.Close, strike, decimal.Zero, w.Friday, "", weekLog)
}

func (e *Engine) record(r *run, date time.Time, action models.ActionKind, price, strike, premium decimal.Decimal,
	expiry time.Time, source string, log *logrus.Entry) error {
	if err := r.state.Check(); err != nil {
		return fmt.Errorf("after %s on %s: %w", action, date.Format(consts.DateLayout), err)
	}

	rec := models.ActionRecord{
		Date:                date,
		Action:              action,
		StockPrice:          price,
		Strike:              strike,
		Premium:             premium,
		SharesHeldAfter:     r.state.SharesHeld,
		CashAfter:           r.state.Cash,
		PortfolioValueAfter: r.state.Value(price),
		Expiry:              expiry,
		PremiumSource:       source,
	}
	r.records = append(r.records, rec)

	log.WithFields(logrus.Fields{
		"date":    date.Format(consts.DateLayout),
		"action":  action,
		"price":   price.StringFixed(2),
		"strike":  strike.StringFixed(2),
		"premium": premium.StringFixed(2),
		"shares":  rec.SharesHeldAfter,
		"cash":    rec.CashAfter.StringFixed(2),
	}).Debug("wheel action")
	return nil
}

// premiumFor returns the per-share premium: a valid live quote's mid if one exists,
// otherwise the estimator's price.
func (e *Engine) premiumFor(ctx context.Context, req models.OptionQuoteRequest, in pricing.Inputs, log *logrus.Entry) (float64, string, error) {
	if q := e.liveQuote(ctx, req, log); q.Valid() {
		return q.Mid, models.PremiumSourceMarket, nil
	}

	premium, err := e.estimator.EstimatePremium(in, req.Type)
	if err != nil {
		return 0, "", err
	}
	return premium, models.PremiumSourceModel, nil
}

func (e *Engine) liveQuote(ctx context.Context, req models.OptionQuoteRequest, log *logrus.Entry) *models.OptionQuote {
	if e.quotes == nil {
		return nil
	}

	qctx, cancel := context.WithTimeout(ctx, e.quoteTimeout)
	defer cancel()

	q, err := e.quotes.GetOptionQuote(qctx, req)
	if err != nil {
		log.WithError(err).WithField("strike", req.Strike).Warn("live quote failed, using model premium")
		return nil
	}
	if q != nil && !q.Valid() {
		log.WithFields(logrus.Fields{
			"strike": req.Strike,
			"bid":    q.Bid,
			"ask":    q.Ask,
		}).Debug("discarding unusable live quote")
	}
	return q
}
