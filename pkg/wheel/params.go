package wheel

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dyike/WheelGo/consts"
	"github.com/dyike/WheelGo/models"
	"github.com/shopspring/decimal"
)

// Params configures one backtest. Zero values of the optional fields take the consts defaults,
// except RiskFreeRate where only nil does.
type Params struct {
	Ticker          string          `json:"ticker"`
	StrikePct       float64         `json:"strike_pct"`
	StartDate       time.Time       `json:"start_date"`
	EndDate         time.Time       `json:"end_date"`
	StartingCapital decimal.Decimal `json:"starting_capital"`

	LotSize           int      `json:"lot_size"`
	RiskFreeRate      *float64 `json:"risk_free_rate,omitempty"`
	VolatilityWindow  int      `json:"volatility_window"`
	HistoryBufferDays int      `json:"history_buffer_days"`
}

// Rate returns a risk-free rate for Params. A nil rate takes consts.DefaultRiskFreeRate,
// so an explicit zero stays zero.
func Rate(r float64) *float64 {
	return &r
}

// riskFreeRate reads the rate of a defaulted parameter set.
func (p Params) riskFreeRate() float64 {
	if p.RiskFreeRate == nil {
		return consts.DefaultRiskFreeRate
	}
	return *p.RiskFreeRate
}

func (p Params) withDefaults() Params {
	p.Ticker = strings.ToUpper(strings.TrimSpace(p.Ticker))
	p.StartDate = models.TruncateDay(p.StartDate)
	p.EndDate = models.TruncateDay(p.EndDate)
	if p.LotSize == 0 {
		p.LotSize = consts.DefaultLotSize
	}
	if p.RiskFreeRate == nil {
		p.RiskFreeRate = Rate(consts.DefaultRiskFreeRate)
	}
	if p.VolatilityWindow == 0 {
		p.VolatilityWindow = consts.DefaultVolatilityWindow
	}
	if p.HistoryBufferDays == 0 {
		p.HistoryBufferDays = consts.DefaultHistoryBufferDays
	}
	return p
}

// Validate checks a defaulted parameter set.
func (p Params) Validate() error {
	switch {
	case p.Ticker == "":
		return fmt.Errorf("%w: ticker is required", ErrInvalidParameters)
	case math.IsNaN(p.StrikePct) || p.StrikePct <= 0 || p.StrikePct >= 1:
		return fmt.Errorf("%w: strike_pct must be in (0, 1), got %v", ErrInvalidParameters, p.StrikePct)
	case !p.StartingCapital.IsPositive():
		return fmt.Errorf("%w: starting capital must be positive, got %s", ErrInvalidParameters, p.StartingCapital)
	case p.StartDate.IsZero() || p.EndDate.IsZero():
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidParameters)
	case !p.EndDate.After(p.StartDate):
		return fmt.Errorf("%w: end date %s must be after start date %s", ErrInvalidParameters,
			p.EndDate.Format(consts.DateLayout), p.StartDate.Format(consts.DateLayout))
	case p.LotSize < 1:
		return fmt.Errorf("%w: lot size must be at least 1, got %d", ErrInvalidParameters, p.LotSize)
	case p.VolatilityWindow < 2:
		return fmt.Errorf("%w: volatility window must be at least 2, got %d", ErrInvalidParameters, p.VolatilityWindow)
	case p.HistoryBufferDays < 0:
		return fmt.Errorf("%w: history buffer cannot be negative, got %d", ErrInvalidParameters, p.HistoryBufferDays)
	case p.RiskFreeRate == nil || math.IsNaN(*p.RiskFreeRate) || math.IsInf(*p.RiskFreeRate, 0):
		return fmt.Errorf("%w: risk-free rate must be finite", ErrInvalidParameters)
	}

	if len(Schedule(p.StartDate, p.EndDate)) == 0 {
		return fmt.Errorf("%w: no complete Monday-Friday week between %s and %s", ErrInvalidParameters,
			p.StartDate.Format(consts.DateLayout), p.EndDate.Format(consts.DateLayout))
	}
	return nil
}
