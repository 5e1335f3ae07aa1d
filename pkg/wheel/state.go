package wheel

import (
	"fmt"

	"github.com/dyike/WheelGo/consts"
	"github.com/dyike/WheelGo/models"
	"github.com/shopspring/decimal"
)

// PortfolioState is the cash and share ledger of one run.
type PortfolioState struct {
	Cash       decimal.Decimal `json:"cash"`
	SharesHeld int             `json:"shares_held"`
	Phase      models.Phase    `json:"phase"`
}

// NewPortfolioState starts a run with all capital in cash.
func NewPortfolioState(capital decimal.Decimal) PortfolioState {
	return PortfolioState{Cash: capital, Phase: models.PhaseSeekingPut}
}

// Value marks the portfolio at price.
func (s PortfolioState) Value(price decimal.Decimal) decimal.Decimal {
	return s.Cash.Add(price.Mul(decimal.NewFromInt(int64(s.SharesHeld))))
}

// Check enforces HOLDING_SHARES <=> shares held > 0 and a non-negative ledger.
func (s PortfolioState) Check() error {
	switch s.Phase {
	case models.PhaseSeekingPut:
		if s.SharesHeld != 0 {
			return fmt.Errorf("%w: %s with %d shares", ErrInvariantViolated, s.Phase, s.SharesHeld)
		}
	case models.PhaseHoldingShares:
		if s.SharesHeld <= 0 {
			return fmt.Errorf("%w: %s with %d shares", ErrInvariantViolated, s.Phase, s.SharesHeld)
		}
	default:
		return fmt.Errorf("%w: unknown phase %q", ErrInvariantViolated, s.Phase)
	}
	if s.Cash.IsNegative() {
		return fmt.Errorf("%w: cash went negative (%s)", ErrInvariantViolated, s.Cash)
	}
	return nil
}

// transition describes one phase of the wheel: what is sold, how it is struck and how it resolves.
type transition struct {
	sale      models.ActionKind
	option    models.OptionType
	exercised models.ActionKind
	expired   models.ActionKind
	next      models.Phase

	strike      func(open decimal.Decimal, pct decimal.Decimal) decimal.Decimal
	isExercised func(closePx, strike decimal.Decimal) bool
	exercise    func(s *PortfolioState, strike decimal.Decimal, lot int)
}

var one = decimal.NewFromInt(1)

var transitions = map[models.Phase]transition{
	models.PhaseSeekingPut: {
		sale:      models.ActionSellPut,
		option:    models.OptionTypePut,
		exercised: models.ActionPutAssigned,
		expired:   models.ActionPutExpired,
		next:      models.PhaseHoldingShares,
		strike: func(open, pct decimal.Decimal) decimal.Decimal {
			return open.Mul(pct).Round(consts.StrikeDecimals)
		},
		isExercised: func(closePx, strike decimal.Decimal) bool {
			return closePx.LessThan(strike)
		},
		exercise: func(s *PortfolioState, strike decimal.Decimal, lot int) {
			s.Cash = s.Cash.Sub(strike.Mul(decimal.NewFromInt(int64(lot))))
			s.SharesHeld += lot
		},
	},
	models.PhaseHoldingShares: {
		sale:      models.ActionSellCall,
		option:    models.OptionTypeCall,
		exercised: models.ActionCallAway,
		expired:   models.ActionCallExpired,
		next:      models.PhaseSeekingPut,
		strike: func(open, pct decimal.Decimal) decimal.Decimal {
			// mirror of the put margin: 0.95 -> 1.05
			return open.Mul(one.Add(one.Sub(pct))).Round(consts.StrikeDecimals)
		},
		isExercised: func(closePx, strike decimal.Decimal) bool {
			return closePx.GreaterThanOrEqual(strike)
		},
		exercise: func(s *PortfolioState, strike decimal.Decimal, lot int) {
			s.Cash = s.Cash.Add(strike.Mul(decimal.NewFromInt(int64(lot))))
			s.SharesHeld -= lot
		},
	},
}

// PutStrike is the cash-secured put strike for a Monday open.
func PutStrike(open decimal.Decimal, strikePct float64) decimal.Decimal {
	return transitions[models.PhaseSeekingPut].strike(open, decimal.NewFromFloat(strikePct))
}

// CallStrike is the covered call strike for a Monday open.
func CallStrike(open decimal.Decimal, strikePct float64) decimal.Decimal {
	return transitions[models.PhaseHoldingShares].strike(open, decimal.NewFromFloat(strikePct))
}
