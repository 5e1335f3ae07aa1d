package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Phase is the state of the wheel portfolio between weekly steps
type Phase string

const (
	PhaseSeekingPut    Phase = "SEEKING_PUT"
	PhaseHoldingShares Phase = "HOLDING_SHARES"
)

func (p Phase) String() string {
	return string(p)
}

// ActionKind labels one entry of the audit trail
type ActionKind string

const (
	ActionSellPut     ActionKind = "SELL_PUT"
	ActionPutExpired  ActionKind = "PUT_EXPIRED"
	ActionPutAssigned ActionKind = "PUT_ASSIGNED"
	ActionSellCall    ActionKind = "SELL_CALL"
	ActionCallExpired ActionKind = "CALL_EXPIRED"
	ActionCallAway    ActionKind = "CALL_AWAY"
)

func (a ActionKind) String() string {
	return string(a)
}

// DisplayName returns the label used in tables and exports.
func (a ActionKind) DisplayName() string {
	switch a {
	case ActionSellPut:
		return "Sell Put"
	case ActionPutExpired:
		return "Put Expired"
	case ActionPutAssigned:
		return "Assigned"
	case ActionSellCall:
		return "Sell Call"
	case ActionCallExpired:
		return "Call Expired"
	case ActionCallAway:
		return "Called Away"
	default:
		return string(a)
	}
}

// IsSale reports whether the action opened a new short option.
func (a ActionKind) IsSale() bool {
	return a == ActionSellPut || a == ActionSellCall
}

// Premium sources recorded on sale actions
const (
	PremiumSourceModel  = "model"
	PremiumSourceMarket = "market"
)

// ActionRecord is one immutable row of the simulation audit trail.
// Premium is the whole-contract premium (per share × lot size) and is zero on resolution rows.
type ActionRecord struct {
	Date                time.Time       `json:"date"`
	Action              ActionKind      `json:"action"`
	StockPrice          decimal.Decimal `json:"stock_price"`
	Strike              decimal.Decimal `json:"strike"`
	Premium             decimal.Decimal `json:"premium"`
	SharesHeldAfter     int             `json:"shares_held_after"`
	CashAfter           decimal.Decimal `json:"cash_after"`
	PortfolioValueAfter decimal.Decimal `json:"portfolio_value_after"`
	Expiry              time.Time       `json:"expiry"`
	PremiumSource       string          `json:"premium_source,omitempty"`
}

// SimulationSummary is derived from the records and the starting capital; it is never mutated on its own.
type SimulationSummary struct {
	StartingCapital  decimal.Decimal `json:"starting_capital"`
	EndingCapital    decimal.Decimal `json:"ending_capital"`
	TotalReturnPct   float64         `json:"total_return_pct"`
	PutsSold         int             `json:"puts_sold"`
	CallsSold        int             `json:"calls_sold"`
	Assignments      int             `json:"assignments"`
	CallAways        int             `json:"call_aways"`
	PutsExpired      int             `json:"puts_expired"`
	CallsExpired     int             `json:"calls_expired"`
	PremiumCollected decimal.Decimal `json:"premium_collected"`
	SharesHeldAtEnd  int             `json:"shares_held_at_end"`
	CashAtEnd        decimal.Decimal `json:"cash_at_end"`
}

// EquityPoint is one (date, portfolio value) pair of the equity curve
type EquityPoint struct {
	Date  time.Time       `json:"date"`
	Value decimal.Decimal `json:"value"`
}
