package wheel

import (
	"github.com/dyike/WheelGo/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Summarize reduces an action trail to its summary statistics. It is a pure function of its inputs.
func Summarize(records []models.ActionRecord, startingCapital decimal.Decimal) models.SimulationSummary {
	s := models.SimulationSummary{
		StartingCapital:  startingCapital,
		EndingCapital:    startingCapital,
		CashAtEnd:        startingCapital,
		PremiumCollected: decimal.Zero,
	}

	for _, r := range records {
		switch r.Action {
		case models.ActionSellPut:
			s.PutsSold++
		case models.ActionSellCall:
			s.CallsSold++
		case models.ActionPutAssigned:
			s.Assignments++
		case models.ActionCallAway:
			s.CallAways++
		case models.ActionPutExpired:
			s.PutsExpired++
		case models.ActionCallExpired:
			s.CallsExpired++
		}
		s.PremiumCollected = s.PremiumCollected.Add(r.Premium)
	}

	if n := len(records); n > 0 {
		last := records[n-1]
		s.EndingCapital = last.PortfolioValueAfter
		s.SharesHeldAtEnd = last.SharesHeldAfter
		s.CashAtEnd = last.CashAfter
	}

	if !startingCapital.IsZero() {
		s.TotalReturnPct = s.EndingCapital.Sub(startingCapital).Div(startingCapital).Mul(hundred).InexactFloat64()
	}
	return s
}

// EquityCurve projects the trail onto (date, portfolio value) pairs, one per record.
func EquityCurve(records []models.ActionRecord) []models.EquityPoint {
	curve := make([]models.EquityPoint, 0, len(records))
	for _, r := range records {
		curve = append(curve, models.EquityPoint{Date: r.Date, Value: r.PortfolioValueAfter})
	}
	return curve
}

// CashDeltas returns the cash movement of each record relative to the previous one.
func CashDeltas(records []models.ActionRecord, startingCapital decimal.Decimal) []decimal.Decimal {
	deltas := make([]decimal.Decimal, 0, len(records))
	prev := startingCapital
	for _, r := range records {
		deltas = append(deltas, r.CashAfter.Sub(prev))
		prev = r.CashAfter
	}
	return deltas
}
