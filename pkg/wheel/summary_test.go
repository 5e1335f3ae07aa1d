package wheel

import (
	"testing"

	"github.com/dyike/WheelGo/models"
	"github.com/shopspring/decimal"
)

func summariesEqual(a, b models.SimulationSummary) bool {
	return a.StartingCapital.Equal(b.StartingCapital) &&
		a.EndingCapital.Equal(b.EndingCapital) &&
		a.TotalReturnPct == b.TotalReturnPct &&
		a.PutsSold == b.PutsSold &&
		a.CallsSold == b.CallsSold &&
		a.Assignments == b.Assignments &&
		a.CallAways == b.CallAways &&
		a.PutsExpired == b.PutsExpired &&
		a.CallsExpired == b.CallsExpired &&
		a.PremiumCollected.Equal(b.PremiumCollected) &&
		a.SharesHeldAtEnd == b.SharesHeldAtEnd &&
		a.CashAtEnd.Equal(b.CashAtEnd)
}

func rec(date string, action models.ActionKind, price, strike, premium string, shares int, cash string) models.ActionRecord {
	p := decimal.RequireFromString(price)
	c := decimal.RequireFromString(cash)
	return models.ActionRecord{
		Date:                day(date),
		Action:              action,
		StockPrice:          p,
		Strike:              decimal.RequireFromString(strike),
		Premium:             decimal.RequireFromString(premium),
		SharesHeldAfter:     shares,
		CashAfter:           c,
		PortfolioValueAfter: c.Add(p.Mul(decimal.NewFromInt(int64(shares)))),
	}
}

func sampleTrail() []models.ActionRecord {
	return []models.ActionRecord{
		rec("2024-03-04", models.ActionSellPut, "100", "95", "125", 0, "100125"),
		rec("2024-03-08", models.ActionPutAssigned, "90", "95", "0", 100, "90625"),
		rec("2024-03-11", models.ActionSellCall, "92", "96.6", "80", 100, "90705"),
		rec("2024-03-15", models.ActionCallExpired, "95", "96.6", "0", 100, "90705"),
		rec("2024-03-18", models.ActionSellCall, "96", "100.8", "60", 100, "90765"),
		rec("2024-03-22", models.ActionCallAway, "101", "100.8", "0", 0, "100845"),
		rec("2024-03-25", models.ActionSellPut, "101", "95.95", "50", 0, "100895"),
		rec("2024-03-29", models.ActionPutExpired, "102", "95.95", "0", 0, "100895"),
	}
}

func TestSummarize(t *testing.T) {
	start := decimal.NewFromInt(100000)
	s := Summarize(sampleTrail(), start)

	tallies := []struct {
		name      string
		got, want int
	}{
		{"puts sold", s.PutsSold, 2},
		{"calls sold", s.CallsSold, 2},
		{"assignments", s.Assignments, 1},
		{"call aways", s.CallAways, 1},
		{"puts expired", s.PutsExpired, 1},
		{"calls expired", s.CallsExpired, 1},
		{"shares at end", s.SharesHeldAtEnd, 0},
	}
	for _, tt := range tallies {
		if tt.got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.want)
		}
	}

	assertDecimal(t, "starting capital", s.StartingCapital, "100000")
	assertDecimal(t, "ending capital", s.EndingCapital, "100895")
	assertDecimal(t, "cash at end", s.CashAtEnd, "100895")
	assertDecimal(t, "premium collected", s.PremiumCollected, "315")
	if s.TotalReturnPct != 0.895 {
		t.Errorf("TotalReturnPct = %v, want 0.895", s.TotalReturnPct)
	}
}

func TestSummarize_Empty(t *testing.T) {
	start := decimal.NewFromInt(2500)
	s := Summarize(nil, start)

	assertDecimal(t, "ending capital", s.EndingCapital, "2500")
	assertDecimal(t, "cash at end", s.CashAtEnd, "2500")
	assertDecimal(t, "premium collected", s.PremiumCollected, "0")
	if s.TotalReturnPct != 0 || s.PutsSold != 0 || s.SharesHeldAtEnd != 0 {
		t.Errorf("unexpected summary for empty trail: %+v", s)
	}
}

func TestSummarize_ZeroStartingCapital(t *testing.T) {
	s := Summarize(sampleTrail()[:1], decimal.Zero)
	if s.TotalReturnPct != 0 {
		t.Errorf("TotalReturnPct = %v, want 0", s.TotalReturnPct)
	}
}

func TestSummarize_Idempotent(t *testing.T) {
	records := sampleTrail()
	start := decimal.NewFromInt(100000)

	first := Summarize(records, start)
	second := Summarize(records, start)
	if !summariesEqual(first, second) {
		t.Errorf("Summarize not idempotent: %+v vs %+v", first, second)
	}
	if len(records) != len(sampleTrail()) {
		t.Error("Summarize modified its input")
	}
}

func TestEquityCurve(t *testing.T) {
	records := sampleTrail()
	curve := EquityCurve(records)

	if len(curve) != len(records) {
		t.Fatalf("curve has %d points, want %d", len(curve), len(records))
	}
	for i, pt := range curve {
		if !pt.Date.Equal(records[i].Date) || !pt.Value.Equal(records[i].PortfolioValueAfter) {
			t.Errorf("point %d = (%s, %s), want (%s, %s)", i, pt.Date, pt.Value, records[i].Date, records[i].PortfolioValueAfter)
		}
	}
	assertDecimal(t, "assigned week mark", curve[1].Value, "99625")

	if got := EquityCurve(nil); len(got) != 0 {
		t.Errorf("EquityCurve(nil) = %v, want empty", got)
	}
}

func TestCashDeltas(t *testing.T) {
	deltas := CashDeltas(sampleTrail(), decimal.NewFromInt(100000))
	want := []string{"125", "-9500", "80", "0", "60", "10080", "50", "0"}

	if len(deltas) != len(want) {
		t.Fatalf("got %d deltas, want %d", len(deltas), len(want))
	}
	for i, w := range want {
		assertDecimal(t, "delta", deltas[i], w)
	}
}
