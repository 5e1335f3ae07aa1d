package display

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/dyike/WheelGo/models"
	"github.com/dyike/WheelGo/pkg/wheel"
	"github.com/shopspring/decimal"
)

func curve(values ...int64) []models.EquityPoint {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	out := make([]models.EquityPoint, len(values))
	for i, v := range values {
		out[i] = models.EquityPoint{Date: start.AddDate(0, 0, 7*i), Value: decimal.NewFromInt(v)}
	}
	return out
}

func TestSparkline(t *testing.T) {
	tests := []struct {
		name  string
		curve []models.EquityPoint
		width int
		want  string
	}{
		{name: "empty", curve: nil, width: 10, want: ""},
		{name: "flat", curve: curve(5, 5, 5), width: 10, want: "▁▁▁"},
		{name: "rising", curve: curve(0, 7), width: 10, want: "▁█"},
		{name: "valley", curve: curve(10, 0, 10), width: 10, want: "█▁█"},
		{name: "single column", curve: curve(1, 2, 3), width: 1, want: "▁"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sparkline(tt.curve, tt.width); got != tt.want {
				t.Errorf("Sparkline = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSparklineSamplesLongCurves(t *testing.T) {
	values := make([]int64, 200)
	for i := range values {
		values[i] = int64(i)
	}
	got := Sparkline(curve(values...), 40)
	if n := utf8.RuneCountInString(got); n != 40 {
		t.Fatalf("got %d runes, want 40", n)
	}
	if !strings.HasPrefix(got, "▁") || !strings.HasSuffix(got, "█") {
		t.Fatalf("sampled sparkline %q should span lowest to highest", got)
	}
}

func TestMoney(t *testing.T) {
	tests := map[string]string{
		"0":          "$0.00",
		"125":        "$125.00",
		"1234.5":     "$1,234.50",
		"100000":     "$100,000.00",
		"-9500.125":  "-$9,500.13",
		"1234567.89": "$1,234,567.89",
	}
	for in, want := range tests {
		if got := money(decimal.RequireFromString(in)); got != want {
			t.Errorf("money(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestDisplayBacktestResults(t *testing.T) {
	mon := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	d := decimal.RequireFromString
	records := []models.ActionRecord{
		{Date: mon, Action: models.ActionSellPut, StockPrice: d("100"), Strike: d("95"), Premium: d("125"),
			CashAfter: d("100125"), PortfolioValueAfter: d("100125"), PremiumSource: models.PremiumSourceMarket},
		{Date: mon.AddDate(0, 0, 4), Action: models.ActionPutAssigned, StockPrice: d("90"), Strike: d("95"),
			SharesHeldAfter: 100, CashAfter: d("90625"), PortfolioValueAfter: d("99625")},
	}
	res := &wheel.Result{
		Params:       wheel.Params{Ticker: "SPY", StrikePct: 0.95, StartDate: mon, EndDate: mon.AddDate(0, 0, 4)},
		Records:      records,
		Summary:      wheel.Summarize(records, d("100000")),
		EquityCurve:  wheel.EquityCurve(records),
		SkippedWeeks: 1,
		Weeks:        2,
	}

	var buf bytes.Buffer
	NewResultsDisplay(&buf, "SPY").DisplayBacktestResults(res, true)
	out := buf.String()

	for _, want := range []string{
		"SPY @ 95%",
		"$100,000.00",
		"$99,625.00",
		"-0.38%",
		"Assigned",
		"Sell Put",
		"$125.00 *",
		"1 of 2 weeks skipped",
		"Portfolio Value",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestRenderSweepTable(t *testing.T) {
	out := RenderSweepTable([]SweepRow{
		{StrikePct: 0.9, Summary: models.SimulationSummary{EndingCapital: decimal.NewFromInt(101000), TotalReturnPct: 1, PutsSold: 3, CallsSold: 2}},
		{StrikePct: 0.95, Err: errors.New("no bars")},
	})
	for _, want := range []string{"0.90", "$101,000.00", "+1.00%", "0.95", "no bars"} {
		if !strings.Contains(out, want) {
			t.Errorf("sweep table missing %q\n%s", want, out)
		}
	}
}
