package pricing

import (
	"math"
	"testing"

	"github.com/dyike/WheelGo/consts"
)

func TestHistoricalVolatility_Fallbacks(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		window int
	}{
		{"empty", nil, 20},
		{"single price", []float64{100}, 20},
		{"window too small", []float64{100, 101, 102}, 1},
		{"flat series", []float64{100, 100, 100, 100}, 20},
		{"constant growth", []float64{100, 110, 121, 133.1}, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HistoricalVolatility(tt.closes, tt.window)
			if math.Abs(got-consts.DefaultVolatility) > 1e-9 {
				t.Errorf("HistoricalVolatility() = %v, want fallback %v", got, consts.DefaultVolatility)
			}
		})
	}
}

func TestHistoricalVolatility_Alternating(t *testing.T) {
	closes := []float64{100, 110, 100}

	// returns are +ln(1.1) and -ln(1.1); sample std = ln(1.1)*sqrt(2)
	want := math.Log(1.1) * math.Sqrt2 * math.Sqrt(consts.TradingDaysPerYear)
	got := HistoricalVolatility(closes, 20)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("HistoricalVolatility() = %v, want %v", got, want)
	}
}

func TestHistoricalVolatility_UsesTrailingWindow(t *testing.T) {
	// a violent early move followed by a calm alternating tail
	closes := []float64{100, 300, 100, 101, 100, 101, 100}

	full := HistoricalVolatility(closes, 100)
	tail := HistoricalVolatility(closes, 4)
	if tail >= full {
		t.Fatalf("expected trailing window to exclude early spike: tail=%v full=%v", tail, full)
	}

	want := HistoricalVolatility(closes[len(closes)-5:], 100)
	if math.Abs(tail-want) > 1e-12 {
		t.Errorf("window 4 = %v, want %v", tail, want)
	}
}
