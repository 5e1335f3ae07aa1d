package pricing

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/dyike/WheelGo/models"
)

func TestEstimatePremium_KnownValues(t *testing.T) {
	in := Inputs{Spot: 100, Strike: 100, TimeToExpiry: 1, Volatility: 0.2, RiskFreeRate: 0.05}

	tests := []struct {
		optionType models.OptionType
		want       float64
	}{
		{models.OptionTypeCall, 10.4506},
		{models.OptionTypePut, 5.5735},
	}

	for _, tt := range tests {
		t.Run(tt.optionType.String(), func(t *testing.T) {
			got, err := EstimatePremium(in, tt.optionType)
			if err != nil {
				t.Fatalf("EstimatePremium: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-3 {
				t.Errorf("EstimatePremium() = %.5f, want %.4f", got, tt.want)
			}
		})
	}
}

func TestEstimatePremium_PutCallParity(t *testing.T) {
	in := Inputs{Spot: 101.3, Strike: 96.25, TimeToExpiry: 4.27 / 365, Volatility: 0.31, RiskFreeRate: 0.05}

	call, err := EstimatePremium(in, models.OptionTypeCall)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	put, err := EstimatePremium(in, models.OptionTypePut)
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	parity := in.Spot - in.Strike*math.Exp(-in.RiskFreeRate*in.TimeToExpiry)
	if math.Abs((call-put)-parity) > 1e-9 {
		t.Errorf("call-put = %v, want %v", call-put, parity)
	}
}

func TestEstimatePremium_NonNegativeAndMonotone(t *testing.T) {
	spots := []float64{50, 95, 100, 105, 300}
	strikes := []float64{47.5, 95, 100, 105, 315}
	expiries := []float64{1.0 / 365, 4.27 / 365, 30.0 / 365, 1}
	vols := []float64{0.01, 0.05, 0.1, 0.2, 0.4, 0.8, 1.5}
	rates := []float64{0, 0.05}

	for _, optionType := range []models.OptionType{models.OptionTypePut, models.OptionTypeCall} {
		for _, s := range spots {
			for _, k := range strikes {
				for _, r := range rates {
					// non-decreasing in volatility
					for _, tte := range expiries {
						prev := -1.0
						for _, v := range vols {
							p, err := EstimatePremium(Inputs{Spot: s, Strike: k, TimeToExpiry: tte, Volatility: v, RiskFreeRate: r}, optionType)
							if err != nil {
								t.Fatalf("unexpected error: %v", err)
							}
							if p < 0 {
								t.Fatalf("%s S=%v K=%v T=%v v=%v: negative premium %v", optionType, s, k, tte, v, p)
							}
							if p < prev-1e-9 {
								t.Fatalf("%s S=%v K=%v T=%v: premium fell from %v to %v as vol rose to %v", optionType, s, k, tte, prev, p, v)
							}
							prev = p
						}
					}

					// non-decreasing in time to expiry (calls always; puts when r == 0)
					if optionType == models.OptionTypePut && r != 0 {
						continue
					}
					for _, v := range vols {
						prev := -1.0
						for _, tte := range expiries {
							p, err := EstimatePremium(Inputs{Spot: s, Strike: k, TimeToExpiry: tte, Volatility: v, RiskFreeRate: r}, optionType)
							if err != nil {
								t.Fatalf("unexpected error: %v", err)
							}
							if p < prev-1e-9 {
								t.Fatalf("%s S=%v K=%v v=%v: premium fell from %v to %v as T rose to %v", optionType, s, k, v, prev, p, tte)
							}
							prev = p
						}
					}
				}
			}
		}
	}
}

func TestEstimatePremium_InvalidInputs(t *testing.T) {
	valid := Inputs{Spot: 100, Strike: 95, TimeToExpiry: 0.01, Volatility: 0.2, RiskFreeRate: 0.05}

	tests := []struct {
		name       string
		mutate     func(in *Inputs)
		optionType models.OptionType
	}{
		{"zero time", func(in *Inputs) { in.TimeToExpiry = 0 }, models.OptionTypePut},
		{"negative time", func(in *Inputs) { in.TimeToExpiry = -0.1 }, models.OptionTypeCall},
		{"zero volatility", func(in *Inputs) { in.Volatility = 0 }, models.OptionTypePut},
		{"zero spot", func(in *Inputs) { in.Spot = 0 }, models.OptionTypePut},
		{"negative strike", func(in *Inputs) { in.Strike = -1 }, models.OptionTypeCall},
		{"nan spot", func(in *Inputs) { in.Spot = math.NaN() }, models.OptionTypePut},
		{"inf rate", func(in *Inputs) { in.RiskFreeRate = math.Inf(1) }, models.OptionTypeCall},
		{"unknown type", func(in *Inputs) {}, models.OptionType("straddle")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			p, err := EstimatePremium(in, tt.optionType)
			if !errors.Is(err, ErrInvalidInputs) {
				t.Fatalf("expected ErrInvalidInputs, got %v", err)
			}
			if p != 0 {
				t.Errorf("expected zero premium on error, got %v", p)
			}
		})
	}
}

func TestBlackScholes_ImplementsEstimator(t *testing.T) {
	var est Estimator = NewBlackScholes()
	in := Inputs{Spot: 100, Strike: 95, TimeToExpiry: 4.27 / 365, Volatility: 0.25, RiskFreeRate: 0.05}

	got, err := est.EstimatePremium(in, models.OptionTypePut)
	if err != nil {
		t.Fatalf("EstimatePremium: %v", err)
	}
	want, _ := EstimatePremium(in, models.OptionTypePut)
	if got != want {
		t.Errorf("estimator = %v, function = %v", got, want)
	}
}

func TestYearFraction(t *testing.T) {
	from := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)
	to := time.Date(2024, 3, 8, 16, 0, 0, 0, time.UTC)

	want := (4*24 + 6.5) / 24 / 365
	if got := YearFraction(from, to); math.Abs(got-want) > 1e-12 {
		t.Errorf("YearFraction() = %v, want %v", got, want)
	}
}
