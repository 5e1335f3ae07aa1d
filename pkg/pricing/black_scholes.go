// Package pricing estimates option premiums for the wheel backtester.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dyike/WheelGo/consts"
	"github.com/dyike/WheelGo/models"
)

// ErrInvalidInputs is returned when the closed-form model cannot produce a meaningful price.
var ErrInvalidInputs = errors.New("pricing: invalid inputs")

// Inputs holds the five Black-Scholes parameters
type Inputs struct {
	Spot         float64 // underlying price
	Strike       float64
	TimeToExpiry float64 // years
	Volatility   float64 // annualised
	RiskFreeRate float64
}

// Validate rejects inputs the formula is undefined for.
func (in Inputs) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"spot", in.Spot},
		{"strike", in.Strike},
		{"time to expiry", in.TimeToExpiry},
		{"volatility", in.Volatility},
		{"risk-free rate", in.RiskFreeRate},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidInputs, f.name)
		}
	}
	switch {
	case in.Spot <= 0:
		return fmt.Errorf("%w: spot must be positive, got %v", ErrInvalidInputs, in.Spot)
	case in.Strike <= 0:
		return fmt.Errorf("%w: strike must be positive, got %v", ErrInvalidInputs, in.Strike)
	case in.TimeToExpiry <= 0:
		return fmt.Errorf("%w: time to expiry must be positive, got %v", ErrInvalidInputs, in.TimeToExpiry)
	case in.Volatility <= 0:
		return fmt.Errorf("%w: volatility must be positive, got %v", ErrInvalidInputs, in.Volatility)
	}
	return nil
}

// Estimator produces a theoretical premium per share.
type Estimator interface {
	EstimatePremium(in Inputs, optionType models.OptionType) (float64, error)
}

// BlackScholes is the European closed-form estimator
type BlackScholes struct{}

// NewBlackScholes creates a Black-Scholes estimator
func NewBlackScholes() *BlackScholes {
	return &BlackScholes{}
}

// EstimatePremium implements Estimator.
func (BlackScholes) EstimatePremium(in Inputs, optionType models.OptionType) (float64, error) {
	return EstimatePremium(in, optionType)
}

// EstimatePremium prices a European put or call. The result is never negative.
func EstimatePremium(in Inputs, optionType models.OptionType) (float64, error) {
	if !optionType.IsValid() {
		return 0, fmt.Errorf("%w: unknown option type %q", ErrInvalidInputs, optionType)
	}
	if err := in.Validate(); err != nil {
		return 0, err
	}

	sqrtT := math.Sqrt(in.TimeToExpiry)
	d1 := (math.Log(in.Spot/in.Strike) + (in.RiskFreeRate+0.5*in.Volatility*in.Volatility)*in.TimeToExpiry) / (in.Volatility * sqrtT)
	d2 := d1 - in.Volatility*sqrtT
	discount := math.Exp(-in.RiskFreeRate * in.TimeToExpiry)

	var price float64
	if optionType == models.OptionTypeCall {
		price = in.Spot*normCdf(d1) - in.Strike*discount*normCdf(d2)
	} else {
		price = in.Strike*discount*normCdf(-d2) - in.Spot*normCdf(-d1)
	}

	if math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, fmt.Errorf("%w: model produced a non-finite price", ErrInvalidInputs)
	}
	return math.Max(0, price), nil
}

// YearFraction converts the span between two instants into years of 365 days.
func YearFraction(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24 / consts.DaysPerYear
}

func normCdf(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}
