package pricing

import (
	"math"

	"github.com/dyike/WheelGo/consts"
)

// minVolatility is the annualised volatility below which a series counts as flat.
const minVolatility = 1e-9

// HistoricalVolatility annualises the sample standard deviation of log returns over the
// trailing window. It falls back to consts.DefaultVolatility when the series is too short
// or flat.
func HistoricalVolatility(closes []float64, window int) float64 {
	if len(closes) < 2 || window < 2 {
		return consts.DefaultVolatility
	}

	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev, cur := closes[i-1], closes[i]
		if prev <= 0 || cur <= 0 {
			continue
		}
		returns = append(returns, math.Log(cur/prev))
	}
	if len(returns) > window {
		returns = returns[len(returns)-window:]
	}

	vol := stdDev(returns) * math.Sqrt(consts.TradingDaysPerYear)
	// constant growth leaves a rounding residue rather than an exact zero
	if vol < minVolatility || math.IsNaN(vol) || math.IsInf(vol, 0) {
		return consts.DefaultVolatility
	}
	return vol
}

func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	sum := 0.0
	for _, v := range values {
		sum += (v - mean) * (v - mean)
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
