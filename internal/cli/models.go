package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dyike/WheelGo/config"
	"github.com/dyike/WheelGo/pkg/dataflows"
	"github.com/dyike/WheelGo/pkg/wheel"
	"github.com/shopspring/decimal"
)

// UserSelections holds everything a single backtest needs from the user
type UserSelections struct {
	Ticker          string
	StrikePct       float64
	StartDate       time.Time
	EndDate         time.Time
	StartingCapital decimal.Decimal
	LotSize         int
	LiveQuotes      bool
}

// Params converts the selections into engine parameters, taking strategy defaults from cfg
func (s UserSelections) Params(cfg *config.Config) wheel.Params {
	lot := s.LotSize
	if lot == 0 {
		lot = cfg.LotSize
	}
	return wheel.Params{
		Ticker:            dataflows.NormalizeSymbol(s.Ticker),
		StrikePct:         s.StrikePct,
		StartDate:         s.StartDate,
		EndDate:           s.EndDate,
		StartingCapital:   s.StartingCapital,
		LotSize:           lot,
		RiskFreeRate:      wheel.Rate(cfg.RiskFreeRate),
		VolatilityWindow:  cfg.VolatilityWindow,
		HistoryBufferDays: cfg.HistoryBufferDays,
	}
}

// DefaultCapital is offered when the user gives no starting capital
var DefaultCapital = decimal.NewFromInt(100000)

// parseStrikePct accepts either a fraction ("0.95") or a percentage ("95%")
func parseStrikePct(s string) (float64, error) {
	s = strings.TrimSpace(s)
	percent := strings.HasSuffix(s, "%")
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid strike percentage %q", s)
	}
	if percent {
		v /= 100
	}
	if v <= 0 || v >= 1 {
		return 0, fmt.Errorf("strike percentage must be between 0 and 1 (exclusive), got %s", s)
	}
	return v, nil
}

// parseStrikePcts splits a comma separated list, dropping duplicates but keeping order
func parseStrikePcts(s string) ([]float64, error) {
	var out []float64
	seen := make(map[float64]bool)
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		v, err := parseStrikePct(part)
		if err != nil {
			return nil, err
		}
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one strike percentage is required")
	}
	return out, nil
}

// parseCapital accepts plain or dollar formatted amounts ("$100,000")
func parseCapital(s string) (decimal.Decimal, error) {
	clean := strings.NewReplacer("$", "", ",", "", "_", "").Replace(strings.TrimSpace(s))
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid capital %q", s)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("capital must be positive, got %s", s)
	}
	return d, nil
}

// parseDateOr parses s, or returns fallback when s is empty
func parseDateOr(s string, fallback time.Time) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return fallback, nil
	}
	t, err := dataflows.ParseDateString(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format, use YYYY-MM-DD: %w", err)
	}
	return t, nil
}
