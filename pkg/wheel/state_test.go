package wheel

import (
	"errors"
	"math"
	"testing"

	"github.com/dyike/WheelGo/models"
	"github.com/shopspring/decimal"
)

func TestPortfolioStateCheck(t *testing.T) {
	tests := []struct {
		name    string
		state   PortfolioState
		wantErr bool
	}{
		{"fresh", NewPortfolioState(decimal.NewFromInt(1000)), false},
		{"holding", PortfolioState{Cash: decimal.NewFromInt(10), SharesHeld: 100, Phase: models.PhaseHoldingShares}, false},
		{"seeking with shares", PortfolioState{Cash: decimal.NewFromInt(10), SharesHeld: 100, Phase: models.PhaseSeekingPut}, true},
		{"holding without shares", PortfolioState{Cash: decimal.NewFromInt(10), Phase: models.PhaseHoldingShares}, true},
		{"negative cash", PortfolioState{Cash: decimal.NewFromInt(-1), Phase: models.PhaseSeekingPut}, true},
		{"unknown phase", PortfolioState{Cash: decimal.NewFromInt(10), Phase: "FLAT"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.state.Check()
			if tt.wantErr && !errors.Is(err, ErrInvariantViolated) {
				t.Errorf("expected ErrInvariantViolated, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestPortfolioStateValue(t *testing.T) {
	s := PortfolioState{Cash: decimal.RequireFromString("90625"), SharesHeld: 100, Phase: models.PhaseHoldingShares}
	assertDecimal(t, "value", s.Value(decimal.RequireFromString("90.5")), "99675")
}

func TestTransitionTable(t *testing.T) {
	for phase, tr := range transitions {
		if !tr.sale.IsSale() {
			t.Errorf("%s: sale action %s is not a sale", phase, tr.sale)
		}
		if tr.next == phase {
			t.Errorf("%s: exercise does not change phase", phase)
		}

		s := PortfolioState{Cash: decimal.NewFromInt(100000), Phase: phase}
		if phase == models.PhaseHoldingShares {
			s.SharesHeld = 100
		}
		tr.exercise(&s, decimal.NewFromInt(95), 100)
		s.Phase = tr.next
		if err := s.Check(); err != nil {
			t.Errorf("%s: exercise broke invariant: %v", phase, err)
		}
	}
}

func TestStrikes(t *testing.T) {
	tests := []struct {
		open      string
		pct       float64
		put, call string
	}{
		{"100", 0.95, "95", "105"},
		{"92", 0.95, "87.4", "96.6"},
		{"123.45", 0.9, "111.11", "135.8"},
		{"10.01", 0.97, "9.71", "10.31"},
	}

	for _, tt := range tests {
		open := decimal.RequireFromString(tt.open)
		assertDecimal(t, "put strike "+tt.open, PutStrike(open, tt.pct), tt.put)
		assertDecimal(t, "call strike "+tt.open, CallStrike(open, tt.pct), tt.call)
	}
}

func TestParamsValidate(t *testing.T) {
	valid := baseParams("2024-03-08")

	tests := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"empty ticker", func(p *Params) { p.Ticker = "  " }},
		{"zero strike pct", func(p *Params) { p.StrikePct = 0 }},
		{"negative strike pct", func(p *Params) { p.StrikePct = -0.5 }},
		{"strike pct of one", func(p *Params) { p.StrikePct = 1 }},
		{"strike pct above one", func(p *Params) { p.StrikePct = 1.2 }},
		{"nan strike pct", func(p *Params) { p.StrikePct = math.NaN() }},
		{"zero capital", func(p *Params) { p.StartingCapital = decimal.Zero }},
		{"negative capital", func(p *Params) { p.StartingCapital = decimal.NewFromInt(-1) }},
		{"end equals start", func(p *Params) { p.EndDate = p.StartDate }},
		{"end before start", func(p *Params) { p.EndDate = p.StartDate.AddDate(0, 0, -7) }},
		{"negative lot size", func(p *Params) { p.LotSize = -100 }},
		{"volatility window of one", func(p *Params) { p.VolatilityWindow = 1 }},
		{"negative buffer", func(p *Params) { p.HistoryBufferDays = -1 }},
		{"infinite rate", func(p *Params) { p.RiskFreeRate = Rate(math.Inf(1)) }},
		{"no complete week", func(p *Params) { p.StartDate, p.EndDate = day("2024-03-05"), day("2024-03-10") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			engine, err := NewEngine(p, &fakeHistory{})
			if !errors.Is(err, ErrInvalidParameters) {
				t.Fatalf("expected ErrInvalidParameters, got %v", err)
			}
			if engine != nil {
				t.Error("expected nil engine")
			}
		})
	}

	if _, err := NewEngine(valid, nil); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("nil provider: expected ErrInvalidParameters, got %v", err)
	}
}

func TestNewEngineDefaults(t *testing.T) {
	p := baseParams("2024-03-08")
	p.Ticker = " spy "
	p.LotSize = 0

	engine, err := NewEngine(p, &fakeHistory{})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	got := engine.Params()
	if got.Ticker != "SPY" || got.LotSize != 100 || got.VolatilityWindow != 20 || got.HistoryBufferDays != 60 || got.riskFreeRate() != 0.05 {
		t.Errorf("unexpected defaults: %+v", got)
	}
}

func TestNewEngineKeepsZeroRate(t *testing.T) {
	p := baseParams("2024-03-08")
	p.RiskFreeRate = Rate(0)

	engine, err := NewEngine(p, &fakeHistory{})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if got := engine.Params().RiskFreeRate; got == nil || *got != 0 {
		t.Errorf("risk-free rate = %v, want an explicit zero", got)
	}
}
