package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dyike/WheelGo/config"
	"github.com/dyike/WheelGo/consts"
	"github.com/dyike/WheelGo/internal/utils"
	"github.com/dyike/WheelGo/models"
	"github.com/dyike/WheelGo/pkg/wheel"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func day(s string) time.Time {
	t, err := time.Parse(consts.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// testConfig points every directory into a temp root and reads history from offline CSV files
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	cfg.DataSource = consts.SourceCSV
	cfg.OnlineTools = false
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return cfg
}

// writeBars exports one bar per weekday in [from, to] around a gently oscillating price
func writeBars(t *testing.T, cfg *config.Config, symbol string, from, to time.Time) []models.PriceBar {
	t.Helper()
	var bars []models.PriceBar
	i := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		price := 100 + 6*math.Sin(float64(i)/6)
		open := decimal.NewFromFloat(price).Round(2)
		closePx := decimal.NewFromFloat(price * (1 + 0.004*float64(i%3-1))).Round(2)
		bars = append(bars, models.PriceBar{
			Symbol: symbol,
			Date:   d,
			Open:   open,
			High:   decimal.Max(open, closePx).Add(decimal.NewFromInt(1)),
			Low:    decimal.Min(open, closePx).Sub(decimal.NewFromInt(1)),
			Close:  closePx,
			Volume: 1_000_000,
		})
		i++
	}
	if _, err := utils.NewCSVManager(cfg.DataDir).WriteMarketDataToCSV(symbol, bars); err != nil {
		t.Fatalf("WriteMarketDataToCSV: %v", err)
	}
	return bars
}

func spySelections() UserSelections {
	return UserSelections{
		Ticker:          "spy",
		StrikePct:       0.95,
		StartDate:       day("2024-01-01"),
		EndDate:         day("2024-03-01"),
		StartingCapital: DefaultCapital,
	}
}

func newTestSession(t *testing.T, cfg *config.Config) *BacktestSession {
	t.Helper()
	session, err := NewBacktestSession(cfg, quietLogger())
	if err != nil {
		t.Fatalf("NewBacktestSession: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func TestBacktestSessionRunSaveExport(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	writeBars(t, cfg, "SPY", day("2023-10-02"), day("2024-03-29"))
	session := newTestSession(t, cfg)

	if got, want := session.Source(), consts.SourceCSV+"+"+consts.SourceArchive; got != want {
		t.Errorf("Source = %q, want %q", got, want)
	}

	sel := spySelections()
	res, err := session.Run(ctx, sel)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Params.Ticker != "SPY" {
		t.Errorf("Ticker = %q, want SPY", res.Params.Ticker)
	}
	if res.Params.LotSize != consts.DefaultLotSize {
		t.Errorf("LotSize = %d, want %d", res.Params.LotSize, consts.DefaultLotSize)
	}
	if want := len(wheel.Schedule(sel.StartDate, sel.EndDate)); res.Weeks != want {
		t.Errorf("Weeks = %d, want %d", res.Weeks, want)
	}
	if len(res.Records) == 0 {
		t.Fatal("expected at least one action")
	}

	symbols, err := session.archive.Symbols(ctx)
	if err != nil {
		t.Fatalf("Symbols: %v", err)
	}
	if symbols["SPY"] == 0 {
		t.Errorf("bars were not archived: %v", symbols)
	}

	runID, err := session.Save(ctx, res)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if runID == "" {
		t.Fatal("Save returned an empty run id")
	}

	rm := NewResultsManager(session, io.Discard)
	loaded, err := rm.LoadResult(ctx, runID)
	if err != nil {
		t.Fatalf("LoadResult: %v", err)
	}
	if loaded == nil {
		t.Fatal("saved run not found")
	}
	if len(loaded.Records) != len(res.Records) {
		t.Errorf("loaded %d records, want %d", len(loaded.Records), len(res.Records))
	}
	if !loaded.Summary.EndingCapital.Equal(res.Summary.EndingCapital) {
		t.Errorf("EndingCapital = %s, want %s", loaded.Summary.EndingCapital, res.Summary.EndingCapital)
	}
	if loaded.SkippedWeeks != res.SkippedWeeks {
		t.Errorf("SkippedWeeks = %d, want %d", loaded.SkippedWeeks, res.SkippedWeeks)
	}

	paths, err := session.Export(res, runID)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("Export wrote %d files, want 3", len(paths))
	}
	for _, p := range paths {
		if !strings.Contains(p, runID) {
			t.Errorf("export path %s does not carry the run id", p)
		}
		if _, err := os.Stat(p); err != nil {
			t.Errorf("export %s: %v", p, err)
		}
	}

	if err := rm.DeleteResult(ctx, runID); err != nil {
		t.Fatalf("DeleteResult: %v", err)
	}
	if loaded, err := rm.LoadResult(ctx, runID); err != nil || loaded != nil {
		t.Errorf("LoadResult after delete = %v, %v; want nil, nil", loaded, err)
	}
	if err := rm.DeleteResult(ctx, runID); err == nil {
		t.Error("deleting a missing run should fail")
	}
}

func TestBacktestSessionMissingData(t *testing.T) {
	cfg := testConfig(t)
	session := newTestSession(t, cfg)

	sel := spySelections()
	sel.Ticker = "QQQ"
	_, err := session.Run(context.Background(), sel)
	if !errors.Is(err, wheel.ErrDataUnavailable) {
		t.Fatalf("Run error = %v, want ErrDataUnavailable", err)
	}
}

func TestBacktestSessionInvalidParameters(t *testing.T) {
	cfg := testConfig(t)
	writeBars(t, cfg, "SPY", day("2023-10-02"), day("2024-03-29"))
	session := newTestSession(t, cfg)

	sel := spySelections()
	sel.StrikePct = 1.2
	_, err := session.Run(context.Background(), sel)
	if !errors.Is(err, wheel.ErrInvalidParameters) {
		t.Fatalf("Run error = %v, want ErrInvalidParameters", err)
	}
}

func TestFetchAndExportBars(t *testing.T) {
	cfg := testConfig(t)
	writeBars(t, cfg, "SPY", day("2024-01-01"), day("2024-03-29"))
	session := newTestSession(t, cfg)

	bars, err := session.Fetch(context.Background(), "spy", day("2024-02-01"), day("2024-02-29"))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(bars) != 21 {
		t.Errorf("Fetch returned %d bars, want 21 weekdays in February 2024", len(bars))
	}

	path, err := session.ExportBars("SPY", bars)
	if err != nil {
		t.Fatalf("ExportBars: %v", err)
	}
	if !strings.HasPrefix(path, cfg.MarketCSVDir()) {
		t.Errorf("export %s is outside %s", path, cfg.MarketCSVDir())
	}

	if _, err := session.Fetch(context.Background(), "WAYTOOLONGTICKER", day("2024-02-01"), day("2024-02-29")); err == nil {
		t.Error("expected an invalid symbol error")
	}
}

func TestRunSweep(t *testing.T) {
	cfg := testConfig(t)
	writeBars(t, cfg, "SPY", day("2023-10-02"), day("2024-03-29"))
	session := newTestSession(t, cfg)

	var out bytes.Buffer
	bm := NewBatchManager(session, &out)
	progress, err := bm.RunSweep(context.Background(), spySelections(), []float64{0.90, 0.95, 1.5}, 2)
	if err != nil {
		t.Fatalf("RunSweep: %v", err)
	}

	if progress.Total != 3 || progress.Completed != 2 || progress.Failed != 1 {
		t.Errorf("progress = %d total, %d completed, %d failed; want 3, 2, 1",
			progress.Total, progress.Completed, progress.Failed)
	}
	for i, pct := range []float64{0.90, 0.95} {
		r := progress.Results[i]
		if r.StrikePct != pct || r.Status != BatchCompleted || r.Result == nil {
			t.Errorf("result %d = %+v, want completed at %.2f", i, r, pct)
		}
	}
	failed := progress.Results[2]
	if failed.Status != BatchFailed || !errors.Is(failed.Error, wheel.ErrInvalidParameters) {
		t.Errorf("result 2 = %v (%v), want failed with ErrInvalidParameters", failed.Status, failed.Error)
	}

	rows := progress.Rows()
	if len(rows) != 3 {
		t.Fatalf("Rows = %d, want 3", len(rows))
	}

	bm.displayBatchSummary(progress)
	if !strings.Contains(out.String(), "SPY") {
		t.Errorf("sweep output does not mention the ticker:\n%s", out.String())
	}
}

func TestRunSweepNoStrikes(t *testing.T) {
	cfg := testConfig(t)
	session := newTestSession(t, cfg)

	if _, err := NewBatchManager(session, io.Discard).RunSweep(context.Background(), spySelections(), nil, 1); err == nil {
		t.Error("expected error for an empty sweep")
	}
}
