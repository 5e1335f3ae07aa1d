package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dyike/WheelGo/internal/display"
	runstore "github.com/dyike/WheelGo/internal/storage/sqlite"
	"github.com/dyike/WheelGo/internal/utils"
	"github.com/dyike/WheelGo/pkg/wheel"
)

// ResultsManager handles saved backtest results
type ResultsManager struct {
	session *BacktestSession
	out     io.Writer
}

// NewResultsManager creates a new results manager
func NewResultsManager(session *BacktestSession, out io.Writer) *ResultsManager {
	return &ResultsManager{
		session: session,
		out:     out,
	}
}

// ListResults lists one page of saved runs. A non-empty sortBy reorders the page.
func (rm *ResultsManager) ListResults(ctx context.Context, cursor int64, limit int, sortBy string, reverse bool) ([]runstore.RunWithMeta, error) {
	store, err := rm.session.RunStore()
	if err != nil {
		return nil, err
	}
	runs, err := store.ListRuns(ctx, cursor, limit)
	if err != nil {
		return nil, err
	}
	sortResults(runs, sortBy, reverse)
	return runs, nil
}

// sortResults sorts results based on criteria
func sortResults(runs []runstore.RunWithMeta, sortBy string, reverse bool) {
	var less func(a, b runstore.RunWithMeta) bool
	switch strings.ToLower(sortBy) {
	case "":
		return
	case "ticker", "symbol":
		less = func(a, b runstore.RunWithMeta) bool { return a.Ticker < b.Ticker }
	case "return":
		less = func(a, b runstore.RunWithMeta) bool { return a.TotalReturnPct < b.TotalReturnPct }
	case "strike":
		less = func(a, b runstore.RunWithMeta) bool { return a.StrikePct < b.StrikePct }
	default:
		less = func(a, b runstore.RunWithMeta) bool { return a.RowID < b.RowID }
	}

	sort.SliceStable(runs, func(i, j int) bool {
		if reverse {
			return less(runs[j], runs[i])
		}
		return less(runs[i], runs[j])
	})
}

// DisplayResults prints a page of runs as a table
func (rm *ResultsManager) DisplayResults(runs []runstore.RunWithMeta) {
	if len(runs) == 0 {
		display.DisplayInfo(rm.out, "No saved backtests yet. Use 'wheelgo backtest --save' to record one.")
		return
	}
	rows := make([]display.RunRow, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, display.RunRow{
			ID:            r.ID,
			Ticker:        r.Ticker,
			StrikePct:     r.StrikePct,
			Start:         r.StartDate,
			End:           r.EndDate,
			EndingCapital: r.EndingCapital,
			ReturnPct:     r.TotalReturnPct,
			Source:        r.DataSource,
			CreatedAt:     r.CreatedAt,
		})
	}
	fmt.Fprintln(rm.out, display.RenderRunsTable(rows))
	if len(runs) > 0 {
		fmt.Fprintf(rm.out, "Next page: --cursor %d\n", runs[len(runs)-1].RowID)
	}
}

// LoadResult rebuilds a saved run. It returns (nil, nil) when no run has the id.
func (rm *ResultsManager) LoadResult(ctx context.Context, runID string) (*wheel.Result, error) {
	store, err := rm.session.RunStore()
	if err != nil {
		return nil, err
	}
	run, err := store.GetRun(ctx, runID)
	if err != nil || run == nil {
		return nil, err
	}
	records, err := store.ListActions(ctx, runID)
	if err != nil {
		return nil, err
	}

	weeks := len(wheel.Schedule(run.Params.StartDate, run.Params.EndDate))
	sold := run.Summary.PutsSold + run.Summary.CallsSold
	return &wheel.Result{
		Params:       run.Params,
		Records:      records,
		Summary:      run.Summary,
		EquityCurve:  wheel.EquityCurve(records),
		SkippedWeeks: weeks - sold,
		Weeks:        weeks,
	}, nil
}

// ShowResult displays a specific saved run
func (rm *ResultsManager) ShowResult(ctx context.Context, runID string, showActions bool) error {
	res, err := rm.LoadResult(ctx, runID)
	if err != nil {
		return err
	}
	if res == nil {
		return fmt.Errorf("backtest run not found: %s", runID)
	}
	display.NewResultsDisplay(rm.out, res.Params.Ticker).DisplayBacktestResults(res, showActions)
	return nil
}

// ExportResult writes a saved run to the results directory
func (rm *ResultsManager) ExportResult(ctx context.Context, runID string) ([]string, error) {
	res, err := rm.LoadResult(ctx, runID)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("backtest run not found: %s", runID)
	}
	return rm.session.Export(res, runID)
}

// DeleteResult deletes a saved run and its actions
func (rm *ResultsManager) DeleteResult(ctx context.Context, runID string) error {
	store, err := rm.session.RunStore()
	if err != nil {
		return err
	}
	deleted, err := store.DeleteRun(ctx, runID)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("backtest run not found: %s", runID)
	}
	display.DisplaySuccess(rm.out, fmt.Sprintf("Deleted run %s", runID))
	return nil
}

// CleanupResults removes exported files older than maxAge
func (rm *ResultsManager) CleanupResults(maxAge time.Duration) (int, error) {
	return utils.NewCSVManager(rm.session.config.ResultsDir).CleanOldCSVFiles(maxAge)
}
