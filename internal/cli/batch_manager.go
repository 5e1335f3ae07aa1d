package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dyike/WheelGo/consts"
	"github.com/dyike/WheelGo/internal/display"
	"github.com/dyike/WheelGo/pkg/dataflows"
	"github.com/dyike/WheelGo/pkg/wheel"
	"golang.org/x/sync/errgroup"
)

// BatchManager runs one ticker over several strike percentages
type BatchManager struct {
	session *BacktestSession
	out     io.Writer
	refresh time.Duration
}

// BatchProgress tracks progress of a sweep
type BatchProgress struct {
	Total      int
	Completed  int
	Failed     int
	InProgress int
	Results    []BatchResult
	StartTime  time.Time
	mutex      sync.RWMutex
}

// BatchResult is the outcome of one parameter set in a sweep
type BatchResult struct {
	StrikePct float64
	Status    BatchStatus
	Error     error
	Duration  time.Duration
	Result    *wheel.Result
}

// BatchStatus represents the status of batch item
type BatchStatus int

const (
	BatchPending BatchStatus = iota
	BatchRunning
	BatchCompleted
	BatchFailed
)

// String returns string representation of BatchStatus
func (bs BatchStatus) String() string {
	switch bs {
	case BatchPending:
		return "⏳ Pending"
	case BatchRunning:
		return "🔄 Running"
	case BatchCompleted:
		return "✅ Completed"
	case BatchFailed:
		return "❌ Failed"
	default:
		return "❓ Unknown"
	}
}

// NewBatchManager creates a new batch manager
func NewBatchManager(session *BacktestSession, out io.Writer) *BatchManager {
	return &BatchManager{
		session: session,
		out:     out,
		refresh: time.Second,
	}
}

// RunSweep fetches the history once and backtests every strike percentage against it.
// A failing parameter set is recorded in its BatchResult and does not stop the others.
func (bm *BatchManager) RunSweep(ctx context.Context, base UserSelections, strikePcts []float64, concurrent int) (*BatchProgress, error) {
	if len(strikePcts) == 0 {
		return nil, fmt.Errorf("no strike percentages provided for sweep")
	}
	if concurrent <= 0 || concurrent > 10 {
		concurrent = 3
	}

	params := base.Params(bm.session.config)
	buffer := params.HistoryBufferDays
	if buffer == 0 {
		buffer = consts.DefaultHistoryBufferDays
	}
	bars, err := bm.session.Fetch(ctx, params.Ticker, params.StartDate.AddDate(0, 0, -buffer), params.EndDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", wheel.ErrDataUnavailable, params.Ticker, err)
	}
	history := dataflows.NewStaticProvider(params.Ticker, bars)

	display.DisplayInfo(bm.out, fmt.Sprintf("Sweeping %s over strikes %s (%d bars via %s, %d concurrent)",
		params.Ticker, strikeList(strikePcts), len(bars), bm.session.Source(), concurrent))

	progress := &BatchProgress{
		Total:     len(strikePcts),
		Results:   make([]BatchResult, len(strikePcts)),
		StartTime: time.Now(),
	}
	for i, pct := range strikePcts {
		progress.Results[i] = BatchResult{StrikePct: pct, Status: BatchPending}
	}

	stopProgress := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		bm.displayBatchProgress(progress, stopProgress)
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrent)
	for i := range progress.Results {
		i := i
		g.Go(func() error {
			return bm.processSingleRun(gctx, progress, i, base, history)
		})
	}

	err = g.Wait()
	close(stopProgress)
	<-done
	fmt.Fprintln(bm.out)

	return progress, err
}

// processSingleRun only returns an error when the sweep itself was cancelled
func (bm *BatchManager) processSingleRun(ctx context.Context, progress *BatchProgress, idx int, base UserSelections, history *dataflows.StaticProvider) error {
	progress.mutex.Lock()
	progress.Results[idx].Status = BatchRunning
	progress.InProgress++
	pct := progress.Results[idx].StrikePct
	progress.mutex.Unlock()

	start := time.Now()
	sel := base
	sel.StrikePct = pct

	var res *wheel.Result
	engine, err := wheel.NewEngine(sel.Params(bm.session.config), history, wheel.WithLogger(bm.session.logger))
	if err == nil {
		res, err = engine.Run(ctx)
	}

	progress.mutex.Lock()
	defer progress.mutex.Unlock()

	progress.InProgress--
	progress.Results[idx].Duration = time.Since(start)
	if err != nil {
		progress.Results[idx].Status = BatchFailed
		progress.Results[idx].Error = err
		progress.Failed++
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return nil
	}

	progress.Results[idx].Status = BatchCompleted
	progress.Results[idx].Result = res
	progress.Completed++
	return nil
}

// displayBatchProgress shows real-time progress of the sweep
func (bm *BatchManager) displayBatchProgress(progress *BatchProgress, stop <-chan struct{}) {
	ticker := time.NewTicker(bm.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			bm.printProgressUpdate(progress)
			return
		case <-ticker.C:
			bm.printProgressUpdate(progress)
		}
	}
}

// printProgressUpdate prints current progress
func (bm *BatchManager) printProgressUpdate(progress *BatchProgress) {
	progress.mutex.RLock()
	defer progress.mutex.RUnlock()

	// Clear previous line and print update
	fmt.Fprint(bm.out, "\r\033[K")

	elapsed := time.Since(progress.StartTime)
	fmt.Fprintf(bm.out, "📊 Progress: %d/%d completed, %d running, %d failed | Elapsed: %s",
		progress.Completed, progress.Total, progress.InProgress, progress.Failed,
		elapsed.Round(time.Millisecond))
}

// Rows converts the sweep outcome into comparison table rows, in input order
func (p *BatchProgress) Rows() []display.SweepRow {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	rows := make([]display.SweepRow, 0, len(p.Results))
	for _, r := range p.Results {
		row := display.SweepRow{StrikePct: r.StrikePct, Err: r.Error}
		if r.Result != nil {
			row.Summary = r.Result.Summary
		}
		if r.Status == BatchPending && row.Err == nil {
			row.Err = errors.New("not run")
		}
		rows = append(rows, row)
	}
	return rows
}

// displayBatchSummary displays the final sweep comparison
func (bm *BatchManager) displayBatchSummary(progress *BatchProgress) {
	fmt.Fprintln(bm.out, display.RenderSweepTable(progress.Rows()))

	totalDuration := time.Since(progress.StartTime)
	display.DisplaySuccess(bm.out, fmt.Sprintf("Completed: %d of %d in %s",
		progress.Completed, progress.Total, totalDuration.Round(time.Millisecond)))
	if progress.Failed > 0 {
		display.DisplayError(bm.out, fmt.Errorf("%d parameter sets failed", progress.Failed))
	}
}
