package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dyike/WheelGo/config"
	"github.com/dyike/WheelGo/internal/storage"
	runstore "github.com/dyike/WheelGo/internal/storage/sqlite"
	"github.com/dyike/WheelGo/internal/utils"
	"github.com/dyike/WheelGo/models"
	"github.com/dyike/WheelGo/pkg/dataflows"
	"github.com/dyike/WheelGo/pkg/wheel"
	"github.com/sirupsen/logrus"
)

// History lookups are cached for a day; the archive keeps them beyond that
const historyCacheTTL = 24 * time.Hour

// BacktestSession wires the configured data sources, the bar archive and the run store
// behind one CLI invocation
type BacktestSession struct {
	config  *config.Config
	logger  *logrus.Logger
	cache   *dataflows.CacheManager
	flows   *dataflows.DataFlowInterface
	archive *storage.BarArchive
	history dataflows.HistorySource
	results *utils.CSVManager
	runs    *runstore.Store
}

// NewBacktestSession opens the data sources named by cfg
func NewBacktestSession(cfg *config.Config, logger *logrus.Logger) (*BacktestSession, error) {
	if logger == nil {
		logger = logrus.New()
	}

	cache := dataflows.NewCacheManager(cfg.DataCacheDir, historyCacheTTL, cfg.CacheEnabled)
	flows, err := dataflows.NewDataFlowInterface(cfg, cache, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up data source: %w", err)
	}

	session := &BacktestSession{
		config:  cfg,
		logger:  logger,
		cache:   cache,
		flows:   flows,
		history: flows,
		results: utils.NewCSVManager(cfg.ResultsDir),
	}

	if cfg.ArchivePath != "" {
		archive, err := storage.NewBarArchive(cfg.ArchivePath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open bar archive: %w", err)
		}
		session.archive = archive
		session.history = storage.NewArchivedProvider(archive, flows, logger)
	}

	return session, nil
}

// Close releases the archive and run store
func (s *BacktestSession) Close() error {
	var errs []error
	if s.archive != nil {
		errs = append(errs, s.archive.Close())
	}
	if s.runs != nil {
		errs = append(errs, s.runs.Close())
	}
	return errors.Join(errs...)
}

// Source names where price history is read from
func (s *BacktestSession) Source() string {
	return s.history.Name()
}

// Run executes one backtest. Extra options are applied after the session defaults.
func (s *BacktestSession) Run(ctx context.Context, sel UserSelections, extra ...wheel.Option) (*wheel.Result, error) {
	opts := []wheel.Option{
		wheel.WithLogger(s.logger),
		wheel.WithQuoteTimeout(time.Duration(s.config.QuoteTimeoutSeconds) * time.Second),
	}
	if sel.LiveQuotes {
		if s.flows.LiveQuotes() {
			opts = append(opts, wheel.WithQuoteProvider(s.flows))
		} else {
			s.logger.Warn("live quotes requested but online tools are disabled, using model premiums")
		}
	}

	engine, err := wheel.NewEngine(sel.Params(s.config), s.history, append(opts, extra...)...)
	if err != nil {
		return nil, err
	}
	return engine.Run(ctx)
}

// Fetch loads history for ticker through the archive
func (s *BacktestSession) Fetch(ctx context.Context, ticker string, start, end time.Time) ([]models.PriceBar, error) {
	if err := dataflows.ValidateSymbol(ticker); err != nil {
		return nil, err
	}
	return s.history.GetPriceHistory(ctx, dataflows.NormalizeSymbol(ticker), start, end)
}

// ExportBars writes bars as an offline CSV file usable by the csv data source
func (s *BacktestSession) ExportBars(ticker string, bars []models.PriceBar) (string, error) {
	return s.flows.Offline().Export(ticker, bars)
}

// RunStore opens the run history database on first use
func (s *BacktestSession) RunStore() (*runstore.Store, error) {
	if s.runs != nil {
		return s.runs, nil
	}
	store, err := runstore.Open(s.config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}
	s.runs = store
	return store, nil
}

// Save records a finished run and returns its id
func (s *BacktestSession) Save(ctx context.Context, res *wheel.Result) (string, error) {
	store, err := s.RunStore()
	if err != nil {
		return "", err
	}
	run := runstore.NewRunRecord(res, s.Source())
	if err := store.SaveRun(ctx, run, res.Records); err != nil {
		return "", err
	}
	return run.ID, nil
}

// Export writes the actions table, equity curve and full result JSON under the results directory
func (s *BacktestSession) Export(res *wheel.Result, runID string) ([]string, error) {
	ticker := res.Params.Ticker
	if runID == "" {
		runID = time.Now().Format("20060102_150405")
	}

	actions, err := s.results.WriteActionsToCSV(ticker, runID, res.Records)
	if err != nil {
		return nil, fmt.Errorf("failed to export actions: %w", err)
	}
	equity, err := s.results.WriteEquityCurveToCSV(ticker, runID, res.EquityCurve)
	if err != nil {
		return nil, fmt.Errorf("failed to export equity curve: %w", err)
	}

	jsonPath := filepath.Join(s.config.ResultsDir, ticker, fmt.Sprintf("%s_result_%s.json", ticker, runID))
	if err := writeJSON(jsonPath, res); err != nil {
		return nil, fmt.Errorf("failed to export result: %w", err)
	}

	return []string{actions, equity, jsonPath}, nil
}

// RunLogPath is where the JSON run log for ticker is written when exporting
func (s *BacktestSession) RunLogPath(ticker string) string {
	name := fmt.Sprintf("%s_run_%s.log", ticker, time.Now().Format("20060102_150405"))
	return filepath.Join(s.config.ResultsDir, ticker, name)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
