package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dyike/WheelGo/config"
	"github.com/dyike/WheelGo/consts"
	"github.com/dyike/WheelGo/internal/display"
	"github.com/dyike/WheelGo/internal/utils"
	"github.com/dyike/WheelGo/pkg/dataflows"
	"github.com/dyike/WheelGo/pkg/logger"
	"github.com/dyike/WheelGo/pkg/wheel"
)

const version = "1.0.0"

// rootOptions is filled by the persistent flags and shared with every subcommand
type rootOptions struct {
	configPath string
	debug      bool

	cfg       *config.Config
	configMgr *ConfigManager
	logger    *logrus.Logger
}

// load resolves the configuration: defaults and environment first, then the
// --config file when one is given
func (o *rootOptions) load() error {
	cfg := config.DefaultConfig()
	o.logger = logger.New(o.debug || cfg.Debug)

	if o.configPath != "" {
		cm, err := NewConfigManager(o.configPath, cfg, o.logger)
		if err != nil {
			return fmt.Errorf("failed to load config %s: %w", o.configPath, err)
		}
		loaded := cm.Config()
		cfg = &loaded
		o.configMgr = cm
	}
	if o.debug {
		cfg.Debug = true
	}
	if cfg.Debug {
		o.logger.SetLevel(logrus.DebugLevel)
	}
	o.cfg = cfg

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}
	return nil
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "wheelgo",
		Short: "WheelGo - Options Wheel Backtester",
		Long: `WheelGo backtests the options wheel: sell cash-secured puts every week until assigned,
then covered calls until the shares are called away, and start over.
Premiums come from live option quotes when available and Black-Scholes estimates otherwise.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default behavior: start interactive mode
			return runInteractiveMode(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	rootCmd.AddCommand(newBacktestCmd(opts))
	rootCmd.AddCommand(newSweepCmd(opts))
	rootCmd.AddCommand(newFetchCmd(opts))
	rootCmd.AddCommand(newHistoryCmd(opts))
	rootCmd.AddCommand(newCacheCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	// Global flags
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Configuration file path")

	return rootCmd
}

// rangeFlags are shared by every command that needs a backtest period
type rangeFlags struct {
	start string
	end   string
}

func (r *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&r.start, "start", "", "Start date in YYYY-MM-DD format")
	cmd.Flags().StringVar(&r.end, "end", "", "End date in YYYY-MM-DD format (today if not provided)")
	_ = cmd.MarkFlagRequired("start")
}

func (r *rangeFlags) parse() (time.Time, time.Time, error) {
	start, err := parseDateOr(r.start, time.Time{})
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if start.IsZero() {
		return time.Time{}, time.Time{}, fmt.Errorf("start date is required")
	}
	end, err := parseDateOr(r.end, time.Now())
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %s must be after start date %s",
			end.Format(consts.DateLayout), start.Format(consts.DateLayout))
	}
	return start, end, nil
}

// strategyFlags are the per-run knobs shared by backtest and sweep
type strategyFlags struct {
	rangeFlags
	capital string
	lotSize int
}

func (s *strategyFlags) register(cmd *cobra.Command) {
	s.rangeFlags.register(cmd)
	cmd.Flags().StringVar(&s.capital, "capital", DefaultCapital.String(), "Starting cash balance")
	cmd.Flags().IntVar(&s.lotSize, "lot-size", 0, "Shares per contract (config lot_size if not provided)")
}

func (s *strategyFlags) selections(ticker string) (UserSelections, error) {
	if err := dataflows.ValidateSymbol(ticker); err != nil {
		return UserSelections{}, err
	}
	start, end, err := s.parse()
	if err != nil {
		return UserSelections{}, err
	}
	capital, err := parseCapital(s.capital)
	if err != nil {
		return UserSelections{}, err
	}
	if s.lotSize < 0 {
		return UserSelections{}, fmt.Errorf("lot size must be at least 1, got %d", s.lotSize)
	}
	return UserSelections{
		Ticker:          dataflows.NormalizeSymbol(ticker),
		StartDate:       start,
		EndDate:         end,
		StartingCapital: capital,
		LotSize:         s.lotSize,
	}, nil
}

// newBacktestCmd creates the backtest command
func newBacktestCmd(opts *rootOptions) *cobra.Command {
	var (
		flags       strategyFlags
		strikePct   string
		liveQuotes  bool
		export      bool
		save        bool
		showActions bool
	)

	cmd := &cobra.Command{
		Use:   "backtest [TICKER]",
		Short: "Backtest the wheel on one ticker",
		Long: `Run the weekly wheel on a ticker over a date range.
Example: wheelgo backtest SPY --strike-pct 0.95 --start 2024-01-01 --end 2024-06-30 --save`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := flags.selections(args[0])
			if err != nil {
				return err
			}
			if sel.StrikePct, err = parseStrikePct(strikePct); err != nil {
				return err
			}
			sel.LiveQuotes = liveQuotes

			return runBacktestCommand(cmd.Context(), cmd.OutOrStdout(), opts, sel, backtestOutputs{
				export:      export,
				save:        save,
				showActions: showActions,
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&strikePct, "strike-pct", "0.95", "Put strike as a fraction of Monday's open (e.g. 0.95 or 95%)")
	cmd.Flags().BoolVar(&liveQuotes, "live-quotes", false, "Price sales from the live option chain when a quote is available")
	cmd.Flags().BoolVar(&export, "export", false, "Write actions, equity curve, result JSON and run log to the results directory")
	cmd.Flags().BoolVar(&save, "save", false, "Record the run in the run history database")
	cmd.Flags().BoolVar(&showActions, "actions", true, "Show the full actions table")

	return cmd
}

type backtestOutputs struct {
	export      bool
	save        bool
	showActions bool
}

// runBacktestCommand executes one backtest and handles its outputs
func runBacktestCommand(ctx context.Context, w io.Writer, opts *rootOptions, sel UserSelections, outputs backtestOutputs) error {
	session, err := NewBacktestSession(opts.cfg, opts.logger)
	if err != nil {
		return err
	}
	defer session.Close()

	var extra []wheel.Option
	if outputs.export {
		logPath := session.RunLogPath(sel.Ticker)
		if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
			return fmt.Errorf("failed to create results directory: %w", err)
		}
		f, err := os.Create(logPath)
		if err != nil {
			return fmt.Errorf("failed to create run log: %w", err)
		}
		defer f.Close()
		extra = append(extra, wheel.WithLogger(logger.NewJSON(f, opts.cfg.Debug)))
		display.DisplayInfo(w, "Run log: "+logPath)
	}

	fmt.Fprintf(w, "🚀 Starting wheel backtest for %s at %.2f via %s\n", sel.Ticker, sel.StrikePct, session.Source())

	res, err := session.Run(ctx, sel, extra...)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	display.NewResultsDisplay(w, res.Params.Ticker).DisplayBacktestResults(res, outputs.showActions)

	var runID string
	if outputs.save {
		if runID, err = session.Save(ctx, res); err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
		display.DisplaySuccess(w, "Saved as run "+runID)
	}

	if outputs.export {
		paths, err := session.Export(res, runID)
		if err != nil {
			return err
		}
		for _, p := range paths {
			display.DisplaySuccess(w, "Exported "+p)
		}
	}

	return nil
}

// newSweepCmd creates the sweep command
func newSweepCmd(opts *rootOptions) *cobra.Command {
	var (
		flags      strategyFlags
		strikePcts string
		concurrent int
	)

	cmd := &cobra.Command{
		Use:   "sweep [TICKER]",
		Short: "Compare several strike percentages on one ticker",
		Long: `Fetch the history once and backtest each strike percentage concurrently.
Example: wheelgo sweep SPY --strike-pcts 0.90,0.93,0.95,0.97 --start 2024-01-01`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := flags.selections(args[0])
			if err != nil {
				return err
			}
			pcts, err := parseStrikePcts(strikePcts)
			if err != nil {
				return err
			}

			session, err := NewBacktestSession(opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer session.Close()

			bm := NewBatchManager(session, cmd.OutOrStdout())
			progress, err := bm.RunSweep(cmd.Context(), sel, pcts, concurrent)
			if err != nil {
				return fmt.Errorf("sweep failed: %w", err)
			}
			bm.displayBatchSummary(progress)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&strikePcts, "strike-pcts", "0.90,0.93,0.95,0.97", "Comma separated strike percentages")
	cmd.Flags().IntVar(&concurrent, "concurrency", 3, "Parameter sets run at once (1-10)")

	return cmd
}

// newFetchCmd creates the fetch command
func newFetchCmd(opts *rootOptions) *cobra.Command {
	var (
		flags  rangeFlags
		csvOut bool
	)

	cmd := &cobra.Command{
		Use:   "fetch [TICKER]",
		Short: "Download daily bars into the local archive",
		Long: `Fetch daily bars for a ticker from the configured data source and archive them,
so later backtests over the same range run offline.
Example: wheelgo fetch SPY --start 2023-01-01 --csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := flags.parse()
			if err != nil {
				return err
			}
			ticker := dataflows.NormalizeSymbol(args[0])
			w := cmd.OutOrStdout()

			session, err := NewBacktestSession(opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer session.Close()

			bars, err := session.Fetch(cmd.Context(), ticker, start, end)
			if err != nil {
				return fmt.Errorf("fetch failed: %w", err)
			}
			display.DisplaySuccess(w, fmt.Sprintf("Fetched %d bars for %s (%s) via %s",
				len(bars), ticker, dataflows.FormatDateRange(start, end), session.Source()))

			if csvOut {
				path, err := session.ExportBars(ticker, bars)
				if err != nil {
					return fmt.Errorf("csv export failed: %w", err)
				}
				display.DisplaySuccess(w, "Exported "+path)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&csvOut, "csv", false, "Also write the bars as an offline CSV file")

	return cmd
}

// newHistoryCmd creates the history command
func newHistoryCmd(opts *rootOptions) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Saved backtest runs",
		Long:  "List, show, export and delete backtests recorded with --save",
	}

	withResults := func(cmd *cobra.Command, fn func(rm *ResultsManager) error) error {
		session, err := NewBacktestSession(opts.cfg, opts.logger)
		if err != nil {
			return err
		}
		defer session.Close()
		return fn(NewResultsManager(session, cmd.OutOrStdout()))
	}

	var (
		limit   int
		cursor  int64
		sortBy  string
		reverse bool
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withResults(cmd, func(rm *ResultsManager) error {
				runs, err := rm.ListResults(cmd.Context(), cursor, limit, sortBy, reverse)
				if err != nil {
					return err
				}
				rm.DisplayResults(runs)
				return nil
			})
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "Runs per page (max 200)")
	listCmd.Flags().Int64Var(&cursor, "cursor", 0, "Continue after this row (printed below each page)")
	listCmd.Flags().StringVar(&sortBy, "sort", "", "Sort the page by ticker, return or strike")
	listCmd.Flags().BoolVar(&reverse, "reverse", false, "Reverse the sort order")

	var showActions bool
	showCmd := &cobra.Command{
		Use:   "show [RUN_ID]",
		Short: "Show a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withResults(cmd, func(rm *ResultsManager) error {
				return rm.ShowResult(cmd.Context(), args[0], showActions)
			})
		},
	}
	showCmd.Flags().BoolVar(&showActions, "actions", true, "Show the full actions table")

	exportCmd := &cobra.Command{
		Use:   "export [RUN_ID]",
		Short: "Export a saved run to the results directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withResults(cmd, func(rm *ResultsManager) error {
				paths, err := rm.ExportResult(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				for _, p := range paths {
					display.DisplaySuccess(cmd.OutOrStdout(), "Exported "+p)
				}
				return nil
			})
		},
	}

	var yes bool
	deleteCmd := &cobra.Command{
		Use:   "delete [RUN_ID]",
		Short: "Delete a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				confirmed := false
				prompt := &survey.Confirm{Message: fmt.Sprintf("Delete run %s?", args[0])}
				if err := survey.AskOne(prompt, &confirmed); err != nil {
					return err
				}
				if !confirmed {
					return nil
				}
			}
			return withResults(cmd, func(rm *ResultsManager) error {
				return rm.DeleteResult(cmd.Context(), args[0])
			})
		},
	}
	deleteCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	historyCmd.AddCommand(listCmd, showCmd, exportCmd, deleteCmd)
	return historyCmd
}

// newCacheCmd creates the cache command
func newCacheCmd(opts *rootOptions) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clear cached market data",
	}

	var maxAge time.Duration
	clearCmd := &cobra.Command{
		Use:   "clear [TICKER]",
		Short: "Clear cached responses and archived bars",
		Long: `Without arguments everything is cleared. With a ticker only that ticker's archived bars go.
With --max-age only data older than the given age is removed, including exported CSV files.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := NewBacktestSession(opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer session.Close()

			var ticker string
			if len(args) == 1 {
				ticker = dataflows.NormalizeSymbol(args[0])
			}
			return clearCaches(cmd.Context(), cmd.OutOrStdout(), session, ticker, maxAge)
		},
	}
	clearCmd.Flags().DurationVar(&maxAge, "max-age", 0, "Only remove data older than this (e.g. 720h)")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show archived symbols and bar counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := NewBacktestSession(opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer session.Close()
			return showCacheStats(cmd.Context(), cmd.OutOrStdout(), session)
		},
	}

	cacheCmd.AddCommand(clearCmd, statsCmd)
	return cacheCmd
}

func clearCaches(ctx context.Context, w io.Writer, session *BacktestSession, ticker string, maxAge time.Duration) error {
	purged, err := session.cache.Purge()
	if err != nil {
		return fmt.Errorf("failed to purge response cache: %w", err)
	}
	display.DisplaySuccess(w, fmt.Sprintf("Purged %d cached responses from %s", purged, session.cache.Dir()))

	if session.archive == nil {
		return nil
	}

	switch {
	case ticker != "":
		n, err := session.archive.Invalidate(ctx, ticker)
		if err != nil {
			return err
		}
		display.DisplaySuccess(w, fmt.Sprintf("Removed %d archived bars for %s", n, ticker))

	case maxAge > 0:
		n, err := session.archive.CleanupOldData(ctx, time.Now().Add(-maxAge))
		if err != nil {
			return err
		}
		display.DisplaySuccess(w, fmt.Sprintf("Removed %d archived bars older than %s", n, maxAge))

		exports, err := utils.NewCSVManager(session.config.DataDir).CleanOldCSVFiles(maxAge)
		if err != nil {
			return err
		}
		results, err := NewResultsManager(session, w).CleanupResults(maxAge)
		if err != nil {
			return err
		}
		display.DisplaySuccess(w, fmt.Sprintf("Removed %d CSV files older than %s", exports+results, maxAge))

	default:
		symbols, err := session.archive.Symbols(ctx)
		if err != nil {
			return err
		}
		var total int64
		for symbol := range symbols {
			n, err := session.archive.Invalidate(ctx, symbol)
			if err != nil {
				return err
			}
			total += n
		}
		display.DisplaySuccess(w, fmt.Sprintf("Removed %d archived bars across %d symbols", total, len(symbols)))
	}
	return nil
}

func showCacheStats(ctx context.Context, w io.Writer, session *BacktestSession) error {
	fmt.Fprintf(w, "Response cache:   %s\n", session.cache.Dir())
	if session.archive == nil {
		fmt.Fprintln(w, "Bar archive:      disabled")
		return nil
	}
	symbols, err := session.archive.Symbols(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Bar archive:      %s\n", session.config.ArchivePath)
	if len(symbols) == 0 {
		fmt.Fprintln(w, "  (empty)")
		return nil
	}
	names := make([]string, 0, len(symbols))
	for s := range symbols {
		names = append(names, s)
	}
	sort.Strings(names)
	for _, s := range names {
		fmt.Fprintf(w, "  %-10s %6d bars\n", s, symbols[s])
	}
	return nil
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		// no configuration needed
		PersistentPreRun: func(cmd *cobra.Command, args []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "WheelGo v%s\n", version)
			fmt.Fprintln(w, "Options Wheel Backtester")
			fmt.Fprintln(w, "Built with ❤️  using Go")
		},
	}
}

// newConfigCmd creates the config command
func newConfigCmd(opts *rootOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "Manage WheelGo configuration settings",
	}

	// managed opens the --config file, or the per-user default when none was given
	managed := func() (*ConfigManager, error) {
		if opts.configMgr != nil {
			return opts.configMgr, nil
		}
		return NewConfigManager("", opts.cfg, opts.logger)
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			showConfig(cmd.OutOrStdout(), opts.cfg)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(cmd.OutOrStdout(), opts.cfg, opts.logger)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the current configuration to a config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cm, err := managed()
			if err != nil {
				return err
			}
			display.DisplaySuccess(cmd.OutOrStdout(), "Configuration file: "+cm.Path())
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "get [KEY]",
		Short: "Print one configuration value, or every key when none is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cm, err := managed()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, k := range cm.ListAvailableKeys() {
					v, _ := cm.GetConfigValue(k)
					fmt.Fprintf(w, "%-24s %v\n", k, v)
				}
				return nil
			}
			v, err := cm.GetConfigValue(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(w, v)
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "set [KEY] [VALUE]",
		Short: "Update one configuration value in the config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cm, err := managed()
			if err != nil {
				return err
			}
			if err := cm.SetConfigValue(args[0], args[1]); err != nil {
				return err
			}
			display.DisplaySuccess(cmd.OutOrStdout(), fmt.Sprintf("%s updated in %s", args[0], cm.Path()))
			return nil
		},
	})

	return configCmd
}

// showConfig displays the current configuration
func showConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "📋 Current WheelGo Configuration:")
	fmt.Fprintln(w, "═══════════════════════════════════════")
	fmt.Fprintf(w, "Project Directory:    %s\n", cfg.ProjectDir)
	fmt.Fprintf(w, "Results Directory:    %s\n", cfg.ResultsDir)
	fmt.Fprintf(w, "Data Directory:       %s\n", cfg.DataDir)
	fmt.Fprintf(w, "Cache Directory:      %s\n", cfg.DataCacheDir)
	fmt.Fprintf(w, "Run History DB:       %s\n", cfg.DBPath)
	fmt.Fprintf(w, "Bar Archive DB:       %s\n", cfg.ArchivePath)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Data Source:          %s\n", cfg.DataSource)
	fmt.Fprintf(w, "Online Tools:         %t\n", cfg.OnlineTools)
	fmt.Fprintf(w, "Cache Enabled:        %t\n", cfg.CacheEnabled)
	fmt.Fprintf(w, "Debug Mode:           %t\n", cfg.Debug)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Risk-Free Rate:       %.4f\n", cfg.RiskFreeRate)
	fmt.Fprintf(w, "Volatility Window:    %d days\n", cfg.VolatilityWindow)
	fmt.Fprintf(w, "Lot Size:             %d shares\n", cfg.LotSize)
	fmt.Fprintf(w, "History Buffer:       %d days\n", cfg.HistoryBufferDays)
	fmt.Fprintf(w, "Quote Timeout:        %ds\n", cfg.QuoteTimeoutSeconds)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "🔌 API Configuration:")
	fmt.Fprintln(w, "─────────────────────")
	if cfg.FinnhubAPIKey != "" {
		fmt.Fprintln(w, "Finnhub API:          ✅ Configured")
	} else {
		fmt.Fprintln(w, "Finnhub API:          ❌ Not configured")
	}
	if cfg.LongportAppKey != "" && cfg.LongportAppSecret != "" && cfg.LongportAccessToken != "" {
		fmt.Fprintln(w, "Longport API:         ✅ Configured")
	} else {
		fmt.Fprintln(w, "Longport API:         ❌ Not configured")
	}
}

// validateConfig validates the configuration and opens every store it names
func validateConfig(w io.Writer, cfg *config.Config, log *logrus.Logger) error {
	fmt.Fprintln(w, "🔍 Validating WheelGo Configuration...")
	fmt.Fprintln(w, "═══════════════════════════════════════")

	fmt.Fprint(w, "⚙️  Checking configuration values... ")
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(w, "❌")
		return err
	}
	fmt.Fprintln(w, "✅")

	fmt.Fprint(w, "📁 Checking directories... ")
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Fprintln(w, "❌")
		return fmt.Errorf("directory validation failed: %w", err)
	}
	fmt.Fprintln(w, "✅")

	fmt.Fprint(w, "🗄️  Opening archive and run history... ")
	session, err := NewBacktestSession(cfg, log)
	if err != nil {
		fmt.Fprintln(w, "❌")
		return err
	}
	defer session.Close()
	if _, err := session.RunStore(); err != nil {
		fmt.Fprintln(w, "❌")
		return err
	}
	fmt.Fprintln(w, "✅")

	var warnings []string
	if !cfg.OnlineTools {
		warnings = append(warnings, "online tools disabled: history is read from offline CSV files and live quotes are off")
	}
	if cfg.DataSource != consts.SourceFinnhub && cfg.FinnhubAPIKey == "" {
		warnings = append(warnings, "Finnhub API key not configured")
	}

	fmt.Fprintln(w)
	if len(warnings) == 0 {
		fmt.Fprintln(w, "✅ Configuration validation completed successfully!")
	} else {
		fmt.Fprintf(w, "⚠️  Configuration validation completed with %d warnings.\n", len(warnings))
		for _, warning := range warnings {
			fmt.Fprintf(w, "  ⚠️  %s\n", warning)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "💡 Tips:")
	fmt.Fprintln(w, "  • Set WHEELGO_DATA_SOURCE to yahoo, finnhub, longport or csv")
	fmt.Fprintln(w, "  • Use 'wheelgo fetch' to archive history for offline backtests")
	fmt.Fprintln(w, "  • Use 'wheelgo backtest SPY --start 2024-01-01' to run your first backtest")

	return nil
}

// runInteractiveMode starts the interactive backtest mode
func runInteractiveMode(ctx context.Context, w io.Writer, opts *rootOptions) error {
	log := opts.logger
	if !opts.cfg.Debug {
		// logs would interleave with the prompts
		log = logger.Discard()
	}

	var manager *config.Manager
	if opts.configMgr != nil {
		manager = opts.configMgr.manager
	}
	return NewInteractiveSession(opts.cfg, manager, log, w).Start(ctx)
}

// strikeList formats strike percentages for messages
func strikeList(pcts []float64) string {
	parts := make([]string, len(pcts))
	for i, p := range pcts {
		parts[i] = fmt.Sprintf("%.2f", p)
	}
	return strings.Join(parts, ", ")
}
