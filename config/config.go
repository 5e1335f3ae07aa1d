package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/dyike/WheelGo/consts"
	"github.com/joho/godotenv"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("config: invalid")

type Config struct {
	ProjectDir   string `json:"project_dir"`
	ResultsDir   string `json:"results_dir"`
	DataDir      string `json:"data_dir"`
	DataCacheDir string `json:"data_cache_dir"`

	// Run history (database/sql) and bar archive (gorm)
	DBPath      string `json:"db_path"`
	ArchivePath string `json:"archive_path"`

	DataSource   string `json:"data_source"`
	OnlineTools  bool   `json:"online_tools"`
	CacheEnabled bool   `json:"cache_enabled"`
	Debug        bool   `json:"debug"`

	// Strategy defaults
	RiskFreeRate        float64 `json:"risk_free_rate"`
	VolatilityWindow    int     `json:"volatility_window"`
	LotSize             int     `json:"lot_size"`
	HistoryBufferDays   int     `json:"history_buffer_days"`
	QuoteTimeoutSeconds int     `json:"quote_timeout_seconds"`

	// Longport API Configuration
	LongportAppKey      string `json:"longport_app_key"`
	LongportAppSecret   string `json:"longport_app_secret"`
	LongportAccessToken string `json:"longport_access_token"`

	FinnhubAPIKey string `json:"finnhub_api_key"`
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := DefaultConfigWithRoot(currentDir)

	// Override with environment variables if they exist
	cfg.loadFromEnv()

	return cfg
}

// DefaultConfigWithRoot lays every directory out under root.
func DefaultConfigWithRoot(root string) *Config {
	return &Config{
		ProjectDir:   root,
		ResultsDir:   filepath.Join(root, "results"),
		DataDir:      filepath.Join(root, "data"),
		DataCacheDir: filepath.Join(root, "data", "cache"),
		DBPath:       filepath.Join(root, "data", "wheelgo.db"),
		ArchivePath:  filepath.Join(root, "data", "bars.db"),

		DataSource:   consts.SourceYahoo,
		OnlineTools:  true,
		CacheEnabled: true,
		Debug:        false,

		RiskFreeRate:        consts.DefaultRiskFreeRate,
		VolatilityWindow:    consts.DefaultVolatilityWindow,
		LotSize:             consts.DefaultLotSize,
		HistoryBufferDays:   consts.DefaultHistoryBufferDays,
		QuoteTimeoutSeconds: consts.DefaultQuoteTimeoutSeconds,
	}
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("WHEELGO_PROJECT_DIR"); val != "" {
		c.ProjectDir = val
	}
	if val := os.Getenv("WHEELGO_RESULTS_DIR"); val != "" {
		c.ResultsDir = val
	}
	if val := os.Getenv("WHEELGO_DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("WHEELGO_DATA_CACHE_DIR"); val != "" {
		c.DataCacheDir = val
	}
	if val := os.Getenv("WHEELGO_DB_PATH"); val != "" {
		c.DBPath = val
	}
	if val := os.Getenv("WHEELGO_ARCHIVE_PATH"); val != "" {
		c.ArchivePath = val
	}

	if val := os.Getenv("WHEELGO_DATA_SOURCE"); val != "" {
		c.DataSource = strings.ToLower(strings.TrimSpace(val))
	}

	if val := os.Getenv("WHEELGO_CACHE_ENABLED"); val != "" {
		if cache, err := strconv.ParseBool(val); err == nil {
			c.CacheEnabled = cache
		}
	}
	if val := os.Getenv("WHEELGO_ONLINE_TOOLS"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.OnlineTools = enabled
		}
	}
	if val := os.Getenv("WHEELGO_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}

	if val := os.Getenv("WHEELGO_RISK_FREE_RATE"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.RiskFreeRate = v
		}
	}
	if val := os.Getenv("WHEELGO_VOLATILITY_WINDOW"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.VolatilityWindow = v
		}
	}
	if val := os.Getenv("WHEELGO_LOT_SIZE"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.LotSize = v
		}
	}
	if val := os.Getenv("WHEELGO_HISTORY_BUFFER_DAYS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.HistoryBufferDays = v
		}
	}
	if val := os.Getenv("WHEELGO_QUOTE_TIMEOUT_SECONDS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.QuoteTimeoutSeconds = v
		}
	}

	if val := os.Getenv("LONGPORT_APP_KEY"); val != "" {
		c.LongportAppKey = val
	}
	if val := os.Getenv("LONGPORT_APP_SECRET"); val != "" {
		c.LongportAppSecret = val
	}
	if val := os.Getenv("LONGPORT_ACCESS_TOKEN"); val != "" {
		c.LongportAccessToken = val
	}

	if val := os.Getenv("FINNHUB_API_KEY"); val != "" {
		c.FinnhubAPIKey = val
	}
}

// Validate reports the first setting that would make a backtest impossible to run.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ProjectDir) == "" {
		return fmt.Errorf("%w: project_dir is required", ErrInvalidConfig)
	}
	if !slices.Contains(consts.HistorySources, c.DataSource) {
		return fmt.Errorf("%w: data_source must be one of %s, got %q", ErrInvalidConfig,
			strings.Join(consts.HistorySources, ", "), c.DataSource)
	}
	if math.IsNaN(c.RiskFreeRate) || math.IsInf(c.RiskFreeRate, 0) || c.RiskFreeRate < 0 || c.RiskFreeRate > 1 {
		return fmt.Errorf("%w: risk_free_rate must be within [0, 1], got %v", ErrInvalidConfig, c.RiskFreeRate)
	}
	if c.VolatilityWindow < 2 {
		return fmt.Errorf("%w: volatility_window must be at least 2, got %d", ErrInvalidConfig, c.VolatilityWindow)
	}
	if c.LotSize < 1 {
		return fmt.Errorf("%w: lot_size must be at least 1, got %d", ErrInvalidConfig, c.LotSize)
	}
	if c.HistoryBufferDays < 0 {
		return fmt.Errorf("%w: history_buffer_days cannot be negative", ErrInvalidConfig)
	}
	if c.QuoteTimeoutSeconds < 1 {
		return fmt.Errorf("%w: quote_timeout_seconds must be at least 1", ErrInvalidConfig)
	}

	switch c.DataSource {
	case consts.SourceLongport:
		if c.LongportAppKey == "" || c.LongportAppSecret == "" || c.LongportAccessToken == "" {
			return fmt.Errorf("%w: longport data source needs LONGPORT_APP_KEY, LONGPORT_APP_SECRET and LONGPORT_ACCESS_TOKEN", ErrInvalidConfig)
		}
	case consts.SourceFinnhub:
		if c.FinnhubAPIKey == "" {
			return fmt.Errorf("%w: finnhub data source needs FINNHUB_API_KEY", ErrInvalidConfig)
		}
	}
	return nil
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.ProjectDir, c.ResultsDir, c.DataDir, c.DataCacheDir}
	for _, file := range []string{c.DBPath, c.ArchivePath} {
		if strings.TrimSpace(file) != "" {
			dirs = append(dirs, filepath.Dir(file))
		}
	}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}

// MarketCSVDir holds one directory of timestamped exports per symbol, read by the csv data source.
func (c *Config) MarketCSVDir() string {
	return filepath.Join(c.DataDir, "csv", "market")
}
