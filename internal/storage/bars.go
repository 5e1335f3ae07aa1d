package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dyike/WheelGo/consts"
	"github.com/dyike/WheelGo/models"
	"github.com/dyike/WheelGo/pkg/dataflows"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// DBBar is one archived daily bar
type DBBar struct {
	gorm.Model
	Symbol string          `gorm:"uniqueIndex:idx_symbol_date"`
	Date   time.Time       `gorm:"uniqueIndex:idx_symbol_date"`
	Open   decimal.Decimal `gorm:"type:text"`
	High   decimal.Decimal `gorm:"type:text"`
	Low    decimal.Decimal `gorm:"type:text"`
	Close  decimal.Decimal `gorm:"type:text"`
	Volume int64
	Source string
}

// DBFetchRange records a [RangeStart, RangeEnd] window that was fetched in full from Source
type DBFetchRange struct {
	gorm.Model
	Symbol     string `gorm:"index"`
	RangeStart time.Time
	RangeEnd   time.Time
	Source     string
}

func (DBBar) TableName() string {
	return "bars"
}

func (DBFetchRange) TableName() string {
	return "fetch_ranges"
}

// BarArchive keeps fetched price history on disk. Nothing in it expires on its own;
// entries go away only through Invalidate or CleanupOldData.
type BarArchive struct {
	db     *gorm.DB
	logger *logrus.Logger
	now    func() time.Time
}

// NewBarArchive opens (or creates) the archive database at dbPath
func NewBarArchive(dbPath string, logger *logrus.Logger) (*BarArchive, error) {
	if logger == nil {
		logger = logrus.New()
	}

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&DBBar{}, &DBFetchRange{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &BarArchive{db: db, logger: logger, now: time.Now}, nil
}

func (a *BarArchive) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// lastSettledDay is the most recent day whose session has closed. Bars dated later
// may still be intraday snapshots.
func (a *BarArchive) lastSettledDay() time.Time {
	return models.TruncateDay(a.now().UTC()).AddDate(0, 0, -1)
}

// SaveBars upserts bars and records [start, end] as fully fetched from source for symbol.
// Bars after the last settled day are dropped and the recorded range is clamped to it.
// Ranges recorded for symbol by other sources that overlap [start, end] are forgotten,
// since their bars are overwritten.
func (a *BarArchive) SaveBars(ctx context.Context, source, symbol string, start, end time.Time, bars []models.PriceBar) error {
	symbol = dataflows.NormalizeSymbol(symbol)
	start, end = models.TruncateDay(start), models.TruncateDay(end)
	if settled := a.lastSettledDay(); end.After(settled) {
		end = settled
	}

	dbBars := make([]DBBar, 0, len(bars))
	for _, bar := range bars {
		if bar.Day().After(end) {
			continue
		}
		dbBars = append(dbBars, DBBar{
			Symbol: symbol,
			Date:   bar.Day(),
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: bar.Volume,
			Source: source,
		})
	}

	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(dbBars) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "symbol"}, {Name: "date"}},
				DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume", "source", "updated_at"}),
			}).CreateInBatches(&dbBars, 200).Error
			if err != nil {
				return fmt.Errorf("failed to save bars: %w", err)
			}
		}
		if end.Before(start) {
			return nil
		}
		err := tx.Unscoped().
			Where("symbol = ? AND source <> ? AND range_start <= ? AND range_end >= ?", symbol, source, end, start).
			Delete(&DBFetchRange{}).Error
		if err != nil {
			return fmt.Errorf("failed to drop superseded fetch ranges: %w", err)
		}
		return tx.Create(&DBFetchRange{
			Symbol:     symbol,
			RangeStart: start,
			RangeEnd:   end,
			Source:     source,
		}).Error
	})
	if err != nil {
		return err
	}

	a.logger.WithFields(logrus.Fields{
		"symbol": symbol,
		"count":  len(dbBars),
		"range":  dataflows.FormatDateRange(start, end),
	}).Debug("bars archived")
	return nil
}

// GetBars retrieves archived bars for a symbol within [start, end], oldest first
func (a *BarArchive) GetBars(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error) {
	symbol = dataflows.NormalizeSymbol(symbol)

	var dbBars []DBBar
	result := a.db.WithContext(ctx).
		Where("symbol = ? AND date >= ? AND date <= ?", symbol, models.TruncateDay(start), models.TruncateDay(end)).
		Order("date ASC").
		Find(&dbBars)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get bars: %w", result.Error)
	}

	bars := make([]models.PriceBar, len(dbBars))
	for i, b := range dbBars {
		bars[i] = models.PriceBar{
			Symbol: b.Symbol,
			Date:   models.TruncateDay(b.Date),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}
	return bars, nil
}

// Covers reports whether a single fetch recorded from source spans [start, end].
func (a *BarArchive) Covers(ctx context.Context, source, symbol string, start, end time.Time) (bool, error) {
	var count int64
	err := a.db.WithContext(ctx).Model(&DBFetchRange{}).
		Where("symbol = ? AND source = ? AND range_start <= ? AND range_end >= ?",
			dataflows.NormalizeSymbol(symbol), source, models.TruncateDay(start), models.TruncateDay(end)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check coverage: %w", err)
	}
	return count > 0, nil
}

// Invalidate drops every archived bar and fetch record for symbol and returns the bar count removed.
func (a *BarArchive) Invalidate(ctx context.Context, symbol string) (int64, error) {
	symbol = dataflows.NormalizeSymbol(symbol)

	var removed int64
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Unscoped().Where("symbol = ?", symbol).Delete(&DBBar{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete bars: %w", res.Error)
		}
		removed = res.RowsAffected
		return tx.Unscoped().Where("symbol = ?", symbol).Delete(&DBFetchRange{}).Error
	})
	if err != nil {
		return 0, err
	}

	a.logger.WithFields(logrus.Fields{"symbol": symbol, "removed": removed}).Info("archive invalidated")
	return removed, nil
}

// CleanupOldData removes bars dated before the cutoff, along with fetch records that
// reach back past it since they no longer describe what is stored.
func (a *BarArchive) CleanupOldData(ctx context.Context, before time.Time) (int64, error) {
	before = models.TruncateDay(before)
	a.logger.WithField("before", before.Format(consts.DateLayout)).Info("Cleaning up old data")

	var removed int64
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Unscoped().Where("date < ?", before).Delete(&DBBar{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete old bars: %w", res.Error)
		}
		removed = res.RowsAffected
		if err := tx.Unscoped().Where("range_start < ?", before).Delete(&DBFetchRange{}).Error; err != nil {
			return fmt.Errorf("failed to delete old fetch ranges: %w", err)
		}
		return nil
	})
	return removed, err
}

// Symbols lists the archived symbols with their bar counts.
func (a *BarArchive) Symbols(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Symbol string
		Count  int64
	}
	err := a.db.WithContext(ctx).Model(&DBBar{}).
		Select("symbol, count(*) as count").
		Group("symbol").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}

	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Symbol] = r.Count
	}
	return out, nil
}

// ArchivedProvider serves history from the archive when a previous fetch covers the
// requested range, and otherwise fetches from upstream and archives the result.
type ArchivedProvider struct {
	archive  *BarArchive
	upstream dataflows.HistorySource
	logger   *logrus.Logger
}

func NewArchivedProvider(archive *BarArchive, upstream dataflows.HistorySource, logger *logrus.Logger) *ArchivedProvider {
	if logger == nil {
		logger = logrus.New()
	}
	return &ArchivedProvider{archive: archive, upstream: upstream, logger: logger}
}

func (p *ArchivedProvider) Name() string {
	return p.upstream.Name() + "+" + consts.SourceArchive
}

func (p *ArchivedProvider) GetPriceHistory(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error) {
	covered, err := p.archive.Covers(ctx, p.upstream.Name(), symbol, start, end)
	if err != nil {
		p.logger.WithError(err).Warn("archive lookup failed, fetching upstream")
	}
	if covered {
		bars, err := p.archive.GetBars(ctx, symbol, start, end)
		if err == nil && len(bars) > 0 {
			p.logger.WithFields(logrus.Fields{"symbol": symbol, "bars": len(bars)}).Debug("serving archived bars")
			return bars, nil
		}
		if err != nil {
			p.logger.WithError(err).Warn("archive read failed, fetching upstream")
		}
	}

	bars, err := p.upstream.GetPriceHistory(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}

	if err := p.archive.SaveBars(ctx, p.upstream.Name(), symbol, start, end, bars); err != nil {
		p.logger.WithError(err).Warn("failed to archive bars")
	}
	return bars, nil
}
