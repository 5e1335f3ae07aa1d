package dataflows

import (
	"context"
	"fmt"
	"time"

	"github.com/dyike/WheelGo/consts"
	"github.com/dyike/WheelGo/internal/utils"
	"github.com/dyike/WheelGo/models"
	"github.com/sirupsen/logrus"
)

// CSVSource reads bars previously exported by `wheelgo fetch` from DataDir/csv/market.
type CSVSource struct {
	csv    *utils.CSVManager
	logger *logrus.Logger
}

func NewCSVSource(dataDir string, logger *logrus.Logger) *CSVSource {
	if logger == nil {
		logger = logrus.New()
	}
	return &CSVSource{csv: utils.NewCSVManager(dataDir), logger: logger}
}

func (cs *CSVSource) Name() string {
	return consts.SourceCSV
}

// GetPriceHistory returns the bars of the newest export for symbol that fall inside [start, end].
func (cs *CSVSource) GetPriceHistory(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	path, err := cs.csv.FindLatestCSV(symbol, 1)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	bars, written, err := cs.csv.ReadMarketDataFromCSV(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	cs.logger.WithFields(logrus.Fields{
		"symbol":  symbol,
		"file":    path,
		"written": written.Format(time.RFC3339),
	}).Debug("reading offline bars")

	bars = FilterRange(bars, start, end)
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: offline file for %s does not cover %s", ErrDataUnavailable, symbol, FormatDateRange(start, end))
	}
	return bars, nil
}

// Export writes bars as a new offline file and returns its path.
func (cs *CSVSource) Export(symbol string, bars []models.PriceBar) (string, error) {
	return cs.csv.WriteMarketDataToCSV(NormalizeSymbol(symbol), bars)
}
