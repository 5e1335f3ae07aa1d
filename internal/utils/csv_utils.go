package utils

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dyike/WheelGo/consts"
	"github.com/dyike/WheelGo/models"
	"github.com/shopspring/decimal"
)

type CSVManager struct {
	basePath string
}

func NewCSVManager(basePath string) *CSVManager {
	return &CSVManager{
		basePath: basePath,
	}
}

// WriteMarketDataToCSV 将价格数据写入CSV文件
func (c *CSVManager) WriteMarketDataToCSV(symbol string, bars []models.PriceBar) (string, error) {
	// 创建目录结构: data/csv/market/{symbol}/
	dirPath := filepath.Join(c.basePath, "csv", "market", symbol)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %v", err)
	}

	// 文件名包含时间戳和数据量
	filename := fmt.Sprintf("%s_market_data_%d_records_%s.csv",
		symbol, len(bars), time.Now().Format("20060102_150405"))
	filePath := filepath.Join(dirPath, filename)

	headers := []string{
		"Symbol", "Date", "Open", "High", "Low", "Close", "Volume",
		"Timestamp", // 用于缓存过期检查
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	rows := make([][]string, 0, len(bars))
	for _, bar := range bars {
		rows = append(rows, []string{
			symbol,
			bar.Day().Format(consts.DateLayout),
			bar.Open.String(),
			bar.High.String(),
			bar.Low.String(),
			bar.Close.String(),
			strconv.FormatInt(bar.Volume, 10),
			timestamp,
		})
	}

	return filePath, writeCSV(filePath, headers, rows)
}

// ReadMarketDataFromCSV 从CSV文件读取价格数据
func (c *CSVManager) ReadMarketDataFromCSV(filePath string) ([]models.PriceBar, time.Time, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to open CSV file: %v", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to read CSV: %v", err)
	}

	if len(records) <= 1 {
		return nil, time.Time{}, fmt.Errorf("no data in CSV file")
	}

	var bars []models.PriceBar
	var fileTimestamp time.Time

	// 跳过标题行，处理数据行
	for i, record := range records[1:] {
		if len(record) < 7 {
			continue // 跳过格式不正确的行
		}

		bar, err := parseBarRow(record)
		if err != nil {
			continue
		}

		if i == 0 && len(record) > 7 {
			if ts, err := strconv.ParseInt(record[7], 10, 64); err == nil {
				fileTimestamp = time.Unix(ts, 0)
			}
		}

		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return nil, time.Time{}, fmt.Errorf("no valid rows in CSV file %s", filePath)
	}

	return bars, fileTimestamp, nil
}

func parseBarRow(record []string) (models.PriceBar, error) {
	date, err := time.Parse(consts.DateLayout, strings.TrimSpace(record[1]))
	if err != nil {
		return models.PriceBar{}, err
	}

	prices := make([]decimal.Decimal, 4)
	for j := range prices {
		if prices[j], err = decimal.NewFromString(strings.TrimSpace(record[2+j])); err != nil {
			return models.PriceBar{}, err
		}
	}
	volume, _ := strconv.ParseInt(strings.TrimSpace(record[6]), 10, 64)

	return models.PriceBar{
		Symbol: strings.TrimSpace(record[0]),
		Date:   date,
		Open:   prices[0],
		High:   prices[1],
		Low:    prices[2],
		Close:  prices[3],
		Volume: volume,
	}, nil
}

// FindLatestCSV 查找最新的CSV文件
func (c *CSVManager) FindLatestCSV(symbol string, minRecords int) (string, error) {
	dirPath := filepath.Join(c.basePath, "csv", "market", symbol)

	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return "", fmt.Errorf("no CSV directory for symbol %s", symbol)
	}

	files, err := filepath.Glob(filepath.Join(dirPath, fmt.Sprintf("%s_market_data_*_records_*.csv", symbol)))
	if err != nil {
		return "", fmt.Errorf("failed to search CSV files: %v", err)
	}

	if len(files) == 0 {
		return "", fmt.Errorf("no CSV files found for symbol %s", symbol)
	}

	var bestFile string
	var latestTime time.Time

	for _, file := range files {
		// SYMBOL_market_data_COUNT_records_TIMESTAMP.csv
		rest := strings.TrimPrefix(filepath.Base(file), symbol+"_market_data_")
		parts := strings.Split(rest, "_")
		if len(parts) < 2 {
			continue
		}

		recordCount, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}

		if recordCount < minRecords {
			continue
		}

		info, err := os.Stat(file)
		if err != nil {
			continue
		}

		if bestFile == "" || info.ModTime().After(latestTime) ||
			(info.ModTime().Equal(latestTime) && file > bestFile) {
			latestTime = info.ModTime()
			bestFile = file
		}
	}

	if bestFile == "" {
		return "", fmt.Errorf("no suitable CSV file found for symbol %s with at least %d records", symbol, minRecords)
	}

	return bestFile, nil
}

// WriteActionsToCSV 将回测操作记录写入CSV
func (c *CSVManager) WriteActionsToCSV(ticker, runID string, records []models.ActionRecord) (string, error) {
	headers := []string{
		"Date", "Action", "Stock Price", "Strike", "Premium", "Premium Source",
		"Expiry", "Shares Held", "Cash Balance", "Portfolio Value",
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		expiry := ""
		if !r.Expiry.IsZero() {
			expiry = r.Expiry.Format(consts.DateLayout)
		}
		rows = append(rows, []string{
			r.Date.Format(consts.DateLayout),
			r.Action.DisplayName(),
			r.StockPrice.StringFixed(2),
			r.Strike.StringFixed(2),
			r.Premium.StringFixed(2),
			r.PremiumSource,
			expiry,
			strconv.Itoa(r.SharesHeldAfter),
			r.CashAfter.StringFixed(2),
			r.PortfolioValueAfter.StringFixed(2),
		})
	}

	filePath := c.resultPath(ticker, runID, "actions")
	return filePath, writeCSV(filePath, headers, rows)
}

// WriteEquityCurveToCSV 将权益曲线写入CSV
func (c *CSVManager) WriteEquityCurveToCSV(ticker, runID string, curve []models.EquityPoint) (string, error) {
	rows := make([][]string, 0, len(curve))
	for _, pt := range curve {
		rows = append(rows, []string{pt.Date.Format(consts.DateLayout), pt.Value.StringFixed(2)})
	}

	filePath := c.resultPath(ticker, runID, "equity")
	return filePath, writeCSV(filePath, []string{"Date", "Portfolio Value"}, rows)
}

func (c *CSVManager) resultPath(ticker, runID, kind string) string {
	name := fmt.Sprintf("%s_%s_%s.csv", ticker, kind, time.Now().Format("20060102_150405"))
	if runID != "" {
		name = fmt.Sprintf("%s_%s_%s.csv", ticker, kind, runID)
	}
	return filepath.Join(c.basePath, "csv", "wheel", ticker, name)
}

// CleanOldCSVFiles 清理过期的CSV文件
func (c *CSVManager) CleanOldCSVFiles(maxAge time.Duration) (int, error) {
	dirs := []string{
		filepath.Join(c.basePath, "csv", "market"),
		filepath.Join(c.basePath, "csv", "wheel"),
	}

	removed := 0
	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}

		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			if !info.IsDir() && strings.HasSuffix(info.Name(), ".csv") {
				if time.Since(info.ModTime()) > maxAge {
					if err := os.Remove(path); err != nil {
						return fmt.Errorf("failed to remove old file %s: %v", path, err)
					}
					removed++
				}
			}
			return nil
		})

		if err != nil {
			return removed, fmt.Errorf("failed to clean directory %s: %v", dir, err)
		}
	}

	return removed, nil
}

func writeCSV(filePath string, headers []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %v", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write headers: %v", err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write rows: %v", err)
	}
	return writer.Error()
}
