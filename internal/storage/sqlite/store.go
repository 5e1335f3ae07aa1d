package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dyike/WheelGo/consts"
	"github.com/dyike/WheelGo/models"
	sqlitedb "github.com/dyike/WheelGo/pkg/sqlite"
	"github.com/dyike/WheelGo/pkg/wheel"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Store struct {
	db *sql.DB
}

// RunRecord is the persisted header of one backtest
type RunRecord struct {
	ID              string
	Ticker          string
	StrikePct       float64
	StartDate       string
	EndDate         string
	StartingCapital decimal.Decimal
	EndingCapital   decimal.Decimal
	TotalReturnPct  float64
	DataSource      string
	Status          string
	Error           string
	Params          wheel.Params
	Summary         models.SimulationSummary
}

type RunWithMeta struct {
	RunRecord
	RowID     int64
	CreatedAt time.Time
}

// NewRunRecord captures a finished run under a fresh id.
func NewRunRecord(res *wheel.Result, dataSource string) RunRecord {
	return RunRecord{
		ID:              uuid.NewString(),
		Ticker:          res.Params.Ticker,
		StrikePct:       res.Params.StrikePct,
		StartDate:       res.Params.StartDate.Format(consts.DateLayout),
		EndDate:         res.Params.EndDate.Format(consts.DateLayout),
		StartingCapital: res.Summary.StartingCapital,
		EndingCapital:   res.Summary.EndingCapital,
		TotalReturnPct:  res.Summary.TotalReturnPct,
		DataSource:      dataSource,
		Status:          consts.RunStatusCompleted,
		Params:          res.Params,
		Summary:         res.Summary,
	}
}

func Open(dbPath string) (*Store, error) {
	db, err := sqlitedb.Open(dbPath)
	if err != nil {
		return nil, err
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    ticker TEXT NOT NULL,
    strike_pct REAL NOT NULL,
    start_date TEXT NOT NULL,
    end_date TEXT NOT NULL,
    starting_capital TEXT NOT NULL,
    ending_capital TEXT NOT NULL,
    total_return_pct REAL NOT NULL,
    data_source TEXT,
    status TEXT NOT NULL,
    error TEXT NOT NULL DEFAULT '',
    params_json TEXT NOT NULL DEFAULT '{}',
    summary_json TEXT NOT NULL DEFAULT '{}',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS actions (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    date TEXT NOT NULL,
    action TEXT NOT NULL,
    stock_price TEXT NOT NULL,
    strike TEXT NOT NULL,
    premium TEXT NOT NULL,
    premium_source TEXT NOT NULL DEFAULT '',
    expiry TEXT NOT NULL DEFAULT '',
    shares_held INTEGER NOT NULL,
    cash TEXT NOT NULL,
    portfolio_value TEXT NOT NULL,
    PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_ticker ON runs(ticker);
`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// SaveRun writes the run header and its action trail in one transaction.
func (s *Store) SaveRun(ctx context.Context, run RunRecord, actions []models.ActionRecord) error {
	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("run id is required")
	}
	if run.Status == "" {
		run.Status = consts.RunStatusCompleted
	}

	paramsJSON, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	summaryJSON, err := json.Marshal(run.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO runs (id, ticker, strike_pct, start_date, end_date, starting_capital, ending_capital,
    total_return_pct, data_source, status, error, params_json, summary_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, run.ID, run.Ticker, run.StrikePct, run.StartDate, run.EndDate, run.StartingCapital, run.EndingCapital,
		run.TotalReturnPct, run.DataSource, run.Status, run.Error, string(paramsJSON), string(summaryJSON))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO actions (run_id, seq, date, action, stock_price, strike, premium, premium_source,
    expiry, shares_held, cash, portfolio_value)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return fmt.Errorf("prepare action insert: %w", err)
	}
	defer stmt.Close()

	for i, a := range actions {
		expiry := ""
		if !a.Expiry.IsZero() {
			expiry = a.Expiry.Format(consts.DateLayout)
		}
		_, err := stmt.ExecContext(ctx, run.ID, i+1, a.Date.Format(consts.DateLayout), string(a.Action),
			a.StockPrice, a.Strike, a.Premium, a.PremiumSource, expiry, a.SharesHeldAfter, a.CashAfter, a.PortfolioValueAfter)
		if err != nil {
			return fmt.Errorf("insert action %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

const runColumns = `rowid, id, ticker, strike_pct, start_date, end_date, starting_capital, ending_capital,
    total_return_pct, data_source, status, error, params_json, summary_json, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunWithMeta, error) {
	var rec RunWithMeta
	var paramsJSON, summaryJSON string
	var dataSource sql.NullString
	err := row.Scan(&rec.RowID, &rec.ID, &rec.Ticker, &rec.StrikePct, &rec.StartDate, &rec.EndDate,
		&rec.StartingCapital, &rec.EndingCapital, &rec.TotalReturnPct, &dataSource, &rec.Status,
		&rec.Error, &paramsJSON, &summaryJSON, &rec.CreatedAt)
	if err != nil {
		return rec, err
	}
	rec.DataSource = dataSource.String
	if err := json.Unmarshal([]byte(paramsJSON), &rec.Params); err != nil {
		return rec, fmt.Errorf("decode params of run %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(summaryJSON), &rec.Summary); err != nil {
		return rec, fmt.Errorf("decode summary of run %s: %w", rec.ID, err)
	}
	return rec, nil
}

// ListRuns 按 rowid 倒序分页列出回测记录
func (s *Store) ListRuns(ctx context.Context, cursor int64, limit int) ([]RunWithMeta, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT `+runColumns+`
FROM runs
WHERE (? = 0 OR rowid < ?)
ORDER BY rowid DESC
LIMIT ?
`, cursor, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunWithMeta
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs rows: %w", err)
	}
	return runs, nil
}

// GetRun returns (nil, nil) when no run has the id.
func (s *Store) GetRun(ctx context.Context, runID string) (*RunWithMeta, error) {
	if strings.TrimSpace(runID) == "" {
		return nil, fmt.Errorf("run id is required")
	}
	row := s.db.QueryRowContext(ctx, `
SELECT `+runColumns+`
FROM runs
WHERE id = ?
LIMIT 1
`, runID)

	rec, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &rec, nil
}

func (s *Store) ListActions(ctx context.Context, runID string) ([]models.ActionRecord, error) {
	if strings.TrimSpace(runID) == "" {
		return nil, fmt.Errorf("run id is required")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT date, action, stock_price, strike, premium, premium_source, expiry, shares_held, cash, portfolio_value
FROM actions
WHERE run_id = ?
ORDER BY seq ASC
`, runID)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	var actions []models.ActionRecord
	for rows.Next() {
		var rec models.ActionRecord
		var date, action, expiry string
		if err := rows.Scan(&date, &action, &rec.StockPrice, &rec.Strike, &rec.Premium, &rec.PremiumSource,
			&expiry, &rec.SharesHeldAfter, &rec.CashAfter, &rec.PortfolioValueAfter); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		if rec.Date, err = time.Parse(consts.DateLayout, date); err != nil {
			return nil, fmt.Errorf("parse action date %q: %w", date, err)
		}
		if expiry != "" {
			if rec.Expiry, err = time.Parse(consts.DateLayout, expiry); err != nil {
				return nil, fmt.Errorf("parse expiry %q: %w", expiry, err)
			}
		}
		rec.Action = models.ActionKind(action)
		actions = append(actions, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list actions rows: %w", err)
	}
	return actions, nil
}

// DeleteRun removes a run and, through the foreign key, its actions.
func (s *Store) DeleteRun(ctx context.Context, runID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return false, fmt.Errorf("delete run: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
