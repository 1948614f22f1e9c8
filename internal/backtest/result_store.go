package backtest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// ResultStore 把回测结果写进独立的 runs.db,和实盘库分开。
type ResultStore struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

func NewResultStore(root string) (*ResultStore, error) {
	if root == "" {
		return nil, fmt.Errorf("result store root 不能为空")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(root, "runs.db")
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureResultSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &ResultStore{db: db, path: path}, nil
}

func (s *ResultStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func ensureResultSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS backtest_runs (
			id TEXT PRIMARY KEY,
			start_ts INTEGER NOT NULL,
			end_ts INTEGER NOT NULL,
			ticks INTEGER NOT NULL,
			initial_balance REAL NOT NULL,
			final_value REAL NOT NULL,
			total_return REAL NOT NULL,
			sharpe_ratio REAL NOT NULL,
			max_drawdown REAL NOT NULL,
			win_rate REAL NOT NULL,
			profit_factor REAL NOT NULL,
			trades INTEGER NOT NULL,
			metrics_json TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS backtest_equity (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			value REAL NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_backtest_equity_run ON backtest_equity(run_id, ts);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveResult 落库一次回测:汇总一行,权益曲线逐点。
// profit_factor 没有亏损时是 +Inf,JSON 和 SQLite REAL 都存不了,
// 持久化前统一截成明显的大数。
func (s *ResultStore) SaveResult(ctx context.Context, result *Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return fmt.Errorf("result store closed")
	}

	stored := result.Metrics
	if math.IsInf(stored.ProfitFactor, 1) || stored.ProfitFactor > 1e9 {
		stored.ProfitFactor = 1e9
	}
	metricsJSON, err := json.Marshal(stored)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO backtest_runs
		(id, start_ts, end_ts, ticks, initial_balance, final_value, total_return,
		 sharpe_ratio, max_drawdown, win_rate, profit_factor, trades, metrics_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID, result.Start.Unix(), result.End.Unix(), result.Ticks,
		stored.InitialBalance, stored.FinalValue, stored.TotalReturn,
		stored.SharpeRatio, stored.MaxDrawdown, stored.WinRate,
		stored.ProfitFactor, stored.Trades, string(metricsJSON), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, point := range result.Equity {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO backtest_equity (run_id, ts, value) VALUES (?, ?, ?)`,
			result.RunID, point.Timestamp.Unix(), point.Value); err != nil {
			return fmt.Errorf("insert equity point: %w", err)
		}
	}
	return tx.Commit()
}

// LoadEquity 读回一次 run 的权益曲线。
func (s *ResultStore) LoadEquity(ctx context.Context, runID string) ([]EquityPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("result store closed")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, value FROM backtest_equity WHERE run_id = ? ORDER BY ts ASC, id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []EquityPoint
	for rows.Next() {
		var ts int64
		var value float64
		if err := rows.Scan(&ts, &value); err != nil {
			return nil, err
		}
		points = append(points, EquityPoint{Timestamp: time.Unix(ts, 0).UTC(), Value: value})
	}
	return points, rows.Err()
}
