// Package sqlite persists the signal and trade audit trail.
//
// The Journal is the durable record of every decision the bot makes:
// each scored signal with its accept/reject outcome, and each simulated
// fill. Single-writer WAL database, safe for one process.
package sqlite

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"signalbotv1/internal/execution"
	"signalbotv1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Journal records signals and fills to SQLite.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// NewJournal opens (or creates) the journal database with WAL mode.
func NewJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[journal] opened database at %s", dbPath)
	return &Journal{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS signals (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol      TEXT NOT NULL,
			direction   TEXT NOT NULL,
			confidence  REAL NOT NULL,
			entry_price REAL NOT NULL,
			stop_loss   REAL NOT NULL,
			take_profit REAL NOT NULL,
			accepted    INTEGER NOT NULL,
			reason      TEXT,
			ts          DATETIME NOT NULL,
			created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals(symbol);
		CREATE INDEX IF NOT EXISTS idx_signals_ts ON signals(ts);

		CREATE TABLE IF NOT EXISTS trades (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			order_id   TEXT NOT NULL,
			symbol     TEXT NOT NULL,
			direction  TEXT NOT NULL,
			size       REAL NOT NULL,
			fill_price REAL NOT NULL,
			slippage   REAL DEFAULT 0,
			filled_at  DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
		CREATE INDEX IF NOT EXISTS idx_trades_filled_at ON trades(filled_at);
	`)
	return err
}

// RecordSignal persists a scored signal with its validation outcome.
func (j *Journal) RecordSignal(sig model.TradeSignal, accepted bool, reason string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	acc := 0
	if accepted {
		acc = 1
	}
	_, err := j.db.Exec(
		`INSERT INTO signals (symbol, direction, confidence, entry_price, stop_loss, take_profit, accepted, reason, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sig.Symbol,
		string(sig.Direction),
		sig.Confidence,
		sig.EntryPrice,
		sig.StopLoss,
		sig.TakeProfit,
		acc,
		reason,
		sig.TS.UTC().Format(time.RFC3339),
	)
	return err
}

// RecordFill persists a simulated fill.
func (j *Journal) RecordFill(fill execution.Fill) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`INSERT INTO trades (order_id, symbol, direction, size, fill_price, slippage, filled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		fill.OrderID,
		fill.Signal.Symbol,
		string(fill.Signal.Direction),
		fill.Size,
		fill.FillPrice,
		fill.Slippage,
		fill.FilledAt.UTC().Format(time.RFC3339),
	)
	return err
}

// SignalRecord is a row from the signals table.
type SignalRecord struct {
	ID         int64   `json:"id"`
	Symbol     string  `json:"symbol"`
	Direction  string  `json:"direction"`
	Confidence float64 `json:"confidence"`
	EntryPrice float64 `json:"entry_price"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
	Accepted   bool    `json:"accepted"`
	Reason     string  `json:"reason"`
	TS         string  `json:"ts"`
}

// RecentSignals returns the last N recorded signals, newest first.
func (j *Journal) RecentSignals(limit int) ([]SignalRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT id, symbol, direction, confidence, entry_price, stop_loss, take_profit, accepted, reason, ts
		 FROM signals ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query signals: %w", err)
	}
	defer rows.Close()

	var out []SignalRecord
	for rows.Next() {
		var r SignalRecord
		var acc int
		var reason sql.NullString
		if err := rows.Scan(&r.ID, &r.Symbol, &r.Direction, &r.Confidence, &r.EntryPrice,
			&r.StopLoss, &r.TakeProfit, &acc, &reason, &r.TS); err != nil {
			return nil, fmt.Errorf("sqlite scan signals: %w", err)
		}
		r.Accepted = acc != 0
		r.Reason = reason.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// TradeRecord is a row from the trades table.
type TradeRecord struct {
	ID        int64   `json:"id"`
	OrderID   string  `json:"order_id"`
	Symbol    string  `json:"symbol"`
	Direction string  `json:"direction"`
	Size      float64 `json:"size"`
	FillPrice float64 `json:"fill_price"`
	Slippage  float64 `json:"slippage"`
	FilledAt  string  `json:"filled_at"`
}

// RecentTrades returns the last N fills, newest first.
func (j *Journal) RecentTrades(limit int) ([]TradeRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT id, order_id, symbol, direction, size, fill_price, slippage, filled_at
		 FROM trades ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query trades: %w", err)
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var t TradeRecord
		if err := rows.Scan(&t.ID, &t.OrderID, &t.Symbol, &t.Direction, &t.Size,
			&t.FillPrice, &t.Slippage, &t.FilledAt); err != nil {
			return nil, fmt.Errorf("sqlite scan trades: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DB returns the underlying sql.DB for health checks.
func (j *Journal) DB() *sql.DB { return j.db }

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}
