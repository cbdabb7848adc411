package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordExecution(e Execution) error {
	_, err := j.db.Exec(`
		INSERT INTO executions
		(execution_id, symbol, quantity, price, side, time, entry_type)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Symbol, e.Quantity, e.Price, e.Side, e.Time, e.EntryType,
	)
	return err
}

func (j *SQLite) RecordClosedTrade(t ClosedTrade) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, symbol, shares, entry_price, exit_price, entry_type, entry_time, exit_time, profit_loss, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Symbol, t.Shares, t.EntryPrice, t.ExitPrice,
		t.EntryType, t.EntryTime, t.ExitTime, t.ProfitLoss, t.Reason,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
