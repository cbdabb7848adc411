package journal

import (
	"database/sql"
	"fmt"
	"time"
)

// GetTrade returns a single closed trade by ID.
func (j *SQLite) GetTrade(tradeID string) (ClosedTrade, error) {
	row := j.db.QueryRow(`
		SELECT trade_id, symbol, shares, entry_price, exit_price, entry_type, entry_time, exit_time, profit_loss, reason
		FROM trades
		WHERE trade_id = ?`, tradeID)

	var rec ClosedTrade
	err := row.Scan(
		&rec.ID,
		&rec.Symbol,
		&rec.Shares,
		&rec.EntryPrice,
		&rec.ExitPrice,
		&rec.EntryType,
		&rec.EntryTime,
		&rec.ExitTime,
		&rec.ProfitLoss,
		&rec.Reason,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return ClosedTrade{}, fmt.Errorf("trade %q not found", tradeID)
		}
		return ClosedTrade{}, err
	}
	return rec, nil
}

// ListTradesClosedBetween returns trades whose exit_time is within
// [start, end), oldest first.
func (j *SQLite) ListTradesClosedBetween(start, end time.Time) ([]ClosedTrade, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, symbol, shares, entry_price, exit_price, entry_type, entry_time, exit_time, profit_loss, reason
		FROM trades
		WHERE exit_time >= ? AND exit_time < ?
		ORDER BY exit_time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ClosedTrade
	for rows.Next() {
		var rec ClosedTrade
		if err := rows.Scan(
			&rec.ID,
			&rec.Symbol,
			&rec.Shares,
			&rec.EntryPrice,
			&rec.ExitPrice,
			&rec.EntryType,
			&rec.EntryTime,
			&rec.ExitTime,
			&rec.ProfitLoss,
			&rec.Reason,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListExecutionsBySymbol returns a symbol's executions oldest first.
func (j *SQLite) ListExecutionsBySymbol(symbol string) ([]Execution, error) {
	rows, err := j.db.Query(`
		SELECT execution_id, symbol, quantity, price, side, time, entry_type
		FROM executions
		WHERE symbol = ?
		ORDER BY time ASC`, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Execution
	for rows.Next() {
		var rec Execution
		if err := rows.Scan(
			&rec.ID,
			&rec.Symbol,
			&rec.Quantity,
			&rec.Price,
			&rec.Side,
			&rec.Time,
			&rec.EntryType,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
