// Package journal persists the append-only audit trail of the trading
// core: one Execution row per fill side, one ClosedTrade row per
// closed lot. The core never updates or deletes rows.
package journal

import "time"

// Execution is a single fill side (buy or sell) of a lot.
type Execution struct {
	ID        string
	Symbol    string
	Quantity  int
	Price     float64
	Side      string // "buy" or "sell"
	Time      time.Time
	EntryType string
}

// ClosedTrade is a completed round trip for one lot.
type ClosedTrade struct {
	ID         string
	Symbol     string
	Shares     int
	EntryPrice float64
	ExitPrice  float64
	EntryType  string
	EntryTime  time.Time
	ExitTime   time.Time
	ProfitLoss float64
	Reason     string // "TP1", "TP2", "StopLoss", "ManualClose"
}

type Journal interface {
	RecordExecution(Execution) error
	RecordClosedTrade(ClosedTrade) error
	Close() error
}
