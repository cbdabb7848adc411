// Package notify is the outbound event boundary. The engine and trade
// manager publish candle closes, breakout levels and position lifecycle
// events through a Notifier; consumers range from the structured log to
// a future UI push channel.
package notify

import (
	"github.com/rustyeddy/scalper/market"
)

// Levels carries the current breakout level per timeframe for one
// symbol. A nil entry means that tracker has no armed level.
type Levels struct {
	TenSec  *float64
	OneMin  *float64
	FiveMin *float64
	Custom  *float64
}

// PositionEvent describes one transition of an open position.
type PositionEvent struct {
	Symbol    string
	Action    string // "entered", "scaled_out", "exited"
	Price     float64
	Shares    int
	Reason    string // "TP1", "TP2", "StopLoss", "ManualClose"; empty on entry
	EntryType market.Timeframe
}

type Notifier interface {
	CandleClosed(symbol string, tf market.Timeframe, c market.Candle)
	BreakoutLevels(symbol string, lv Levels)
	Position(ev PositionEvent)
}
