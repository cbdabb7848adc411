package notify

import (
	"go.uber.org/zap"

	"github.com/rustyeddy/scalper/market"
)

// LogNotifier writes every event to the structured log. It is the
// default sink when no UI channel is attached.
type LogNotifier struct {
	log *zap.SugaredLogger
}

func NewLogNotifier(log *zap.SugaredLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) CandleClosed(symbol string, tf market.Timeframe, c market.Candle) {
	n.log.Infow("candle closed",
		"symbol", symbol,
		"timeframe", string(tf),
		"time", c.Time,
		"open", c.Open,
		"high", c.High,
		"low", c.Low,
		"close", c.Close,
		"volume", c.Volume,
	)
}

func (n *LogNotifier) BreakoutLevels(symbol string, lv Levels) {
	n.log.Infow("breakout levels",
		"symbol", symbol,
		"10s", fmtLevel(lv.TenSec),
		"1m", fmtLevel(lv.OneMin),
		"5m", fmtLevel(lv.FiveMin),
		"custom", fmtLevel(lv.Custom),
	)
}

func (n *LogNotifier) Position(ev PositionEvent) {
	n.log.Infow("position "+ev.Action,
		"symbol", ev.Symbol,
		"price", ev.Price,
		"shares", ev.Shares,
		"reason", ev.Reason,
		"entryType", string(ev.EntryType),
	)
}

func fmtLevel(p *float64) interface{} {
	if p == nil {
		return "-"
	}
	return *p
}

// Nop discards all events. Used in tests and as a safe default.
type Nop struct{}

func (Nop) CandleClosed(string, market.Timeframe, market.Candle) {}
func (Nop) BreakoutLevels(string, Levels)                        {}
func (Nop) Position(PositionEvent)                               {}
