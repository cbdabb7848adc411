package engine

import (
	"context"
	"fmt"

	"github.com/rustyeddy/scalper/market"
	"github.com/rustyeddy/scalper/notify"
	"github.com/rustyeddy/scalper/trade"
)

// Snapshot is a point-in-time copy of one symbol's state, safe to read
// outside the engine goroutine. Staleness is acceptable by contract.
type Snapshot struct {
	Symbol       string
	Selected     bool // symbol is the currently streamed instrument
	EntryType    market.Timeframe
	LastQuote    market.Quote
	HasQuote     bool
	Levels       notify.Levels
	Current      map[market.Timeframe]market.Candle
	Position     *trade.Position
	UnrealizedPL float64
}

// Snapshot copies the state for symbol off the engine goroutine.
func (e *Engine) Snapshot(ctx context.Context, symbol string) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	err := e.post(func() {
		reply <- e.snapshot(symbol)
	})
	if err != nil {
		return Snapshot{}, err
	}

	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Snapshot{}, fmt.Errorf("snapshot %s: %w", symbol, ctx.Err())
	case <-e.stopped:
		return Snapshot{}, ErrStopped
	}
}

func (e *Engine) snapshot(symbol string) Snapshot {
	st, ok := e.symbols[symbol]
	if !ok {
		return Snapshot{Symbol: symbol, EntryType: market.TFNone, Selected: symbol == e.active}
	}

	s := Snapshot{
		Symbol:    symbol,
		Selected:  symbol == e.active,
		EntryType: st.entryType,
		LastQuote: st.lastQuote,
		HasQuote:  st.hasQuote,
		Levels:    e.levels(st),
		Current:   make(map[market.Timeframe]market.Candle, 3),
	}
	for _, tf := range market.Timeframes() {
		if c, ok := st.builder.Current(tf); ok {
			s.Current[tf] = c
		}
	}
	if p, ok := e.trades.Position(symbol); ok {
		s.Position = &p
		if st.hasQuote {
			s.UnrealizedPL = e.trades.UnrealizedPL(symbol, st.lastQuote)
		}
	}
	return s
}
