package trade

import (
	"context"
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/rustyeddy/scalper/broker"
	"github.com/rustyeddy/scalper/id"
	"github.com/rustyeddy/scalper/journal"
	"github.com/rustyeddy/scalper/market"
	"github.com/rustyeddy/scalper/notify"
)

// stopLimitPad is subtracted from the stop price to form the limit leg
// of the protective stop-limit exit.
const stopLimitPad = 0.05

var ErrNoPosition = errors.New("no open position")

// Manager is the trade state machine. It holds the open position (at
// most one across all symbols), evaluates targets and stop on every
// quote, and writes the journal trail. Not safe for concurrent use;
// the engine goroutine is the only caller.
type Manager struct {
	clock     clock.Clock
	broker    broker.Broker
	journal   journal.Journal
	notifier  notify.Notifier
	log       *zap.SugaredLogger
	settings  Settings
	positions map[string]*Position
}

func NewManager(clk clock.Clock, b broker.Broker, j journal.Journal, n notify.Notifier, log *zap.SugaredLogger, s Settings) *Manager {
	if n == nil {
		n = notify.Nop{}
	}
	return &Manager{
		clock:     clk,
		broker:    b,
		journal:   j,
		notifier:  n,
		log:       log,
		settings:  s,
		positions: make(map[string]*Position),
	}
}

// OpenPosition returns the symbol currently holding a position, if any.
func (m *Manager) OpenPosition() (string, bool) {
	for sym, p := range m.positions {
		if !p.Terminal() {
			return sym, true
		}
	}
	return "", false
}

// Position returns a copy of the position for symbol.
func (m *Manager) Position(symbol string) (Position, bool) {
	p, ok := m.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// HandleBreakout enters a position on a triggered breakout. The entry
// is dropped with a warning when any position is already open. The
// position is created only after the buy order submits cleanly; a
// broker error leaves the book flat.
func (m *Manager) HandleBreakout(ctx context.Context, symbol string, entryType market.Timeframe, q market.Quote) error {
	if open, ok := m.OpenPosition(); ok {
		m.log.Warnw("breakout dropped, position already open",
			"symbol", symbol, "open", open)
		return nil
	}

	ask := q.Ask
	if ask <= 0 {
		ask = q.Price()
	}
	size := m.settings.PositionSize

	if _, err := m.broker.SubmitLimitOrder(ctx, symbol, size, broker.Buy, ask); err != nil {
		m.log.Errorw("entry order failed", "symbol", symbol, "error", err)
		return fmt.Errorf("submit entry for %s: %w", symbol, err)
	}

	off := m.settings.offsetsFor(entryType)
	p := &Position{
		Symbol:     symbol,
		EntryType:  entryType,
		EntryPrice: ask,
		Size:       size,
		TP1:        ask + off.TP1,
		TP2:        ask + off.TP2,
		Stop:       ask - off.Stop,
		EntryTime:  m.clock.Now(),
	}
	m.positions[symbol] = p

	m.log.Infow("entered position",
		"symbol", symbol, "entry", ask, "size", size,
		"tp1", p.TP1, "tp2", p.TP2, "stop", p.Stop,
		"entryType", string(entryType))
	m.notifier.Position(notify.PositionEvent{
		Symbol: symbol, Action: "entered", Price: ask, Shares: size,
		EntryType: entryType,
	})
	return nil
}

// ConfirmEntry marks the entry fill as reported by the broker stream.
func (m *Manager) ConfirmEntry(symbol string) {
	if p, ok := m.positions[symbol]; ok {
		p.Confirmed = true
	}
}

// CheckTargets evaluates the open position for symbol against a fresh
// quote. Take-profits are checked before the stop so a quote breaching
// both resolves as a take-profit; at most one transition fires per
// quote.
func (m *Manager) CheckTargets(ctx context.Context, symbol string, q market.Quote) {
	p, ok := m.positions[symbol]
	if !ok || p.Terminal() {
		return
	}

	if held := m.clock.Now().Sub(p.EntryTime); held < m.settings.WashGuard {
		m.log.Debugw("wash guard active", "symbol", symbol, "held", held)
		return
	}

	ask := q.Ask
	if ask <= 0 {
		ask = q.Price()
	}
	bid := q.Bid
	if bid <= 0 {
		bid = q.Price()
	}

	switch {
	case !p.TP1Hit && ask >= p.TP1:
		m.takeProfitOne(ctx, p, ask, bid)
	case p.TP1Hit && !p.TP2Hit && ask >= p.TP2:
		m.takeProfitTwo(ctx, p, ask, bid)
	case bid <= p.Stop:
		m.stopOut(ctx, p, bid)
	}
}

// takeProfitOne sells half the position and moves the stop to
// breakeven.
func (m *Manager) takeProfitOne(ctx context.Context, p *Position, ask, bid float64) {
	sold := p.Size / 2
	if _, err := m.broker.SubmitLimitOrder(ctx, p.Symbol, sold, broker.Sell, bid); err != nil {
		m.log.Errorw("tp1 exit order failed", "symbol", p.Symbol, "error", err)
	}

	p.Size -= sold
	p.TP1Hit = true
	p.Stop = p.EntryPrice

	m.log.Infow("tp1 hit, scaled out",
		"symbol", p.Symbol, "sold", sold, "price", ask,
		"remaining", p.Size, "stop", p.Stop)
	m.recordLot(p, sold, ask, "TP1")
	m.notifier.Position(notify.PositionEvent{
		Symbol: p.Symbol, Action: "scaled_out", Price: ask, Shares: sold,
		Reason: "TP1", EntryType: p.EntryType,
	})
}

func (m *Manager) takeProfitTwo(ctx context.Context, p *Position, ask, bid float64) {
	rem := p.Size
	if _, err := m.broker.SubmitLimitOrder(ctx, p.Symbol, rem, broker.Sell, bid); err != nil {
		m.log.Errorw("tp2 exit order failed", "symbol", p.Symbol, "error", err)
	}

	p.Size = 0
	p.TP2Hit = true

	m.log.Infow("tp2 hit, position closed",
		"symbol", p.Symbol, "sold", rem, "price", ask)
	m.recordLot(p, rem, ask, "TP2")
	m.notifier.Position(notify.PositionEvent{
		Symbol: p.Symbol, Action: "exited", Price: ask, Shares: rem,
		Reason: "TP2", EntryType: p.EntryType,
	})
	delete(m.positions, p.Symbol)
}

// stopOut exits the remainder through a stop-limit a nickel under the
// stop so a fast tape still fills.
func (m *Manager) stopOut(ctx context.Context, p *Position, bid float64) {
	rem := p.Size
	if _, err := m.broker.SubmitStopLimitOrder(ctx, p.Symbol, rem, p.Stop, p.Stop-stopLimitPad); err != nil {
		m.log.Errorw("stop exit order failed", "symbol", p.Symbol, "error", err)
	}

	p.Size = 0
	p.SLHit = true

	m.log.Infow("stop hit, position closed",
		"symbol", p.Symbol, "sold", rem, "price", bid)
	m.recordLot(p, rem, bid, "StopLoss")
	m.notifier.Position(notify.PositionEvent{
		Symbol: p.Symbol, Action: "exited", Price: bid, Shares: rem,
		Reason: "StopLoss", EntryType: p.EntryType,
	})
	delete(m.positions, p.Symbol)
}

// CloseManually exits the full remaining position at the best bid,
// bypassing target and stop logic.
func (m *Manager) CloseManually(ctx context.Context, symbol string, q market.Quote) error {
	p, ok := m.positions[symbol]
	if !ok || p.Terminal() {
		return fmt.Errorf("close %s: %w", symbol, ErrNoPosition)
	}

	bid := q.Bid
	if bid <= 0 {
		bid = q.Price()
	}

	rem := p.Size
	if _, err := m.broker.SubmitLimitOrder(ctx, symbol, rem, broker.Sell, bid); err != nil {
		m.log.Errorw("manual close order failed", "symbol", symbol, "error", err)
	}

	p.Size = 0
	p.SLHit = true // terminal; no further evaluation

	m.log.Infow("position closed manually",
		"symbol", symbol, "sold", rem, "price", bid)
	m.recordLot(p, rem, bid, "ManualClose")
	m.notifier.Position(notify.PositionEvent{
		Symbol: symbol, Action: "exited", Price: bid, Shares: rem,
		Reason: "ManualClose", EntryType: p.EntryType,
	})
	delete(m.positions, symbol)
	return nil
}

// Reconcile adopts positions the broker already holds at startup so the
// position guard sees them. Adopted positions get default offsets
// around the broker's average entry price.
func (m *Manager) Reconcile(ctx context.Context) error {
	open, err := m.broker.OpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("reconcile open positions: %w", err)
	}

	for _, bp := range open {
		if _, ok := m.positions[bp.Symbol]; ok {
			continue
		}
		off := m.settings.Default
		m.positions[bp.Symbol] = &Position{
			Symbol:     bp.Symbol,
			EntryType:  market.TFNone,
			EntryPrice: bp.AvgEntryPrice,
			Size:       bp.Qty,
			TP1:        bp.AvgEntryPrice + off.TP1,
			TP2:        bp.AvgEntryPrice + off.TP2,
			Stop:       bp.AvgEntryPrice - off.Stop,
			EntryTime:  m.clock.Now(),
			Confirmed:  true,
		}
		m.log.Warnw("adopted broker position at startup",
			"symbol", bp.Symbol, "qty", bp.Qty, "avgEntry", bp.AvgEntryPrice)
	}
	return nil
}

// recordLot writes the paired entry/exit executions and the closed
// trade row for one exited lot. Journal failures are logged, never
// fatal to the tick path.
func (m *Manager) recordLot(p *Position, shares int, exitPrice float64, reason string) {
	now := m.clock.Now()
	tradeID := id.New()

	buy := journal.Execution{
		ID:        id.New(),
		Symbol:    p.Symbol,
		Quantity:  shares,
		Price:     p.EntryPrice,
		Side:      "buy",
		Time:      p.EntryTime,
		EntryType: string(p.EntryType),
	}
	sell := journal.Execution{
		ID:        id.New(),
		Symbol:    p.Symbol,
		Quantity:  shares,
		Price:     exitPrice,
		Side:      "sell",
		Time:      now,
		EntryType: string(p.EntryType),
	}
	closed := journal.ClosedTrade{
		ID:         tradeID,
		Symbol:     p.Symbol,
		Shares:     shares,
		EntryPrice: p.EntryPrice,
		ExitPrice:  exitPrice,
		EntryType:  string(p.EntryType),
		EntryTime:  p.EntryTime,
		ExitTime:   now,
		ProfitLoss: (exitPrice - p.EntryPrice) * float64(shares),
		Reason:     reason,
	}

	if err := m.journal.RecordExecution(buy); err != nil {
		m.log.Errorw("journal execution failed", "symbol", p.Symbol, "error", err)
	}
	if err := m.journal.RecordExecution(sell); err != nil {
		m.log.Errorw("journal execution failed", "symbol", p.Symbol, "error", err)
	}
	if err := m.journal.RecordClosedTrade(closed); err != nil {
		m.log.Errorw("journal trade failed", "symbol", p.Symbol, "error", err)
	}
}

// UnrealizedPL returns the mark-to-market profit of the open position
// for symbol against the given quote, zero when flat.
func (m *Manager) UnrealizedPL(symbol string, q market.Quote) float64 {
	p, ok := m.positions[symbol]
	if !ok || p.Size == 0 {
		return 0
	}
	bid := q.Bid
	if bid <= 0 {
		bid = q.Price()
	}
	return (bid - p.EntryPrice) * float64(p.Size)
}
