// Package engine runs the trading core: one goroutine owns the whole
// tick path, from quote intake through candle building and breakout
// detection to trade transitions. Everything else talks to it through
// the command channel or the snapshot API.
package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rustyeddy/scalper/breakout"
	"github.com/rustyeddy/scalper/candles"
	"github.com/rustyeddy/scalper/market"
	"github.com/rustyeddy/scalper/notify"
	"github.com/rustyeddy/scalper/trade"
)

// Subscriber is the stream surface the engine drives when the traded
// symbol changes.
type Subscriber interface {
	Subscribe(symbol string, done func(error))
}

var ErrStopped = errors.New("engine stopped")

// symbolState is everything the tick path tracks for one symbol. States
// accrue for the life of the process; re-selecting a symbol resets only
// its custom level.
type symbolState struct {
	builder   *candles.Builder
	trackers  map[market.Timeframe]*breakout.Tracker
	custom    *breakout.CustomLevel
	entryType market.Timeframe
	lastQuote market.Quote
	hasQuote  bool
}

// Engine is the trading core. All fields past the channels are owned
// by the Run goroutine.
type Engine struct {
	log      *zap.SugaredLogger
	sub      Subscriber
	store    *market.QuoteStore
	trades   *trade.Manager
	notifier notify.Notifier

	quotes   chan market.Quote
	commands chan func()
	stopped  chan struct{}

	symbols map[string]*symbolState
	active  string
}

func New(sub Subscriber, store *market.QuoteStore, trades *trade.Manager, n notify.Notifier, log *zap.SugaredLogger) *Engine {
	if n == nil {
		n = notify.Nop{}
	}
	return &Engine{
		log:      log,
		sub:      sub,
		store:    store,
		trades:   trades,
		notifier: n,
		quotes:   make(chan market.Quote, 1024),
		commands: make(chan func(), 64),
		stopped:  make(chan struct{}),
		symbols:  make(map[string]*symbolState),
	}
}

// HandleQuote is the stream's quote callback. It never blocks the
// reader: when the engine is saturated the quote is dropped, the next
// one repairs the candle anyway.
func (e *Engine) HandleQuote(q market.Quote) {
	select {
	case e.quotes <- q:
	default:
		e.log.Warnw("quote dropped, engine saturated", "symbol", q.Symbol)
	}
}

// Run owns the tick path until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-e.commands:
			cmd()
		case q := <-e.quotes:
			e.handleQuote(ctx, q)
		}
	}
}

// post hands a closure to the engine goroutine.
func (e *Engine) post(cmd func()) error {
	select {
	case e.commands <- cmd:
		return nil
	case <-e.stopped:
		return ErrStopped
	}
}

// SelectSymbol makes symbol the traded instrument: its state is
// created if needed, its custom level cleared, and the stream switched
// over. Accrued candle and tracker state for other symbols is kept.
func (e *Engine) SelectSymbol(symbol string, done func(error)) {
	err := e.post(func() {
		st := e.getOrCreate(symbol)
		st.custom.Clear()
		e.active = symbol
		e.log.Infow("symbol selected", "symbol", symbol)
		e.sub.Subscribe(symbol, done)
	})
	if err != nil && done != nil {
		done(err)
	}
}

// SetEntryType sets which breakout source may enter trades for symbol.
func (e *Engine) SetEntryType(symbol string, tf market.Timeframe, done func(error)) {
	err := e.post(func() {
		st := e.getOrCreate(symbol)
		st.entryType = tf
		e.log.Infow("entry type set", "symbol", symbol, "entryType", string(tf))
		if done != nil {
			done(nil)
		}
	})
	if err != nil && done != nil {
		done(err)
	}
}

// SetCustomLevel arms the custom breakout level for symbol. A price of
// zero or less clears it.
func (e *Engine) SetCustomLevel(symbol string, price float64, done func(error)) {
	err := e.post(func() {
		st := e.getOrCreate(symbol)
		if price > 0 {
			st.custom.SetLevel(price)
		} else {
			st.custom.Clear()
		}
		e.publishLevels(symbol, st)
		if done != nil {
			done(nil)
		}
	})
	if err != nil && done != nil {
		done(err)
	}
}

// ConfirmFill marks the open position for symbol as filled, routed
// through the engine goroutine. Driven by the trade-print feed, so it
// never blocks the stream reader; a dropped confirmation is retried by
// the next print.
func (e *Engine) ConfirmFill(symbol string) {
	select {
	case e.commands <- func() { e.trades.ConfirmEntry(symbol) }:
	default:
	}
}

// RequestManualClose exits the open position for symbol at the best
// bid, through the same goroutine that runs the tick path.
func (e *Engine) RequestManualClose(ctx context.Context, symbol string, done func(error)) {
	err := e.post(func() {
		st, ok := e.symbols[symbol]
		if !ok || !st.hasQuote {
			if done != nil {
				done(fmt.Errorf("no quote for %s yet", symbol))
			}
			return
		}
		err := e.trades.CloseManually(ctx, symbol, st.lastQuote)
		if done != nil {
			done(err)
		}
	})
	if err != nil && done != nil {
		done(err)
	}
}

func (e *Engine) getOrCreate(symbol string) *symbolState {
	st, ok := e.symbols[symbol]
	if ok {
		return st
	}
	st = &symbolState{
		builder:   candles.NewBuilder(symbol),
		trackers:  make(map[market.Timeframe]*breakout.Tracker, 3),
		custom:    breakout.NewCustomLevel(symbol, e.log),
		entryType: market.TFNone,
	}
	for _, tf := range market.Timeframes() {
		st.trackers[tf] = breakout.NewTracker(symbol, tf, e.log)
	}
	e.symbols[symbol] = st
	return st
}

// handleQuote is the tick path. Order matters: store and candles
// first, then pattern maintenance from any closes, then the entry
// check, then target evaluation for an open position.
func (e *Engine) handleQuote(ctx context.Context, q market.Quote) {
	if !q.HasPrice() {
		e.log.Debugw("quote without prices skipped", "symbol", q.Symbol)
		return
	}

	st := e.getOrCreate(q.Symbol)
	st.lastQuote = q
	st.hasQuote = true
	e.store.Set(q)

	closed := st.builder.Apply(q)
	for _, c := range closed {
		st.trackers[c.Timeframe].ObserveClose(c.Candle)
		e.notifier.CandleClosed(q.Symbol, c.Timeframe, c.Candle)
	}
	if len(closed) > 0 {
		e.publishLevels(q.Symbol, st)
	}

	price := q.Price()
	switch {
	case st.entryType.IsCandle():
		if st.trackers[st.entryType].CheckTick(price) {
			e.enter(ctx, q.Symbol, st, q)
		}
	case st.entryType == market.TFCustom:
		if st.custom.CheckTick(price) {
			e.enter(ctx, q.Symbol, st, q)
		}
	}

	e.trades.CheckTargets(ctx, q.Symbol, q)
}

func (e *Engine) enter(ctx context.Context, symbol string, st *symbolState, q market.Quote) {
	if err := e.trades.HandleBreakout(ctx, symbol, st.entryType, q); err != nil {
		e.log.Errorw("breakout entry failed", "symbol", symbol, "error", err)
	}
	e.publishLevels(symbol, st)
}

func (e *Engine) publishLevels(symbol string, st *symbolState) {
	e.notifier.BreakoutLevels(symbol, e.levels(st))
}

func (e *Engine) levels(st *symbolState) notify.Levels {
	var lv notify.Levels
	if v, ok := st.trackers[market.TF10s].Level(); ok {
		lv.TenSec = &v
	}
	if v, ok := st.trackers[market.TF1m].Level(); ok {
		lv.OneMin = &v
	}
	if v, ok := st.trackers[market.TF5m].Level(); ok {
		lv.FiveMin = &v
	}
	if v, ok := st.custom.Level(); ok {
		lv.Custom = &v
	}
	return lv
}
