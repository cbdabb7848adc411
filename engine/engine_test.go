package engine

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/rustyeddy/scalper/broker"
	"github.com/rustyeddy/scalper/journal"
	"github.com/rustyeddy/scalper/market"
	"github.com/rustyeddy/scalper/notify"
	"github.com/rustyeddy/scalper/trade"
)

type fakeBroker struct {
	orders int
}

func (b *fakeBroker) SubmitLimitOrder(_ context.Context, symbol string, qty int, side broker.Side, limit float64) (broker.OrderHandle, error) {
	b.orders++
	return broker.OrderHandle{ID: "o1", Symbol: symbol, Qty: qty, Side: side}, nil
}

func (b *fakeBroker) SubmitStopLimitOrder(_ context.Context, symbol string, qty int, stop, limit float64) (broker.OrderHandle, error) {
	b.orders++
	return broker.OrderHandle{ID: "o2", Symbol: symbol, Qty: qty}, nil
}

func (b *fakeBroker) OpenPositions(context.Context) ([]broker.Position, error) {
	return nil, nil
}

type fakeJournal struct{}

func (fakeJournal) RecordExecution(journal.Execution) error { return nil }

func (fakeJournal) RecordClosedTrade(journal.ClosedTrade) error { return nil }

func (fakeJournal) Close() error { return nil }

type fakeSub struct {
	symbols []string
}

func (s *fakeSub) Subscribe(symbol string, done func(error)) {
	s.symbols = append(s.symbols, symbol)
	if done != nil {
		done(nil)
	}
}

type recNotifier struct {
	notify.Nop
	closes []market.Timeframe
	levels []notify.Levels
}

func (n *recNotifier) CandleClosed(_ string, tf market.Timeframe, _ market.Candle) {
	n.closes = append(n.closes, tf)
}

func (n *recNotifier) BreakoutLevels(_ string, lv notify.Levels) {
	n.levels = append(n.levels, lv)
}

func newTestEngine(t *testing.T, n notify.Notifier) (*Engine, *fakeBroker, *fakeSub) {
	t.Helper()
	log := zap.NewNop().Sugar()
	b := &fakeBroker{}
	clk := clock.NewMock()
	clk.Set(time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC))
	tm := trade.NewManager(clk, b, fakeJournal{}, nil, log, trade.DefaultSettings())
	sub := &fakeSub{}
	return New(sub, market.NewQuoteStore(), tm, n, log), b, sub
}

func quoteAt(ask float64, at time.Time) market.Quote {
	return market.Quote{Symbol: "AAPL", Bid: ask - 0.01, Ask: ask, BidSize: 1, AskSize: 1, Time: at}
}

// pullback feeds two finalized 10-second candles, the second with a
// lower high, leaving an armed breakout level at that high.
func pullback(e *Engine, base time.Time, firstHigh, secondHigh float64) {
	ctx := context.Background()
	e.handleQuote(ctx, quoteAt(firstHigh, base))
	e.handleQuote(ctx, quoteAt(secondHigh, base.Add(10*time.Second)))
	e.handleQuote(ctx, quoteAt(secondHigh-0.10, base.Add(20*time.Second)))
}

func TestBreakoutEntryOnActiveTimeframe(t *testing.T) {
	e, b, _ := newTestEngine(t, nil)
	st := e.getOrCreate("AAPL")
	st.entryType = market.TF10s

	base := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	pullback(e, base, 10.00, 9.80)
	if b.orders != 0 {
		t.Fatalf("entered before any tick crossed the level")
	}

	e.handleQuote(context.Background(), quoteAt(9.85, base.Add(21*time.Second)))
	if b.orders != 1 {
		t.Fatalf("breakout tick did not enter: %d orders", b.orders)
	}
	if _, ok := e.trades.Position("AAPL"); !ok {
		t.Fatal("no position after breakout entry")
	}
}

func TestNoEntryWithoutActiveEntryType(t *testing.T) {
	e, b, _ := newTestEngine(t, nil)

	base := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	pullback(e, base, 10.00, 9.80)
	e.handleQuote(context.Background(), quoteAt(9.85, base.Add(21*time.Second)))

	if b.orders != 0 {
		t.Fatalf("entered with entry type none: %d orders", b.orders)
	}
}

func TestTrackersUpdateOnInactiveTimeframes(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)
	st := e.getOrCreate("AAPL")
	st.entryType = market.TFNone

	base := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	pullback(e, base, 10.00, 9.80)

	if _, ok := st.trackers[market.TF10s].Level(); !ok {
		t.Fatal("inactive tracker did not maintain its level")
	}
}

func TestCustomLevelEntry(t *testing.T) {
	e, b, _ := newTestEngine(t, nil)
	st := e.getOrCreate("AAPL")
	st.entryType = market.TFCustom
	st.custom.SetLevel(10.50)

	base := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	e.handleQuote(context.Background(), quoteAt(10.49, base))
	if b.orders != 0 {
		t.Fatal("entered below the custom level")
	}

	e.handleQuote(context.Background(), quoteAt(10.50, base.Add(time.Second)))
	if b.orders != 1 {
		t.Fatalf("custom level crossing did not enter: %d orders", b.orders)
	}
}

func TestCandleCloseAndLevelNotifications(t *testing.T) {
	rec := &recNotifier{}
	e, _, _ := newTestEngine(t, rec)

	base := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	pullback(e, base, 10.00, 9.80)

	if len(rec.closes) != 2 {
		t.Fatalf("got %d candle closes, want 2", len(rec.closes))
	}
	if rec.closes[0] != market.TF10s || rec.closes[1] != market.TF10s {
		t.Fatalf("closes: %v", rec.closes)
	}

	if len(rec.levels) == 0 {
		t.Fatal("no level publications")
	}
	last := rec.levels[len(rec.levels)-1]
	if last.TenSec == nil || *last.TenSec != 9.80 {
		t.Fatalf("10s level: %+v", last)
	}
}

func TestQuoteWithoutPriceSkipped(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)

	e.handleQuote(context.Background(), market.Quote{Symbol: "AAPL", Time: time.Now()})

	if st, ok := e.symbols["AAPL"]; ok && st.hasQuote {
		t.Fatal("priceless quote recorded as last quote")
	}
	if _, err := e.store.Get("AAPL"); err == nil {
		t.Fatal("priceless quote stored")
	}
}

func TestManualCloseCommand(t *testing.T) {
	e, b, _ := newTestEngine(t, nil)
	st := e.getOrCreate("AAPL")
	st.entryType = market.TF10s

	base := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	pullback(e, base, 10.00, 9.80)
	e.handleQuote(context.Background(), quoteAt(9.85, base.Add(21*time.Second)))
	if b.orders != 1 {
		t.Fatalf("setup entry failed: %d orders", b.orders)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	ch := make(chan error, 1)
	e.RequestManualClose(context.Background(), "AAPL", func(err error) { ch <- err })
	select {
	case err := <-ch:
		if err != nil {
			t.Fatalf("manual close: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("manual close never completed")
	}

	if b.orders != 2 {
		t.Fatalf("no exit order submitted: %d orders", b.orders)
	}
	if _, ok := e.trades.Position("AAPL"); ok {
		t.Fatal("position remains after manual close")
	}
}

func TestCommandSurface(t *testing.T) {
	e, _, sub := newTestEngine(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	wait := func(name string, f func(done func(error))) {
		t.Helper()
		ch := make(chan error, 1)
		f(func(err error) { ch <- err })
		select {
		case err := <-ch:
			if err != nil {
				t.Fatalf("%s: %v", name, err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("%s never completed", name)
		}
	}

	wait("select symbol", func(done func(error)) { e.SelectSymbol("AAPL", done) })
	wait("set entry type", func(done func(error)) { e.SetEntryType("AAPL", market.TF1m, done) })
	wait("set custom level", func(done func(error)) { e.SetCustomLevel("AAPL", 10.50, done) })

	if len(sub.symbols) != 1 || sub.symbols[0] != "AAPL" {
		t.Fatalf("subscriptions: %v", sub.symbols)
	}

	e.HandleQuote(quoteAt(10.00, time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)))

	deadline := time.Now().Add(5 * time.Second)
	for {
		snap, err := e.Snapshot(context.Background(), "AAPL")
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		if snap.HasQuote {
			if !snap.Selected {
				t.Fatal("selected symbol not marked in snapshot")
			}
			if snap.EntryType != market.TF1m {
				t.Fatalf("entry type: %v", snap.EntryType)
			}
			if snap.Levels.Custom == nil || *snap.Levels.Custom != 10.50 {
				t.Fatalf("custom level: %+v", snap.Levels)
			}
			if _, ok := snap.Current[market.TF10s]; !ok {
				t.Fatal("no in-progress 10s candle in snapshot")
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("quote never reached the engine")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
