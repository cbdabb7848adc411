package breakout

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/scalper/market"
)

func candleWithHigh(i int, high float64) market.Candle {
	bucket := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute)
	return market.Candle{
		Open:   high - 0.05,
		High:   high,
		Low:    high - 0.10,
		Close:  high - 0.02,
		Time:   bucket,
		Volume: 100,
	}
}

func newTestTracker() *Tracker {
	return NewTracker("AAPL", market.TF1m, zap.NewNop().Sugar())
}

func TestLowerHighLadderThenTrendResumption(t *testing.T) {
	tr := newTestTracker()
	highs := []float64{10, 9, 8, 11}

	tr.ObserveClose(candleWithHigh(0, highs[0]))
	if _, ok := tr.Level(); ok {
		t.Fatal("no level expected after a single candle")
	}

	tr.ObserveClose(candleWithHigh(1, highs[1]))
	level, ok := tr.Level()
	if !ok || level != 9 {
		t.Fatalf("level after first lower high: got %v,%v want 9,true", level, ok)
	}

	tr.ObserveClose(candleWithHigh(2, highs[2]))
	level, ok = tr.Level()
	if !ok || level != 8 {
		t.Fatalf("level after ratchet: got %v,%v want 8,true", level, ok)
	}

	// Higher high without a tick crossing: setup invalidated.
	tr.ObserveClose(candleWithHigh(3, highs[3]))
	if _, ok := tr.Level(); ok {
		t.Fatal("level should be cleared on trend resumption")
	}
	if tr.triggered {
		t.Fatal("candle closes alone must never fire a breakout")
	}
}

func TestTickBreakoutFiresExactlyOnce(t *testing.T) {
	tr := newTestTracker()
	tr.ObserveClose(candleWithHigh(0, 9.00))
	tr.ObserveClose(candleWithHigh(1, 8.00))

	if tr.CheckTick(7.99) {
		t.Fatal("price below level must not trigger")
	}
	if tr.CheckTick(8.00) {
		t.Fatal("price equal to level must not trigger")
	}
	if !tr.CheckTick(8.01) {
		t.Fatal("price above level must trigger")
	}
	if tr.CheckTick(8.02) {
		t.Fatal("breakout must fire at most once per pullback cycle")
	}

	if tr.triggered && tr.pullbackActive {
		t.Fatal("triggered and pullbackActive must never hold simultaneously")
	}
	if _, ok := tr.Level(); ok {
		t.Fatal("level must not be published after trigger")
	}
}

func TestNextLowerHighRearmsAfterTrigger(t *testing.T) {
	tr := newTestTracker()
	tr.ObserveClose(candleWithHigh(0, 9.00))
	tr.ObserveClose(candleWithHigh(1, 8.00))
	if !tr.CheckTick(8.01) {
		t.Fatal("expected trigger")
	}

	tr.ObserveClose(candleWithHigh(2, 8.50))
	tr.ObserveClose(candleWithHigh(3, 7.50))
	level, ok := tr.Level()
	if !ok || level != 7.50 {
		t.Fatalf("re-armed level: got %v,%v want 7.50,true", level, ok)
	}
	if !tr.CheckTick(7.60) {
		t.Fatal("new pullback cycle should trigger again")
	}
}

func TestEqualHighLeavesStateUnchanged(t *testing.T) {
	tr := newTestTracker()
	tr.ObserveClose(candleWithHigh(0, 9.00))
	tr.ObserveClose(candleWithHigh(1, 8.00))
	tr.ObserveClose(candleWithHigh(2, 8.00))

	level, ok := tr.Level()
	if !ok || level != 8.00 {
		t.Fatalf("equal high should not disturb the level: got %v,%v", level, ok)
	}
}

func TestWindowIsBounded(t *testing.T) {
	tr := newTestTracker()
	for i := 0; i < windowSize+20; i++ {
		tr.ObserveClose(candleWithHigh(i, 10.00))
	}
	if len(tr.window) != windowSize {
		t.Fatalf("window length: got %d want %d", len(tr.window), windowSize)
	}
}

func TestCustomLevelTriggersOnceAndResets(t *testing.T) {
	cl := NewCustomLevel("AAPL", zap.NewNop().Sugar())

	if cl.CheckTick(100) {
		t.Fatal("unset level must not trigger")
	}

	cl.SetLevel(12.50)
	if cl.CheckTick(12.49) {
		t.Fatal("below level must not trigger")
	}
	if !cl.CheckTick(12.50) {
		t.Fatal("at level must trigger")
	}
	if cl.CheckTick(13.00) {
		t.Fatal("must fire only once")
	}
	if _, ok := cl.Level(); ok {
		t.Fatal("level must not be published after trigger")
	}

	// Updating the level re-arms the trigger.
	cl.SetLevel(12.75)
	if !cl.CheckTick(12.80) {
		t.Fatal("updated level should trigger again")
	}

	cl.Clear()
	if cl.CheckTick(99999) {
		t.Fatal("cleared level must not trigger")
	}
}
