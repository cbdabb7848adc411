// Package breakout detects the pullback-then-breakout pattern: a run
// of lower highs establishes a breakout level, and a tick crossing
// above that level produces an entry signal.
package breakout

import (
	"go.uber.org/zap"

	"github.com/rustyeddy/scalper/market"
)

// windowSize bounds the rolling candle window a tracker keeps.
const windowSize = 100

// Tracker holds the rolling pattern state for one (symbol, timeframe).
// Candle closes drive level maintenance; ticks drive the crossing
// check. Owned by the engine loop, not safe for concurrent use.
//
// Invariants: triggered implies !pullbackActive; pullbackActive
// implies a level is set.
type Tracker struct {
	symbol    string
	timeframe market.Timeframe
	log       *zap.SugaredLogger

	window         []market.Candle
	level          float64
	hasLevel       bool
	pullbackActive bool
	triggered      bool
}

func NewTracker(symbol string, tf market.Timeframe, log *zap.SugaredLogger) *Tracker {
	return &Tracker{
		symbol:    symbol,
		timeframe: tf,
		log:       log,
		window:    make([]market.Candle, 0, windowSize),
	}
}

func (t *Tracker) Timeframe() market.Timeframe { return t.timeframe }

// Level returns the active breakout level. It reports false once a
// breakout has triggered or when no pullback is in progress.
func (t *Tracker) Level() (float64, bool) {
	if !t.hasLevel || t.triggered {
		return 0, false
	}
	return t.level, true
}

// ObserveClose folds a finalized candle into the pattern state.
//
//   - A lower high starts a pullback or ratchets the level down.
//   - A higher high during an active, untriggered pullback is trend
//     resumption: the setup is invalidated and the level cleared.
//   - Anything else leaves the state unchanged.
func (t *Tracker) ObserveClose(c market.Candle) {
	t.window = append(t.window, c)
	if len(t.window) > windowSize {
		t.window = t.window[len(t.window)-windowSize:]
	}
	if len(t.window) < 2 {
		return
	}

	prev := t.window[len(t.window)-2]

	switch {
	case c.High < prev.High:
		if !t.pullbackActive {
			t.log.Infow("pullback started",
				"symbol", t.symbol, "timeframe", t.timeframe, "level", c.High)
		} else {
			t.log.Infow("lower high, breakout level ratcheted",
				"symbol", t.symbol, "timeframe", t.timeframe, "level", c.High)
		}
		t.level = c.High
		t.hasLevel = true
		t.pullbackActive = true
		t.triggered = false

	case c.High > prev.High && t.pullbackActive && !t.triggered:
		t.log.Infow("trend resumed, pullback invalidated",
			"symbol", t.symbol, "timeframe", t.timeframe)
		t.level = 0
		t.hasLevel = false
		t.pullbackActive = false
		t.triggered = false
	}
	// Equal highs, or candles outside an active pullback: unchanged.
	// The engine re-publishes the current level after every close.
}

// CheckTick tests a live price against the breakout level and reports
// whether a breakout fired. It fires at most once per pullback cycle;
// the next lower high re-arms it.
func (t *Tracker) CheckTick(price float64) bool {
	if !t.pullbackActive || t.triggered || !t.hasLevel {
		return false
	}
	if price <= t.level {
		return false
	}

	t.triggered = true
	t.pullbackActive = false
	t.log.Infow("tick breakout",
		"symbol", t.symbol, "timeframe", t.timeframe, "price", price, "level", t.level)
	return true
}
