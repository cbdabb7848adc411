// Package trade owns position lifecycle: entry on breakout, scaling out
// at the first target, full exit at the second target or the stop, and
// manual close. All methods are called from the engine goroutine only,
// so the manager carries no locking of its own.
package trade

import (
	"time"

	"github.com/rustyeddy/scalper/market"
)

// Position is one open long position. At most one position is open
// across all symbols at a time.
type Position struct {
	Symbol     string
	EntryType  market.Timeframe
	EntryPrice float64
	Size       int
	TP1        float64
	TP2        float64
	Stop       float64
	TP1Hit     bool
	TP2Hit     bool
	SLHit      bool
	EntryTime  time.Time

	// Confirmed flips once the broker reports the entry fill. Target
	// evaluation does not wait for it; entries are marketable limits
	// at the ask, so the flag is informational.
	Confirmed bool
}

// Terminal reports whether the position has fully exited. A terminal
// position takes no further target or stop evaluation.
func (p *Position) Terminal() bool {
	return p.TP2Hit || p.SLHit
}

// Offsets are the distances from entry price to the two take-profit
// targets and the stop.
type Offsets struct {
	TP1  float64
	TP2  float64
	Stop float64
}

// Settings configure the trade manager.
type Settings struct {
	PositionSize int
	WashGuard    time.Duration
	Default      Offsets
	PerEntry     map[market.Timeframe]Offsets
}

// DefaultSettings mirrors the production constants: 1000 shares,
// 5-second wash guard, 0.15/0.30/0.10 offsets with the tighter first
// target for 1-minute entries.
func DefaultSettings() Settings {
	return Settings{
		PositionSize: 1000,
		WashGuard:    5 * time.Second,
		Default:      Offsets{TP1: 0.15, TP2: 0.30, Stop: 0.10},
		PerEntry: map[market.Timeframe]Offsets{
			market.TF1m: {TP1: 0.10, TP2: 0.30, Stop: 0.10},
		},
	}
}

func (s Settings) offsetsFor(tf market.Timeframe) Offsets {
	if o, ok := s.PerEntry[tf]; ok {
		return o
	}
	return s.Default
}
