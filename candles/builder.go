// Package candles turns the normalized quote stream into synchronized
// candle series at the three trading granularities.
package candles

import (
	"github.com/rustyeddy/scalper/market"
)

// historyLimit bounds the per-timeframe finalized history kept in
// memory. Trackers only need the last 100 candles; keeping a little
// more lets observers chart recent history.
const historyLimit = 500

// Closed is a finalized candle handed downstream by value.
type Closed struct {
	Timeframe market.Timeframe
	Candle    market.Candle
}

type series struct {
	current *market.Candle
	history []market.Candle
}

// Builder maintains one in-progress candle per timeframe for a single
// symbol and finalizes candles on bucket rollover. It is owned by the
// engine loop and is not safe for concurrent use.
type Builder struct {
	symbol string
	series map[market.Timeframe]*series
}

func NewBuilder(symbol string) *Builder {
	b := &Builder{
		symbol: symbol,
		series: make(map[market.Timeframe]*series, 3),
	}
	for _, tf := range market.Timeframes() {
		b.series[tf] = &series{}
	}
	return b
}

// Apply folds one quote into all three timeframes and returns any
// candles finalized by the rollover, in ascending timeframe order.
// Quotes without a usable price are ignored.
//
// A quote whose bucket is older than the in-progress candle's bucket
// (out-of-order delivery) is applied to the current candle rather than
// amending history: finalized candles are never mutated. This is an
// accepted approximation, not exactness under reordering.
func (b *Builder) Apply(q market.Quote) []Closed {
	if !q.HasPrice() {
		return nil
	}

	price := q.Price()
	volume := q.Volume()

	var closed []Closed
	for _, tf := range market.Timeframes() {
		s := b.series[tf]
		bucket := tf.Bucket(q.Time)

		switch {
		case s.current == nil:
			c := market.NewCandle(bucket, price, volume)
			s.current = &c

		case bucket.After(s.current.Time):
			done := *s.current
			s.history = append(s.history, done)
			if len(s.history) > historyLimit {
				s.history = s.history[len(s.history)-historyLimit:]
			}
			closed = append(closed, Closed{Timeframe: tf, Candle: done})

			c := market.NewCandle(bucket, price, volume)
			s.current = &c

		default:
			// Same bucket, or a late tick from an already-rolled
			// bucket: fold into the current candle.
			s.current.Update(price, volume)
		}
	}
	return closed
}

// Current returns a copy of the in-progress candle for a timeframe.
func (b *Builder) Current(tf market.Timeframe) (market.Candle, bool) {
	s, ok := b.series[tf]
	if !ok || s.current == nil {
		return market.Candle{}, false
	}
	return *s.current, true
}

// History returns a copy of the finalized candles for a timeframe,
// oldest first.
func (b *Builder) History(tf market.Timeframe) []market.Candle {
	s, ok := b.series[tf]
	if !ok || len(s.history) == 0 {
		return nil
	}
	out := make([]market.Candle, len(s.history))
	copy(out, s.history)
	return out
}
