package market

import (
	"fmt"
	"time"
)

// Timeframe identifies one of the candle granularities, or one of the
// two non-candle entry modes (custom level, none).
type Timeframe string

const (
	TF10s    Timeframe = "10s"
	TF1m     Timeframe = "1m"
	TF5m     Timeframe = "5m"
	TFCustom Timeframe = "custom"
	TFNone   Timeframe = "none"
)

// Timeframes lists the candle granularities in ascending order. Every
// quote fans out through all of them.
func Timeframes() []Timeframe {
	return []Timeframe{TF10s, TF1m, TF5m}
}

// Duration returns the bucket width of a candle timeframe. It panics
// on TFCustom and TFNone, which have no bucket.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TF10s:
		return 10 * time.Second
	case TF1m:
		return time.Minute
	case TF5m:
		return 5 * time.Minute
	}
	panic(fmt.Sprintf("timeframe %q has no duration", tf))
}

// Bucket floors t to the timeframe's boundary in UTC: 10-second
// boundaries for 10s, :00 seconds for 1m, minute%5 == 0 for 5m.
func (tf Timeframe) Bucket(t time.Time) time.Time {
	return t.UTC().Truncate(tf.Duration())
}

// IsCandle reports whether the timeframe produces candles.
func (tf Timeframe) IsCandle() bool {
	return tf == TF10s || tf == TF1m || tf == TF5m
}

// ParseTimeframe converts user input into a Timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	switch Timeframe(s) {
	case TF10s, TF1m, TF5m, TFCustom, TFNone:
		return Timeframe(s), nil
	}
	return TFNone, fmt.Errorf("unknown timeframe %q (want 10s, 1m, 5m, custom or none)", s)
}
