package market

import "time"

// Candle represents OHLC (Open, High, Low, Close) candlestick data
// for one bucket of a timeframe. Time is the bucket start, always
// aligned to the timeframe boundary. A candle is owned by its
// aggregator while in progress; once finalized it is handed around by
// value and never mutated again.
type Candle struct {
	Open  float64
	High  float64
	Low   float64
	Close float64
	time.Time
	Volume float64
}

// NewCandle opens a candle at the given bucket with a first price.
func NewCandle(bucket time.Time, price, volume float64) Candle {
	return Candle{
		Open:   price,
		High:   price,
		Low:    price,
		Close:  price,
		Time:   bucket,
		Volume: volume,
	}
}

// Update folds another price into an in-progress candle.
func (c *Candle) Update(price, volume float64) {
	if price > c.High {
		c.High = price
	}
	if price < c.Low {
		c.Low = price
	}
	c.Close = price
	c.Volume += volume
}
