package market

import "time"

// Quote is the canonical best bid/ask tick every provider message is
// normalized into. Quotes are transient: they are never persisted and
// never mutated after creation. Duplicate and out-of-order delivery is
// possible and must be tolerated downstream.
type Quote struct {
	Symbol  string
	Bid     float64
	Ask     float64
	BidSize float64
	AskSize float64
	Time    time.Time
}

// HasPrice reports whether at least one side of the quote carries a
// usable price. Quotes without either side are skipped for candle and
// breakout purposes.
func (q Quote) HasPrice() bool {
	return q.Bid > 0 || q.Ask > 0
}

// Price returns the price used for candle construction: the ask when
// present, otherwise the bid.
func (q Quote) Price() float64 {
	if q.Ask > 0 {
		return q.Ask
	}
	return q.Bid
}

// Volume is the quote's contribution to candle volume.
func (q Quote) Volume() float64 {
	return q.BidSize + q.AskSize
}
