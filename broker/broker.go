// Package broker defines the order-submission boundary. The trading
// core only ever talks to this interface; the concrete client lives in
// a subpackage.
package broker

import (
	"context"
	"time"
)

// Side is the order direction.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// OrderHandle identifies a submitted order.
type OrderHandle struct {
	ID         string
	Symbol     string
	Qty        int
	Side       Side
	LimitPrice float64
	Submitted  time.Time
}

// Position is a broker-side open position, used once at startup to
// reconcile in-memory state with broker truth.
type Position struct {
	Symbol        string
	Qty           int
	AvgEntryPrice float64
}

type Broker interface {
	SubmitLimitOrder(ctx context.Context, symbol string, qty int, side Side, limitPrice float64) (OrderHandle, error)
	SubmitStopLimitOrder(ctx context.Context, symbol string, qty int, stopPrice, limitPrice float64) (OrderHandle, error)
	OpenPositions(ctx context.Context) ([]Position, error)
}
