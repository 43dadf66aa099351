// Package orderbook implements the price-time priority limit order book:
// resting orders indexed by price on each side of the market, ordered
// within a price level by arrival.
package orderbook

import (
	"time"

	"github.com/google/uuid"
)

type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "Sell"
	}
	return "Buy"
}

type Kind uint8

const (
	Normal Kind = iota
	Kill
)

func (k Kind) String() string {
	if k == Kill {
		return "Kill"
	}
	return "Normal"
}

// Order is a resting or incoming intent to trade. Side and Kind are
// immutable for the order's lifetime; Quantity decreases with fills.
type Order struct {
	ID               uuid.UUID
	Side             Side
	Kind             Kind
	Price            int64
	Quantity         uint64
	OriginalQuantity uint64
	MinQuantity      uint64
	Expiration       *time.Time
	ArrivalSeq       uint64

	// next/prev link the order into its PriceLevel's FIFO queue.
	next, prev *Order
}

// Remaining reports the order's unfilled quantity.
func (o *Order) Remaining() uint64 {
	return o.Quantity
}

// Filled reports how much of the order has traded so far.
func (o *Order) Filled() uint64 {
	return o.OriginalQuantity - o.Quantity
}

// Expired reports whether the order's expiration is at or before now.
func (o *Order) Expired(now time.Time) bool {
	return o.Expiration != nil && !o.Expiration.After(now)
}

// Reset reinitializes o in place, for reuse out of a memory.Pool.
func (o *Order) Reset() {
	*o = Order{}
}

// Next returns the next order in its PriceLevel's FIFO queue, or nil.
// Read-only traversal helper for callers walking a level (e.g. snapshots).
func (o *Order) Next() *Order {
	return o.next
}
