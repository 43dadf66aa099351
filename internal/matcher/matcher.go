// Package matcher implements the matching algorithm executed against a
// single incoming order and the resting book. It is stateless across
// calls: every invocation of Match receives the book fresh and leaves it
// either unchanged (Rejected, or a failed minimum-quantity gate) or
// mutated to reflect the trades it committed. Lazily expired resting
// orders it meets are removed in every case.
package matcher

import (
	"time"

	"matchengine/internal/domain/orderbook"
)

// Disposition is the outcome of a single Match call.
type Disposition uint8

const (
	Rested Disposition = iota
	FullyFilled
	Killed
	Rejected
)

func (d Disposition) String() string {
	switch d {
	case Rested:
		return "Rested"
	case FullyFilled:
		return "FullyFilled"
	case Killed:
		return "Killed"
	case Rejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// RejectReason explains a Rejected disposition.
type RejectReason uint8

const (
	NoReject RejectReason = iota
	Expired
)

// Result is everything the Engine needs to know about one Match call.
type Result struct {
	Trades       []orderbook.Trade
	FilledQty    uint64
	Disposition  Disposition
	RejectReason RejectReason
}

// Match executes incoming against book's opposite side, mutating the
// book for every committed fill and either resting, fully filling,
// killing, or rejecting incoming. incoming must not already be resting
// in book.
func Match(incoming *orderbook.Order, book *orderbook.Book, now time.Time) Result {
	if incoming.Expired(now) {
		return Result{Disposition: Rejected, RejectReason: Expired}
	}

	// fill records one resting order's consumption during this attempt,
	// so it can be undone if the holistic minimum-quantity gate below
	// fails. removed is whether the consumption exhausted the order
	// (and therefore took it out of the book entirely).
	type fill struct {
		order   *orderbook.Order
		qty     uint64
		removed bool
	}

	var trades []orderbook.Trade
	var fills []fill
	remaining := incoming.Remaining()
	filled := uint64(0)

	walker := book.WalkOpposite(incoming.Side, incoming.Price)
	for remaining > 0 {
		resting, ok := walker.Next()
		if !ok {
			break
		}

		if resting.Expired(now) {
			// Lazy expiration is unconditional: it happens regardless
			// of how this match attempt ultimately resolves.
			_ = book.Remove(resting.ID)
			continue
		}

		restingRemaining := resting.Remaining()
		tradeQty := min(remaining, restingRemaining)

		var buyID, sellID = incoming.ID, resting.ID
		if incoming.Side == orderbook.Sell {
			buyID, sellID = resting.ID, incoming.ID
		}

		trades = append(trades, orderbook.Trade{
			BuyOrderID:  buyID,
			SellOrderID: sellID,
			Price:       resting.Price,
			Quantity:    tradeQty,
			Timestamp:   now,
			MakerSide:   resting.Side,
		})
		fills = append(fills, fill{order: resting, qty: tradeQty, removed: tradeQty == restingRemaining})

		_ = book.DecrementQty(resting.ID, tradeQty)
		remaining -= tradeQty
		filled += tradeQty
	}

	if filled < incoming.MinQuantity {
		// The holistic gate failed: undo every fill above, in reverse,
		// so the book ends up exactly as it was before this attempt.
		// Lazily-expired removals above are not part of this log and
		// stay gone.
		for i := len(fills) - 1; i >= 0; i-- {
			f := fills[i]
			if f.removed {
				book.RestoreRemoved(f.order, f.qty)
			} else {
				book.RestoreQty(f.order, f.qty)
			}
		}
		return Result{Disposition: Killed}
	}

	incoming.Quantity = remaining

	if remaining == 0 {
		return Result{Trades: trades, FilledQty: filled, Disposition: FullyFilled}
	}
	if incoming.Kind == orderbook.Kill {
		return Result{Trades: trades, FilledQty: filled, Disposition: Killed}
	}

	book.Insert(incoming)
	return Result{Trades: trades, FilledQty: filled, Disposition: Rested}
}

func min(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
