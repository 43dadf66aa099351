package orderbook

import (
	"testing"

	"github.com/google/uuid"
)

func newOrder(side Side, price int64, qty uint64, seq uint64) *Order {
	return &Order{
		ID:               uuid.New(),
		Side:             side,
		Kind:             Normal,
		Price:            price,
		Quantity:         qty,
		OriginalQuantity: qty,
		ArrivalSeq:       seq,
	}
}

func TestBookInsertAndBest(t *testing.T) {
	b := NewBook()
	bid := newOrder(Buy, 100, 5, 1)
	b.Insert(bid)

	best := b.Best(Buy)
	if best == nil || best.Price != 100 {
		t.Fatalf("expected best bid at 100, got %v", best)
	}
	if b.Best(Sell) != nil {
		t.Error("expected empty ask side")
	}
}

func TestBookRemoveDeletesEmptyLevel(t *testing.T) {
	b := NewBook()
	o := newOrder(Buy, 100, 5, 1)
	b.Insert(o)

	if err := b.Remove(o.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if b.Best(Buy) != nil {
		t.Error("expected level to be deleted once empty")
	}
}

func TestBookRemoveUnknownID(t *testing.T) {
	b := NewBook()
	if err := b.Remove(uuid.New()); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestBookDecrementQtyToZeroRemoves(t *testing.T) {
	b := NewBook()
	o := newOrder(Buy, 100, 5, 1)
	b.Insert(o)

	if err := b.DecrementQty(o.ID, 5); err != nil {
		t.Fatalf("DecrementQty failed: %v", err)
	}
	if b.Lookup(o.ID) != nil {
		t.Error("order should be gone after fully decremented")
	}
	if b.Best(Buy) != nil {
		t.Error("level should be deleted")
	}
}

func TestBookDecrementQtyPartial(t *testing.T) {
	b := NewBook()
	o := newOrder(Buy, 100, 5, 1)
	b.Insert(o)

	if err := b.DecrementQty(o.ID, 2); err != nil {
		t.Fatalf("DecrementQty failed: %v", err)
	}
	if o.Remaining() != 3 {
		t.Errorf("expected remaining 3, got %d", o.Remaining())
	}
	if b.Best(Buy).TotalQty != 3 {
		t.Errorf("expected level total 3, got %d", b.Best(Buy).TotalQty)
	}
}

func TestBookDecrementQtyExceedsRemaining(t *testing.T) {
	b := NewBook()
	o := newOrder(Buy, 100, 5, 1)
	b.Insert(o)

	if err := b.DecrementQty(o.ID, 6); err != ErrInsufficientQuantity {
		t.Errorf("expected ErrInsufficientQuantity, got %v", err)
	}
}

func TestBookArrivalOrderWithinLevel(t *testing.T) {
	b := NewBook()
	first := newOrder(Sell, 100, 5, 1)
	second := newOrder(Sell, 100, 5, 2)
	b.Insert(first)
	b.Insert(second)

	lvl := b.Best(Sell)
	if lvl.Head() != first {
		t.Error("expected earliest-arrived order at head of level")
	}
	if lvl.Head().Next() != second {
		t.Error("expected second order to follow first")
	}
}

func TestBookWalkOppositeCrossesAndStopsAtNonCrossing(t *testing.T) {
	b := NewBook()
	b.Insert(newOrder(Sell, 99, 5, 1))
	b.Insert(newOrder(Sell, 100, 5, 2))
	b.Insert(newOrder(Sell, 101, 5, 3))

	w := b.WalkOpposite(Buy, 100)
	var prices []int64
	for {
		o, ok := w.Next()
		if !ok {
			break
		}
		prices = append(prices, o.Price)
		_ = b.DecrementQty(o.ID, o.Remaining())
	}
	if len(prices) != 2 || prices[0] != 99 || prices[1] != 100 {
		t.Errorf("expected to cross [99 100], got %v", prices)
	}
}

func TestBookInsertDuplicateIDPanics(t *testing.T) {
	b := NewBook()
	o := newOrder(Buy, 100, 5, 1)
	b.Insert(o)

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on duplicate id insert")
		}
	}()
	dup := *o
	b.Insert(&dup)
}
