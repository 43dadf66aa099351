package orderbook

import "github.com/google/uuid"

type locator struct {
	side  Side
	price int64
	order *Order
}

// Book holds all resting orders for a single instrument with price-time
// priority on both sides, plus an index for O(log P) cancel/modify by id.
// The Book is not safe for concurrent mutation; callers (the Engine) are
// responsible for serializing writers.
type Book struct {
	bids *rbTree
	asks *rbTree

	index map[uuid.UUID]locator
}

// NewBook constructs an empty book.
func NewBook() *Book {
	return &Book{
		bids:  newRBTree(),
		asks:  newRBTree(),
		index: make(map[uuid.UUID]locator),
	}
}

func (b *Book) treeFor(side Side) *rbTree {
	if side == Buy {
		return b.bids
	}
	return b.asks
}

// Insert places order at the tail of its PriceLevel, creating the level
// if absent. Panics on a duplicate id: the caller is expected to have
// already rejected that at admission (engine.ErrDuplicateID), so
// reaching here with a live id indicates Book/OrderIndex corruption.
func (b *Book) Insert(o *Order) {
	if _, exists := b.index[o.ID]; exists {
		panic("orderbook: Insert called with an id already resting in the book")
	}
	lvl := b.treeFor(o.Side).UpsertLevel(o.Price)
	lvl.Enqueue(o)
	b.index[o.ID] = locator{side: o.Side, price: o.Price, order: o}
}

// Remove deletes the order with id from the book, deleting its
// PriceLevel if it becomes empty. Returns ErrNotFound if id is unknown.
func (b *Book) Remove(id uuid.UUID) error {
	loc, ok := b.index[id]
	if !ok {
		return ErrNotFound
	}
	b.unlink(loc)
	delete(b.index, id)
	return nil
}

// DecrementQty reduces the remaining quantity of the order with id by
// delta. If that reaches zero the order is removed, exactly as Remove.
// Returns ErrNotFound if id is unknown, ErrInsufficientQuantity if delta
// exceeds the order's remaining quantity.
func (b *Book) DecrementQty(id uuid.UUID, delta uint64) error {
	loc, ok := b.index[id]
	if !ok {
		return ErrNotFound
	}
	if delta > loc.order.Remaining() {
		return ErrInsufficientQuantity
	}

	tree := b.treeFor(loc.side)
	lvl := tree.FindLevel(loc.price)
	lvl.DecrementQty(loc.order, delta)

	if loc.order.Remaining() == 0 {
		lvl.Remove(loc.order)
		delete(b.index, id)
		if lvl.Empty() {
			tree.DeleteLevel(loc.price)
		}
	}
	return nil
}

// RestoreQty undoes a prior DecrementQty(id, delta) that did not remove
// the order, growing it back by delta. order must still be resting in
// the book under its own id. Used by the matcher to roll back a match
// attempt that failed the holistic minimum-quantity gate.
func (b *Book) RestoreQty(order *Order, delta uint64) {
	loc := b.index[order.ID]
	tree := b.treeFor(loc.side)
	lvl := tree.FindLevel(loc.price)
	lvl.IncrementQty(order, delta)
}

// RestoreRemoved undoes a prior DecrementQty that removed order from the
// book entirely, reinserting it at the front of its level with qty
// restored. Used by the matcher to roll back a match attempt that
// failed the holistic minimum-quantity gate: since the book has a
// single writer, nothing else can have taken order's place at the
// front in the interim.
func (b *Book) RestoreRemoved(order *Order, qty uint64) {
	order.Quantity = qty
	lvl := b.treeFor(order.Side).UpsertLevel(order.Price)
	lvl.PushFront(order)
	b.index[order.ID] = locator{side: order.Side, price: order.Price, order: order}
}

func (b *Book) unlink(loc locator) {
	tree := b.treeFor(loc.side)
	lvl := tree.FindLevel(loc.price)
	lvl.Remove(loc.order)
	if lvl.Empty() {
		tree.DeleteLevel(loc.price)
	}
}

// Best returns the best (highest bid / lowest ask) PriceLevel for side,
// or nil if that side is empty.
func (b *Book) Best(side Side) *PriceLevel {
	if side == Buy {
		return b.bids.MaxLevel()
	}
	return b.asks.MinLevel()
}

// LevelSummary is a read-only view of one price level's aggregate size,
// used for book snapshots where individual order identities don't matter.
type LevelSummary struct {
	Price    int64
	Quantity uint64
	Orders   int
}

// Levels returns every resting price level on side, best price first
// (highest bid first on Buy, lowest ask first on Sell).
func (b *Book) Levels(side Side) []LevelSummary {
	var out []LevelSummary
	collect := func(lvl *PriceLevel) bool {
		out = append(out, LevelSummary{Price: lvl.Price, Quantity: lvl.TotalQty, Orders: lvl.OrderCount})
		return true
	}
	if side == Buy {
		b.bids.ForEachDescending(collect)
	} else {
		b.asks.ForEachAscending(collect)
	}
	return out
}

// Lookup returns the live resting order with id, or nil.
func (b *Book) Lookup(id uuid.UUID) *Order {
	loc, ok := b.index[id]
	if !ok {
		return nil
	}
	return loc.order
}

// WalkOpposite returns a lazy, ordered walker over resting orders on the
// side opposite incomingSide whose price crosses limitPrice (a resting
// Sell at or below limitPrice for an incoming Buy; a resting Buy at or
// above limitPrice for an incoming Sell). Within a price level, orders
// are visited in ArrivalSeq order. The walker tolerates the caller
// removing or decrementing the order just returned by Next before
// calling Next again — it always re-reads the current best level/head.
type OppositeWalker struct {
	book         *Book
	oppositeTree *rbTree
	limitPrice   int64
	crossFn      func(levelPrice, limit int64) bool
}

// WalkOpposite constructs a walker over the side opposite incomingSide.
func (b *Book) WalkOpposite(incomingSide Side, limitPrice int64) *OppositeWalker {
	if incomingSide == Buy {
		return &OppositeWalker{
			book:         b,
			oppositeTree: b.asks,
			limitPrice:   limitPrice,
			crossFn:      func(levelPrice, limit int64) bool { return levelPrice <= limit },
		}
	}
	return &OppositeWalker{
		book:         b,
		oppositeTree: b.bids,
		limitPrice:   limitPrice,
		crossFn:      func(levelPrice, limit int64) bool { return levelPrice >= limit },
	}
}

// Next returns the next crossing resting order, or (nil, false) once the
// opposite side is exhausted or no longer crosses.
func (w *OppositeWalker) Next() (*Order, bool) {
	var lvl *PriceLevel
	if w.oppositeTree == w.book.asks {
		lvl = w.oppositeTree.MinLevel()
	} else {
		lvl = w.oppositeTree.MaxLevel()
	}
	if lvl == nil || !w.crossFn(lvl.Price, w.limitPrice) {
		return nil, false
	}
	head := lvl.Head()
	if head == nil {
		return nil, false
	}
	return head, true
}
