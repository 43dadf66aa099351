package matcher

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"matchengine/internal/domain/orderbook"
)

func order(side orderbook.Side, kind orderbook.Kind, price int64, qty uint64, minQty uint64, seq uint64) *orderbook.Order {
	return &orderbook.Order{
		ID:               uuid.New(),
		Side:             side,
		Kind:             kind,
		Price:            price,
		Quantity:         qty,
		OriginalQuantity: qty,
		MinQuantity:      minQty,
		ArrivalSeq:       seq,
	}
}

func TestMatchEmptyBookRests(t *testing.T) {
	book := orderbook.NewBook()
	now := time.Now()
	buy := order(orderbook.Buy, orderbook.Normal, 100, 10, 0, 1)

	res := Match(buy, book, now)

	if res.Disposition != Rested {
		t.Fatalf("expected Rested, got %v", res.Disposition)
	}
	if len(res.Trades) != 0 {
		t.Fatalf("expected no trades, got %d", len(res.Trades))
	}
	lvl := book.Best(orderbook.Buy)
	if lvl == nil || lvl.Price != 100 || lvl.TotalQty != 10 {
		t.Fatalf("expected Buy[100: 10] resting, got %+v", lvl)
	}
}

func TestMatchFullyFillsAgainstSingleResting(t *testing.T) {
	book := orderbook.NewBook()
	now := time.Now()
	resting := order(orderbook.Buy, orderbook.Normal, 100, 10, 0, 1)
	book.Insert(resting)

	sell := order(orderbook.Sell, orderbook.Normal, 100, 10, 0, 2)
	res := Match(sell, book, now)

	if res.Disposition != FullyFilled {
		t.Fatalf("expected FullyFilled, got %v", res.Disposition)
	}
	if len(res.Trades) != 1 || res.Trades[0].Price != 100 || res.Trades[0].Quantity != 10 {
		t.Fatalf("expected one trade {100,10}, got %+v", res.Trades)
	}
	if book.Best(orderbook.Buy) != nil {
		t.Fatal("expected Buy side empty after full fill")
	}
	if book.Best(orderbook.Sell) != nil {
		t.Fatal("expected Sell side empty, incoming fully filled")
	}
}

func TestMatchWalksBestPriceFirst(t *testing.T) {
	book := orderbook.NewBook()
	now := time.Now()
	book.Insert(order(orderbook.Sell, orderbook.Normal, 99, 5, 0, 1))
	book.Insert(order(orderbook.Sell, orderbook.Normal, 100, 10, 0, 2))

	buy := order(orderbook.Buy, orderbook.Normal, 100, 12, 0, 3)
	res := Match(buy, book, now)

	if res.Disposition != FullyFilled {
		t.Fatalf("expected FullyFilled, got %v", res.Disposition)
	}
	if len(res.Trades) != 2 {
		t.Fatalf("expected two trades, got %d", len(res.Trades))
	}
	if res.Trades[0].Price != 99 || res.Trades[0].Quantity != 5 {
		t.Errorf("expected first trade (99,5), got %+v", res.Trades[0])
	}
	if res.Trades[1].Price != 100 || res.Trades[1].Quantity != 7 {
		t.Errorf("expected second trade (100,7), got %+v", res.Trades[1])
	}
	askLvl := book.Best(orderbook.Sell)
	if askLvl == nil || askLvl.Price != 100 || askLvl.TotalQty != 3 {
		t.Fatalf("expected Sell[100: 3] remaining, got %+v", askLvl)
	}
}

func TestMatchKillBelowMinQuantityRollsBackAndLeavesBookUnchanged(t *testing.T) {
	book := orderbook.NewBook()
	now := time.Now()
	resting := order(orderbook.Sell, orderbook.Normal, 100, 5, 0, 1)
	book.Insert(resting)

	buy := order(orderbook.Buy, orderbook.Kill, 100, 10, 10, 2)
	res := Match(buy, book, now)

	if res.Disposition != Killed {
		t.Fatalf("expected Killed, got %v", res.Disposition)
	}
	if len(res.Trades) != 0 {
		t.Fatalf("expected no trades, got %+v", res.Trades)
	}
	lvl := book.Best(orderbook.Sell)
	if lvl == nil || lvl.Price != 100 || lvl.TotalQty != 5 || lvl.OrderCount != 1 {
		t.Fatalf("expected book unchanged at Sell[100: 5], got %+v", lvl)
	}
	if book.Lookup(resting.ID) == nil || resting.Remaining() != 5 {
		t.Fatalf("expected resting order untouched, got %+v", resting)
	}
}

func TestMatchRollbackRestoresMultipleConsumedLevels(t *testing.T) {
	book := orderbook.NewBook()
	now := time.Now()
	first := order(orderbook.Sell, orderbook.Normal, 99, 5, 0, 1)
	second := order(orderbook.Sell, orderbook.Normal, 100, 5, 0, 2)
	book.Insert(first)
	book.Insert(second)

	// Would fill 10 total against two levels, but min_qty demands 11.
	buy := order(orderbook.Buy, orderbook.Normal, 100, 10, 11, 3)
	res := Match(buy, book, now)

	if res.Disposition != Killed {
		t.Fatalf("expected Killed, got %v", res.Disposition)
	}
	if book.Best(orderbook.Sell) == nil || book.Best(orderbook.Sell).Price != 99 {
		t.Fatalf("expected best ask restored to 99, got %+v", book.Best(orderbook.Sell))
	}
	if first.Remaining() != 5 || second.Remaining() != 5 {
		t.Fatalf("expected both resting orders restored to full quantity, got first=%d second=%d",
			first.Remaining(), second.Remaining())
	}
	if book.Lookup(first.ID) == nil || book.Lookup(second.ID) == nil {
		t.Fatal("expected both resting orders to be found again after rollback")
	}
}

func TestMatchArrivalSequenceWithinLevelSeq1ThenSeq2(t *testing.T) {
	book := orderbook.NewBook()
	now := time.Now()
	first := order(orderbook.Sell, orderbook.Normal, 100, 5, 0, 1)
	second := order(orderbook.Sell, orderbook.Normal, 100, 5, 0, 2)
	book.Insert(first)
	book.Insert(second)

	buy := order(orderbook.Buy, orderbook.Normal, 100, 6, 0, 3)
	res := Match(buy, book, now)

	if res.Disposition != FullyFilled {
		t.Fatalf("expected FullyFilled, got %v", res.Disposition)
	}
	if len(res.Trades) != 2 {
		t.Fatalf("expected two trades, got %d", len(res.Trades))
	}
	if res.Trades[0].SellOrderID != first.ID || res.Trades[0].Quantity != 5 {
		t.Errorf("expected first trade to fully consume seq-1, got %+v", res.Trades[0])
	}
	if res.Trades[1].SellOrderID != second.ID || res.Trades[1].Quantity != 1 {
		t.Errorf("expected second trade to take 1 from seq-2, got %+v", res.Trades[1])
	}
	if book.Lookup(first.ID) != nil {
		t.Error("expected seq-1 fully consumed and gone")
	}
	remaining := book.Lookup(second.ID)
	if remaining == nil || remaining.Remaining() != 4 {
		t.Fatalf("expected seq-2 to remain at 4, got %+v", remaining)
	}
}

func TestMatchExpiredRestingOrderRemovedLazilyAndNeverTraded(t *testing.T) {
	book := orderbook.NewBook()
	base := time.Now()
	expiry := base.Add(1 * time.Second)
	expired := order(orderbook.Sell, orderbook.Normal, 100, 5, 0, 1)
	expired.Expiration = &expiry
	book.Insert(expired)
	book.Insert(order(orderbook.Sell, orderbook.Normal, 101, 5, 0, 2))

	later := base.Add(2 * time.Second)
	buy := order(orderbook.Buy, orderbook.Normal, 101, 5, 0, 3)
	res := Match(buy, book, later)

	if res.Disposition != FullyFilled {
		t.Fatalf("expected FullyFilled, got %v", res.Disposition)
	}
	if len(res.Trades) != 1 || res.Trades[0].Price != 101 {
		t.Fatalf("expected to trade only against the non-expired order, got %+v", res.Trades)
	}
	if book.Lookup(expired.ID) != nil {
		t.Error("expected expired order lazily removed from the book")
	}
}

func TestMatchRejectsExpiredIncomingOrder(t *testing.T) {
	book := orderbook.NewBook()
	base := time.Now()
	past := base.Add(-1 * time.Second)
	buy := order(orderbook.Buy, orderbook.Normal, 100, 5, 0, 1)
	buy.Expiration = &past

	res := Match(buy, book, base)

	if res.Disposition != Rejected || res.RejectReason != Expired {
		t.Fatalf("expected Rejected(Expired), got %v/%v", res.Disposition, res.RejectReason)
	}
}

func TestMatchKillWithResidualDiscardsResidualButKeepsPartialFills(t *testing.T) {
	book := orderbook.NewBook()
	now := time.Now()
	book.Insert(order(orderbook.Sell, orderbook.Normal, 100, 5, 0, 1))

	buy := order(orderbook.Buy, orderbook.Kill, 100, 10, 0, 2)
	res := Match(buy, book, now)

	if res.Disposition != Killed {
		t.Fatalf("expected Killed, got %v", res.Disposition)
	}
	if len(res.Trades) != 1 || res.FilledQty != 5 {
		t.Fatalf("expected the partial fill to be committed, got %+v", res)
	}
	if book.Best(orderbook.Buy) != nil {
		t.Error("expected Kill order's residual to never rest")
	}
	if book.Best(orderbook.Sell) != nil {
		t.Error("expected resting sell fully consumed")
	}
}
