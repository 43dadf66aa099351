package engine

import (
	"time"

	"github.com/google/uuid"

	"matchengine/internal/domain/orderbook"
)

// TradeEvent is the outbox/stream wire shape for one matched trade.
type TradeEvent struct {
	BuyOrderID  uuid.UUID `json:"buy_order_id"`
	SellOrderID uuid.UUID `json:"sell_order_id"`
	Price       int64     `json:"price"`
	Quantity    uint64    `json:"quantity"`
	Timestamp   time.Time `json:"timestamp"`
}

func tradeEventFrom(t orderbook.Trade) TradeEvent {
	return TradeEvent{
		BuyOrderID:  t.BuyOrderID,
		SellOrderID: t.SellOrderID,
		Price:       t.Price,
		Quantity:    t.Quantity,
		Timestamp:   t.Timestamp,
	}
}

// LifecycleEvent is the outbox/stream wire shape for an order
// reaching a terminal or resting state.
type LifecycleEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	Disposition string    `json:"disposition"`
	Timestamp   time.Time `json:"timestamp"`
}
