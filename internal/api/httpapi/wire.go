package httpapi

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"matchengine/internal/domain/orderbook"
)

// TradeRequest is the wire body for POST and PUT /orders.
type TradeRequest struct {
	ID              uuid.UUID       `json:"id"`
	OrderType       string          `json:"order_type"`
	OrderSide       string          `json:"order_side"`
	Price           decimal.Decimal `json:"price"`
	Quantity        uint64          `json:"quantity"`
	MinimumQuantity uint64          `json:"minimum_quantity"`
	ExpirationDate  *time.Time      `json:"expiration_date"`
}

// Trade is the wire shape of one matched trade inside a TradeResponse.
type Trade struct {
	BuyOrderID  uuid.UUID `json:"buy_order_id"`
	SellOrderID uuid.UUID `json:"sell_order_id"`
	Price       string    `json:"price"`
	Quantity    uint64    `json:"quantity"`
	Timestamp   time.Time `json:"timestamp"`
}

// TradeResponse is the wire body returned by POST and PUT /orders.
// OrderID is only populated for POST, per §4.7 — Modify responds to an
// id the caller already has.
type TradeResponse struct {
	OrderID     *uuid.UUID `json:"order_id,omitempty"`
	Trades      []Trade    `json:"trades"`
	Disposition string     `json:"disposition"`
}

// CancelResponse is the wire body returned by DELETE /orders/{id}.
type CancelResponse struct {
	Disposition string `json:"disposition"`
}

// BookLevel is one aggregated price level in a BookSnapshot.
type BookLevel struct {
	Price    string `json:"price"`
	Quantity uint64 `json:"quantity"`
	Orders   int    `json:"orders"`
}

// BookSnapshot is the wire body returned by GET /book.
type BookSnapshot struct {
	Bids []BookLevel `json:"bids"`
	Asks []BookLevel `json:"asks"`
}

func parseSide(value string) (orderbook.Side, error) {
	switch value {
	case "buy", "Buy", "BUY":
		return orderbook.Buy, nil
	case "sell", "Sell", "SELL":
		return orderbook.Sell, nil
	default:
		return 0, errInvalidSide
	}
}

func parseKind(value string) (orderbook.Kind, error) {
	switch value {
	case "", "normal", "Normal", "NORMAL", "limit", "Limit", "LIMIT":
		return orderbook.Normal, nil
	case "kill", "Kill", "KILL", "fok", "FOK":
		return orderbook.Kill, nil
	default:
		return 0, errInvalidKind
	}
}

func sideWireString(s orderbook.Side) string {
	if s == orderbook.Sell {
		return "sell"
	}
	return "buy"
}

func tradeFromDomain(t orderbook.Trade, tickSize decimal.Decimal) Trade {
	return Trade{
		BuyOrderID:  t.BuyOrderID,
		SellOrderID: t.SellOrderID,
		Price:       ticksToDecimal(t.Price, tickSize).String(),
		Quantity:    t.Quantity,
		Timestamp:   t.Timestamp,
	}
}

func levelsFromDomain(levels []orderbook.LevelSummary, tickSize decimal.Decimal) []BookLevel {
	out := make([]BookLevel, 0, len(levels))
	for _, lvl := range levels {
		out = append(out, BookLevel{
			Price:    ticksToDecimal(lvl.Price, tickSize).String(),
			Quantity: lvl.Quantity,
			Orders:   lvl.Orders,
		})
	}
	return out
}

// ticksToDecimal converts an internal integer tick count back to the
// decimal price it represents, the inverse of decimalToTicks.
func ticksToDecimal(ticks int64, tickSize decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(ticks).Mul(tickSize)
}

// decimalToTicks is the resolution of Open Question 9.3: the wire
// format carries a decimal price, the book only ever deals in integer
// ticks, so every admission converts through tickSize.
func decimalToTicks(price, tickSize decimal.Decimal) (int64, error) {
	if tickSize.IsZero() {
		return 0, errInvalidTickSize
	}
	ticks := price.Div(tickSize)
	if !ticks.Equal(ticks.Truncate(0)) {
		return 0, errPriceNotOnTick
	}
	return ticks.IntPart(), nil
}
