package orderbook

import (
	"time"

	"github.com/google/uuid"
)

// Trade is an immutable record of one match between a taker and a
// resting maker order. Price is always the maker's resting price.
type Trade struct {
	BuyOrderID  uuid.UUID
	SellOrderID uuid.UUID
	Price       int64
	Quantity    uint64
	Timestamp   time.Time
	MakerSide   Side
}
