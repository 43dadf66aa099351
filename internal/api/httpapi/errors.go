package httpapi

import "errors"

var (
	errInvalidSide     = errors.New("httpapi: order_side must be buy or sell")
	errInvalidKind     = errors.New("httpapi: order_type must be normal or kill")
	errInvalidTickSize = errors.New("httpapi: tick size must be positive")
	errPriceNotOnTick  = errors.New("httpapi: price is not a multiple of the tick size")
)
