package orderbook

import "errors"

// ErrNotFound is returned by Remove/DecrementQty for an unknown order id.
// At the Book layer this is always a programmer error (the Engine is
// expected to have just looked the id up in its OrderIndex); it is
// returned rather than panicked so the Engine can decide how fatal that
// is.
var ErrNotFound = errors.New("orderbook: order not found")

// ErrInsufficientQuantity is returned by DecrementQty when delta exceeds
// the order's remaining quantity.
var ErrInsufficientQuantity = errors.New("orderbook: decrement exceeds remaining quantity")
