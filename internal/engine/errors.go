package engine

import "errors"

// Error kinds the Engine reports to callers. None of these panic —
// only Book/OrderIndex corruption is fatal, and that terminates the
// process instead of returning an error (see Engine.handle).
var (
	ErrMalformed             = errors.New("engine: malformed order")
	ErrNotFound              = errors.New("engine: order not found")
	ErrCannotChangeSideOrKind = errors.New("engine: modify cannot change side or kind")
	ErrDuplicateID           = errors.New("engine: duplicate order id")
)
