// Package engine is the single-writer command pipeline: it owns the
// Book, serializes Create/Cancel/Modify against one logical thread of
// control, assigns arrival sequence at admission, and drives both the
// authoritative expiration sweep and the trade outbox.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"matchengine/internal/domain/orderbook"
	"matchengine/internal/matcher"
	"matchengine/internal/memory"
	"matchengine/internal/metrics"
	"matchengine/internal/outbox"
	"matchengine/internal/sequence"
)

// CreateRequest is everything needed to admit a new order, also reused
// as the body of a Modify.
type CreateRequest struct {
	ID          uuid.UUID
	Side        orderbook.Side
	Kind        orderbook.Kind
	Price       int64
	Quantity    uint64
	MinQuantity uint64
	Expiration  *time.Time
}

// Response is what every Engine command returns to its caller.
type Response struct {
	OrderID     uuid.UUID
	Trades      []orderbook.Trade
	Disposition Disposition
}

type commandKind uint8

const (
	cmdCreate commandKind = iota
	cmdCancel
	cmdModify
	cmdExpireTick
)

type command struct {
	kind      commandKind
	create    CreateRequest
	cancelID  uuid.UUID
	modifyID  uuid.UUID
	modifyReq CreateRequest
	reply     chan<- result
}

type result struct {
	resp Response
	err  error
}

// Config controls the Engine's behavioural knobs that the distilled
// spec left as open questions.
type Config struct {
	// InvertModifySuppression flips the Modify-suppression rule from
	// the literal reading (suppress when the residual already meets
	// the new gate) to the more intuitive one (suppress when the
	// residual cannot meet the new gate).
	InvertModifySuppression bool
	ExpirationTickInterval  time.Duration
	EpochReclaimInterval    time.Duration
}

// Engine owns the Book and every piece of state that must change in
// lockstep with it.
type Engine struct {
	book *orderbook.Book
	pool *memory.Pool[orderbook.Order]
	ring *memory.RetireRing

	seq      *sequence.Sequencer
	eventSeq *sequence.Sequencer
	expiry   *expirationQueue

	clock  Clock
	cfg    Config
	box    *outbox.Outbox
	mx     *metrics.Metrics

	commands chan command
}

// New constructs an Engine. box may be nil, in which case trade and
// lifecycle events are computed but not persisted — useful for tests
// that don't need outbox durability.
func New(clock Clock, cfg Config, box *outbox.Outbox, mx *metrics.Metrics) *Engine {
	return &Engine{
		book:     orderbook.NewBook(),
		pool:     memory.NewPool(func() *orderbook.Order { return &orderbook.Order{} }),
		ring:     memory.NewRetireRing(1 << 16),
		seq:      sequence.New(0),
		eventSeq: sequence.New(0),
		expiry:   newExpirationQueue(),
		clock:    clock,
		cfg:      cfg,
		box:      box,
		mx:       mx,
		commands: make(chan command, 256),
	}
}

// Run drains the command channel on the calling goroutine until ctx
// is cancelled. It is the Engine's single logical thread of control:
// every Book mutation happens here.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.ExpirationTickInterval)
	defer ticker.Stop()

	tickerDone := make(chan struct{})
	go func() {
		defer close(tickerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case e.commands <- command{kind: cmdExpireTick}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			<-tickerDone
			return
		case cmd := <-e.commands:
			e.handle(cmd)
		}
	}
}

// Create submits a new order and blocks until the Engine has admitted
// and matched it.
func (e *Engine) Create(req CreateRequest) (Response, error) {
	reply := make(chan result, 1)
	e.commands <- command{kind: cmdCreate, create: req, reply: reply}
	r := <-reply
	return r.resp, r.err
}

// Cancel removes a live order from the book.
func (e *Engine) Cancel(id uuid.UUID) (Response, error) {
	reply := make(chan result, 1)
	e.commands <- command{kind: cmdCancel, cancelID: id, reply: reply}
	r := <-reply
	return r.resp, r.err
}

// Modify replaces a live order with a new specification under the
// same id, subject to the Modify-suppression rule in handleModify.
func (e *Engine) Modify(id uuid.UUID, req CreateRequest) (Response, error) {
	req.ID = id
	reply := make(chan result, 1)
	e.commands <- command{kind: cmdModify, modifyID: id, modifyReq: req, reply: reply}
	r := <-reply
	return r.resp, r.err
}

func (e *Engine) handle(cmd command) {
	switch cmd.kind {
	case cmdCreate:
		resp, err := e.handleCreate(cmd.create)
		cmd.reply <- result{resp: resp, err: err}
	case cmdCancel:
		resp, err := e.handleCancel(cmd.cancelID)
		cmd.reply <- result{resp: resp, err: err}
	case cmdModify:
		resp, err := e.handleModify(cmd.modifyID, cmd.modifyReq)
		cmd.reply <- result{resp: resp, err: err}
	case cmdExpireTick:
		e.handleExpireTick()
	}
}

func validate(req CreateRequest, now time.Time) error {
	if req.Price <= 0 {
		return fmt.Errorf("%w: price must be > 0", ErrMalformed)
	}
	if req.Quantity == 0 {
		return fmt.Errorf("%w: quantity must be > 0", ErrMalformed)
	}
	if req.MinQuantity > req.Quantity {
		return fmt.Errorf("%w: minimum_quantity exceeds quantity", ErrMalformed)
	}
	if req.Expiration != nil && !req.Expiration.After(now) {
		return fmt.Errorf("%w: expiration is not in the future", ErrMalformed)
	}
	return nil
}

func (e *Engine) handleCreate(req CreateRequest) (Response, error) {
	now := e.clock.Now()
	if err := validate(req, now); err != nil {
		return Response{}, err
	}
	if e.book.Lookup(req.ID) != nil {
		return Response{}, fmt.Errorf("%w: %s", ErrDuplicateID, req.ID)
	}
	return e.admitAndMatch(req, now), nil
}

// admitAndMatch assigns ArrivalSeq, runs the matcher, and emits every
// side effect of the outcome. req.ID must not currently be resting in
// the book.
func (e *Engine) admitAndMatch(req CreateRequest, now time.Time) Response {
	o := e.pool.Get()
	o.Reset()
	o.ID = req.ID
	o.Side = req.Side
	o.Kind = req.Kind
	o.Price = req.Price
	o.Quantity = req.Quantity
	o.OriginalQuantity = req.Quantity
	o.MinQuantity = req.MinQuantity
	o.Expiration = req.Expiration
	o.ArrivalSeq = e.seq.Next()

	e.recordAdmission(req.Side, req.Price)

	start := now
	res := matcher.Match(o, e.book, now)
	e.mx.MatchingDuration.Observe(e.clock.Now().Sub(start).Seconds())

	for _, tr := range res.Trades {
		e.emitTrade(tr)
	}
	e.mx.TradesTotal.Add(float64(len(res.Trades)))

	disp := fromMatcherDisposition(res.Disposition)
	switch res.Disposition {
	case matcher.Rested:
		if o.Expiration != nil {
			e.expiry.Push(o.ID, *o.Expiration)
		}
	case matcher.FullyFilled:
		e.mx.OrdersFilledTotal.Inc()
		e.retire(o)
	case matcher.Killed, matcher.Rejected:
		e.retire(o)
	}
	e.emitLifecycle(o.ID, disp, now)

	return Response{OrderID: req.ID, Trades: res.Trades, Disposition: disp}
}

func (e *Engine) handleCancel(id uuid.UUID) (Response, error) {
	existing := e.book.Lookup(id)
	if existing == nil {
		return Response{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := e.book.Remove(id); err != nil {
		panic(fmt.Sprintf("engine: book corruption removing %s: %v", id, err))
	}
	e.retire(existing)
	e.emitLifecycle(id, Cancelled, e.clock.Now())
	return Response{OrderID: id, Disposition: Cancelled}, nil
}

func (e *Engine) handleModify(id uuid.UUID, req CreateRequest) (Response, error) {
	now := e.clock.Now()
	existing := e.book.Lookup(id)
	if existing == nil {
		return Response{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if req.Side != existing.Side || req.Kind != existing.Kind {
		return Response{}, fmt.Errorf("%w: %s", ErrCannotChangeSideOrKind, id)
	}
	if err := validate(req, now); err != nil {
		return Response{}, err
	}

	suppress := existing.Remaining() >= req.MinQuantity
	if e.cfg.InvertModifySuppression {
		suppress = existing.Remaining() < req.MinQuantity
	}

	if err := e.book.Remove(id); err != nil {
		panic(fmt.Sprintf("engine: book corruption removing %s: %v", id, err))
	}
	e.retire(existing)

	if suppress {
		e.emitLifecycle(id, ModifySuppressed, now)
		return Response{OrderID: id, Disposition: ModifySuppressed}, nil
	}

	return e.admitAndMatch(req, now), nil
}

func (e *Engine) handleExpireTick() {
	now := e.clock.Now()
	for _, id := range e.expiry.PopExpired(now) {
		o := e.book.Lookup(id)
		if o == nil {
			continue // already cancelled, modified away, or filled — tombstoned
		}
		if !o.Expired(now) {
			continue // id was reused by a later order at the same uuid (never happens, but be defensive)
		}
		if err := e.book.Remove(id); err != nil {
			panic(fmt.Sprintf("engine: book corruption expiring %s: %v", id, err))
		}
		e.retire(o)
		e.emitLifecycle(id, Rejected, now)
	}
}

// retire returns o's allocation to the epoch-reclaimed pool. o must no
// longer be resting in the book.
func (e *Engine) retire(o *orderbook.Order) {
	if !e.ring.Enqueue(o) {
		// Ring saturated under reclaim pressure; drop the reuse
		// opportunity rather than block the single writer.
		return
	}
}

// AdvanceEpoch reclaims retired orders no live reader can still
// observe. Intended to be called periodically by a background job,
// independent of the command loop.
func (e *Engine) AdvanceEpoch(readers ...*memory.ReaderEpoch) {
	memory.AdvanceEpochAndReclaim(e.ring, e.pool, readers...)
}

func (e *Engine) recordAdmission(side orderbook.Side, price int64) {
	e.mx.OrdersReceivedTotal.Inc()
	if side == orderbook.Buy {
		e.mx.BuyOrderPrice.Observe(float64(price))
	} else {
		e.mx.SellOrderPrice.Observe(float64(price))
	}
}

func (e *Engine) emitTrade(t orderbook.Trade) {
	if e.box == nil {
		return
	}
	payload, err := json.Marshal(tradeEventFrom(t))
	if err != nil {
		return
	}
	_ = e.box.PutNew(e.eventSeq.Next(), outbox.KindTrade, payload)
}

func (e *Engine) emitLifecycle(id uuid.UUID, disp Disposition, now time.Time) {
	if e.box == nil {
		return
	}
	payload, err := json.Marshal(LifecycleEvent{OrderID: id, Disposition: disp.String(), Timestamp: now})
	if err != nil {
		return
	}
	_ = e.box.PutNew(e.eventSeq.Next(), lifecycleKind(disp), payload)
}

func lifecycleKind(d Disposition) outbox.Kind {
	switch d {
	case Rested:
		return outbox.KindRested
	case FullyFilled:
		return outbox.KindFullyFilled
	case Killed:
		return outbox.KindKilled
	case Cancelled:
		return outbox.KindCancelled
	case ModifySuppressed:
		return outbox.KindModifySuppressed
	default:
		return outbox.KindExpired
	}
}

// Book exposes the live book for read-only, epoch-guarded access
// (e.g. the HTTP GET /book snapshot). Callers must bracket reads with
// a ReaderEpoch so AdvanceEpoch doesn't reclaim what they're reading.
func (e *Engine) Book() *orderbook.Book {
	return e.book
}
