// Package httpapi is the Engine's command surface: a small net/http +
// gorilla/mux router translating TradeRequest/TradeResponse JSON into
// engine.CreateRequest/engine.Response calls, plus read-only book and
// metrics endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"matchengine/internal/domain/orderbook"
	"matchengine/internal/engine"
	"matchengine/internal/memory"
	"matchengine/internal/metrics"
)

// Lifecycle is the best-effort acceptance-event sink pushed to after a
// successful Create. Satisfied by *streaming/kafka.Producer; an
// interface here so tests can stub it out.
type Lifecycle interface {
	Send(ctx context.Context, key, value []byte) error
}

// Server wires the Engine, a read epoch, and the lifecycle stream into
// an http.Handler.
type Server struct {
	eng      *engine.Engine
	mx       *metrics.Metrics
	reader   *memory.ReaderEpoch
	lifecyc  Lifecycle
	tickSize decimal.Decimal
}

// New constructs a Server. lifecycle may be nil, in which case the
// best-effort acceptance push is skipped.
func New(eng *engine.Engine, mx *metrics.Metrics, lifecycle Lifecycle, tickSize decimal.Decimal) *Server {
	return &Server{
		eng:      eng,
		mx:       mx,
		reader:   &memory.ReaderEpoch{},
		lifecyc:  lifecycle,
		tickSize: tickSize,
	}
}

// Reader exposes the Server's ReaderEpoch so the process wiring code
// can include it in the periodic AdvanceEpoch call alongside any other
// concurrent readers.
func (s *Server) Reader() *memory.ReaderEpoch {
	return s.reader
}

// Routes builds the router. The caller is responsible for running the
// returned handler, e.g. via http.Server.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/orders", s.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/orders/{id}", s.handleCancel).Methods(http.MethodDelete)
	r.HandleFunc("/orders/{id}", s.handleModify).Methods(http.MethodPut)
	r.HandleFunc("/book", s.handleBook).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.mx.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return r
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}

	cr, err := s.toCreateRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := s.eng.Create(cr)
	if writeEngineErr(w, err) {
		return
	}

	s.pushAcceptance(r.Context(), resp)
	writeJSON(w, http.StatusOK, s.tradeResponse(resp, true))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := s.eng.Cancel(id)
	if writeEngineErr(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, CancelResponse{Disposition: resp.Disposition.String()})
}

func (s *Server) handleModify(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}

	cr, err := s.toCreateRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := s.eng.Modify(id, cr)
	if writeEngineErr(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, s.tradeResponse(resp, false))
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	s.reader.Enter()
	defer s.reader.Exit()

	book := s.eng.Book()
	snapshot := BookSnapshot{
		Bids: levelsFromDomain(book.Levels(orderbook.Buy), s.tickSize),
		Asks: levelsFromDomain(book.Levels(orderbook.Sell), s.tickSize),
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) toCreateRequest(req TradeRequest) (engine.CreateRequest, error) {
	side, err := parseSide(req.OrderSide)
	if err != nil {
		return engine.CreateRequest{}, err
	}
	kind, err := parseKind(req.OrderType)
	if err != nil {
		return engine.CreateRequest{}, err
	}
	ticks, err := decimalToTicks(req.Price, s.tickSize)
	if err != nil {
		return engine.CreateRequest{}, err
	}

	return engine.CreateRequest{
		ID:          req.ID,
		Side:        side,
		Kind:        kind,
		Price:       ticks,
		Quantity:    req.Quantity,
		MinQuantity: req.MinimumQuantity,
		Expiration:  req.ExpirationDate,
	}, nil
}

func (s *Server) tradeResponse(resp engine.Response, includeOrderID bool) TradeResponse {
	trades := make([]Trade, 0, len(resp.Trades))
	for _, t := range resp.Trades {
		trades = append(trades, tradeFromDomain(t, s.tickSize))
	}
	out := TradeResponse{
		Trades:      trades,
		Disposition: resp.Disposition.String(),
	}
	if includeOrderID {
		out.OrderID = &resp.OrderID
	}
	return out
}

// pushAcceptance fires the best-effort, non-outboxed acceptance event
// for a successfully admitted order. Failure is logged, never surfaced
// to the caller: the trade already happened on the book.
func (s *Server) pushAcceptance(ctx context.Context, resp engine.Response) {
	if s.lifecyc == nil {
		return
	}
	payload, err := json.Marshal(struct {
		OrderID     uuid.UUID `json:"order_id"`
		Disposition string    `json:"disposition"`
	}{OrderID: resp.OrderID, Disposition: resp.Disposition.String()})
	if err != nil {
		return
	}
	if err := s.lifecyc.Send(ctx, []byte(resp.OrderID.String()), payload); err != nil {
		log.Printf("httpapi: best-effort lifecycle push failed for %s: %v", resp.OrderID, err)
	}
}

func parseIDParam(r *http.Request) (uuid.UUID, error) {
	raw := mux.Vars(r)["id"]
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("invalid order id %q: %w", raw, err)
	}
	return id, nil
}

// writeEngineErr maps an Engine error to an HTTP status and writes the
// response, returning true if it wrote anything.
func writeEngineErr(w http.ResponseWriter, err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, engine.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, engine.ErrMalformed), errors.Is(err, engine.ErrCannotChangeSideOrKind):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, engine.ErrDuplicateID):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
	return true
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
