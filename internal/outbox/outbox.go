// Package outbox implements a transactional outbox for trade and
// order-lifecycle events the Engine has already decided on. It is not
// book persistence — nothing written here is ever read back into the
// Book — its only job is guaranteeing at-least-once delivery of
// already-decided events to Kafka even if the process crashes between
// "the Engine decided this happened" and "Kafka has it".
package outbox

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
)

// State is where a record sits in the at-least-once delivery pipeline.
type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Kind identifies the shape of Record.Payload.
type Kind uint8

const (
	KindTrade Kind = iota
	KindRested
	KindFullyFilled
	KindKilled
	KindCancelled
	KindExpired
	KindModifySuppressed
)

// Record is one outbox entry: an event the Engine has already
// committed, awaiting delivery to Kafka.
type Record struct {
	Seq         uint64
	Kind        Kind
	Payload     []byte
	State       State
	Retries     uint32
	LastAttempt int64
}

func encodeRecord(r Record) []byte {
	buf := make([]byte, 1+1+4+8+4+len(r.Payload))
	buf[0] = byte(r.Kind)
	buf[1] = byte(r.State)
	binary.BigEndian.PutUint32(buf[2:6], r.Retries)
	binary.BigEndian.PutUint64(buf[6:14], uint64(r.LastAttempt))
	binary.BigEndian.PutUint32(buf[14:18], uint32(len(r.Payload)))
	copy(buf[18:], r.Payload)
	return buf
}

func decodeRecord(seq uint64, b []byte) (Record, error) {
	if len(b) < 18 {
		return Record{}, errors.New("outbox: record too short")
	}
	payloadLen := binary.BigEndian.Uint32(b[14:18])
	if uint32(len(b)-18) != payloadLen {
		return Record{}, errors.New("outbox: payload length mismatch")
	}
	payload := make([]byte, payloadLen)
	copy(payload, b[18:])
	return Record{
		Seq:         seq,
		Kind:        Kind(b[0]),
		State:       State(b[1]),
		Retries:     binary.BigEndian.Uint32(b[2:6]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[6:14])),
		Payload:     payload,
	}, nil
}

// Outbox is a pebble-backed store of outbox records, keyed by the
// Engine's global event sequence so a scan naturally recovers
// emission order.
type Outbox struct {
	db *pebble.DB
}

// Open opens (or creates) the outbox at dir.
func Open(dir string) (*Outbox, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		DisableWAL: false, // durability across a crash is the whole point
	})
	if err != nil {
		return nil, err
	}
	return &Outbox{db: db}, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// PutNew records a freshly decided event, called by the Engine in the
// same loop iteration that produced it, before any external
// publication is attempted.
func (o *Outbox) PutNew(seq uint64, kind Kind, payload []byte) error {
	rec := Record{Seq: seq, Kind: kind, Payload: payload, State: StateNew}
	return o.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync)
}

// MarkSent records that payload has been handed to the broker but not
// yet acknowledged.
func (o *Outbox) MarkSent(seq uint64, retries uint32) error {
	return o.updateState(seq, StateSent, retries)
}

// MarkAcked records that the broker has durably accepted the event.
func (o *Outbox) MarkAcked(seq uint64, retries uint32) error {
	return o.updateState(seq, StateAcked, retries)
}

// MarkFailed records a delivery attempt that will be retried later.
func (o *Outbox) MarkFailed(seq uint64, retries uint32) error {
	return o.updateState(seq, StateFailed, retries)
}

func (o *Outbox) updateState(seq uint64, state State, retries uint32) error {
	rec, err := o.Get(seq)
	if err != nil {
		return err
	}
	rec.State = state
	rec.Retries = retries
	rec.LastAttempt = time.Now().UnixNano()
	return o.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync)
}

// Delete removes an acknowledged record; callers should only delete
// StateAcked records.
func (o *Outbox) Delete(seq uint64) error {
	return o.db.Delete(keyFor(seq), pebble.Sync)
}

// Get returns the current record for seq.
func (o *Outbox) Get(seq uint64) (Record, error) {
	val, closer, err := o.db.Get(keyFor(seq))
	if err != nil {
		return Record{}, err
	}
	defer closer.Close()
	return decodeRecord(seq, val)
}

// ScanPending calls fn for every record not yet Acked, in sequence
// order, stopping at the first error fn returns.
func (o *Outbox) ScanPending(fn func(Record) error) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("event/"),
		UpperBound: []byte("event/~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		rec, err := decodeRecord(seq, iter.Value())
		if err != nil {
			return err
		}
		if rec.State == StateAcked {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("event/%020d", seq))
}

func parseKey(b []byte) (uint64, error) {
	var seq uint64
	_, err := fmt.Sscanf(string(bytes.TrimPrefix(b, []byte("event/"))), "%d", &seq)
	return seq, err
}
