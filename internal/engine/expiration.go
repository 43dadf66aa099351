package engine

import (
	"container/heap"
	"time"

	"github.com/google/uuid"
)

// expirationEntry is one (instant, id) pair awaiting the authoritative
// expiration sweep. Entries for orders already removed by a Cancel,
// Modify, or a fill are tombstoned implicitly: the sweep
// (Engine.handleExpireTick) checks the Book before acting on each id
// PopExpired returns, so a stale entry is simply dropped.
type expirationEntry struct {
	at time.Time
	id uuid.UUID
}

type expirationHeap []expirationEntry

func (h expirationHeap) Len() int            { return len(h) }
func (h expirationHeap) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h expirationHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *expirationHeap) Push(x any)         { *h = append(*h, x.(expirationEntry)) }
func (h *expirationHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	*h = old[:n-1]
	return entry
}

// expirationQueue is a thin wrapper giving the heap a named,
// type-safe API.
type expirationQueue struct {
	h expirationHeap
}

func newExpirationQueue() *expirationQueue {
	return &expirationQueue{}
}

func (q *expirationQueue) Push(id uuid.UUID, at time.Time) {
	heap.Push(&q.h, expirationEntry{at: at, id: id})
}

// PopExpired removes and returns every entry whose instant is at or
// before now, earliest first, leaving entries that haven't expired
// yet untouched.
func (q *expirationQueue) PopExpired(now time.Time) []uuid.UUID {
	var expired []uuid.UUID
	for len(q.h) > 0 && !q.h[0].at.After(now) {
		entry := heap.Pop(&q.h).(expirationEntry)
		expired = append(expired, entry.id)
	}
	return expired
}

func (q *expirationQueue) Len() int { return len(q.h) }
