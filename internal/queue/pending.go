// Package queue holds the pending request list: a singly-linked sequence
// ordered by block number and bounded by head and tail sentinels.
package queue

import (
	"errors"
	"fmt"

	"github.com/ehrlich-b/go-diskdrv/internal/request"
)

var (
	// ErrExhausted is returned when a new request node cannot be allocated.
	// It is fatal to the driver.
	ErrExhausted = errors.New("pending queue exhausted")

	// ErrNotQueued is returned when removing a reference that is not a
	// live entry of the queue.
	ErrNotQueued = errors.New("request not in pending queue")
)

// Ref identifies an entry in the queue. It stays valid until the entry is
// removed.
type Ref int32

// NilRef is the absent reference.
const NilRef Ref = -1

const (
	headRef Ref = 0
	tailRef Ref = 1
)

// Pending is the sentinel-bounded pending request list. The head sentinel
// sorts before every block and the tail sentinel after every block, so real
// entries always lie strictly between them regardless of their block
// number. It is owned by a single control loop and is not safe for
// concurrent use.
type Pending struct {
	pool slotPool
}

// New creates an empty queue holding only its two sentinels. capacity
// bounds the number of live entries; 0 means unbounded.
func New(capacity int) *Pending {
	if capacity < 0 {
		capacity = 0
	}
	return &Pending{pool: newSlotPool(capacity)}
}

// Insert adds req after every existing entry whose block number is less
// than or equal to req.Block, keeping ties in arrival order.
func (q *Pending) Insert(req request.Request) (Ref, error) {
	ref, ok := q.pool.get(req)
	if !ok {
		return NilRef, fmt.Errorf("%w: %d entries", ErrExhausted, q.pool.live)
	}

	slots := q.pool.slots
	prev := headRef
	for {
		next := slots[prev].next
		if slots[next].kind == slotTail || slots[next].req.Block > req.Block {
			break
		}
		prev = next
	}

	slots[ref].next = slots[prev].next
	slots[prev].next = ref
	return ref, nil
}

// Remove unlinks the entry ref and releases its slot.
func (q *Pending) Remove(ref Ref) (request.Request, error) {
	if !q.pool.isEntry(ref) {
		return request.Request{}, fmt.Errorf("%w: ref %d", ErrNotQueued, ref)
	}

	slots := q.pool.slots
	prev := headRef
	for slots[prev].next != ref {
		prev = slots[prev].next
		if slots[prev].kind == slotTail {
			return request.Request{}, fmt.Errorf("%w: ref %d unlinked", ErrNotQueued, ref)
		}
	}

	req := slots[ref].req
	slots[prev].next = slots[ref].next
	q.pool.put(ref)
	return req, nil
}

// First returns the lowest-ordered entry, or NilRef when the queue is empty.
func (q *Pending) First() Ref {
	return q.entryOrNil(q.pool.slots[headRef].next)
}

// Next returns the entry after ref, or NilRef when ref is the last entry.
func (q *Pending) Next(ref Ref) Ref {
	if !q.pool.isEntry(ref) {
		return NilRef
	}
	return q.entryOrNil(q.pool.slots[ref].next)
}

// IsLast reports whether ref is the final real entry before the tail.
func (q *Pending) IsLast(ref Ref) bool {
	return q.pool.isEntry(ref) && q.pool.slots[ref].next == tailRef
}

func (q *Pending) entryOrNil(ref Ref) Ref {
	if q.pool.slots[ref].kind != slotEntry {
		return NilRef
	}
	return ref
}

// Get returns the request stored at ref.
func (q *Pending) Get(ref Ref) (request.Request, bool) {
	if !q.pool.isEntry(ref) {
		return request.Request{}, false
	}
	return q.pool.slots[ref].req, true
}

// Len returns the number of real entries.
func (q *Pending) Len() int {
	return q.pool.live
}

// Empty reports whether the queue holds only its sentinels.
func (q *Pending) Empty() bool {
	return q.pool.slots[headRef].next == tailRef
}

// Capacity returns the entry limit, 0 when unbounded.
func (q *Pending) Capacity() int {
	return q.pool.limit
}

// Requests returns a copy of the queued requests in traversal order.
func (q *Pending) Requests() []request.Request {
	out := make([]request.Request, 0, q.pool.live)
	for ref := q.First(); ref != NilRef; ref = q.Next(ref) {
		out = append(out, q.pool.slots[ref].req)
	}
	return out
}
