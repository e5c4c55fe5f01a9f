// Package mailbox implements the inbound request mailbox shared between
// the file-system producer and the driver's control loop.
package mailbox

import (
	"errors"
	"sync"

	"github.com/ehrlich-b/go-diskdrv/internal/constants"
	"github.com/ehrlich-b/go-diskdrv/internal/request"
)

var (
	// ErrInboxFull is returned by Post when every slot holds an unread request.
	ErrInboxFull = errors.New("inbox full")

	// ErrInvalidMessage is returned by Post for a request whose operation is
	// zero, which would read as an empty slot.
	ErrInvalidMessage = errors.New("operation 0 marks an empty slot")
)

// Inbox is a fixed-capacity ordered slot array. A slot counts as posted
// once its operation is non-zero and as consumed once the driver clears
// it. The mutex makes each Post and Drain atomic relative to the other, so
// the driver never observes a half-written slot.
type Inbox struct {
	mu    sync.Mutex
	slots []request.Request
}

// NewInbox creates an inbox with capacity slots.
func NewInbox(capacity int) *Inbox {
	if capacity <= 0 {
		capacity = constants.DefaultInboxCapacity
	}
	return &Inbox{slots: make([]request.Request, capacity)}
}

// Capacity returns the number of slots.
func (b *Inbox) Capacity() int {
	return len(b.slots)
}

// Post places req in the first empty slot.
func (b *Inbox) Post(req request.Request) error {
	if req.Op == request.OpNone {
		return ErrInvalidMessage
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.slots {
		if b.slots[i].Op == request.OpNone {
			b.slots[i] = req
			return nil
		}
	}
	return ErrInboxFull
}

// Pending returns the number of posted, unconsumed slots.
func (b *Inbox) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.posted()
}

func (b *Inbox) posted() int {
	n := 0
	for n < len(b.slots) && b.slots[n].Op != request.OpNone {
		n++
	}
	return n
}

// Drain takes every posted request from slot 0 upward, stopping at the
// first empty slot or at capacity, and clears the consumed slots. Arrival
// order is preserved.
func (b *Inbox) Drain() []request.Request {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.posted()
	if n == 0 {
		return nil
	}

	out := make([]request.Request, n)
	copy(out, b.slots[:n])
	for i := 0; i < n; i++ {
		b.slots[i] = request.Request{}
	}
	return out
}
