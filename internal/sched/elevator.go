// Package sched implements the elevator (SCAN) disk-arm scheduler that
// picks the next pending request to service.
package sched

import (
	"errors"

	"github.com/ehrlich-b/go-diskdrv/internal/geometry"
	"github.com/ehrlich-b/go-diskdrv/internal/queue"
	"github.com/ehrlich-b/go-diskdrv/internal/request"
)

var (
	// ErrEmptyQueue is returned when SelectNext is called with no real entries.
	ErrEmptyQueue = errors.New("no pending requests to schedule")

	// errNoCandidate means two full sweeps found nothing, which cannot
	// happen for a non-empty queue.
	errNoCandidate = errors.New("elevator found no candidate in two sweeps")
)

// Direction is the sweep direction of the arm.
type Direction int

const (
	// Outward sweeps toward higher cylinders.
	Outward Direction = 1
	// Inward sweeps toward lower cylinders.
	Inward Direction = -1
)

func (d Direction) String() string {
	if d == Inward {
		return "inward"
	}
	return "outward"
}

// ScanState is the scheduler state persisted between cycles.
type ScanState struct {
	Direction Direction
}

// Selection is the outcome of one scheduling decision.
type Selection struct {
	Ref      queue.Ref
	Request  request.Request
	Address  geometry.Address
	Reversed bool // the sweep direction flipped while searching
	Visited  int  // entries examined, across both sweeps
}

// Elevator walks the pending queue in ascending block order and picks the
// first entry that is not behind the head in the current sweep direction.
// When the sweep runs off the last entry it reverses and restarts from the
// first entry. Once an entry is chosen the direction is reset to outward,
// so a reversal is never carried into the next cycle.
type Elevator struct {
	geom  geometry.Geometry
	state ScanState
}

// NewElevator creates a scheduler that starts sweeping outward.
func NewElevator(g geometry.Geometry) *Elevator {
	return &Elevator{geom: g, state: ScanState{Direction: Outward}}
}

// State returns the current scan state.
func (e *Elevator) State() ScanState {
	return e.state
}

// SetState overrides the scan state.
func (e *Elevator) SetState(s ScanState) {
	if s.Direction != Inward {
		s.Direction = Outward
	}
	e.state = s
}

// SelectNext chooses the next request to service given the cylinder under
// the heads. The queue is not modified. At most two sweeps are made: if the
// first finds nothing, every entry is behind the head, and the reversed
// comparison is satisfied by the first entry of the second.
func (e *Elevator) SelectNext(q *queue.Pending, head int) (Selection, error) {
	if q.Empty() {
		return Selection{}, ErrEmptyQueue
	}

	sel := Selection{Ref: queue.NilRef}
	for sweep := 0; sweep < 2; sweep++ {
		sign := int(e.state.Direction)
		for ref := q.First(); ref != queue.NilRef; ref = q.Next(ref) {
			req, _ := q.Get(ref)
			sel.Visited++

			cyl := e.geom.Cylinder(req.Block)
			if head*sign > cyl*sign {
				continue
			}

			sel.Ref = ref
			sel.Request = req
			sel.Address = e.geom.Translate(req.Block)
			e.state.Direction = Outward
			return sel, nil
		}

		e.state.Direction = -e.state.Direction
		sel.Reversed = !sel.Reversed
	}

	return sel, errNoCandidate
}
