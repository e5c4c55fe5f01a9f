package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/go-diskdrv/internal/geometry"
	"github.com/ehrlich-b/go-diskdrv/internal/queue"
	"github.com/ehrlich-b/go-diskdrv/internal/request"
)

func fill(t *testing.T, blocks ...int) *queue.Pending {
	t.Helper()
	q := queue.New(0)
	for i, b := range blocks {
		_, err := q.Insert(request.Request{Op: request.OpRead, ID: i + 1, Block: b, Size: 2, Buffer: 1})
		require.NoError(t, err)
	}
	return q
}

// drain services the whole queue the way the dispatcher does: the head
// moves to each chosen cylinder and the entry is removed.
func drain(t *testing.T, e *Elevator, q *queue.Pending, head int) []int {
	t.Helper()
	var order []int
	for !q.Empty() {
		sel, err := e.SelectNext(q, head)
		require.NoError(t, err)
		order = append(order, sel.Request.Block)
		head = sel.Address.Cylinder
		_, err = q.Remove(sel.Ref)
		require.NoError(t, err)
	}
	return order
}

func TestSelectNextEmptyQueue(t *testing.T) {
	e := NewElevator(geometry.Default())
	_, err := e.SelectNext(queue.New(0), 0)
	assert.ErrorIs(t, err, ErrEmptyQueue)
}

func TestEndToEndOrderFromCylinderZero(t *testing.T) {
	e := NewElevator(geometry.Default())
	q := fill(t, 50, 10, 30)

	assert.Equal(t, []int{10, 30, 50}, drain(t, e, q, 0))
}

func TestSelectAheadOfHead(t *testing.T) {
	e := NewElevator(geometry.Default())
	q := fill(t, 10, 30, 50, 100)

	sel, err := e.SelectNext(q, 4)
	require.NoError(t, err)
	assert.Equal(t, 50, sel.Request.Block)
	assert.Equal(t, 5, sel.Address.Cylinder)
	assert.False(t, sel.Reversed)
	assert.Equal(t, 3, sel.Visited)
}

func TestSameCylinderCountsAsAhead(t *testing.T) {
	e := NewElevator(geometry.Default())
	q := fill(t, 10, 28, 30)

	sel, err := e.SelectNext(q, 3)
	require.NoError(t, err)
	assert.Equal(t, 28, sel.Request.Block)
}

func TestReversalPicksLowestBlockAndResets(t *testing.T) {
	e := NewElevator(geometry.Default())
	q := fill(t, 10, 30, 50)

	sel, err := e.SelectNext(q, 20)
	require.NoError(t, err)
	assert.True(t, sel.Reversed)
	assert.Equal(t, 10, sel.Request.Block)
	assert.Equal(t, 4, sel.Visited)
	assert.Equal(t, Outward, e.State().Direction, "direction resets after every choice")
}

func TestReversalIsNotRemembered(t *testing.T) {
	e := NewElevator(geometry.Default())
	q := fill(t, 10, 30, 50, 300)

	// Head at 33: only block 300 (C33) is not behind it. After servicing it
	// the next pick reverses and takes the lowest block, then the sweep
	// starts outward again from cylinder 1.
	assert.Equal(t, []int{300, 10, 30, 50}, drain(t, e, q, 33))
}

func TestInwardStateSweepsDown(t *testing.T) {
	e := NewElevator(geometry.Default())
	e.SetState(ScanState{Direction: Inward})
	q := fill(t, 10, 30, 50)

	sel, err := e.SelectNext(q, 4)
	require.NoError(t, err)
	assert.Equal(t, 10, sel.Request.Block)
	assert.False(t, sel.Reversed)
	assert.Equal(t, Outward, e.State().Direction)

	e.SetState(ScanState{Direction: Inward})
	sel, err = e.SelectNext(q, 0)
	require.NoError(t, err)
	assert.True(t, sel.Reversed)
	assert.Equal(t, 10, sel.Request.Block)
}

func TestSetStateNormalizesDirection(t *testing.T) {
	e := NewElevator(geometry.Default())
	e.SetState(ScanState{Direction: 0})
	assert.Equal(t, Outward, e.State().Direction)
}

func TestSelectNextTerminatesWithinTwoSweeps(t *testing.T) {
	g := geometry.Default()
	seed := uint32(12345)
	next := func(n int) int {
		seed = seed*1664525 + 1013904223
		return int(seed>>8) % n
	}

	for trial := 0; trial < 200; trial++ {
		n := 1 + next(12)
		var bs []int
		for i := 0; i < n; i++ {
			bs = append(bs, next(g.Capacity()+40)-20)
		}
		q := fill(t, bs...)
		head := next(g.CylindersPerDisk)

		for _, dir := range []Direction{Outward, Inward} {
			e := NewElevator(g)
			e.SetState(ScanState{Direction: dir})
			sel, err := e.SelectNext(q, head)
			require.NoError(t, err, "blocks %v head %d", bs, head)
			require.LessOrEqual(t, sel.Visited, 2*n)
			got, ok := q.Get(sel.Ref)
			require.True(t, ok)
			require.Equal(t, sel.Request, got)
		}
	}
}
