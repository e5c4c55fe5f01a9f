package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/go-diskdrv/internal/request"
)

func TestSlotPoolSentinels(t *testing.T) {
	p := newSlotPool(0)
	require.Len(t, p.slots, 2)
	assert.Equal(t, slotHead, p.slots[headRef].kind)
	assert.Equal(t, slotTail, p.slots[tailRef].kind)
	assert.Equal(t, tailRef, p.slots[headRef].next)
	assert.False(t, p.isEntry(headRef))
	assert.False(t, p.isEntry(tailRef))
}

func TestSlotPoolReuse(t *testing.T) {
	p := newSlotPool(0)

	a, ok := p.get(request.Request{Block: 1})
	require.True(t, ok)
	b, ok := p.get(request.Request{Block: 2})
	require.True(t, ok)
	assert.Equal(t, 2, p.live)

	p.put(a)
	assert.Equal(t, 1, p.live)
	assert.False(t, p.isEntry(a))

	c, ok := p.get(request.Request{Block: 3})
	require.True(t, ok)
	assert.Equal(t, a, c, "freed slot should be reused before growing")
	assert.NotEqual(t, b, c)
	assert.Len(t, p.slots, 4)
}

func TestSlotPoolLimit(t *testing.T) {
	p := newSlotPool(2)

	_, ok := p.get(request.Request{})
	require.True(t, ok)
	second, ok := p.get(request.Request{})
	require.True(t, ok)
	_, ok = p.get(request.Request{})
	assert.False(t, ok)

	p.put(second)
	_, ok = p.get(request.Request{})
	assert.True(t, ok)
}
