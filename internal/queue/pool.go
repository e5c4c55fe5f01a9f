package queue

import "github.com/ehrlich-b/go-diskdrv/internal/request"

// slotPool is the index-based arena backing the pending list. Released
// slots go on a free list and are handed out again before the arena grows,
// so a long-running driver settles at its high-water mark.
//
// Slots 0 and 1 hold the head and tail sentinels and are never released.

type slotKind uint8

const (
	slotFree slotKind = iota
	slotHead
	slotTail
	slotEntry
)

type slot struct {
	req  request.Request
	next Ref
	kind slotKind
}

type slotPool struct {
	slots []slot
	free  []Ref
	limit int // maximum live entries, 0 for no limit
	live  int
}

func newSlotPool(limit int) slotPool {
	p := slotPool{
		slots: make([]slot, 2, 2+initialSlots(limit)),
		limit: limit,
	}
	p.slots[headRef] = slot{kind: slotHead, next: tailRef}
	p.slots[tailRef] = slot{kind: slotTail, next: NilRef}
	return p
}

func initialSlots(limit int) int {
	if limit > 0 && limit < 64 {
		return limit
	}
	return 64
}

// get takes a slot for req, or reports false when the limit is reached.
func (p *slotPool) get(req request.Request) (Ref, bool) {
	if p.limit > 0 && p.live >= p.limit {
		return NilRef, false
	}

	var ref Ref
	if n := len(p.free); n > 0 {
		ref = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		ref = Ref(len(p.slots))
		p.slots = append(p.slots, slot{})
	}

	p.slots[ref] = slot{req: req, next: NilRef, kind: slotEntry}
	p.live++
	return ref, true
}

// put releases an entry slot back to the free list.
func (p *slotPool) put(ref Ref) {
	p.slots[ref] = slot{kind: slotFree, next: NilRef}
	p.free = append(p.free, ref)
	p.live--
}

func (p *slotPool) isEntry(ref Ref) bool {
	return ref >= 0 && int(ref) < len(p.slots) && p.slots[ref].kind == slotEntry
}
