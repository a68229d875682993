package tuple

import "fmt"

// Handle is a stable, generation-checked reference to a tuple owned by an Arena.
// The zero Handle never resolves.
type Handle struct {
	index uint32
	gen   uint32
}

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool {
	return h.gen == 0
}

func (h Handle) String() string {
	return fmt.Sprintf("#%d@%d", h.index, h.gen)
}

type arenaSlot struct {
	tuple *Tuple
	gen   uint32
}

// Arena owns the tuples produced by one node.
//
// Slots are recycled after release, but every release bumps the slot
// generation, so a handle kept past its tuple's death fails to resolve
// instead of silently pointing at an unrelated tuple.
type Arena struct {
	slots []arenaSlot
	free  []uint32
	live  int
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// New allocates a tuple in the CREATING state and registers it in the arena.
func (a *Arena) New(facts []any, storeSize int) *Tuple {
	t := New(facts, storeSize)
	var index uint32
	if n := len(a.free); n > 0 {
		index = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		index = uint32(len(a.slots))
		a.slots = append(a.slots, arenaSlot{gen: 0})
	}
	slot := &a.slots[index]
	slot.gen++
	slot.tuple = t
	t.handle = Handle{index: index, gen: slot.gen}
	a.live++
	return t
}

// Get resolves h. It returns false when the handle is zero or stale.
func (a *Arena) Get(h Handle) (*Tuple, bool) {
	if h.IsZero() || int(h.index) >= len(a.slots) {
		return nil, false
	}
	slot := a.slots[h.index]
	if slot.gen != h.gen || slot.tuple == nil {
		return nil, false
	}
	return slot.tuple, true
}

// MustGet resolves h and panics on a stale or foreign handle.
func (a *Arena) MustGet(h Handle) *Tuple {
	t, ok := a.Get(h)
	if !ok {
		panic(IllegalState("tuple handle (%s) is stale or does not belong to this arena", h))
	}
	return t
}

// Release marks t dead and frees its slot.
func (a *Arena) Release(t *Tuple) {
	h := t.handle
	if _, ok := a.Get(h); !ok {
		panic(IllegalState("tuple (%s) with handle (%s) is released twice or not owned by this arena", t, h))
	}
	t.State = StateDead
	a.slots[h.index].tuple = nil
	a.free = append(a.free, h.index)
	a.live--
}

// Len returns the number of live tuples.
func (a *Arena) Len() int {
	return a.live
}

// ForEach calls fn for every live tuple in slot order.
func (a *Arena) ForEach(fn func(t *Tuple)) {
	for _, slot := range a.slots {
		if slot.tuple != nil {
			fn(slot.tuple)
		}
	}
}
