package node

import "scorenet/internal/tuple"

// Filter forwards the tuples for which its predicate holds.
//
// The input slot holds the handle of the output tuple, or the zero handle
// when the input was seen but filtered out.
type Filter struct {
	*Queue
	name      string
	slot      int
	predicate func(facts []any) bool
}

// NewFilter creates a filter node reading its bookkeeping from slot.
func NewFilter(name string, slot int, predicate func(facts []any) bool, storeSize int, next Lifecycle) *Filter {
	return &Filter{Queue: NewQueue(storeSize, next), name: name, slot: slot, predicate: predicate}
}

func (n *Filter) String() string {
	return n.name
}

func (n *Filter) Insert(in *tuple.Tuple) {
	mustBeNew(n.name, in, n.slot)
	var h tuple.Handle
	if test(n.name, n.predicate, in.Facts) {
		h = n.create(in)
	}
	in.Set(n.slot, h)
}

func (n *Filter) Update(in *tuple.Tuple) {
	v := in.Get(n.slot)
	mustBeKnown(n.name, in, v)
	h := v.(tuple.Handle)
	pass := test(n.name, n.predicate, in.Facts)
	switch {
	case h.IsZero() && pass:
		in.Set(n.slot, n.create(in))
	case h.IsZero():
	case pass:
		out := n.resolve(h)
		out.Facts = in.Facts
		n.emitUpdate(out)
	default:
		n.emitRetract(n.resolve(h))
		in.Set(n.slot, tuple.Handle{})
	}
}

func (n *Filter) Retract(in *tuple.Tuple) {
	v := in.Remove(n.slot)
	mustBeKnown(n.name, in, v)
	if h := v.(tuple.Handle); !h.IsZero() {
		n.emitRetract(n.resolve(h))
	}
}

func (n *Filter) create(in *tuple.Tuple) tuple.Handle {
	out := n.newTuple(in.Facts)
	n.emitInsert(out)
	return out.Handle()
}
