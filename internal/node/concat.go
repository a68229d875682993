package node

import "scorenet/internal/tuple"

// Concat merges two streams into one. The output arity is the larger of the
// two input arities; facts of the shorter side are padded with nil.
type Concat struct {
	*Queue
	name  string
	arity int
	left  concatSide
	right concatSide
}

type concatSide struct {
	n    *Concat
	slot int
}

// NewConcat creates a concat node producing tuples of the given arity.
func NewConcat(name string, leftSlot, rightSlot, arity, storeSize int, next Lifecycle) *Concat {
	n := &Concat{Queue: NewQueue(storeSize, next), name: name, arity: arity}
	n.left = concatSide{n: n, slot: leftSlot}
	n.right = concatSide{n: n, slot: rightSlot}
	return n
}

func (n *Concat) String() string {
	return n.name
}

// Left returns the lifecycle of the left input.
func (n *Concat) Left() Lifecycle {
	return n.left
}

// Right returns the lifecycle of the right input.
func (n *Concat) Right() Lifecycle {
	return n.right
}

func (n *Concat) pad(facts []any) []any {
	if len(facts) == n.arity {
		return facts
	}
	padded := make([]any, n.arity)
	copy(padded, facts)
	return padded
}

func (s concatSide) Insert(in *tuple.Tuple) {
	mustBeNew(s.n.name, in, s.slot)
	out := s.n.newTuple(s.n.pad(in.Facts))
	in.Set(s.slot, out.Handle())
	s.n.emitInsert(out)
}

func (s concatSide) Update(in *tuple.Tuple) {
	v := in.Get(s.slot)
	mustBeKnown(s.n.name, in, v)
	out := s.n.resolve(v.(tuple.Handle))
	out.Facts = s.n.pad(in.Facts)
	s.n.emitUpdate(out)
}

func (s concatSide) Retract(in *tuple.Tuple) {
	v := in.Remove(s.slot)
	mustBeKnown(s.n.name, in, v)
	s.n.emitRetract(s.n.resolve(v.(tuple.Handle)))
}
