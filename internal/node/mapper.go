package node

import "scorenet/internal/tuple"

// Map replaces the facts of every tuple with the results of its mapping
// functions, one output fact per function.
type Map struct {
	*Queue
	name     string
	slot     int
	mappings []func(facts []any) any
}

// NewMap creates a map node.
func NewMap(name string, slot int, mappings []func(facts []any) any, storeSize int, next Lifecycle) *Map {
	return &Map{Queue: NewQueue(storeSize, next), name: name, slot: slot, mappings: mappings}
}

func (n *Map) String() string {
	return n.name
}

func (n *Map) mapFacts(in *tuple.Tuple) []any {
	facts := make([]any, len(n.mappings))
	for i, m := range n.mappings {
		facts[i] = apply(n.name, m, in.Facts)
	}
	return facts
}

func (n *Map) Insert(in *tuple.Tuple) {
	mustBeNew(n.name, in, n.slot)
	out := n.newTuple(n.mapFacts(in))
	in.Set(n.slot, out.Handle())
	n.emitInsert(out)
}

func (n *Map) Update(in *tuple.Tuple) {
	v := in.Get(n.slot)
	mustBeKnown(n.name, in, v)
	out := n.resolve(v.(tuple.Handle))
	out.Facts = n.mapFacts(in)
	n.emitUpdate(out)
}

func (n *Map) Retract(in *tuple.Tuple) {
	v := in.Remove(n.slot)
	mustBeKnown(n.name, in, v)
	n.emitRetract(n.resolve(v.(tuple.Handle)))
}
