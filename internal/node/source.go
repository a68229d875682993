package node

import "scorenet/internal/tuple"

// Source turns raw facts of one class into arity-1 tuples.
// It is the only kind of node in layer 0.
type Source struct {
	*Queue
	name   string
	accept func(fact any) bool
	facts  map[any]tuple.Handle
}

// NewSource creates a source node. A nil accept lets every fact through;
// otherwise facts failing accept are remembered but not propagated until an
// update makes them pass.
func NewSource(name string, accept func(fact any) bool, storeSize int, next Lifecycle) *Source {
	return &Source{
		Queue:  NewQueue(storeSize, next),
		name:   name,
		accept: accept,
		facts:  make(map[any]tuple.Handle),
	}
}

func (n *Source) String() string {
	return n.name
}

func (n *Source) accepts(fact any) bool {
	if n.accept == nil {
		return true
	}
	defer wrapPanic(n.name, []any{fact})
	return n.accept(fact)
}

// InsertFact inserts a fact. Inserting a known fact panics.
func (n *Source) InsertFact(fact any) {
	if _, ok := n.facts[fact]; ok {
		panic(tuple.IllegalState("the fact (%v) was already inserted into node (%s)", fact, n.name))
	}
	var h tuple.Handle
	if n.accepts(fact) {
		h = n.create(fact)
	}
	n.facts[fact] = h
}

// UpdateFact signals that a fact changed in place.
func (n *Source) UpdateFact(fact any) {
	h, ok := n.facts[fact]
	if !ok {
		panic(tuple.IllegalState("the fact (%v) was never inserted into node (%s)", fact, n.name))
	}
	pass := n.accepts(fact)
	switch {
	case h.IsZero() && pass:
		n.facts[fact] = n.create(fact)
	case h.IsZero():
	case pass:
		n.emitUpdate(n.resolve(h))
	default:
		n.emitRetract(n.resolve(h))
		n.facts[fact] = tuple.Handle{}
	}
}

// RetractFact removes a fact.
func (n *Source) RetractFact(fact any) {
	h, ok := n.facts[fact]
	if !ok {
		panic(tuple.IllegalState("the fact (%v) was never inserted into node (%s)", fact, n.name))
	}
	delete(n.facts, fact)
	if !h.IsZero() {
		n.emitRetract(n.resolve(h))
	}
}

// Facts returns the number of facts the node knows, passing or not.
func (n *Source) Facts() int {
	return len(n.facts)
}

func (n *Source) create(fact any) tuple.Handle {
	t := n.newTuple([]any{fact})
	n.emitInsert(t)
	return t.Handle()
}
