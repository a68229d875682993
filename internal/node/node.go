// Package node implements the stateful operators of the score network.
//
// A node receives tuple events from its parents through a Lifecycle and
// queues its own output events in a Queue until the session propagates the
// node's layer. Every node owns the tuples it creates; the per-input
// bookkeeping it needs lives in the store slot it reserved on its parent's
// tuples.
package node

import "scorenet/internal/tuple"

// Lifecycle receives the tuple events of one input of a node.
type Lifecycle interface {
	Insert(t *tuple.Tuple)
	Update(t *tuple.Tuple)
	Retract(t *tuple.Tuple)
}

// Propagator flushes the queued output events of a node to its children.
// Within one layer, all retracts are propagated before all updates, and all
// updates before all inserts.
type Propagator interface {
	PropagateRetracts()
	PropagateUpdates()
	PropagateInserts()
}

type fanOut []Lifecycle

// FanOut delivers every event to each of the given lifecycles, in order.
func FanOut(children ...Lifecycle) Lifecycle {
	if len(children) == 1 {
		return children[0]
	}
	return fanOut(children)
}

func (f fanOut) Insert(t *tuple.Tuple) {
	for _, l := range f {
		l.Insert(t)
	}
}

func (f fanOut) Update(t *tuple.Tuple) {
	for _, l := range f {
		l.Update(t)
	}
}

func (f fanOut) Retract(t *tuple.Tuple) {
	for _, l := range f {
		l.Retract(t)
	}
}

type discard struct{}

func (discard) Insert(*tuple.Tuple)  {}
func (discard) Update(*tuple.Tuple)  {}
func (discard) Retract(*tuple.Tuple) {}

// Discard is the Lifecycle of a node without children.
var Discard Lifecycle = discard{}

func mustBeNew(node string, t *tuple.Tuple, slot int) {
	if t.Get(slot) != nil {
		panic(tuple.IllegalState("the tuple (%s) was already inserted into node (%s)", t, node))
	}
}

func mustBeKnown(node string, t *tuple.Tuple, v any) {
	if v == nil {
		panic(tuple.IllegalState("the tuple (%s) was never inserted into node (%s)", t, node))
	}
}
