package node

import "scorenet/internal/tuple"

// Queue holds the pending output events of one node and owns its output
// tuples.
//
// A retracted tuple that was never propagated is aborted: it is dropped on
// the insert pass without its children ever seeing it. An update of a tuple
// that is still waiting for its insert is absorbed by that insert.
type Queue struct {
	arena     *tuple.Arena
	storeSize int
	next      Lifecycle

	retracts []*tuple.Tuple
	updates  []*tuple.Tuple
	inserts  []*tuple.Tuple
}

// NewQueue creates a queue whose tuples carry storeSize store slots and
// whose events go to next.
func NewQueue(storeSize int, next Lifecycle) *Queue {
	if next == nil {
		next = Discard
	}
	return &Queue{arena: tuple.NewArena(), storeSize: storeSize, next: next}
}

func (q *Queue) newTuple(facts []any) *tuple.Tuple {
	return q.arena.New(facts, q.storeSize)
}

func (q *Queue) resolve(h tuple.Handle) *tuple.Tuple {
	return q.arena.MustGet(h)
}

func (q *Queue) emitInsert(t *tuple.Tuple) {
	if t.State != tuple.StateCreating {
		panic(tuple.IllegalState("the tuple (%s) cannot be inserted twice", t))
	}
	q.inserts = append(q.inserts, t)
}

func (q *Queue) emitUpdate(t *tuple.Tuple) {
	switch t.State {
	case tuple.StateCreating, tuple.StateUpdating:
	case tuple.StateOK:
		t.State = tuple.StateUpdating
		q.updates = append(q.updates, t)
	default:
		panic(tuple.IllegalState("the tuple (%s) cannot be updated", t))
	}
}

func (q *Queue) emitRetract(t *tuple.Tuple) {
	switch t.State {
	case tuple.StateCreating:
		t.State = tuple.StateAborting
	case tuple.StateOK, tuple.StateUpdating:
		t.State = tuple.StateDying
		q.retracts = append(q.retracts, t)
	default:
		panic(tuple.IllegalState("the tuple (%s) cannot be retracted", t))
	}
}

// PropagateRetracts implements Propagator.
func (q *Queue) PropagateRetracts() {
	for i, t := range q.retracts {
		q.next.Retract(t)
		q.arena.Release(t)
		q.retracts[i] = nil
	}
	q.retracts = q.retracts[:0]
}

// PropagateUpdates implements Propagator.
func (q *Queue) PropagateUpdates() {
	for i, t := range q.updates {
		if t.State == tuple.StateUpdating {
			t.State = tuple.StateOK
			q.next.Update(t)
		}
		q.updates[i] = nil
	}
	q.updates = q.updates[:0]
}

// PropagateInserts implements Propagator.
func (q *Queue) PropagateInserts() {
	for i, t := range q.inserts {
		switch t.State {
		case tuple.StateCreating:
			t.State = tuple.StateOK
			q.next.Insert(t)
		case tuple.StateAborting:
			q.arena.Release(t)
		}
		q.inserts[i] = nil
	}
	q.inserts = q.inserts[:0]
}

// Pending reports whether any event waits for propagation.
func (q *Queue) Pending() bool {
	return len(q.retracts)+len(q.updates)+len(q.inserts) > 0
}

// Size returns the number of output tuples the node currently owns,
// including those still waiting to be propagated or released.
func (q *Queue) Size() int {
	return q.arena.Len()
}

// ForEachOutput visits every output tuple known downstream.
func (q *Queue) ForEachOutput(fn func(t *tuple.Tuple)) {
	q.arena.ForEach(func(t *tuple.Tuple) {
		if t.State == tuple.StateOK {
			fn(t)
		}
	})
}
