package node

import (
	"scorenet/internal/collect"
	"scorenet/internal/index"
	"scorenet/internal/tuple"
)

// Group folds its input tuples into one output tuple per distinct key.
// Output facts are the key parts followed by one result per collector.
//
// Collector results are computed lazily, once per propagation, for the groups
// whose output is being created or updated. A group losing its last member is
// retracted immediately; a later member with the same key starts a new group.
type Group struct {
	*Queue
	name       string
	slot       int
	keys       []func(facts []any) any
	collectors []collect.Collector
	groups     map[any]*group
	dirty      []*group
}

type group struct {
	key        any
	keyFacts   []any
	containers []any
	members    int
	out        *tuple.Tuple
	dirty      bool
}

// groupMember is the bookkeeping of one input tuple, kept in its slot.
type groupMember struct {
	group *group
	undos []collect.Undo
}

// NewGroup creates a group node. With no keys every input lands in a single
// group; with no collectors the node emits the distinct keys.
func NewGroup(name string, slot int, keys []func(facts []any) any, collectors []collect.Collector,
	storeSize int, next Lifecycle) *Group {
	return &Group{
		Queue:      NewQueue(storeSize, next),
		name:       name,
		slot:       slot,
		keys:       keys,
		collectors: collectors,
		groups:     make(map[any]*group),
	}
}

func (n *Group) String() string {
	return n.name
}

// Groups returns the number of live groups.
func (n *Group) Groups() int {
	return len(n.groups)
}

func (n *Group) Insert(in *tuple.Tuple) {
	mustBeNew(n.name, in, n.slot)
	keyFacts := n.keyFacts(in)
	n.join(in, keyFacts, index.Key(keyFacts...))
}

func (n *Group) Update(in *tuple.Tuple) {
	v := in.Get(n.slot)
	mustBeKnown(n.name, in, v)
	m := v.(*groupMember)
	n.undo(in, m)
	keyFacts := n.keyFacts(in)
	key := index.Key(keyFacts...)
	if key == m.group.key {
		m.undos = n.accumulate(in, m.group)
		n.touch(m.group)
		return
	}
	in.Remove(n.slot)
	n.leave(m.group)
	n.join(in, keyFacts, key)
}

func (n *Group) Retract(in *tuple.Tuple) {
	v := in.Remove(n.slot)
	mustBeKnown(n.name, in, v)
	m := v.(*groupMember)
	n.undo(in, m)
	n.leave(m.group)
}

func (n *Group) keyFacts(in *tuple.Tuple) []any {
	keyFacts := make([]any, len(n.keys))
	for i, k := range n.keys {
		keyFacts[i] = mustHash(n.name, in.Facts, apply(n.name, k, in.Facts))
	}
	return keyFacts
}

func (n *Group) join(in *tuple.Tuple, keyFacts []any, key any) {
	g, ok := n.groups[key]
	if !ok {
		g = &group{key: key, keyFacts: keyFacts, containers: make([]any, len(n.collectors))}
		for i, c := range n.collectors {
			g.containers[i] = c.NewContainer()
		}
		g.out = n.newTuple(nil)
		n.groups[key] = g
		n.emitInsert(g.out)
	}
	g.members++
	in.Set(n.slot, &groupMember{group: g, undos: n.accumulate(in, g)})
	n.touch(g)
}

func (n *Group) leave(g *group) {
	g.members--
	if g.members > 0 {
		n.touch(g)
		return
	}
	delete(n.groups, g.key)
	n.emitRetract(g.out)
}

func (n *Group) accumulate(in *tuple.Tuple, g *group) []collect.Undo {
	if len(n.collectors) == 0 {
		return nil
	}
	defer wrapPanic(n.name, in.Facts)
	undos := make([]collect.Undo, len(n.collectors))
	for i, c := range n.collectors {
		undos[i] = c.Accumulate(g.containers[i], in.Facts)
	}
	return undos
}

func (n *Group) undo(in *tuple.Tuple, m *groupMember) {
	defer wrapPanic(n.name, in.Facts)
	for i := len(m.undos) - 1; i >= 0; i-- {
		m.undos[i].Undo()
	}
	m.undos = nil
}

// touch schedules g for an update and for a fresh finish.
func (n *Group) touch(g *group) {
	n.emitUpdate(g.out)
	if !g.dirty {
		g.dirty = true
		n.dirty = append(n.dirty, g)
	}
}

func (n *Group) finish(g *group) {
	defer wrapPanic(n.name, g.keyFacts)
	facts := make([]any, 0, len(g.keyFacts)+len(n.collectors))
	facts = append(facts, g.keyFacts...)
	for i, c := range n.collectors {
		facts = append(facts, c.Finish(g.containers[i]))
	}
	g.out.Facts = facts
}

// PropagateRetracts finishes the groups touched since the last propagation
// before flushing the queue.
func (n *Group) PropagateRetracts() {
	for i, g := range n.dirty {
		g.dirty = false
		if s := g.out.State; s == tuple.StateCreating || s == tuple.StateUpdating {
			n.finish(g)
		}
		n.dirty[i] = nil
	}
	n.dirty = n.dirty[:0]
	n.Queue.PropagateRetracts()
}
