package node

import (
	"scorenet/internal/index"
	"scorenet/internal/linked"
	"scorenet/internal/tuple"
)

// Exists is a semi-join: it forwards a left tuple, facts unchanged, while at
// least one matching right tuple exists (ifExists) or while none does
// (ifNotExists).
//
// Every left tuple keeps a counter of its current right matches. Without a
// filter the counter is maintained from bucket sizes alone; with a filter the
// individual matching pairs are tracked so updates can re-evaluate them.
type Exists struct {
	*Queue
	name        string
	shouldExist bool
	filter      func(left, right []any) bool
	leftSlot    int
	rightSlot   int
	leftKey     index.KeyFunc
	rightKey    index.KeyFunc
	leftIndex   index.Indexer[*existsLeft]
	rightIndex  index.Indexer[*existsRight]
}

type existsLeft struct {
	t     *tuple.Tuple
	key   any
	entry *linked.Entry[*existsLeft]
	count int
	out   tuple.Handle
	pairs *linked.List[*existsPair]
}

type existsRight struct {
	t     *tuple.Tuple
	key   any
	entry *linked.Entry[*existsRight]
	pairs *linked.List[*existsPair]
}

type existsPair struct {
	left       *existsLeft
	right      *existsRight
	leftEntry  *linked.Entry[*existsPair]
	rightEntry *linked.Entry[*existsPair]
}

// NewExists creates an ifExists (shouldExist) or ifNotExists node.
func NewExists(cfg JoinConfig, shouldExist bool, storeSize int, next Lifecycle) *Exists {
	return &Exists{
		Queue:       NewQueue(storeSize, next),
		name:        cfg.Name,
		shouldExist: shouldExist,
		filter:      cfg.Filter,
		leftSlot:    cfg.LeftSlot,
		rightSlot:   cfg.RightSlot,
		leftKey:     cfg.LeftKey,
		rightKey:    cfg.RightKey,
		leftIndex:   newIndexer[*existsLeft](cfg.indexed()),
		rightIndex:  newIndexer[*existsRight](cfg.indexed()),
	}
}

func (n *Exists) String() string {
	return n.name
}

// Left returns the lifecycle of the left input.
func (n *Exists) Left() Lifecycle {
	return existsLeftInput{n}
}

// Right returns the lifecycle of the right input.
func (n *Exists) Right() Lifecycle {
	return existsRightInput{n}
}

type existsLeftInput struct{ n *Exists }

func (i existsLeftInput) Insert(t *tuple.Tuple)  { i.n.insertLeft(t) }
func (i existsLeftInput) Update(t *tuple.Tuple)  { i.n.updateLeft(t) }
func (i existsLeftInput) Retract(t *tuple.Tuple) { i.n.retractLeft(t) }

type existsRightInput struct{ n *Exists }

func (i existsRightInput) Insert(t *tuple.Tuple)  { i.n.insertRight(t) }
func (i existsRightInput) Update(t *tuple.Tuple)  { i.n.updateRight(t) }
func (i existsRightInput) Retract(t *tuple.Tuple) { i.n.retractRight(t) }

func (n *Exists) matches(l *existsLeft, r *existsRight) bool {
	if n.filter == nil {
		return true
	}
	return test2(n.name, n.filter, l.t.Facts, r.t.Facts)
}

func (n *Exists) pair(l *existsLeft, r *existsRight) {
	p := &existsPair{left: l, right: r}
	p.leftEntry = l.pairs.Add(p)
	p.rightEntry = r.pairs.Add(p)
	l.count++
}

func (n *Exists) unpair(p *existsPair) {
	p.leftEntry.Remove()
	p.rightEntry.Remove()
	p.left.count--
}

// reconcile makes the output of l agree with its counter.
// It returns true when l had an output before and still has it.
func (n *Exists) reconcile(l *existsLeft) bool {
	want := (l.count > 0) == n.shouldExist
	has := !l.out.IsZero()
	switch {
	case want && !has:
		out := n.newTuple(l.t.Facts)
		l.out = out.Handle()
		n.emitInsert(out)
	case !want && has:
		n.emitRetract(n.resolve(l.out))
		l.out = tuple.Handle{}
	}
	return want && has
}

func (n *Exists) insertLeft(t *tuple.Tuple) {
	mustBeNew(n.name, t, n.leftSlot)
	n.addLeft(t, keyOf(n.name, n.leftKey, t.Facts))
}

func (n *Exists) addLeft(t *tuple.Tuple, key any) {
	l := &existsLeft{t: t, key: key}
	l.entry = n.leftIndex.Put(key, l)
	t.Set(n.leftSlot, l)
	if n.filter == nil {
		l.count = n.rightIndex.Size(key)
	} else {
		l.pairs = linked.New[*existsPair]()
		n.rightIndex.ForEach(key, func(r *existsRight) {
			if n.matches(l, r) {
				n.pair(l, r)
			}
		})
	}
	n.reconcile(l)
}

func (n *Exists) updateLeft(t *tuple.Tuple) {
	v := t.Get(n.leftSlot)
	mustBeKnown(n.name, t, v)
	l := v.(*existsLeft)
	key := keyOf(n.name, n.leftKey, t.Facts)
	if key != l.key {
		n.removeLeft(l)
		n.addLeft(t, key)
		return
	}
	if n.filter != nil {
		l.pairs.ForEach(n.unpair)
		n.rightIndex.ForEach(key, func(r *existsRight) {
			if n.matches(l, r) {
				n.pair(l, r)
			}
		})
	}
	if n.reconcile(l) {
		out := n.resolve(l.out)
		out.Facts = t.Facts
		n.emitUpdate(out)
	}
}

func (n *Exists) retractLeft(t *tuple.Tuple) {
	v := t.Get(n.leftSlot)
	mustBeKnown(n.name, t, v)
	n.removeLeft(v.(*existsLeft))
}

func (n *Exists) removeLeft(l *existsLeft) {
	l.t.Remove(n.leftSlot)
	n.leftIndex.Remove(l.key, l.entry)
	if l.pairs != nil {
		l.pairs.ForEach(n.unpair)
	}
	if !l.out.IsZero() {
		n.emitRetract(n.resolve(l.out))
		l.out = tuple.Handle{}
	}
}

func (n *Exists) insertRight(t *tuple.Tuple) {
	mustBeNew(n.name, t, n.rightSlot)
	n.addRight(t, keyOf(n.name, n.rightKey, t.Facts))
}

func (n *Exists) addRight(t *tuple.Tuple, key any) {
	r := &existsRight{t: t, key: key}
	r.entry = n.rightIndex.Put(key, r)
	t.Set(n.rightSlot, r)
	if n.filter == nil {
		n.leftIndex.ForEach(key, func(l *existsLeft) {
			l.count++
			n.reconcile(l)
		})
		return
	}
	r.pairs = linked.New[*existsPair]()
	n.leftIndex.ForEach(key, func(l *existsLeft) {
		if n.matches(l, r) {
			n.pair(l, r)
			n.reconcile(l)
		}
	})
}

func (n *Exists) updateRight(t *tuple.Tuple) {
	v := t.Get(n.rightSlot)
	mustBeKnown(n.name, t, v)
	r := v.(*existsRight)
	key := keyOf(n.name, n.rightKey, t.Facts)
	if key != r.key {
		n.removeRight(r)
		n.addRight(t, key)
		return
	}
	if n.filter == nil {
		return
	}
	existing := make(map[*existsLeft]*existsPair, r.pairs.Len())
	r.pairs.ForEach(func(p *existsPair) {
		existing[p.left] = p
	})
	n.leftIndex.ForEach(key, func(l *existsLeft) {
		p, paired := existing[l]
		pass := n.matches(l, r)
		switch {
		case paired && !pass:
			n.unpair(p)
			n.reconcile(l)
		case !paired && pass:
			n.pair(l, r)
			n.reconcile(l)
		}
	})
}

func (n *Exists) retractRight(t *tuple.Tuple) {
	v := t.Get(n.rightSlot)
	mustBeKnown(n.name, t, v)
	n.removeRight(v.(*existsRight))
}

func (n *Exists) removeRight(r *existsRight) {
	r.t.Remove(n.rightSlot)
	n.rightIndex.Remove(r.key, r.entry)
	if n.filter == nil {
		n.leftIndex.ForEach(r.key, func(l *existsLeft) {
			l.count--
			n.reconcile(l)
		})
		return
	}
	r.pairs.ForEach(func(p *existsPair) {
		n.unpair(p)
		n.reconcile(p.left)
	})
}
