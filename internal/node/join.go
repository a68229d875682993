package node

import (
	"scorenet/internal/index"
	"scorenet/internal/linked"
	"scorenet/internal/tuple"
)

// Join pairs every left tuple with every right tuple sharing its key and
// passing the optional filter. Output facts are the left facts followed by
// the right facts.
//
// Without key functions both indexes hold a single bucket and the join is a
// filtered cross product.
type Join struct {
	*Queue
	name   string
	filter func(left, right []any) bool
	left   *joinSide
	right  *joinSide
}

type joinSide struct {
	join  *Join
	slot  int
	key   index.KeyFunc
	index index.Indexer[*tuple.Tuple]
	other *joinSide
}

// joinRecord is the bookkeeping of one input tuple, kept in its slot.
type joinRecord struct {
	key   any
	entry *linked.Entry[*tuple.Tuple]
	pairs *linked.List[*joinPair]
}

type joinPair struct {
	out        tuple.Handle
	left       *tuple.Tuple
	right      *tuple.Tuple
	leftEntry  *linked.Entry[*joinPair]
	rightEntry *linked.Entry[*joinPair]
}

// JoinConfig configures a Join or Exists node.
type JoinConfig struct {
	Name      string
	LeftSlot  int
	RightSlot int
	// LeftKey and RightKey are both nil for an unindexed node.
	LeftKey  index.KeyFunc
	RightKey index.KeyFunc
	Filter   func(left, right []any) bool
}

func (c JoinConfig) indexed() bool {
	return c.LeftKey != nil
}

func newIndexer[T any](indexed bool) index.Indexer[T] {
	if indexed {
		return index.NewEqual[T]()
	}
	return index.NewNone[T]()
}

// NewJoin creates a join node.
func NewJoin(cfg JoinConfig, storeSize int, next Lifecycle) *Join {
	j := &Join{Queue: NewQueue(storeSize, next), name: cfg.Name, filter: cfg.Filter}
	j.left = &joinSide{join: j, slot: cfg.LeftSlot, key: cfg.LeftKey, index: newIndexer[*tuple.Tuple](cfg.indexed())}
	j.right = &joinSide{join: j, slot: cfg.RightSlot, key: cfg.RightKey, index: newIndexer[*tuple.Tuple](cfg.indexed())}
	j.left.other, j.right.other = j.right, j.left
	return j
}

func (j *Join) String() string {
	return j.name
}

// Left returns the lifecycle of the left input.
func (j *Join) Left() Lifecycle {
	return j.left
}

// Right returns the lifecycle of the right input.
func (j *Join) Right() Lifecycle {
	return j.right
}

func (s *joinSide) isLeft() bool {
	return s == s.join.left
}

func (s *joinSide) keyOf(t *tuple.Tuple) any {
	if s.key == nil {
		return nil
	}
	return keyOf(s.join.name, s.key, t.Facts)
}

func (s *joinSide) record(t *tuple.Tuple) *joinRecord {
	v := t.Get(s.slot)
	mustBeKnown(s.join.name, t, v)
	return v.(*joinRecord)
}

func (s *joinSide) Insert(in *tuple.Tuple) {
	mustBeNew(s.join.name, in, s.slot)
	s.insert(in, s.keyOf(in))
}

func (s *joinSide) insert(in *tuple.Tuple, key any) {
	rec := &joinRecord{key: key, pairs: linked.New[*joinPair]()}
	rec.entry = s.index.Put(key, in)
	in.Set(s.slot, rec)
	s.other.index.ForEach(key, func(other *tuple.Tuple) {
		s.pairUp(in, other)
	})
}

func (s *joinSide) Update(in *tuple.Tuple) {
	rec := s.record(in)
	key := s.keyOf(in)
	if key != rec.key {
		s.retract(in, rec)
		s.insert(in, key)
		return
	}
	j := s.join
	if j.filter == nil {
		rec.pairs.ForEach(j.refresh)
		return
	}
	existing := make(map[*tuple.Tuple]*joinPair, rec.pairs.Len())
	rec.pairs.ForEach(func(p *joinPair) {
		existing[s.partner(p)] = p
	})
	s.other.index.ForEach(key, func(other *tuple.Tuple) {
		p, paired := existing[other]
		pass := s.matches(in, other)
		switch {
		case paired && pass:
			j.refresh(p)
		case paired:
			j.unpair(p)
		case pass:
			s.pairUp(in, other)
		}
	})
}

func (s *joinSide) Retract(in *tuple.Tuple) {
	s.retract(in, s.record(in))
}

func (s *joinSide) retract(in *tuple.Tuple, rec *joinRecord) {
	in.Remove(s.slot)
	s.index.Remove(rec.key, rec.entry)
	rec.pairs.ForEach(s.join.unpair)
}

func (s *joinSide) partner(p *joinPair) *tuple.Tuple {
	if s.isLeft() {
		return p.right
	}
	return p.left
}

func (s *joinSide) matches(in, other *tuple.Tuple) bool {
	j := s.join
	if j.filter == nil {
		return true
	}
	if s.isLeft() {
		return test2(j.name, j.filter, in.Facts, other.Facts)
	}
	return test2(j.name, j.filter, other.Facts, in.Facts)
}

func (s *joinSide) pairUp(in, other *tuple.Tuple) {
	if !s.matches(in, other) {
		return
	}
	left, right := in, other
	if !s.isLeft() {
		left, right = other, in
	}
	j := s.join
	out := j.newTuple(tuple.Concat(left.Facts, right.Facts))
	p := &joinPair{out: out.Handle(), left: left, right: right}
	p.leftEntry = j.left.record(left).pairs.Add(p)
	p.rightEntry = j.right.record(right).pairs.Add(p)
	j.emitInsert(out)
}

func (j *Join) refresh(p *joinPair) {
	out := j.resolve(p.out)
	out.Facts = tuple.Concat(p.left.Facts, p.right.Facts)
	j.emitUpdate(out)
}

func (j *Join) unpair(p *joinPair) {
	p.leftEntry.Remove()
	p.rightEntry.Remove()
	j.emitRetract(j.resolve(p.out))
}
