package node

import (
	"reflect"

	"scorenet/internal/tuple"
)

// FlattenLast expands the last fact of every tuple into zero or more items
// and emits one tuple per item, replacing the last fact with the item.
type FlattenLast struct {
	*Queue
	name    string
	slot    int
	flatten func(last any) []any
}

type flatOut struct {
	item any
	out  tuple.Handle
}

// NewFlattenLast creates a flattenLast node.
func NewFlattenLast(name string, slot int, flatten func(last any) []any, storeSize int, next Lifecycle) *FlattenLast {
	return &FlattenLast{Queue: NewQueue(storeSize, next), name: name, slot: slot, flatten: flatten}
}

func (n *FlattenLast) String() string {
	return n.name
}

func (n *FlattenLast) items(in *tuple.Tuple) []any {
	defer wrapPanic(n.name, in.Facts)
	return n.flatten(in.Last())
}

func (n *FlattenLast) factsFor(in *tuple.Tuple, item any) []any {
	facts := make([]any, len(in.Facts))
	copy(facts, in.Facts[:len(in.Facts)-1])
	facts[len(facts)-1] = item
	return facts
}

func (n *FlattenLast) emit(in *tuple.Tuple, item any) flatOut {
	out := n.newTuple(n.factsFor(in, item))
	n.emitInsert(out)
	return flatOut{item: item, out: out.Handle()}
}

func (n *FlattenLast) Insert(in *tuple.Tuple) {
	mustBeNew(n.name, in, n.slot)
	items := n.items(in)
	outs := make([]flatOut, 0, len(items))
	for _, item := range items {
		outs = append(outs, n.emit(in, item))
	}
	in.Set(n.slot, outs)
}

// Update keeps the outputs whose item is still produced, retracts the others
// and inserts the new items.
func (n *FlattenLast) Update(in *tuple.Tuple) {
	v := in.Get(n.slot)
	mustBeKnown(n.name, in, v)
	old := v.([]flatOut)
	fresh := n.items(in)
	used := make([]bool, len(fresh))
	outs := make([]flatOut, 0, len(fresh))
	for _, o := range old {
		match := -1
		for i, item := range fresh {
			if !used[i] && sameItem(o.item, item) {
				match = i
				break
			}
		}
		t := n.resolve(o.out)
		if match < 0 {
			n.emitRetract(t)
			continue
		}
		used[match] = true
		t.Facts = n.factsFor(in, fresh[match])
		n.emitUpdate(t)
		outs = append(outs, flatOut{item: fresh[match], out: o.out})
	}
	for i, item := range fresh {
		if !used[i] {
			outs = append(outs, n.emit(in, item))
		}
	}
	in.Set(n.slot, outs)
}

func (n *FlattenLast) Retract(in *tuple.Tuple) {
	v := in.Remove(n.slot)
	mustBeKnown(n.name, in, v)
	for _, o := range v.([]flatOut) {
		n.emitRetract(n.resolve(o.out))
	}
}

func sameItem(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
