// Package linked provides an element-aware doubly linked list: every Add
// returns an Entry that can later unlink itself in O(1) without knowing which
// list holds it. Index buckets, join output lists and constraint match
// ledgers are all built on it.
package linked

import (
	"github.com/zyedidia/generic/list"

	"scorenet/internal/tuple"
)

// List is a sized doubly linked list of values.
// The zero value is not usable; create lists with New.
type List[V any] struct {
	inner *list.List[*Entry[V]]
	size  int
}

// Entry is the membership of one value in one List.
type Entry[V any] struct {
	value V
	node  *list.Node[*Entry[V]]
	owner *List[V]
}

// New creates an empty list.
func New[V any]() *List[V] {
	return &List[V]{inner: list.New[*Entry[V]]()}
}

// Add appends v and returns its entry.
func (l *List[V]) Add(v V) *Entry[V] {
	e := &Entry[V]{value: v, owner: l}
	e.node = &list.Node[*Entry[V]]{Value: e}
	l.inner.PushBackNode(e.node)
	l.size++
	return e
}

// Len returns the number of entries.
func (l *List[V]) Len() int {
	return l.size
}

// First returns the first entry, or nil when the list is empty.
func (l *List[V]) First() *Entry[V] {
	if l.inner.Front == nil {
		return nil
	}
	return l.inner.Front.Value
}

// ForEach calls fn for every value in insertion order.
// fn may remove the entry currently being visited, but no other entry.
func (l *List[V]) ForEach(fn func(v V)) {
	l.ForEachEntry(func(e *Entry[V]) { fn(e.value) })
}

// ForEachEntry calls fn for every entry in insertion order.
// fn may remove the entry currently being visited, but no other entry.
func (l *List[V]) ForEachEntry(fn func(e *Entry[V])) {
	for n := l.inner.Front; n != nil; {
		next := n.Next
		fn(n.Value)
		n = next
	}
}

// Values returns a snapshot of the values in insertion order.
func (l *List[V]) Values() []V {
	out := make([]V, 0, l.size)
	l.ForEach(func(v V) { out = append(out, v) })
	return out
}

// Clear removes every entry.
func (l *List[V]) Clear() {
	l.ForEachEntry(func(e *Entry[V]) { e.Remove() })
}

// Value returns the value held by the entry.
func (e *Entry[V]) Value() V {
	return e.value
}

// List returns the list the entry belongs to, or nil once removed.
func (e *Entry[V]) List() *List[V] {
	return e.owner
}

// Removed reports whether the entry was unlinked.
func (e *Entry[V]) Removed() bool {
	return e.owner == nil
}

// Remove unlinks the entry from its list. Removing twice panics.
func (e *Entry[V]) Remove() {
	if e.owner == nil {
		panic(tuple.IllegalState("entry (%v) was already removed", e.value))
	}
	e.owner.inner.Remove(e.node)
	e.owner.size--
	e.owner = nil
	e.node.Prev, e.node.Next = nil, nil
}
