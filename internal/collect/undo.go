package collect

import (
	"cmp"

	"github.com/zyedidia/generic/heap"

	"scorenet/internal/linked"
	"scorenet/internal/tuple"
)

// Undo reverts exactly one accumulation.
type Undo interface {
	Undo()
}

type number interface {
	~int64 | ~float64
}

// subtract reverts an addition to a scalar total.
type subtract[N number] struct {
	total *N
	delta N
}

func (u subtract[N]) Undo() {
	*u.total -= u.delta
}

// decrement reverts one occurrence of key in a bag.
type decrement[K comparable] struct {
	bag *bag[K]
	key K
}

func (u decrement[K]) Undo() {
	u.bag.remove(u.key)
}

// unrank reverts one occurrence of key in a ranked multiset.
type unrank[K cmp.Ordered] struct {
	ranked *ranked[K]
	key    K
}

func (u unrank[K]) Undo() {
	u.ranked.remove(u.key)
}

// unlink reverts one append to a list.
type unlink struct {
	entry *linked.Entry[any]
}

func (u unlink) Undo() {
	u.entry.Remove()
}

// composite reverts several accumulations, in reverse order.
type composite []Undo

func (u composite) Undo() {
	for i := len(u) - 1; i >= 0; i-- {
		u[i].Undo()
	}
}

type nop struct{}

func (nop) Undo() {}

// Nop is the Undo of an accumulation that changed nothing.
var Nop Undo = nop{}

// bag is an insertion-ordered multiset.
type bag[K comparable] struct {
	items map[K]*bagItem[K]
	order *linked.List[K]
}

type bagItem[K comparable] struct {
	count int
	entry *linked.Entry[K]
}

func newBag[K comparable]() *bag[K] {
	return &bag[K]{items: make(map[K]*bagItem[K]), order: linked.New[K]()}
}

func (b *bag[K]) add(key K) Undo {
	item, ok := b.items[key]
	if !ok {
		item = &bagItem[K]{entry: b.order.Add(key)}
		b.items[key] = item
	}
	item.count++
	return decrement[K]{bag: b, key: key}
}

func (b *bag[K]) remove(key K) {
	item, ok := b.items[key]
	if !ok {
		panic(tuple.IllegalState("the value (%v) was never accumulated", key))
	}
	item.count--
	if item.count == 0 {
		item.entry.Remove()
		delete(b.items, key)
	}
}

func (b *bag[K]) len() int {
	return len(b.items)
}

// ranked is a multiset that reports its first value in heap order.
// A value whose count drops to zero stays queued until it reaches the top,
// so both add and first are O(log n) amortized.
type ranked[K cmp.Ordered] struct {
	counts map[K]int // queued values, live or not
	heap   *heap.Heap[K]
}

func newRanked[K cmp.Ordered](max bool) *ranked[K] {
	less := cmp.Less[K]
	if max {
		less = func(a, b K) bool { return cmp.Less(b, a) }
	}
	return &ranked[K]{counts: make(map[K]int), heap: heap.New[K](less)}
}

func (r *ranked[K]) add(key K) Undo {
	n, queued := r.counts[key]
	if !queued {
		r.heap.Push(key)
	}
	r.counts[key] = n + 1
	return unrank[K]{ranked: r, key: key}
}

func (r *ranked[K]) remove(key K) {
	n := r.counts[key]
	if n == 0 {
		panic(tuple.IllegalState("the value (%v) was never accumulated", key))
	}
	r.counts[key] = n - 1
}

// first returns the smallest live value, or the largest for a max heap.
func (r *ranked[K]) first() (K, bool) {
	for {
		key, ok := r.heap.Peek()
		if !ok || r.counts[key] > 0 {
			return key, ok
		}
		r.heap.Pop()
		delete(r.counts, key)
	}
}
