// Package index maps join keys to the tuples (or counters) holding them.
//
// Join and exists nodes keep one Indexer per input side. Keys are produced by
// the joiners' mapping functions and combined with Key into one comparable
// value, so a bucket lookup is a single map access.
package index

import (
	"scorenet/internal/linked"
	"scorenet/internal/tuple"
)

// Indexer maps a key to the insertion-ordered set of values holding it.
type Indexer[T any] interface {
	// Put adds v under key and returns the entry needed to remove it later.
	Put(key any, v T) *linked.Entry[T]
	// Remove removes an entry previously returned by Put for the same key.
	Remove(key any, e *linked.Entry[T])
	// ForEach visits every value under key in insertion order.
	ForEach(key any, fn func(v T))
	// Size returns the number of values under key.
	Size(key any) int
	// IsEmpty reports whether no value is indexed at all.
	IsEmpty() bool
}

// equalIndexer buckets values by key equality.
type equalIndexer[T any] struct {
	buckets map[any]*linked.List[T]
}

// NewEqual creates an Indexer bucketing values by key equality.
// Keys must be comparable.
func NewEqual[T any]() Indexer[T] {
	return &equalIndexer[T]{buckets: make(map[any]*linked.List[T])}
}

func (x *equalIndexer[T]) Put(key any, v T) *linked.Entry[T] {
	bucket, ok := x.buckets[key]
	if !ok {
		bucket = linked.New[T]()
		x.buckets[key] = bucket
	}
	return bucket.Add(v)
}

func (x *equalIndexer[T]) Remove(key any, e *linked.Entry[T]) {
	bucket, ok := x.buckets[key]
	if !ok {
		panic(tuple.IllegalState("the value (%v) was never indexed under key (%v); "+
			"maybe the key changed without an update", e.Value(), key))
	}
	if e.List() != bucket {
		panic(tuple.IllegalState("the value (%v) is not indexed under key (%v)", e.Value(), key))
	}
	e.Remove()
	if bucket.Len() == 0 {
		delete(x.buckets, key)
	}
}

func (x *equalIndexer[T]) ForEach(key any, fn func(v T)) {
	bucket, ok := x.buckets[key]
	if !ok {
		return
	}
	bucket.ForEach(fn)
}

func (x *equalIndexer[T]) Size(key any) int {
	bucket, ok := x.buckets[key]
	if !ok {
		return 0
	}
	return bucket.Len()
}

func (x *equalIndexer[T]) IsEmpty() bool {
	return len(x.buckets) == 0
}

// noneIndexer keeps every value in one bucket and ignores keys.
// It backs unindexed (cross product) joins.
type noneIndexer[T any] struct {
	bucket *linked.List[T]
}

// NewNone creates an Indexer that ignores keys: every lookup sees every value.
func NewNone[T any]() Indexer[T] {
	return &noneIndexer[T]{bucket: linked.New[T]()}
}

func (x *noneIndexer[T]) Put(_ any, v T) *linked.Entry[T] {
	return x.bucket.Add(v)
}

func (x *noneIndexer[T]) Remove(_ any, e *linked.Entry[T]) {
	if e.List() != x.bucket {
		panic(tuple.IllegalState("the value (%v) is not indexed", e.Value()))
	}
	e.Remove()
}

func (x *noneIndexer[T]) ForEach(_ any, fn func(v T)) {
	x.bucket.ForEach(fn)
}

func (x *noneIndexer[T]) Size(_ any) int {
	return x.bucket.Len()
}

func (x *noneIndexer[T]) IsEmpty() bool {
	return x.bucket.Len() == 0
}
