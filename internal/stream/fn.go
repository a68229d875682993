package stream

import "fmt"

// Mapping is a named function from the facts of a tuple to one value.
type Mapping struct {
	Name string
	Fn   func(facts []any) any
}

// Fn names a mapping. An empty name makes every definition using the
// mapping unshareable.
func Fn(name string, fn func(facts []any) any) Mapping {
	return Mapping{Name: name, Fn: fn}
}

// Fact is the mapping returning the i-th fact of a tuple.
func Fact(i int) Mapping {
	return Mapping{Name: fmt.Sprintf("fact%d", i), Fn: func(facts []any) any { return facts[i] }}
}

func mappingFuncs(ms []Mapping) []func(facts []any) any {
	fns := make([]func(facts []any) any, len(ms))
	for i, m := range ms {
		fns[i] = m.Fn
	}
	return fns
}

// Test1 adapts a typed predicate over one fact.
func Test1[A any](f func(A) bool) func(facts []any) bool {
	return func(facts []any) bool { return f(facts[0].(A)) }
}

// Test2 adapts a typed predicate over two facts.
func Test2[A, B any](f func(A, B) bool) func(facts []any) bool {
	return func(facts []any) bool { return f(facts[0].(A), facts[1].(B)) }
}

// Test3 adapts a typed predicate over three facts.
func Test3[A, B, C any](f func(A, B, C) bool) func(facts []any) bool {
	return func(facts []any) bool { return f(facts[0].(A), facts[1].(B), facts[2].(C)) }
}

// Map1 adapts a typed function of one fact.
func Map1[A, R any](f func(A) R) func(facts []any) any {
	return func(facts []any) any { return f(facts[0].(A)) }
}

// Map2 adapts a typed function of two facts.
func Map2[A, B, R any](f func(A, B) R) func(facts []any) any {
	return func(facts []any) any { return f(facts[0].(A), facts[1].(B)) }
}

// Key1 adapts a typed ordered key of one fact, for comparison joiners and
// Min/Max collectors.
func Key1[A, K any](f func(A) K) func(facts []any) K {
	return func(facts []any) K { return f(facts[0].(A)) }
}

// Weigh1 adapts a typed match weigher of one fact.
func Weigh1[A any](f func(A) int64) func(facts []any) int64 {
	return func(facts []any) int64 { return f(facts[0].(A)) }
}

// Weigh2 adapts a typed match weigher of two facts.
func Weigh2[A, B any](f func(A, B) int64) func(facts []any) int64 {
	return func(facts []any) int64 { return f(facts[0].(A), facts[1].(B)) }
}

// Weigh3 adapts a typed match weigher of three facts.
func Weigh3[A, B, C any](f func(A, B, C) int64) func(facts []any) int64 {
	return func(facts []any) int64 { return f(facts[0].(A), facts[1].(B), facts[2].(C)) }
}

// BiTest adapts a typed predicate over the first fact of each join side.
func BiTest[A, B any](f func(A, B) bool) func(left, right []any) bool {
	return func(left, right []any) bool { return f(left[0].(A), right[0].(B)) }
}
