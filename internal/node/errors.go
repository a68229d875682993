package node

import (
	"fmt"

	"scorenet/internal/index"
	"scorenet/internal/tuple"
)

// ImpactError reports a failure inside the match weigher of a constraint.
type ImpactError struct {
	Constraint string
	Facts      []any
	Cause      error
}

func (e *ImpactError) Error() string {
	return fmt.Sprintf("constraint (%s) failed to weigh the match %v: %v", e.Constraint, e.Facts, e.Cause)
}

func (e *ImpactError) Unwrap() error {
	return e.Cause
}

// PropagationError reports a failure inside a user function of any other node:
// a predicate, a key or mapping function, a collector.
type PropagationError struct {
	Node  string
	Facts []any
	Cause error
}

func (e *PropagationError) Error() string {
	return fmt.Sprintf("node (%s) failed on the facts %v: %v", e.Node, e.Facts, e.Cause)
}

func (e *PropagationError) Unwrap() error {
	return e.Cause
}

func causeOf(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}

func snapshot(facts []any) []any {
	out := make([]any, len(facts))
	copy(out, facts)
	return out
}

// passThrough reports whether a recovered value must be re-raised untouched.
func passThrough(r any) bool {
	switch r.(type) {
	case *tuple.IllegalStateError, *PropagationError, *ImpactError:
		return true
	}
	return false
}

// wrapPanic is deferred around user code. It turns a user panic into a
// *PropagationError carrying the node name and the offending facts.
func wrapPanic(node string, facts []any) {
	if r := recover(); r != nil {
		rethrow(node, facts, r)
	}
}

func wrapPanic2(node string, left, right []any) {
	if r := recover(); r != nil {
		rethrow(node, tuple.Concat(left, right), r)
	}
}

func rethrow(node string, facts []any, r any) {
	if passThrough(r) {
		panic(r)
	}
	panic(&PropagationError{Node: node, Facts: snapshot(facts), Cause: causeOf(r)})
}

func test(node string, fn func(facts []any) bool, facts []any) bool {
	defer wrapPanic(node, facts)
	return fn(facts)
}

func test2(node string, fn func(left, right []any) bool, left, right []any) bool {
	defer wrapPanic2(node, left, right)
	return fn(left, right)
}

func apply(node string, fn func(facts []any) any, facts []any) any {
	defer wrapPanic(node, facts)
	return fn(facts)
}

func keyOf(node string, fn func(facts []any) any, facts []any) any {
	if fn == nil {
		return nil
	}
	return mustHash(node, facts, apply(node, fn, facts))
}

// mustHash rejects keys that would panic when used in an index map.
func mustHash(node string, facts []any, key any) any {
	if !index.Hashable(key) {
		panic(&PropagationError{
			Node:  node,
			Facts: snapshot(facts),
			Cause: fmt.Errorf("key %v of type %T is not comparable", key, key),
		})
	}
	return key
}
