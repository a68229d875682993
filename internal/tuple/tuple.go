// Package tuple holds the carrier records that flow through the score network.
//
// A Tuple is one matched combination of facts. Its arity is fixed for the
// lifetime of the tuple and equals len(Facts). Every tuple carries a small
// array of store slots; each node downstream of the tuple's creator reserves
// slots at network build time and keeps its per-tuple bookkeeping there
// (produced output handles, index entries, undo actions).
package tuple

import (
	"fmt"
	"strings"
)

// State is the propagation lifecycle state of a tuple.
type State uint8

const (
	// StateCreating marks a tuple that was created but not yet inserted downstream.
	StateCreating State = iota
	// StateOK marks a tuple that is known downstream and has no pending change.
	StateOK
	// StateUpdating marks a known tuple with a pending downstream update.
	StateUpdating
	// StateDying marks a known tuple with a pending downstream retract.
	StateDying
	// StateAborting marks a tuple retracted before its insert was ever propagated.
	StateAborting
	// StateDead marks a tuple that left the network.
	StateDead
)

func (s State) String() string {
	switch s {
	case StateCreating:
		return "CREATING"
	case StateOK:
		return "OK"
	case StateUpdating:
		return "UPDATING"
	case StateDying:
		return "DYING"
	case StateAborting:
		return "ABORTING"
	case StateDead:
		return "DEAD"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// IsActive reports whether the tuple is (or is about to be) visible downstream.
func (s State) IsActive() bool {
	return s == StateCreating || s == StateOK || s == StateUpdating
}

// Tuple is a fixed-arity record of facts plus per-node store slots.
//
// The same Tuple instance is mutated across updates: downstream nodes locate
// their own bookkeeping through the store slots instead of rediscovering it.
type Tuple struct {
	Facts []any
	State State

	store  []any
	handle Handle
}

// New creates a standalone tuple in the CREATING state.
// Nodes allocate through an Arena instead so that back references stay checkable.
func New(facts []any, storeSize int) *Tuple {
	return &Tuple{
		Facts: facts,
		State: StateCreating,
		store: make([]any, storeSize),
	}
}

// Arity returns the number of facts in the tuple.
func (t *Tuple) Arity() int {
	return len(t.Facts)
}

// Fact returns the fact at position i.
func (t *Tuple) Fact(i int) any {
	return t.Facts[i]
}

// Last returns the last fact of the tuple.
func (t *Tuple) Last() any {
	return t.Facts[len(t.Facts)-1]
}

// Handle returns the arena handle of the tuple, or the zero handle for
// tuples created outside an arena.
func (t *Tuple) Handle() Handle {
	return t.handle
}

// Get returns the value stored in slot i, or nil.
func (t *Tuple) Get(i int) any {
	return t.store[i]
}

// Set stores v in slot i.
func (t *Tuple) Set(i int, v any) {
	t.store[i] = v
}

// Remove clears slot i and returns its previous value.
func (t *Tuple) Remove(i int) any {
	v := t.store[i]
	t.store[i] = nil
	return v
}

// StoreSize returns the number of store slots.
func (t *Tuple) StoreSize() int {
	return len(t.store)
}

func (t *Tuple) String() string {
	parts := make([]string, len(t.Facts))
	for i, f := range t.Facts {
		parts[i] = fmt.Sprintf("%v", f)
	}
	return "[" + strings.Join(parts, ", ") + "](" + t.State.String() + ")"
}

// Concat returns a new fact slice holding the facts of a followed by the facts of b.
func Concat(a, b []any) []any {
	out := make([]any, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
