// Package stream is the authoring API for constraints.
//
// A Stream is an immutable definition of one node of the score network:
// an operation applied to one or two parent streams. Definitions carry names
// for the functions they use. Two definitions with the same operation, the
// same parents and the same non-empty function names compile to a single
// shared node; a definition using an unnamed function is never shared.
//
// Stream facts are untyped ([]any) so that operations work for any arity.
// The generic helpers in fn.go adapt typed functions to that shape.
package stream

import (
	"fmt"
	"reflect"
	"strings"

	"scorenet/internal/collect"
)

// Kind is the operation of a stream definition.
type Kind uint8

const (
	KindForEach Kind = iota
	KindFilter
	KindJoin
	KindIfExists
	KindIfNotExists
	KindGroupBy
	KindConcat
	KindFlattenLast
	KindMap
)

var kindNames = [...]string{
	KindForEach:     "forEach",
	KindFilter:      "filter",
	KindJoin:        "join",
	KindIfExists:    "ifExists",
	KindIfNotExists: "ifNotExists",
	KindGroupBy:     "groupBy",
	KindConcat:      "concat",
	KindFlattenLast: "flattenLast",
	KindMap:         "map",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Assignable is implemented by facts that have planning variables.
// ForEach skips facts reporting false; ForEachIncludingUnassigned does not.
type Assignable interface {
	IsAssigned() bool
}

// Stream is an immutable node definition.
type Stream struct {
	kind     Kind
	parents  []*Stream
	arity    int
	identity string
	err      error

	class             reflect.Type
	includeUnassigned bool

	predicate  func(facts []any) bool
	leftKeys   []func(facts []any) any
	rightKeys  []func(facts []any) any
	biFilter   func(left, right []any) bool
	mappings   []func(facts []any) any
	collectors []collect.Collector
	flatten    func(last any) []any
}

// identityOf joins the function names of a definition. Any empty name makes
// the definition unshareable and yields "".
func identityOf(kind Kind, names ...string) string {
	for _, n := range names {
		if n == "" {
			return ""
		}
	}
	return kind.String() + "(" + strings.Join(names, ",") + ")"
}

func (s *Stream) derive(kind Kind, arity int, names []string, parents ...*Stream) *Stream {
	d := &Stream{kind: kind, parents: parents, arity: arity, identity: identityOf(kind, names...)}
	for _, p := range parents {
		if p.err != nil {
			d.err = p.err
			break
		}
	}
	return d
}

func (s *Stream) fail(format string, args ...any) *Stream {
	if s.err == nil {
		s.err = fmt.Errorf(format, args...)
	}
	return s
}

// ForEach selects every fact of class T whose planning variables are
// assigned. T may be an interface: every fact implementing it is selected.
func ForEach[T any]() *Stream {
	return forEach(reflect.TypeFor[T](), false)
}

// ForEachIncludingUnassigned selects every fact of class T.
func ForEachIncludingUnassigned[T any]() *Stream {
	return forEach(reflect.TypeFor[T](), true)
}

func forEach(class reflect.Type, includeUnassigned bool) *Stream {
	s := &Stream{kind: KindForEach, arity: 1, class: class, includeUnassigned: includeUnassigned}
	s.identity = "forEach(" + class.String() + ")"
	if includeUnassigned {
		s.identity = "forEachIncludingUnassigned(" + class.String() + ")"
	}
	return s
}

// Filter keeps the tuples for which predicate holds.
func (s *Stream) Filter(name string, predicate func(facts []any) bool) *Stream {
	d := s.derive(KindFilter, s.arity, []string{name}, s)
	d.predicate = predicate
	return d
}

// Join pairs every tuple of s with the tuples of other that satisfy all
// joiners. The output facts are the facts of s followed by those of other.
func (s *Stream) Join(other *Stream, joiners ...Joiner) *Stream {
	d := s.derive(KindJoin, s.arity+other.arity, joinerNames(joiners), s, other)
	d.applyJoiners(joiners)
	return d
}

// IfExists keeps the tuples of s for which at least one tuple of other
// satisfies all joiners.
func (s *Stream) IfExists(other *Stream, joiners ...Joiner) *Stream {
	d := s.derive(KindIfExists, s.arity, joinerNames(joiners), s, other)
	d.applyJoiners(joiners)
	return d
}

// IfNotExists keeps the tuples of s for which no tuple of other satisfies
// all joiners.
func (s *Stream) IfNotExists(other *Stream, joiners ...Joiner) *Stream {
	d := s.derive(KindIfNotExists, s.arity, joinerNames(joiners), s, other)
	d.applyJoiners(joiners)
	return d
}

// GroupBy groups the tuples of s by the given keys and folds each group
// through the collectors. The output facts are the keys followed by the
// collector results.
func (s *Stream) GroupBy(keys []Mapping, collectors ...collect.Collector) *Stream {
	names := make([]string, 0, len(keys)+len(collectors)+1)
	for _, k := range keys {
		names = append(names, k.Name)
	}
	names = append(names, "|")
	for _, c := range collectors {
		names = append(names, c.Name())
	}
	d := s.derive(KindGroupBy, len(keys)+len(collectors), names, s)
	if len(keys) == 0 && len(collectors) == 0 {
		return d.fail("groupBy needs at least one key or collector")
	}
	d.mappings = mappingFuncs(keys)
	d.collectors = collectors
	return d
}

// Distinct removes duplicate tuples: tuples whose facts are all equal.
// Facts must be comparable.
func (s *Stream) Distinct() *Stream {
	keys := make([]Mapping, s.arity)
	for i := range keys {
		keys[i] = Fact(i)
	}
	return s.GroupBy(keys)
}

// Concat merges s and other. The shorter side is padded with nil facts.
func (s *Stream) Concat(other *Stream) *Stream {
	return s.derive(KindConcat, max(s.arity, other.arity), nil, s, other)
}

// FlattenLast replaces the last fact of every tuple by each of the items
// flatten expands it to, producing one tuple per item.
func (s *Stream) FlattenLast(name string, flatten func(last any) []any) *Stream {
	d := s.derive(KindFlattenLast, s.arity, []string{name}, s)
	d.flatten = flatten
	return d
}

// Map replaces the facts of every tuple by the results of the mappings.
func (s *Stream) Map(mappings ...Mapping) *Stream {
	names := make([]string, len(mappings))
	for i, m := range mappings {
		names[i] = m.Name
	}
	d := s.derive(KindMap, len(mappings), names, s)
	if len(mappings) == 0 {
		return d.fail("map needs at least one mapping")
	}
	d.mappings = mappingFuncs(mappings)
	return d
}

// Kind returns the operation of the definition.
func (s *Stream) Kind() Kind { return s.kind }

// Parents returns the parent definitions: none, one, or two (left, right).
func (s *Stream) Parents() []*Stream { return s.parents }

// Arity returns the number of facts in the tuples of the stream.
func (s *Stream) Arity() int { return s.arity }

// Identity returns the sharing identity of the operation itself, excluding
// parents, or "" when the definition must not be shared.
func (s *Stream) Identity() string { return s.identity }

// Err returns the first authoring error in the definition or its ancestors.
func (s *Stream) Err() error { return s.err }

// Class returns the fact class of a forEach definition.
func (s *Stream) Class() reflect.Type { return s.class }

// IncludesUnassigned reports whether a forEach definition keeps unassigned facts.
func (s *Stream) IncludesUnassigned() bool { return s.includeUnassigned }

// Predicate returns the predicate of a filter definition.
func (s *Stream) Predicate() func(facts []any) bool { return s.predicate }

// JoinKeys returns the key functions of the equal joiners, left and right.
func (s *Stream) JoinKeys() (left, right []func(facts []any) any) { return s.leftKeys, s.rightKeys }

// JoinFilter returns the conjunction of the comparison and filtering
// joiners, or nil.
func (s *Stream) JoinFilter() func(left, right []any) bool { return s.biFilter }

// Mappings returns the group keys of a groupBy or the mappings of a map.
func (s *Stream) Mappings() []func(facts []any) any { return s.mappings }

// Collectors returns the collectors of a groupBy.
func (s *Stream) Collectors() []collect.Collector { return s.collectors }

// Flatten returns the expansion function of a flattenLast.
func (s *Stream) Flatten() func(last any) []any { return s.flatten }

func (s *Stream) String() string {
	if s.identity != "" {
		return s.identity
	}
	return s.kind.String() + "(?)"
}

// Accept returns the fact admission test of a forEach definition, or nil
// when every fact is admitted.
func (s *Stream) Accept() func(fact any) bool {
	if s.includeUnassigned {
		return nil
	}
	return func(fact any) bool {
		a, ok := fact.(Assignable)
		return !ok || a.IsAssigned()
	}
}
