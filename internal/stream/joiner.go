package stream

import "cmp"

type joinerKind uint8

const (
	joinEqual joinerKind = iota
	joinCompare
	joinFilter
)

// Joiner is one condition between the left and right tuples of a join or an
// if(Not)Exists. Equal joiners index both sides; the other joiners are
// evaluated on every candidate pair within an index bucket.
type Joiner struct {
	name    string
	kind    joinerKind
	left    func(facts []any) any
	right   func(facts []any) any
	compare func(left, right []any) bool
}

// Equal matches pairs whose left and right keys are equal. Keys must be
// comparable.
func Equal(name string, left, right func(facts []any) any) Joiner {
	return Joiner{name: prefixed("equal", name), kind: joinEqual, left: left, right: right}
}

// EqualOn is Equal with the same key function on both sides.
func EqualOn(name string, key func(facts []any) any) Joiner {
	return Equal(name, key, key)
}

func comparing[K cmp.Ordered](op, name string, left, right func(facts []any) K, ok func(c int) bool) Joiner {
	return Joiner{
		name: prefixed(op, name),
		kind: joinCompare,
		compare: func(l, r []any) bool {
			return ok(cmp.Compare(left(l), right(r)))
		},
	}
}

// LessThan matches pairs whose left value is less than their right value.
func LessThan[K cmp.Ordered](name string, left, right func(facts []any) K) Joiner {
	return comparing("lessThan", name, left, right, func(c int) bool { return c < 0 })
}

// LessOrEqual matches pairs whose left value is at most their right value.
func LessOrEqual[K cmp.Ordered](name string, left, right func(facts []any) K) Joiner {
	return comparing("lessOrEqual", name, left, right, func(c int) bool { return c <= 0 })
}

// GreaterThan matches pairs whose left value is greater than their right value.
func GreaterThan[K cmp.Ordered](name string, left, right func(facts []any) K) Joiner {
	return comparing("greaterThan", name, left, right, func(c int) bool { return c > 0 })
}

// GreaterOrEqual matches pairs whose left value is at least their right value.
func GreaterOrEqual[K cmp.Ordered](name string, left, right func(facts []any) K) Joiner {
	return comparing("greaterOrEqual", name, left, right, func(c int) bool { return c >= 0 })
}

// Filtering matches the pairs for which fn holds.
func Filtering(name string, fn func(left, right []any) bool) Joiner {
	return Joiner{name: prefixed("filtering", name), kind: joinFilter, compare: fn}
}

func prefixed(op, name string) string {
	if name == "" {
		return ""
	}
	return op + ":" + name
}

func joinerNames(joiners []Joiner) []string {
	names := make([]string, len(joiners))
	for i, j := range joiners {
		names[i] = j.name
	}
	return names
}

func (s *Stream) applyJoiners(joiners []Joiner) {
	var filters []func(left, right []any) bool
	for _, j := range joiners {
		switch j.kind {
		case joinEqual:
			s.leftKeys = append(s.leftKeys, j.left)
			s.rightKeys = append(s.rightKeys, j.right)
		default:
			filters = append(filters, j.compare)
		}
	}
	switch len(filters) {
	case 0:
	case 1:
		s.biFilter = filters[0]
	default:
		s.biFilter = func(left, right []any) bool {
			for _, f := range filters {
				if !f(left, right) {
					return false
				}
			}
			return true
		}
	}
}
