package index

import "reflect"

// pair chains key parts into one comparable value.
type pair struct {
	head any
	tail any
}

// Key combines key parts into one comparable value.
// A single part is returned as is; zero parts yield nil.
// Two Keys are equal iff they have the same length and equal parts.
func Key(parts ...any) any {
	switch len(parts) {
	case 0:
		return nil
	case 1:
		return parts[0]
	}
	var k any = parts[len(parts)-1]
	for i := len(parts) - 2; i >= 0; i-- {
		k = pair{head: parts[i], tail: k}
	}
	return k
}

// KeyFunc extracts a key from the facts of a tuple.
type KeyFunc func(facts []any) any

// Composite builds a KeyFunc from per-joiner mapping functions.
// It returns nil when there are no mappings: the side is unindexed.
func Composite(mappings []func(facts []any) any) KeyFunc {
	switch len(mappings) {
	case 0:
		return nil
	case 1:
		m := mappings[0]
		return func(facts []any) any { return m(facts) }
	}
	return func(facts []any) any {
		parts := make([]any, len(mappings))
		for i, m := range mappings {
			parts[i] = m(facts)
		}
		return Key(parts...)
	}
}

// Hashable reports whether key can be used as a map key without panicking.
// Interface values held by structs and arrays are checked too.
func Hashable(key any) bool {
	if key == nil {
		return true
	}
	return hashable(reflect.ValueOf(key))
}

func hashable(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Interface:
		return v.IsNil() || hashable(v.Elem())
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if !hashable(v.Field(i)) {
				return false
			}
		}
		return true
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if !hashable(v.Index(i)) {
				return false
			}
		}
		return true
	}
	return v.Type().Comparable()
}
