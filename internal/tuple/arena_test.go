package tuple

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaNewAndGet(t *testing.T) {
	a := NewArena()
	tup := a.New([]any{"a", 1}, 2)

	require.Equal(t, StateCreating, tup.State)
	require.Equal(t, 2, tup.Arity())
	require.Equal(t, 2, tup.StoreSize())
	require.Equal(t, 1, a.Len())

	got, ok := a.Get(tup.Handle())
	require.True(t, ok)
	assert.Same(t, tup, got)
}

func TestArenaStaleHandleAfterRelease(t *testing.T) {
	a := NewArena()
	first := a.New([]any{"first"}, 0)
	h := first.Handle()
	a.Release(first)

	assert.Equal(t, StateDead, first.State)
	assert.Equal(t, 0, a.Len())

	_, ok := a.Get(h)
	assert.False(t, ok, "released handle must not resolve")

	// The slot is reused with a new generation.
	second := a.New([]any{"second"}, 0)
	assert.NotEqual(t, h, second.Handle())
	_, ok = a.Get(h)
	assert.False(t, ok, "old handle must not resolve to the recycled slot")

	got := a.MustGet(second.Handle())
	assert.Same(t, second, got)
}

func TestArenaMustGetPanicsOnStaleHandle(t *testing.T) {
	a := NewArena()
	tup := a.New([]any{"x"}, 0)
	h := tup.Handle()
	a.Release(tup)

	assert.PanicsWithError(t, "impossible state: tuple handle ("+h.String()+") is stale or does not belong to this arena", func() {
		a.MustGet(h)
	})
}

func TestArenaDoubleReleasePanics(t *testing.T) {
	a := NewArena()
	tup := a.New([]any{"x"}, 0)
	a.Release(tup)

	assert.Panics(t, func() { a.Release(tup) })
}

func TestZeroHandle(t *testing.T) {
	var h Handle
	assert.True(t, h.IsZero())

	a := NewArena()
	_, ok := a.Get(h)
	assert.False(t, ok)
}

func TestTupleStore(t *testing.T) {
	tup := New([]any{"a"}, 3)
	tup.Set(1, "value")
	assert.Equal(t, "value", tup.Get(1))
	assert.Equal(t, "value", tup.Remove(1))
	assert.Nil(t, tup.Get(1))
}

func TestTupleString(t *testing.T) {
	tup := New([]any{"a", 2}, 0)
	assert.Equal(t, "[a, 2](CREATING)", tup.String())
}

func TestConcat(t *testing.T) {
	left := []any{1, 2}
	out := Concat(left, []any{3})
	assert.Equal(t, []any{1, 2, 3}, out)

	out[0] = 9
	assert.Equal(t, 1, left[0], "concat must not alias its inputs")
}

func TestArenaForEach(t *testing.T) {
	a := NewArena()
	x := a.New([]any{"x"}, 0)
	a.New([]any{"y"}, 0)
	a.Release(x)

	var seen []any
	a.ForEach(func(t *Tuple) { seen = append(seen, t.Fact(0)) })
	assert.Equal(t, []any{"y"}, seen)
}
