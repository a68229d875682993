package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedger(t *testing.T, track bool, specs ...ConstraintSpec) *Ledger {
	t.Helper()
	l, err := NewLedger(specs, track)
	require.NoError(t, err)
	return l
}

func TestNewLedgerRejectsBadSpecs(t *testing.T) {
	_, err := NewLedger([]ConstraintSpec{{ID: "c", Weight: Zero}}, false)
	assert.ErrorContains(t, err, "zero weight")

	_, err = NewLedger([]ConstraintSpec{
		{ID: "c", Weight: OfSoft(1)},
		{ID: "c", Weight: OfSoft(2)},
	}, false)
	assert.ErrorContains(t, err, "declared twice")
}

func TestImpactAndUndo(t *testing.T) {
	l := newLedger(t, false,
		ConstraintSpec{ID: "hard", Weight: OfHard(1), ImpactType: Penalty},
		ConstraintSpec{ID: "bonus", Weight: OfSoft(3), ImpactType: Reward},
	)
	hard := l.Constraint("hard")
	bonus := l.Constraint("bonus")
	require.NotNil(t, hard)
	assert.Nil(t, l.Constraint("missing"))

	i1 := hard.Impact(2, []any{"a"})
	i2 := bonus.Impact(1, []any{"b"})
	assert.Equal(t, OfHard(-2), i1.Delta())
	assert.Equal(t, Of(-2, 3), l.Score())
	assert.Equal(t, 1, hard.MatchCount())

	i1.Undo()
	assert.Equal(t, OfSoft(3), l.Score())
	i2.Undo()
	assert.Equal(t, Zero, l.Score())
	assert.Equal(t, map[string]Score{"hard": Zero, "bonus": Zero}, l.ConstraintScores())
	assert.Nil(t, l.MatchTotals())
	assert.Nil(t, l.Indictments())
}

func TestUndoOfZeroImpactPanics(t *testing.T) {
	var i Impact
	assert.PanicsWithError(t, "impossible state: undo of an impact that was never applied", i.Undo)
}

func TestUndoTwiceWithTrackingPanics(t *testing.T) {
	l := newLedger(t, true, ConstraintSpec{ID: "c", Weight: OfSoft(1)})
	i := l.Constraint("c").Impact(1, []any{1})
	i.Undo()
	assert.Panics(t, i.Undo)
}

func TestMatchTotalsAndIndictments(t *testing.T) {
	l := newLedger(t, true,
		ConstraintSpec{ID: "pair", Weight: OfSoft(1)},
		ConstraintSpec{
			ID:     "custom",
			Weight: OfHard(1),
			Justify: func(facts []any, impact Score) any {
				return facts[0].(string) + "!"
			},
			Indict: func(facts []any) []any { return facts[:1] },
		},
		ConstraintSpec{ID: "idle", Weight: OfSoft(5)},
	)
	pair := l.Constraint("pair")
	facts := []any{"a", "b"}
	ab := pair.Impact(1, facts)
	facts[0] = "mutated"
	pair.Impact(2, []any{"a", "a"})
	l.Constraint("custom").Impact(1, []any{"b", "c"})

	totals := l.MatchTotals()
	require.Len(t, totals, 3)
	assert.Equal(t, OfSoft(-3), totals["pair"].Score)
	assert.Equal(t, 2, totals["pair"].Count())
	assert.Equal(t, DefaultJustification{Facts: []any{"a", "b"}}, totals["pair"].Matches[0].Justification)
	assert.Equal(t, "b!", totals["custom"].Matches[0].Justification)
	assert.Zero(t, totals["idle"].Count())

	indictments := l.Indictments()
	require.Contains(t, indictments, "a")
	assert.Equal(t, OfSoft(-3), indictments["a"].Score)
	assert.Len(t, indictments["a"].Matches, 2)
	assert.Equal(t, Of(-1, -1), indictments["b"].Score)
	assert.NotContains(t, indictments, "c")

	assert.Same(t, totals["pair"], l.MatchTotals()["pair"])

	ab.Undo()
	totals = l.MatchTotals()
	assert.Equal(t, OfSoft(-2), totals["pair"].Score)
	assert.Equal(t, OfHard(-1), l.Indictments()["b"].Score)
}

func TestFailingJustifierRaisesMatchError(t *testing.T) {
	l := newLedger(t, true, ConstraintSpec{
		ID:     "loud",
		Weight: OfSoft(1),
		Justify: func(facts []any, impact Score) any {
			panic("boom")
		},
	})
	l.Constraint("loud").Impact(1, []any{"a"})

	defer func() {
		err, ok := recover().(*MatchError)
		require.True(t, ok)
		assert.Equal(t, "loud", err.Constraint)
		assert.Equal(t, []any{"a"}, err.Facts)
		assert.EqualError(t, err, "constraint (loud) failed to explain the match [a]: boom")
	}()
	l.MatchTotals()
}

func TestUncomparableIndictedObjectRaisesMatchError(t *testing.T) {
	l := newLedger(t, true, ConstraintSpec{
		ID:     "blame",
		Weight: OfHard(1),
		Indict: func(facts []any) []any { return []any{[]int{1}} },
	})
	l.Constraint("blame").Impact(1, []any{"x"})

	defer func() {
		err, ok := recover().(*MatchError)
		require.True(t, ok)
		assert.Equal(t, "blame", err.Constraint)
		assert.ErrorContains(t, err, "not comparable")
	}()
	l.Indictments()
}

func TestDefaultJustificationString(t *testing.T) {
	assert.Equal(t, "[a, 2]", DefaultJustification{Facts: []any{"a", 2}}.String())
}
