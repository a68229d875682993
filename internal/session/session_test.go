package session

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorenet/internal/collect"
	"scorenet/internal/network"
	"scorenet/internal/node"
	"scorenet/internal/score"
	"scorenet/internal/stream"
	"scorenet/internal/tuple"
)

type item struct {
	id       int
	x        int
	assigned bool
}

func (i *item) IsAssigned() bool { return i.assigned }

type bin struct {
	id int
	x  int
}

func itemX(facts []any) any { return facts[0].(*item).x }

func binX(facts []any) any { return facts[0].(*bin).x }

func sameX() stream.Joiner { return stream.Equal("x", itemX, binX) }

func build(t *testing.T, constraints ...*stream.Constraint) *network.Plan {
	t.Helper()
	p, err := network.Build(constraints, network.Options{})
	require.NoError(t, err)
	return p
}

func newSession(t *testing.T, p *network.Plan, tracking bool) *Session {
	t.Helper()
	s, err := New(p, Options{MatchTracking: tracking})
	require.NoError(t, err)
	return s
}

func mustScore(t *testing.T, s *Session) score.Score {
	t.Helper()
	sc, err := s.CalculateScore()
	require.NoError(t, err)
	return sc
}

func panicValue(fn func()) (r any) {
	defer func() { r = recover() }()
	fn()
	return nil
}

func TestJoinScenario(t *testing.T) {
	p := build(t, stream.ForEach[*item]().Join(stream.ForEach[*bin](), sameX()).
		Penalize(score.OfSoft(1)).AsConstraint("pairs"))
	s := newSession(t, p, false)

	a1 := &item{id: 1, x: 1, assigned: true}
	a2 := &item{id: 2, x: 2, assigned: true}
	b1 := &bin{id: 1, x: 1}
	for _, f := range []any{a1, a2, b1} {
		require.NoError(t, s.Insert(f))
	}
	assert.Equal(t, score.OfSoft(-1), mustScore(t, s))

	require.NoError(t, s.Retract(b1))
	assert.Equal(t, score.Score{}, mustScore(t, s))

	b1.x = 2
	require.NoError(t, s.Insert(b1))
	assert.Equal(t, score.OfSoft(-1), mustScore(t, s))
}

func groupCounts(t *testing.T, s *Session, constraint string) map[any]any {
	t.Helper()
	totals, err := s.ConstraintMatchTotals()
	require.NoError(t, err)
	counts := make(map[any]any)
	for _, m := range totals[constraint].Matches {
		facts := m.Justification.(score.DefaultJustification).Facts
		counts[facts[0]] = facts[1]
	}
	return counts
}

func TestGroupCountScenario(t *testing.T) {
	p := build(t, stream.ForEach[*item]().GroupBy([]stream.Mapping{stream.Fn("x", itemX)}, collect.Count()).
		Penalize(score.OfSoft(1)).AsConstraint("perX"))
	s := newSession(t, p, true)

	items := []*item{{id: 1, x: 1, assigned: true}, {id: 2, x: 1, assigned: true}, {id: 3, x: 2, assigned: true}}
	for _, i := range items {
		require.NoError(t, s.Insert(i))
	}
	assert.Equal(t, map[any]any{1: int64(2), 2: int64(1)}, groupCounts(t, s, "perX"))

	require.NoError(t, s.Retract(items[0]))
	assert.Equal(t, map[any]any{1: int64(1), 2: int64(1)}, groupCounts(t, s, "perX"))
	assert.Equal(t, score.OfSoft(-2), mustScore(t, s))
}

func TestUnassignedFactsAreSkippedByForEach(t *testing.T) {
	p := build(t,
		stream.ForEach[*item]().Penalize(score.OfHard(1)).AsConstraint("assigned"),
		stream.ForEachIncludingUnassigned[*item]().Penalize(score.OfSoft(1)).AsConstraint("all"),
	)
	s := newSession(t, p, false)

	i := &item{id: 1}
	require.NoError(t, s.Insert(i))
	assert.Equal(t, score.OfSoft(-1), mustScore(t, s))

	i.assigned = true
	require.NoError(t, s.Update(i))
	assert.Equal(t, score.Of(-1, -1), mustScore(t, s))

	i.assigned = false
	require.NoError(t, s.Update(i))
	assert.Equal(t, score.OfSoft(-1), mustScore(t, s))
}

func TestRetractAndInsertInOneSettle(t *testing.T) {
	constraints := []*stream.Constraint{
		stream.ForEach[*item]().IfNotExists(stream.ForEach[*bin](), sameX()).
			Penalize(score.OfHard(1)).AsConstraint("lonely"),
		stream.ForEach[*item]().GroupBy([]stream.Mapping{stream.Fn("x", itemX)}, collect.Count()).
			Penalize(score.OfSoft(1)).AsConstraint("perX"),
	}
	p := build(t, constraints...)
	s := newSession(t, p, true)

	old := &bin{id: 1, x: 1}
	a := &item{id: 1, x: 1, assigned: true}
	require.NoError(t, s.Insert(old))
	require.NoError(t, s.Insert(a))
	mustScore(t, s)

	replacement := &bin{id: 2, x: 1}
	b := &item{id: 2, x: 1, assigned: true}
	require.NoError(t, s.Retract(old))
	require.NoError(t, s.Insert(replacement))
	require.NoError(t, s.Retract(a))
	require.NoError(t, s.Insert(b))

	scratch := newSession(t, p, true)
	for _, f := range s.Facts() {
		require.NoError(t, scratch.Insert(f))
	}
	assert.Equal(t, mustScore(t, scratch), mustScore(t, s))
	assert.Equal(t, groupCounts(t, scratch, "perX"), groupCounts(t, s, "perX"))
}

func pairIDs(t *testing.T, s *Session, constraint string) []string {
	t.Helper()
	totals, err := s.ConstraintMatchTotals()
	require.NoError(t, err)
	var ids []string
	for _, m := range totals[constraint].Matches {
		facts := m.Justification.(score.DefaultJustification).Facts
		ids = append(ids, fmt.Sprintf("i%d-b%d", facts[0].(*item).id, facts[1].(*bin).id))
	}
	sort.Strings(ids)
	return ids
}

// Both filters sit in the same layer and feed one join on x. Whichever of
// them is touched first, the join must end up with the same pairs.
func TestSameLayerInterleavingsAgree(t *testing.T) {
	positive := stream.ForEach[*item]().Filter("positive", func(f []any) bool { return f[0].(*item).x > 0 })
	open := stream.ForEach[*bin]().Filter("open", func(f []any) bool { return f[0].(*bin).x > 0 })
	p := build(t, positive.Join(open, sameX()).Penalize(score.OfSoft(1)).AsConstraint("pairs"))
	assert.Equal(t, p.LayerOf(positive), p.LayerOf(open))

	run := func(itemFirst bool) []string {
		s := newSession(t, p, true)
		leaving := &item{id: 1, x: 1, assigned: true}
		staying := &item{id: 2, x: 1, assigned: true}
		require.NoError(t, s.Insert(leaving))
		require.NoError(t, s.Insert(staying))
		mustScore(t, s)

		arriving := &bin{id: 1, x: 1}
		retractKey := func() {
			leaving.x = -1
			require.NoError(t, s.Update(leaving))
		}
		insertKey := func() { require.NoError(t, s.Insert(arriving)) }
		if itemFirst {
			retractKey()
			insertKey()
		} else {
			insertKey()
			retractKey()
		}
		assert.Equal(t, score.OfSoft(-1), mustScore(t, s))
		return pairIDs(t, s, "pairs")
	}

	want := []string{"i2-b1"}
	if diff := cmp.Diff(want, run(true)); diff != "" {
		t.Errorf("retract first (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, run(false)); diff != "" {
		t.Errorf("insert first (-want +got):\n%s", diff)
	}
}

func TestSettleIsIdempotent(t *testing.T) {
	p := build(t, stream.ForEach[*bin]().Penalize(score.OfSoft(3)).AsConstraint("bins"))
	s := newSession(t, p, false)
	require.NoError(t, s.Insert(&bin{id: 1}))
	require.NoError(t, s.Settle())
	require.NoError(t, s.Settle())
	assert.Equal(t, score.OfSoft(-3), mustScore(t, s))
}

func TestMatchAnalysis(t *testing.T) {
	p := build(t, stream.ForEach[*item]().Join(stream.ForEach[*bin](), sameX()).
		Penalize(score.OfSoft(2)).AsConstraint("pairs"))

	s := newSession(t, p, false)
	_, err := s.ConstraintMatchTotals()
	assert.ErrorIs(t, err, ErrMatchTrackingDisabled)
	_, err = s.Indictments()
	assert.ErrorIs(t, err, ErrMatchTrackingDisabled)

	s = newSession(t, p, true)
	a := &item{id: 1, x: 1, assigned: true}
	b1, b2 := &bin{id: 1, x: 1}, &bin{id: 2, x: 1}
	for _, f := range []any{a, b1, b2} {
		require.NoError(t, s.Insert(f))
	}
	totals, err := s.ConstraintMatchTotals()
	require.NoError(t, err)
	assert.Equal(t, 2, totals["pairs"].Count())
	assert.Equal(t, score.OfSoft(-4), totals["pairs"].Score)

	indictments, err := s.Indictments()
	require.NoError(t, err)
	assert.Equal(t, score.OfSoft(-4), indictments[a].Score)
	assert.Equal(t, score.OfSoft(-2), indictments[b1].Score)

	// Querying does not disturb the incremental state.
	require.NoError(t, s.Retract(b2))
	assert.Equal(t, score.OfSoft(-2), mustScore(t, s))
	totals, err = s.ConstraintMatchTotals()
	require.NoError(t, err)
	assert.Equal(t, 1, totals["pairs"].Count())
}

func TestFailingFunctionsBreakTheSession(t *testing.T) {
	explode := func(facts []any) bool {
		if facts[0].(*item).x < 0 {
			panic("negative x")
		}
		return true
	}
	p := build(t, stream.ForEach[*item]().Filter("explode", explode).
		Penalize(score.OfSoft(1)).AsConstraint("filtered"))
	s := newSession(t, p, false)

	require.NoError(t, s.Insert(&item{id: 1, x: -1, assigned: true}))
	_, err := s.CalculateScore()
	var perr *node.PropagationError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Error(), "negative x")

	_, err = s.CalculateScore()
	assert.ErrorIs(t, err, ErrSessionBroken)
	assert.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, s.Insert(&item{id: 2}), ErrSessionBroken)
	assert.Equal(t, perr, s.Broken())

	weighed := build(t, stream.ForEach[*bin]().Penalize(score.OfSoft(1)).
		WeighBy(stream.Weigh1(func(b *bin) int64 { return int64(10 / b.x) })).
		AsConstraint("weighed"))
	s = newSession(t, weighed, false)
	require.NoError(t, s.Insert(&bin{id: 1, x: 0}))
	_, err = s.CalculateScore()
	var ierr *node.ImpactError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "weighed", ierr.Constraint)
}

func TestFailingExplanationBreaksTheSession(t *testing.T) {
	p := build(t, stream.ForEach[*bin]().Penalize(score.OfSoft(1)).
		JustifyWith(func(facts []any, impact score.Score) any { panic("boom") }).
		AsConstraint("loud"))
	s := newSession(t, p, true)
	require.NoError(t, s.Insert(&bin{id: 1}))
	assert.Equal(t, score.OfSoft(-1), mustScore(t, s))

	_, err := s.ConstraintMatchTotals()
	var merr *score.MatchError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "loud", merr.Constraint)
	assert.Len(t, merr.Facts, 1)
	assert.ErrorContains(t, err, "boom")
	assert.Equal(t, merr, s.Broken())

	_, err = s.Indictments()
	assert.ErrorIs(t, err, ErrSessionBroken)
	_, err = s.CalculateScore()
	assert.ErrorIs(t, err, ErrSessionBroken)
}

func TestUncomparableJoinKeyBreaksTheSession(t *testing.T) {
	sliceX := func(facts []any) any {
		switch f := facts[0].(type) {
		case *item:
			return []int{f.x}
		case *bin:
			return []int{f.x}
		}
		return nil
	}
	p := build(t, stream.ForEach[*item]().Join(stream.ForEach[*bin](), stream.Equal("slice", sliceX, sliceX)).
		Penalize(score.OfSoft(1)).AsConstraint("sliced"))
	s := newSession(t, p, false)
	require.NoError(t, s.Insert(&item{id: 1, x: 1, assigned: true}))

	_, err := s.CalculateScore()
	var perr *node.PropagationError
	require.ErrorAs(t, err, &perr)
	assert.ErrorContains(t, err, "type []int is not comparable")
	assert.Equal(t, perr, s.Broken())
}

func TestContractViolationsPanic(t *testing.T) {
	p := build(t, stream.ForEach[*bin]().Penalize(score.OfSoft(1)).AsConstraint("bins"))
	s := newSession(t, p, false)
	b := &bin{id: 1}
	require.NoError(t, s.Insert(b))

	assert.IsType(t, &tuple.IllegalStateError{}, panicValue(func() { _ = s.Insert(b) }))
	assert.IsType(t, &tuple.IllegalStateError{}, panicValue(func() { _ = s.Update(&bin{id: 2}) }))
	assert.IsType(t, &tuple.IllegalStateError{}, panicValue(func() { _ = s.Retract(&bin{id: 3}) }))
	assert.IsType(t, &tuple.IllegalStateError{}, panicValue(func() { _ = s.Insert(nil) }))

	// Facts without a source are tracked but ignored.
	require.NoError(t, s.Insert("unrouted"))
	require.NoError(t, s.Retract("unrouted"))
	assert.Nil(t, s.Broken())
}

// randomConstraints covers every operator kind.
func randomConstraints() []*stream.Constraint {
	items := stream.ForEach[*item]()
	bins := stream.ForEach[*bin]()
	binRange := stream.Fn("range", func(facts []any) any {
		x := facts[0].(*bin).x
		return []any{x, x + 1, x + 1}
	})
	return []*stream.Constraint{
		items.Join(bins, sameX()).Penalize(score.OfSoft(1)).AsConstraint("pairs"),
		items.Join(bins, stream.LessThan("id", func(f []any) int { return f[0].(*item).id }, func(f []any) int { return f[0].(*bin).id })).
			Filter("odd", func(f []any) bool { return (f[0].(*item).x+f[1].(*bin).x)%2 == 1 }).
			Penalize(score.OfSoft(1)).AsConstraint("oddPairs"),
		items.IfNotExists(bins, sameX()).Penalize(score.OfHard(1)).AsConstraint("lonely"),
		items.IfExists(bins, sameX(), stream.Filtering("idBelow", func(l, r []any) bool { return l[0].(*item).id > r[0].(*bin).id })).
			Reward(score.OfSoft(2)).AsConstraint("covered"),
		stream.ForEachIncludingUnassigned[*item]().
			GroupBy([]stream.Mapping{stream.Fn("x", itemX)}, collect.Count(), collect.Sum("id", func(f []any) int64 { return int64(f[0].(*item).id) })).
			Filter("crowded", func(f []any) bool { return f[1].(int64) >= 2 }).
			Penalize(score.OfSoft(1)).WeighBy(func(f []any) int64 { return f[2].(int64) }).AsConstraint("crowded"),
		bins.Map(binRange).FlattenLast("spread", func(last any) []any { return last.([]any) }).
			Penalize(score.OfSoft(1)).WeighBy(func(f []any) int64 { return int64(f[0].(int)) }).AsConstraint("spread"),
		items.Map(stream.Fn("ix", itemX)).Concat(bins.Map(stream.Fn("bx", binX))).Distinct().
			Reward(score.OfSoft(1)).AsConstraint("distinctX"),
		items.GroupBy(nil, collect.Max("maxX", func(f []any) int { return f[0].(*item).x })).
			Penalize(score.OfHard(1)).WeighBy(func(f []any) int64 { return int64(f[0].(int)) }).AsConstraint("maxX"),
	}
}

func TestIncrementalMatchesScratch(t *testing.T) {
	p := build(t, randomConstraints()...)
	s := newSession(t, p, false)
	rng := rand.New(rand.NewSource(42))

	var items []*item
	var bins []*bin
	nextID := 0
	for step := 0; step < 2000; step++ {
		nextID++
		switch op := rng.Intn(6); {
		case op == 0 || len(items)+len(bins) == 0:
			it := &item{id: nextID, x: rng.Intn(5), assigned: rng.Intn(4) > 0}
			items = append(items, it)
			require.NoError(t, s.Insert(it))
		case op == 1:
			b := &bin{id: nextID, x: rng.Intn(5)}
			bins = append(bins, b)
			require.NoError(t, s.Insert(b))
		case op == 2 && len(items) > 0:
			it := items[rng.Intn(len(items))]
			it.x = rng.Intn(5)
			it.assigned = rng.Intn(4) > 0
			require.NoError(t, s.Update(it))
		case op == 3 && len(bins) > 0:
			b := bins[rng.Intn(len(bins))]
			b.x = rng.Intn(5)
			require.NoError(t, s.Update(b))
		case op == 4 && len(items) > 0:
			k := rng.Intn(len(items))
			require.NoError(t, s.Retract(items[k]))
			items = append(items[:k], items[k+1:]...)
		case op == 5 && len(bins) > 0:
			k := rng.Intn(len(bins))
			require.NoError(t, s.Retract(bins[k]))
			bins = append(bins[:k], bins[k+1:]...)
		}
		if rng.Intn(3) > 0 {
			continue
		}

		got, err := s.ConstraintScores()
		require.NoError(t, err)
		scratch := newSession(t, p, false)
		for _, f := range s.Facts() {
			require.NoError(t, scratch.Insert(f))
		}
		want, err := scratch.ConstraintScores()
		require.NoError(t, err)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("step %d: incremental scores differ from scratch (-want +got):\n%s", step, diff)
		}
	}
}

func TestMetricsDoNotChangeTheScore(t *testing.T) {
	p := build(t, stream.ForEach[*bin]().Penalize(score.OfSoft(1)).AsConstraint("bins"))
	s, err := New(p, Options{Metrics: true})
	require.NoError(t, err)
	require.NoError(t, s.Insert(&bin{id: 1}))
	assert.Equal(t, score.OfSoft(-1), mustScore(t, s))
	assert.NotEmpty(t, s.ID())
	require.NoError(t, s.Settle())
}

func TestSettleRecordsMetrics(t *testing.T) {
	p := build(t, stream.ForEach[*bin]().Penalize(score.OfSoft(1)).AsConstraint("bins"))
	s, err := New(p, Options{Metrics: true})
	require.NoError(t, err)

	settles := testutil.ToFloat64(settlesTotal)
	inserts := testutil.ToFloat64(factEvents.WithLabelValues("insert"))
	require.NoError(t, s.Insert(&bin{id: 1}))
	require.NoError(t, s.Insert(&bin{id: 2}))
	require.NoError(t, s.Settle())
	assert.Equal(t, settles+1, testutil.ToFloat64(settlesTotal))
	assert.Equal(t, inserts+2, testutil.ToFloat64(factEvents.WithLabelValues("insert")))

	// Quiescent settles and sessions without metrics are not counted.
	require.NoError(t, s.Settle())
	_, _ = s.CalculateScore()
	assert.Equal(t, settles+1, testutil.ToFloat64(settlesTotal))

	quiet := newSession(t, p, false)
	require.NoError(t, quiet.Insert(&bin{id: 3}))
	require.NoError(t, quiet.Settle())
	assert.Equal(t, settles+1, testutil.ToFloat64(settlesTotal))
}
