package director

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"scorenet/internal/config"
	"scorenet/internal/network"
	"scorenet/internal/node"
	"scorenet/internal/score"
	"scorenet/internal/session"
	"scorenet/internal/stream"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type task struct {
	load int
}

func heavy() *stream.Constraint {
	return stream.ForEach[*task]().
		Filter("heavy", stream.Test1(func(t *task) bool {
			if t.load < 0 {
				panic("negative load")
			}
			return t.load > 5
		})).
		Penalize(score.OfHard(1)).
		AsConstraint("heavy")
}

func plan(t *testing.T) *network.Plan {
	t.Helper()
	p, err := network.Build([]*stream.Constraint{
		heavy(),
		stream.ForEach[*task]().Penalize(score.OfSoft(1)).
			WeighBy(stream.Weigh1(func(t *task) int64 { return int64(t.load) })).
			AsConstraint("load"),
	}, network.Options{})
	require.NoError(t, err)
	return p
}

func fullAssert(every int) config.SessionConfig {
	return config.SessionConfig{EnvironmentMode: config.ModeFullAssert, AssertEvery: every}
}

func TestFullAssertDetectsCorruption(t *testing.T) {
	d, err := New(plan(t), fullAssert(1), false)
	require.NoError(t, err)

	tk := &task{load: 7}
	require.NoError(t, d.Insert(tk))
	sc, err := d.CalculateScore()
	require.NoError(t, err)
	assert.Equal(t, score.Of(-1, -7), sc)

	// Changed without telling the session.
	tk.load = 2
	_, err = d.CalculateScore()
	require.ErrorIs(t, err, ErrScoreCorruption)

	var cerr *CorruptionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, score.Of(-1, -7), cerr.Incremental)
	assert.Equal(t, score.OfSoft(-2), cerr.Scratch)
	assert.Equal(t, []ConstraintDiff{
		{Constraint: "heavy", Incremental: score.OfHard(-1), Scratch: score.Score{}},
		{Constraint: "load", Incremental: score.OfSoft(-7), Scratch: score.OfSoft(-2)},
	}, cerr.Diffs)
	assert.Contains(t, err.Error(), "heavy: -1hard/0soft != 0hard/0soft")

	require.NoError(t, d.Update(tk))
	_, err = d.CalculateScore()
	assert.NoError(t, err)
}

func TestAssertEvery(t *testing.T) {
	d, err := New(plan(t), fullAssert(3), false)
	require.NoError(t, err)
	tk := &task{load: 1}
	require.NoError(t, d.Insert(tk))
	tk.load = 9

	for i := 0; i < 2; i++ {
		_, err = d.CalculateScore()
		require.NoError(t, err)
	}
	_, err = d.CalculateScore()
	assert.ErrorIs(t, err, ErrScoreCorruption)
}

func TestReproducibleModeNeverAsserts(t *testing.T) {
	d, err := New(plan(t), config.SessionConfig{AssertEvery: 1}, false)
	require.NoError(t, err)
	tk := &task{load: 1}
	require.NoError(t, d.Insert(tk))
	tk.load = 9
	_, err = d.CalculateScore()
	assert.NoError(t, err)

	assert.ErrorIs(t, d.AssertScore(), ErrScoreCorruption)
}

func TestRebuildRecoversABrokenSession(t *testing.T) {
	d, err := New(plan(t), fullAssert(1), false)
	require.NoError(t, err)
	tk := &task{load: -1}
	require.NoError(t, d.Insert(tk))
	require.NoError(t, d.Insert(&task{load: 6}))

	_, err = d.CalculateScore()
	var perr *node.PropagationError
	require.ErrorAs(t, err, &perr)
	_, err = d.CalculateScore()
	require.ErrorIs(t, err, session.ErrSessionBroken)

	broken := d.Session().ID()
	tk.load = 3
	require.NoError(t, d.Rebuild())
	assert.NotEqual(t, broken, d.Session().ID())

	sc, err := d.CalculateScore()
	require.NoError(t, err)
	assert.Equal(t, score.Of(-1, -9), sc)
}

func TestScoreAll(t *testing.T) {
	p := plan(t)
	solutions := make([][]any, 20)
	for i := range solutions {
		solutions[i] = []any{&task{load: i}, &task{load: 1}}
	}

	scores, err := ScoreAll(context.Background(), p, session.Options{}, solutions, 4)
	require.NoError(t, err)
	require.Len(t, scores, len(solutions))
	for i, sc := range scores {
		want := score.OfSoft(-int64(i + 1))
		if i > 5 {
			want = score.Of(-1, -int64(i+1))
		}
		assert.Equal(t, want, sc, "solution %d", i)
	}
}

func TestScoreAllStopsOnFailure(t *testing.T) {
	solutions := [][]any{{&task{load: 1}}, {&task{load: -1}}, {&task{load: 2}}}
	_, err := ScoreAll(context.Background(), plan(t), session.Options{}, solutions, 0)
	var perr *node.PropagationError
	assert.ErrorAs(t, err, &perr)
	assert.ErrorContains(t, err, "solution 1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ScoreAll(ctx, plan(t), session.Options{}, solutions, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
