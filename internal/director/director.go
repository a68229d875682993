// Package director wraps a session with the environment checks of the
// configured environment mode and scores independent solutions in parallel.
//
// In full_assert mode every N-th score calculation rebuilds a session from
// scratch over the live facts and compares both scores constraint by
// constraint. A mismatch is reported as a *CorruptionError.
package director

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"scorenet/internal/config"
	"scorenet/internal/logging"
	"scorenet/internal/network"
	"scorenet/internal/score"
	"scorenet/internal/session"
)

// ErrScoreCorruption is matched by every *CorruptionError.
var ErrScoreCorruption = errors.New("score corruption")

// ConstraintDiff is one constraint whose incremental score is wrong.
type ConstraintDiff struct {
	Constraint  string
	Incremental score.Score
	Scratch     score.Score
}

// CorruptionError reports an incremental score that differs from the score
// of a session rebuilt from scratch.
type CorruptionError struct {
	Incremental score.Score
	Scratch     score.Score
	Diffs       []ConstraintDiff
}

func (e *CorruptionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "score corruption: incremental %s, scratch %s", e.Incremental, e.Scratch)
	for _, d := range e.Diffs {
		fmt.Fprintf(&b, "; %s: %s != %s", d.Constraint, d.Incremental, d.Scratch)
	}
	return b.String()
}

func (e *CorruptionError) Is(target error) bool {
	return target == ErrScoreCorruption
}

// Director owns one session and the environment checks around it.
type Director struct {
	plan         *network.Plan
	opts         session.Options
	mode         config.EnvironmentMode
	assertEvery  int
	session      *session.Session
	calculations int
	log          *zap.Logger
}

// New creates a director with a fresh session over plan.
func New(plan *network.Plan, cfg config.SessionConfig, metrics bool) (*Director, error) {
	opts := session.Options{MatchTracking: cfg.MatchTracking, Metrics: metrics}
	s, err := session.New(plan, opts)
	if err != nil {
		return nil, err
	}
	every := cfg.AssertEvery
	if every < 1 {
		every = 1
	}
	mode := cfg.EnvironmentMode
	if mode == "" {
		mode = config.ModeReproducible
	}
	return &Director{
		plan:        plan,
		opts:        opts,
		mode:        mode,
		assertEvery: every,
		session:     s,
		log:         logging.Get(logging.CategoryDirector),
	}, nil
}

// Session returns the current session. Rebuild replaces it.
func (d *Director) Session() *session.Session {
	return d.session
}

func (d *Director) Insert(fact any) error  { return d.session.Insert(fact) }
func (d *Director) Update(fact any) error  { return d.session.Update(fact) }
func (d *Director) Retract(fact any) error { return d.session.Retract(fact) }

// CalculateScore returns the session score, asserting it first when the
// environment mode asks for it.
func (d *Director) CalculateScore() (score.Score, error) {
	sc, err := d.session.CalculateScore()
	if err != nil {
		return score.Score{}, err
	}
	d.calculations++
	if d.mode == config.ModeFullAssert && d.calculations%d.assertEvery == 0 {
		if err := d.AssertScore(); err != nil {
			return sc, err
		}
	}
	return sc, nil
}

// AssertScore compares the incremental constraint scores with those of a
// session rebuilt from the live facts.
func (d *Director) AssertScore() error {
	got, err := d.session.ConstraintScores()
	if err != nil {
		return err
	}
	scratch, err := d.fresh()
	if err != nil {
		return fmt.Errorf("rebuild for assertion: %w", err)
	}
	want, err := scratch.ConstraintScores()
	if err != nil {
		return fmt.Errorf("rebuild for assertion: %w", err)
	}

	var diffs []ConstraintDiff
	var incremental, total score.Score
	for id, w := range want {
		g := got[id]
		incremental = incremental.Add(g)
		total = total.Add(w)
		if g != w {
			diffs = append(diffs, ConstraintDiff{Constraint: id, Incremental: g, Scratch: w})
		}
	}
	if len(diffs) == 0 {
		return nil
	}
	sort.Slice(diffs, func(i, j int) bool { return diffs[i].Constraint < diffs[j].Constraint })
	cerr := &CorruptionError{Incremental: incremental, Scratch: total, Diffs: diffs}
	d.log.Error("score corruption",
		zap.String("session", d.session.ID()),
		zap.Stringer("incremental", incremental),
		zap.Stringer("scratch", total),
		zap.Int("constraints", len(diffs)))
	return cerr
}

// Rebuild replaces the session by a fresh one holding the same live facts.
// It recovers a broken session when the failing fact has been fixed.
func (d *Director) Rebuild() error {
	s, err := d.fresh()
	if err != nil {
		return err
	}
	d.log.Info("session rebuilt", zap.String("old", d.session.ID()), zap.String("new", s.ID()))
	d.session = s
	return nil
}

func (d *Director) fresh() (*session.Session, error) {
	s, err := session.New(d.plan, d.opts)
	if err != nil {
		return nil, err
	}
	for _, f := range d.session.Facts() {
		if err := s.Insert(f); err != nil {
			return nil, err
		}
	}
	return s, nil
}
