// Package session drives one runtime network: it routes fact events to the
// source nodes, settles the network on demand and exposes the score and the
// match analysis of the constraint ledger.
//
// A Session is single-threaded. Callers that score in parallel create one
// session per goroutine from the same compiled plan.
package session

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"scorenet/internal/linked"
	"scorenet/internal/logging"
	"scorenet/internal/network"
	"scorenet/internal/node"
	"scorenet/internal/score"
	"scorenet/internal/tuple"
)

var (
	// ErrSessionBroken is returned by every operation of a session after a
	// constraint function failed. The network state is unreliable from then on.
	ErrSessionBroken = errors.New("session is broken")

	// ErrMatchTrackingDisabled is returned by the match analysis of a session
	// created without match tracking.
	ErrMatchTrackingDisabled = errors.New("match tracking is disabled")
)

// Options configures a session.
type Options struct {
	// MatchTracking keeps every match so match totals and indictments can be
	// queried. It costs memory proportional to the number of matches.
	MatchTracking bool
	// Metrics reports settle and fact event metrics to prometheus.
	Metrics bool
}

// Session holds the working facts of one solution and its incremental score.
type Session struct {
	id     string
	opts   Options
	plan   *network.Plan
	net    *network.Network
	ledger *score.Ledger

	facts   *linked.List[any]
	entries map[any]*linked.Entry[any]
	dirty   bool
	broken  error

	log *zap.Logger
}

// New creates a session over a fresh instance of plan.
func New(plan *network.Plan, opts Options) (*Session, error) {
	ledger, err := score.NewLedger(plan.LedgerSpecs(), opts.MatchTracking)
	if err != nil {
		return nil, fmt.Errorf("create ledger: %w", err)
	}
	s := &Session{
		id:      uuid.NewString(),
		opts:    opts,
		plan:    plan,
		net:     plan.Instantiate(ledger),
		ledger:  ledger,
		facts:   linked.New[any](),
		entries: make(map[any]*linked.Entry[any]),
	}
	s.log = logging.Get(logging.CategorySession).With(zap.String("session", s.id))
	s.log.Debug("session created",
		zap.Int("nodes", s.net.Nodes()),
		zap.Int("layers", s.net.Layers()),
		zap.Bool("match_tracking", opts.MatchTracking))
	return s, nil
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// Plan returns the plan the session was instantiated from.
func (s *Session) Plan() *network.Plan {
	return s.plan
}

// Options returns the options the session was created with.
func (s *Session) Options() Options {
	return s.opts
}

// Insert adds a fact. Facts are identified by equality, so mutable facts
// should be pointers. Inserting a nil or an already inserted fact panics.
func (s *Session) Insert(fact any) error {
	if fact == nil {
		panic(tuple.IllegalState("cannot insert a nil fact"))
	}
	if _, ok := s.entries[fact]; ok {
		panic(tuple.IllegalState("the fact (%v) was already inserted", fact))
	}
	return s.guard("insert", func() {
		s.entries[fact] = s.facts.Add(fact)
		for _, src := range s.net.Route(reflect.TypeOf(fact)) {
			src.InsertFact(fact)
		}
	})
}

// Update signals that an inserted fact changed. Updating an unknown fact
// panics.
func (s *Session) Update(fact any) error {
	s.mustBeKnown(fact)
	return s.guard("update", func() {
		for _, src := range s.net.Route(reflect.TypeOf(fact)) {
			src.UpdateFact(fact)
		}
	})
}

// Retract removes an inserted fact. Retracting an unknown fact panics.
func (s *Session) Retract(fact any) error {
	e := s.mustBeKnown(fact)
	return s.guard("retract", func() {
		e.Remove()
		delete(s.entries, fact)
		for _, src := range s.net.Route(reflect.TypeOf(fact)) {
			src.RetractFact(fact)
		}
	})
}

func (s *Session) mustBeKnown(fact any) *linked.Entry[any] {
	e, ok := s.entries[fact]
	if !ok {
		panic(tuple.IllegalState("the fact (%v) was never inserted", fact))
	}
	return e
}

// Facts returns the live facts in insertion order.
func (s *Session) Facts() []any {
	return s.facts.Values()
}

// Settle propagates every pending fact event. Settling a quiescent session
// does nothing.
func (s *Session) Settle() error {
	if s.broken != nil {
		return s.brokenErr()
	}
	if !s.dirty {
		return nil
	}
	return s.guard("settle", func() {
		start := time.Now()
		s.net.Settle()
		s.dirty = false
		if s.opts.Metrics {
			settlesTotal.Inc()
			settleDuration.Observe(time.Since(start).Seconds())
		}
	})
}

// CalculateScore settles the session and returns its score.
func (s *Session) CalculateScore() (score.Score, error) {
	if err := s.Settle(); err != nil {
		return score.Score{}, err
	}
	return s.ledger.Score(), nil
}

// ConstraintScores settles the session and returns the score of every active
// constraint.
func (s *Session) ConstraintScores() (map[string]score.Score, error) {
	if err := s.Settle(); err != nil {
		return nil, err
	}
	return s.ledger.ConstraintScores(), nil
}

// ConstraintMatchTotals settles the session and returns the matches of every
// active constraint.
func (s *Session) ConstraintMatchTotals() (map[string]*score.MatchTotal, error) {
	if !s.ledger.TracksMatches() {
		return nil, ErrMatchTrackingDisabled
	}
	if err := s.Settle(); err != nil {
		return nil, err
	}
	var totals map[string]*score.MatchTotal
	err := s.guard("explain", func() {
		totals = s.ledger.MatchTotals()
	})
	return totals, err
}

// Indictments settles the session and returns, for every indicted object,
// its share of the score and the matches it takes part in.
func (s *Session) Indictments() (map[any]*score.Indictment, error) {
	if !s.ledger.TracksMatches() {
		return nil, ErrMatchTrackingDisabled
	}
	if err := s.Settle(); err != nil {
		return nil, err
	}
	var indictments map[any]*score.Indictment
	err := s.guard("explain", func() {
		indictments = s.ledger.Indictments()
	})
	return indictments, err
}

// Broken returns the failure that broke the session, or nil.
func (s *Session) Broken() error {
	return s.broken
}

func (s *Session) brokenErr() error {
	return fmt.Errorf("%w: %w", ErrSessionBroken, s.broken)
}

// isFactEvent reports whether op queues work for the next settle.
func isFactEvent(op string) bool {
	switch op {
	case "insert", "update", "retract":
		return true
	}
	return false
}

// guard runs fn and turns a failing constraint function into an error that
// breaks the session. Contract violations keep panicking.
func (s *Session) guard(op string, fn func()) (err error) {
	if s.broken != nil {
		return s.brokenErr()
	}
	if isFactEvent(op) {
		s.dirty = true
		if s.opts.Metrics {
			factEvents.WithLabelValues(op).Inc()
		}
	}
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		var cause error
		switch e := r.(type) {
		case *node.ImpactError:
			cause = e
		case *node.PropagationError:
			cause = e
		case *score.MatchError:
			cause = e
		default:
			panic(r)
		}
		s.broken = cause
		if s.opts.Metrics {
			brokenTotal.Inc()
		}
		s.log.Error("session broken", zap.String("op", op), zap.Error(cause))
		err = cause
	}()
	fn()
	return nil
}
