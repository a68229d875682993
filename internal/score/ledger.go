package score

import (
	"fmt"
	"sort"

	"scorenet/internal/index"
	"scorenet/internal/linked"
	"scorenet/internal/tuple"
)

// Ledger keeps the working score of one session: one running total per
// active constraint and, when match tracking is on, the live matches.
//
// Every contribution is returned to the caller as an Impact whose Undo
// removes exactly that contribution. Explanation maps are rebuilt lazily
// and dropped on every change.
type Ledger struct {
	trackMatches bool
	constraints  []*ConstraintLedger
	byID         map[string]*ConstraintLedger

	totals      map[string]*MatchTotal
	indictments map[any]*Indictment
}

// ConstraintLedger accumulates the impacts of a single constraint.
type ConstraintLedger struct {
	ledger     *Ledger
	id         string
	weight     Score
	impactType ImpactType
	score      Score
	matchCount int
	matches    *linked.List[*matchCarrier]
	justify    Justifier
	indict     Indicter
}

// Justifier builds the justification of a match from its facts.
type Justifier func(facts []any, impact Score) any

// Indicter lists the objects a match is blamed on.
type Indicter func(facts []any) []any

// ConstraintSpec declares one active constraint for a Ledger.
type ConstraintSpec struct {
	ID         string
	Weight     Score
	ImpactType ImpactType
	Justify    Justifier
	Indict     Indicter
}

// NewLedger creates a ledger for the given constraints.
// Zero-weight constraints must have been pruned by the caller.
func NewLedger(specs []ConstraintSpec, trackMatches bool) (*Ledger, error) {
	l := &Ledger{
		trackMatches: trackMatches,
		constraints:  make([]*ConstraintLedger, 0, len(specs)),
		byID:         make(map[string]*ConstraintLedger, len(specs)),
	}
	for _, spec := range specs {
		if spec.Weight.IsZero() {
			return nil, fmt.Errorf("constraint %q has a zero weight and should have been pruned", spec.ID)
		}
		if _, dup := l.byID[spec.ID]; dup {
			return nil, fmt.Errorf("constraint %q is declared twice", spec.ID)
		}
		c := &ConstraintLedger{
			ledger:     l,
			id:         spec.ID,
			weight:     spec.Weight,
			impactType: spec.ImpactType,
			justify:    spec.Justify,
			indict:     spec.Indict,
		}
		if trackMatches {
			c.matches = linked.New[*matchCarrier]()
		}
		l.constraints = append(l.constraints, c)
		l.byID[spec.ID] = c
	}
	return l, nil
}

// TracksMatches reports whether match tracking is enabled.
func (l *Ledger) TracksMatches() bool {
	return l.trackMatches
}

// Constraint returns the ledger of one constraint, or nil if it is not active.
func (l *Ledger) Constraint(id string) *ConstraintLedger {
	return l.byID[id]
}

// Score returns the sum of all constraint scores.
func (l *Ledger) Score() Score {
	var total Score
	for _, c := range l.constraints {
		total = total.Add(c.score)
	}
	return total
}

// ConstraintScores returns the score per constraint id.
func (l *Ledger) ConstraintScores() map[string]Score {
	out := make(map[string]Score, len(l.constraints))
	for _, c := range l.constraints {
		out[c.id] = c.score
	}
	return out
}

// ID returns the constraint id.
func (c *ConstraintLedger) ID() string {
	return c.id
}

// Weight returns the configured (unsigned) constraint weight.
func (c *ConstraintLedger) Weight() Score {
	return c.weight
}

// Score returns the current score of the constraint.
func (c *ConstraintLedger) Score() Score {
	return c.score
}

// MatchCount returns the number of live matches.
func (c *ConstraintLedger) MatchCount() int {
	return c.matchCount
}

// Impact adds one match with the given match weight.
// facts are copied only when match tracking is on.
func (c *ConstraintLedger) Impact(matchWeight int64, facts []any) Impact {
	delta := c.impactType.Signed(c.weight).Multiply(matchWeight)
	c.score = c.score.Add(delta)
	c.matchCount++
	impact := Impact{constraint: c, delta: delta}
	if c.matches != nil {
		snapshot := make([]any, len(facts))
		copy(snapshot, facts)
		impact.entry = c.matches.Add(&matchCarrier{facts: snapshot, score: delta})
		c.ledger.invalidate()
	}
	return impact
}

// Impact is one applied contribution. Undo subtracts exactly that contribution.
type Impact struct {
	constraint *ConstraintLedger
	delta      Score
	entry      *linked.Entry[*matchCarrier]
}

// Delta returns the score change the impact applied.
func (i Impact) Delta() Score {
	return i.delta
}

// Undo reverts the contribution. An impact must be undone at most once.
func (i Impact) Undo() {
	c := i.constraint
	if c == nil {
		panic(tuple.IllegalState("undo of an impact that was never applied"))
	}
	c.score = c.score.Subtract(i.delta)
	c.matchCount--
	if i.entry != nil {
		i.entry.Remove()
		c.ledger.invalidate()
	}
}

func (l *Ledger) invalidate() {
	l.totals = nil
	l.indictments = nil
}

type matchCarrier struct {
	facts []any
	score Score
	match *Match
}

func (m *matchCarrier) get(c *ConstraintLedger) *Match {
	if m.match == nil {
		defer m.wrapPanic(c)
		var justification any = DefaultJustification{Facts: m.facts}
		if c.justify != nil {
			justification = c.justify(m.facts, m.score)
		}
		indicted := m.facts
		if c.indict != nil {
			indicted = c.indict(m.facts)
		}
		for _, obj := range indicted {
			if !index.Hashable(obj) {
				panic(fmt.Errorf("indicted object %v of type %T is not comparable", obj, obj))
			}
		}
		m.match = &Match{
			Constraint:    c.id,
			Score:         m.score,
			Justification: justification,
			Indicted:      indicted,
		}
	}
	return m.match
}

// wrapPanic turns a failing justifier or indicter into a *MatchError.
func (m *matchCarrier) wrapPanic(c *ConstraintLedger) {
	r := recover()
	if r == nil {
		return
	}
	switch r.(type) {
	case *tuple.IllegalStateError, *MatchError:
		panic(r)
	}
	cause, ok := r.(error)
	if !ok {
		cause = fmt.Errorf("%v", r)
	}
	panic(&MatchError{Constraint: c.id, Facts: m.facts, Cause: cause})
}

// MatchError reports a failure while justifying or indicting a match.
type MatchError struct {
	Constraint string
	Facts      []any
	Cause      error
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("constraint (%s) failed to explain the match %v: %v", e.Constraint, e.Facts, e.Cause)
}

func (e *MatchError) Unwrap() error {
	return e.Cause
}

// sortedIDs returns the active constraint ids in ascending order.
func (l *Ledger) sortedIDs() []string {
	ids := make([]string, 0, len(l.constraints))
	for _, c := range l.constraints {
		ids = append(ids, c.id)
	}
	sort.Strings(ids)
	return ids
}
