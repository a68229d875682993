package node

import (
	"scorenet/internal/score"
	"scorenet/internal/tuple"
)

// Scorer is the terminal node of one constraint. Each input tuple is one
// match; its impact on the ledger is kept in the input slot so it can be
// undone exactly.
type Scorer struct {
	name       string
	constraint *score.ConstraintLedger
	slot       int
	weigher    func(facts []any) int64
}

// NewScorer creates the scorer of a constraint. A nil weigher weighs every
// match as 1.
func NewScorer(constraint *score.ConstraintLedger, slot int, weigher func(facts []any) int64) *Scorer {
	return &Scorer{
		name:       "scorer(" + constraint.ID() + ")",
		constraint: constraint,
		slot:       slot,
		weigher:    weigher,
	}
}

func (n *Scorer) String() string {
	return n.name
}

func (n *Scorer) weigh(facts []any) (w int64) {
	if n.weigher == nil {
		return 1
	}
	defer func() {
		if r := recover(); r != nil {
			if passThrough(r) {
				panic(r)
			}
			panic(&ImpactError{Constraint: n.constraint.ID(), Facts: snapshot(facts), Cause: causeOf(r)})
		}
	}()
	return n.weigher(facts)
}

func (n *Scorer) impact(in *tuple.Tuple) {
	w := n.weigh(in.Facts)
	in.Set(n.slot, n.constraint.Impact(w, in.Facts))
}

func (n *Scorer) Insert(in *tuple.Tuple) {
	mustBeNew(n.name, in, n.slot)
	n.impact(in)
}

func (n *Scorer) Update(in *tuple.Tuple) {
	v := in.Remove(n.slot)
	mustBeKnown(n.name, in, v)
	v.(score.Impact).Undo()
	n.impact(in)
}

func (n *Scorer) Retract(in *tuple.Tuple) {
	v := in.Remove(n.slot)
	mustBeKnown(n.name, in, v)
	v.(score.Impact).Undo()
}
