package stream

import "scorenet/internal/score"

// Constraint is a stream terminated by a weighted score impact.
type Constraint struct {
	id         string
	stream     *Stream
	weight     score.Score
	impactType score.ImpactType
	weigher    func(facts []any) int64
	justify    score.Justifier
	indict     score.Indicter
}

// ConstraintBuilder completes a Penalize or Reward call.
type ConstraintBuilder struct {
	c Constraint
}

// Penalize lowers the score by weight for every tuple of s.
func (s *Stream) Penalize(weight score.Score) *ConstraintBuilder {
	return &ConstraintBuilder{c: Constraint{stream: s, weight: weight, impactType: score.Penalty}}
}

// Reward raises the score by weight for every tuple of s.
func (s *Stream) Reward(weight score.Score) *ConstraintBuilder {
	return &ConstraintBuilder{c: Constraint{stream: s, weight: weight, impactType: score.Reward}}
}

// WeighBy multiplies the weight of each match by weigher's result.
func (b *ConstraintBuilder) WeighBy(weigher func(facts []any) int64) *ConstraintBuilder {
	b.c.weigher = weigher
	return b
}

// JustifyWith replaces the default justification (the match facts).
func (b *ConstraintBuilder) JustifyWith(justify score.Justifier) *ConstraintBuilder {
	b.c.justify = justify
	return b
}

// IndictWith replaces the default indicted objects (the match facts).
func (b *ConstraintBuilder) IndictWith(indict score.Indicter) *ConstraintBuilder {
	b.c.indict = indict
	return b
}

// AsConstraint names the constraint and completes it.
func (b *ConstraintBuilder) AsConstraint(id string) *Constraint {
	c := b.c
	c.id = id
	return &c
}

// ID returns the constraint id.
func (c *Constraint) ID() string { return c.id }

// Stream returns the matched stream.
func (c *Constraint) Stream() *Stream { return c.stream }

// Weight returns the declared constraint weight.
func (c *Constraint) Weight() score.Score { return c.weight }

// ImpactType tells whether matches are penalized or rewarded.
func (c *Constraint) ImpactType() score.ImpactType { return c.impactType }

// Weigher returns the match weigher, or nil when every match weighs 1.
func (c *Constraint) Weigher() func(facts []any) int64 { return c.weigher }

// LedgerSpec describes the constraint to a score ledger with the given
// effective weight.
func (c *Constraint) LedgerSpec(weight score.Score) score.ConstraintSpec {
	return score.ConstraintSpec{
		ID:         c.id,
		Weight:     weight,
		ImpactType: c.impactType,
		Justify:    c.justify,
		Indict:     c.indict,
	}
}
