package cloudbalance

import (
	"scorenet/internal/collect"
	"scorenet/internal/score"
	"scorenet/internal/stream"
)

const (
	ConstraintCPU     = "requiredCpuPowerTotal"
	ConstraintMemory  = "requiredMemoryTotal"
	ConstraintNetwork = "requiredNetworkBandwidthTotal"
	ConstraintCost    = "computerCost"
)

func computerOf(facts []any) any { return facts[0].(*Process).Computer }

// Constraints returns the cloud balancing constraints.
func Constraints() []*stream.Constraint {
	return []*stream.Constraint{
		capacity(ConstraintCPU, "cpu",
			func(p *Process) int64 { return p.CPU },
			func(c *Computer) int64 { return c.CPU }),
		capacity(ConstraintMemory, "memory",
			func(p *Process) int64 { return p.Memory },
			func(c *Computer) int64 { return c.Memory }),
		capacity(ConstraintNetwork, "network",
			func(p *Process) int64 { return p.Network },
			func(c *Computer) int64 { return c.Network }),
		computerCost(),
	}
}

// capacity penalizes every computer whose summed process requirement exceeds
// its capacity, by the excess.
func capacity(id, resource string, required func(*Process) int64, available func(*Computer) int64) *stream.Constraint {
	excess := func(facts []any) int64 {
		return facts[1].(int64) - available(facts[0].(*Computer))
	}
	return stream.ForEach[*Process]().
		GroupBy([]stream.Mapping{stream.Fn("computer", computerOf)},
			collect.Sum(resource, func(facts []any) int64 { return required(facts[0].(*Process)) })).
		Filter(resource+"OverCapacity", func(facts []any) bool { return excess(facts) > 0 }).
		Penalize(score.OfHard(1)).
		WeighBy(excess).
		IndictWith(func(facts []any) []any { return facts[:1] }).
		AsConstraint(id)
}

// computerCost penalizes every computer that runs at least one process, by
// its cost.
func computerCost() *stream.Constraint {
	return stream.ForEach[*Computer]().
		IfExists(stream.ForEach[*Process](),
			stream.Equal("computer", func(facts []any) any { return facts[0] }, computerOf)).
		Penalize(score.OfSoft(1)).
		WeighBy(stream.Weigh1(func(c *Computer) int64 { return c.Cost })).
		AsConstraint(ConstraintCost)
}
