// Package collect holds the reversible aggregation functions used by group
// nodes. Every accumulation returns an Undo that removes exactly that
// contribution again, so a group never has to be re-scanned when one of its
// members leaves.
package collect

import (
	"cmp"
	"strings"

	"scorenet/internal/linked"
)

// Collector folds the facts of a group's members into one result.
//
// Name identifies the collector for node sharing: two collectors with the
// same non-empty name are assumed to compute the same thing. A collector
// built from an unnamed function has an empty name and is never shared.
type Collector interface {
	Name() string
	NewContainer() any
	Accumulate(container any, facts []any) Undo
	Finish(container any) any
}

func nameOf(kind string, args ...string) string {
	for _, a := range args {
		if a == "" {
			return ""
		}
	}
	return kind + "(" + strings.Join(args, ",") + ")"
}

type count struct{}

// Count counts the members of a group.
func Count() Collector {
	return count{}
}

func (count) Name() string { return "count()" }

func (count) NewContainer() any { return new(int64) }

func (count) Accumulate(container any, _ []any) Undo {
	total := container.(*int64)
	*total++
	return subtract[int64]{total: total, delta: 1}
}

func (count) Finish(container any) any { return *container.(*int64) }

type countDistinct struct {
	name string
	fn   func(facts []any) any
}

// CountDistinct counts the distinct values fn maps the members to.
// The values must be comparable.
func CountDistinct(name string, fn func(facts []any) any) Collector {
	return &countDistinct{name: nameOf("countDistinct", name), fn: fn}
}

func (c *countDistinct) Name() string { return c.name }

func (c *countDistinct) NewContainer() any { return newBag[any]() }

func (c *countDistinct) Accumulate(container any, facts []any) Undo {
	return container.(*bag[any]).add(c.fn(facts))
}

func (c *countDistinct) Finish(container any) any {
	return int64(container.(*bag[any]).len())
}

type sum struct {
	name string
	fn   func(facts []any) int64
}

// Sum adds up the values fn maps the members to.
func Sum(name string, fn func(facts []any) int64) Collector {
	return &sum{name: nameOf("sum", name), fn: fn}
}

func (c *sum) Name() string { return c.name }

func (c *sum) NewContainer() any { return new(int64) }

func (c *sum) Accumulate(container any, facts []any) Undo {
	total := container.(*int64)
	v := c.fn(facts)
	*total += v
	return subtract[int64]{total: total, delta: v}
}

func (c *sum) Finish(container any) any { return *container.(*int64) }

type average struct {
	name string
	fn   func(facts []any) int64
}

type averageContainer struct {
	sum   int64
	count int64
}

// Average computes the mean of the values fn maps the members to, as a
// float64. An empty group has no average: the result is nil.
func Average(name string, fn func(facts []any) int64) Collector {
	return &average{name: nameOf("average", name), fn: fn}
}

func (c *average) Name() string { return c.name }

func (c *average) NewContainer() any { return &averageContainer{} }

func (c *average) Accumulate(container any, facts []any) Undo {
	a := container.(*averageContainer)
	v := c.fn(facts)
	a.sum += v
	a.count++
	return composite{
		subtract[int64]{total: &a.sum, delta: v},
		subtract[int64]{total: &a.count, delta: 1},
	}
}

func (c *average) Finish(container any) any {
	a := container.(*averageContainer)
	if a.count == 0 {
		return nil
	}
	return float64(a.sum) / float64(a.count)
}

type extreme[K cmp.Ordered] struct {
	name string
	fn   func(facts []any) K
	max  bool
}

// Min finds the smallest value fn maps the members to, or nil for an empty group.
func Min[K cmp.Ordered](name string, fn func(facts []any) K) Collector {
	return &extreme[K]{name: nameOf("min", name), fn: fn}
}

// Max finds the largest value fn maps the members to, or nil for an empty group.
func Max[K cmp.Ordered](name string, fn func(facts []any) K) Collector {
	return &extreme[K]{name: nameOf("max", name), fn: fn, max: true}
}

func (c *extreme[K]) Name() string { return c.name }

func (c *extreme[K]) NewContainer() any { return newRanked[K](c.max) }

func (c *extreme[K]) Accumulate(container any, facts []any) Undo {
	return container.(*ranked[K]).add(c.fn(facts))
}

func (c *extreme[K]) Finish(container any) any {
	best, ok := container.(*ranked[K]).first()
	if !ok {
		return nil
	}
	return best
}

type toList struct {
	name string
	fn   func(facts []any) any
}

// ToList collects the values fn maps the members to, duplicates included,
// in accumulation order. The result is a fresh []any on every finish.
func ToList(name string, fn func(facts []any) any) Collector {
	return &toList{name: nameOf("toList", name), fn: fn}
}

func (c *toList) Name() string { return c.name }

func (c *toList) NewContainer() any { return linked.New[any]() }

func (c *toList) Accumulate(container any, facts []any) Undo {
	return unlink{entry: container.(*linked.List[any]).Add(c.fn(facts))}
}

func (c *toList) Finish(container any) any {
	return container.(*linked.List[any]).Values()
}

type toSet struct {
	name string
	fn   func(facts []any) any
}

// ToSet collects the distinct values fn maps the members to, in order of
// first occurrence. The values must be comparable.
func ToSet(name string, fn func(facts []any) any) Collector {
	return &toSet{name: nameOf("toSet", name), fn: fn}
}

func (c *toSet) Name() string { return c.name }

func (c *toSet) NewContainer() any { return newBag[any]() }

func (c *toSet) Accumulate(container any, facts []any) Undo {
	return container.(*bag[any]).add(c.fn(facts))
}

func (c *toSet) Finish(container any) any {
	return container.(*bag[any]).order.Values()
}

type compose struct {
	name       string
	collectors []Collector
	finish     func(results []any) any
}

// Compose runs several collectors over the same members and merges their
// results with finish. A nil finish returns the results as a []any.
func Compose(name string, finish func(results []any) any, collectors ...Collector) Collector {
	names := make([]string, 0, len(collectors)+1)
	if finish != nil {
		names = append(names, name)
	}
	for _, c := range collectors {
		names = append(names, c.Name())
	}
	return &compose{name: nameOf("compose", names...), collectors: collectors, finish: finish}
}

func (c *compose) Name() string { return c.name }

func (c *compose) NewContainer() any {
	containers := make([]any, len(c.collectors))
	for i, sub := range c.collectors {
		containers[i] = sub.NewContainer()
	}
	return containers
}

func (c *compose) Accumulate(container any, facts []any) Undo {
	containers := container.([]any)
	undos := make(composite, len(c.collectors))
	for i, sub := range c.collectors {
		undos[i] = sub.Accumulate(containers[i], facts)
	}
	return undos
}

func (c *compose) Finish(container any) any {
	containers := container.([]any)
	results := make([]any, len(c.collectors))
	for i, sub := range c.collectors {
		results[i] = sub.Finish(containers[i])
	}
	if c.finish == nil {
		return results
	}
	return c.finish(results)
}

type conditional struct {
	name      string
	predicate func(facts []any) bool
	delegate  Collector
}

// Conditional only lets members for which predicate holds reach delegate.
func Conditional(name string, predicate func(facts []any) bool, delegate Collector) Collector {
	return &conditional{
		name:      nameOf("conditional", name, delegate.Name()),
		predicate: predicate,
		delegate:  delegate,
	}
}

func (c *conditional) Name() string { return c.name }

func (c *conditional) NewContainer() any { return c.delegate.NewContainer() }

func (c *conditional) Accumulate(container any, facts []any) Undo {
	if !c.predicate(facts) {
		return Nop
	}
	return c.delegate.Accumulate(container, facts)
}

func (c *conditional) Finish(container any) any { return c.delegate.Finish(container) }
