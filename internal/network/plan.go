// Package network compiles constraint definitions into an immutable plan of
// shared nodes and instantiates that plan into per-session runtime networks.
//
// Compilation hash-conses the stream definitions: two definitions with the
// same operation, the same (already shared) parents and the same function
// identities become one plan node, whatever their children are. Each node is
// placed one layer after its deepest parent, and reserves one store slot per
// input in the tuples of each parent.
package network

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"go.uber.org/zap"

	"scorenet/internal/logging"
	"scorenet/internal/score"
	"scorenet/internal/stream"
)

// ErrNoConstraints is returned when a plan is built from no constraints.
var ErrNoConstraints = errors.New("no constraints to compile")

// maxSourcesPerClass is forEach plus forEachIncludingUnassigned.
const maxSourcesPerClass = 2

// Options tunes a build.
type Options struct {
	// Weights overrides constraint weights by constraint id.
	// A zero weight removes the constraint from the plan.
	Weights map[string]score.Score
}

// Plan is a compiled, immutable network. It is safe to instantiate from
// several goroutines at once.
type Plan struct {
	nodes    []*planNode
	interned map[*stream.Stream]*planNode
	specs    []score.ConstraintSpec
	layers   int
	shared   int
	pruned   []string
}

type planNode struct {
	id       int
	def      *stream.Stream
	scorer   *stream.Constraint
	parents  []*planNode
	layer    int
	slots    []int
	children []edge
}

// edge connects a node to one input of a child.
type edge struct {
	child *planNode
	side  int
}

type shareKey struct {
	identity string
	class    reflect.Type
	left     *planNode
	right    *planNode
}

func (n *planNode) name() string {
	if n.scorer != nil {
		return fmt.Sprintf("scorer(%s)#%d", n.scorer.ID(), n.id)
	}
	return fmt.Sprintf("%s#%d", n.def, n.id)
}

type builder struct {
	nodes    []*planNode
	interned map[*stream.Stream]*planNode
	shared   map[shareKey]*planNode
	hits     int
}

// Build compiles constraints into a plan.
func Build(constraints []*stream.Constraint, opts Options) (*Plan, error) {
	if len(constraints) == 0 {
		return nil, ErrNoConstraints
	}
	log := logging.Get(logging.CategoryNetwork)

	b := &builder{
		interned: make(map[*stream.Stream]*planNode),
		shared:   make(map[shareKey]*planNode),
	}
	p := &Plan{}
	seen := make(map[string]bool, len(constraints))
	for _, c := range constraints {
		id := c.ID()
		if id == "" {
			return nil, fmt.Errorf("constraint on %s has no id", c.Stream())
		}
		if seen[id] {
			return nil, fmt.Errorf("constraint %q is declared twice", id)
		}
		seen[id] = true
		if err := c.Stream().Err(); err != nil {
			return nil, fmt.Errorf("constraint %q: %w", id, err)
		}
		weight := c.Weight()
		if w, ok := opts.Weights[id]; ok {
			weight = w
		}
		if weight.IsZero() {
			p.pruned = append(p.pruned, id)
			continue
		}
		parent := b.intern(c.Stream())
		b.add(&planNode{scorer: c, parents: []*planNode{parent}})
		p.specs = append(p.specs, c.LedgerSpec(weight))
	}
	for id := range opts.Weights {
		if !seen[id] {
			log.Warn("weight override for an unknown constraint", zap.String("constraint", id))
		}
	}

	order, err := topologicalOrder(b.nodes)
	if err != nil {
		return nil, err
	}
	if err := checkSources(order); err != nil {
		return nil, err
	}
	for _, n := range order {
		n.slots = make([]int, len(n.parents))
		for i, parent := range n.parents {
			n.layer = max(n.layer, parent.layer+1)
			n.slots[i] = len(parent.children)
			parent.children = append(parent.children, edge{child: n, side: i})
		}
		if n.scorer == nil {
			p.layers = max(p.layers, n.layer+1)
		}
	}
	p.nodes = order
	p.interned = b.interned
	p.shared = b.hits

	log.Debug("compiled network",
		zap.Int("nodes", p.NodeCount()),
		zap.Int("constraints", len(p.specs)),
		zap.Int("layers", p.layers),
		zap.Int("shared", p.shared),
		zap.Strings("pruned", p.pruned))
	return p, nil
}

func (b *builder) add(n *planNode) *planNode {
	n.id = len(b.nodes)
	b.nodes = append(b.nodes, n)
	return n
}

func (b *builder) intern(s *stream.Stream) *planNode {
	if n, ok := b.interned[s]; ok {
		return n
	}
	parents := make([]*planNode, len(s.Parents()))
	for i, parent := range s.Parents() {
		parents[i] = b.intern(parent)
	}
	key, shareable := keyFor(s, parents)
	if shareable {
		if n, ok := b.shared[key]; ok {
			b.hits++
			b.interned[s] = n
			return n
		}
	}
	n := b.add(&planNode{def: s, parents: parents})
	if shareable {
		b.shared[key] = n
	}
	b.interned[s] = n
	return n
}

func keyFor(s *stream.Stream, parents []*planNode) (shareKey, bool) {
	if s.Identity() == "" {
		return shareKey{}, false
	}
	key := shareKey{identity: s.Identity(), class: s.Class()}
	if len(parents) > 0 {
		key.left = parents[0]
	}
	if len(parents) > 1 {
		key.right = parents[1]
	}
	return key, true
}

// topologicalOrder sorts nodes with Kahn's algorithm, parents first, ties
// broken by node id. It fails on cycles and on parents outside the node set.
func topologicalOrder(nodes []*planNode) ([]*planNode, error) {
	known := make(map[*planNode]bool, len(nodes))
	for _, n := range nodes {
		known[n] = true
	}
	inDegree := make(map[*planNode]int, len(nodes))
	children := make(map[*planNode][]*planNode, len(nodes))
	for _, n := range nodes {
		for _, parent := range n.parents {
			if !known[parent] {
				return nil, fmt.Errorf("node %s has a parent outside the network", n.name())
			}
			inDegree[n]++
			children[parent] = append(children[parent], n)
		}
	}

	var queue []*planNode
	for _, n := range nodes {
		if inDegree[n] == 0 {
			queue = append(queue, n)
		}
	}
	order := make([]*planNode, 0, len(nodes))
	for len(queue) > 0 {
		sort.Slice(queue, func(i, j int) bool { return queue[i].id < queue[j].id })
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, child := range children[n] {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}
	if len(order) != len(nodes) {
		return nil, fmt.Errorf("network has a cycle: %d of %d nodes ordered", len(order), len(nodes))
	}
	return order, nil
}

// checkSources asserts the source invariant of a shared node set. Sharing
// already yields at most one forEach and one forEachIncludingUnassigned node
// per class, so Build only fails here if node sharing is broken.
func checkSources(nodes []*planNode) error {
	perClass := make(map[reflect.Type]int)
	for _, n := range nodes {
		if n.def == nil || n.def.Kind() != stream.KindForEach {
			continue
		}
		perClass[n.def.Class()]++
		if perClass[n.def.Class()] > maxSourcesPerClass {
			return fmt.Errorf("class %s has more than %d source nodes", n.def.Class(), maxSourcesPerClass)
		}
	}
	return nil
}

// NodeCount returns the number of nodes, scorers excluded.
func (p *Plan) NodeCount() int {
	count := 0
	for _, n := range p.nodes {
		if n.scorer == nil {
			count++
		}
	}
	return count
}

// Layers returns the number of propagation layers.
func (p *Plan) Layers() int {
	return p.layers
}

// Shared returns how many definitions were folded into an existing node.
func (p *Plan) Shared() int {
	return p.shared
}

// Pruned returns the ids of the constraints removed for a zero weight.
func (p *Plan) Pruned() []string {
	return p.pruned
}

// LedgerSpecs returns the active constraints with their effective weights.
func (p *Plan) LedgerSpecs() []score.ConstraintSpec {
	return p.specs
}

// NodeOf returns the id of the node a definition compiled to.
func (p *Plan) NodeOf(s *stream.Stream) (int, bool) {
	n, ok := p.interned[s]
	if !ok {
		return 0, false
	}
	return n.id, true
}

// LayerOf returns the layer of the node a definition compiled to, or -1.
func (p *Plan) LayerOf(s *stream.Stream) int {
	n, ok := p.interned[s]
	if !ok {
		return -1
	}
	return n.layer
}
