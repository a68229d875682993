package network

import (
	"fmt"
	"reflect"

	"scorenet/internal/index"
	"scorenet/internal/node"
	"scorenet/internal/score"
	"scorenet/internal/stream"
)

// Network is one runtime instance of a plan. It is owned by a single
// session and is not safe for concurrent use.
type Network struct {
	layers  [][]node.Propagator
	sources []binding
	routes  map[reflect.Type][]*node.Source
	nodes   int
}

type binding struct {
	class  reflect.Type
	source *node.Source
}

// Instantiate creates a fresh network whose scorers report to ledger.
// The ledger must have been built from LedgerSpecs.
func (p *Plan) Instantiate(ledger *score.Ledger) *Network {
	net := &Network{
		layers: make([][]node.Propagator, p.layers),
		routes: make(map[reflect.Type][]*node.Source),
	}
	// inputs[id][side] is the lifecycle a parent feeds for that input.
	inputs := make([][]node.Lifecycle, len(p.nodes))
	propagators := make([]node.Propagator, len(p.nodes))
	for i := len(p.nodes) - 1; i >= 0; i-- {
		n := p.nodes[i]
		in, prop := p.create(n, ledger, inputs)
		inputs[n.id] = in
		propagators[n.id] = prop
	}
	// Children are created first; layers list the nodes in topological order.
	for _, n := range p.nodes {
		prop := propagators[n.id]
		if prop == nil {
			continue
		}
		net.layers[n.layer] = append(net.layers[n.layer], prop)
		net.nodes++
		if src, ok := prop.(*node.Source); ok {
			net.sources = append(net.sources, binding{class: n.def.Class(), source: src})
		}
	}
	return net
}

func (p *Plan) create(n *planNode, ledger *score.Ledger, inputs [][]node.Lifecycle) ([]node.Lifecycle, node.Propagator) {
	if n.scorer != nil {
		c := ledger.Constraint(n.scorer.ID())
		if c == nil {
			panic(fmt.Sprintf("ledger has no constraint %q", n.scorer.ID()))
		}
		return []node.Lifecycle{node.NewScorer(c, n.slots[0], n.scorer.Weigher())}, nil
	}

	children := make([]node.Lifecycle, len(n.children))
	for i, e := range n.children {
		children[i] = inputs[e.child.id][e.side]
	}
	next := node.Discard
	if len(children) > 0 {
		next = node.FanOut(children...)
	}
	storeSize := len(n.children)
	name := n.name()
	def := n.def

	switch def.Kind() {
	case stream.KindForEach:
		src := node.NewSource(name, def.Accept(), storeSize, next)
		return nil, src
	case stream.KindFilter:
		f := node.NewFilter(name, n.slots[0], def.Predicate(), storeSize, next)
		return []node.Lifecycle{f}, f
	case stream.KindJoin:
		j := node.NewJoin(p.joinConfig(n, name), storeSize, next)
		return []node.Lifecycle{j.Left(), j.Right()}, j
	case stream.KindIfExists, stream.KindIfNotExists:
		e := node.NewExists(p.joinConfig(n, name), def.Kind() == stream.KindIfExists, storeSize, next)
		return []node.Lifecycle{e.Left(), e.Right()}, e
	case stream.KindGroupBy:
		g := node.NewGroup(name, n.slots[0], def.Mappings(), def.Collectors(), storeSize, next)
		return []node.Lifecycle{g}, g
	case stream.KindConcat:
		c := node.NewConcat(name, n.slots[0], n.slots[1], def.Arity(), storeSize, next)
		return []node.Lifecycle{c.Left(), c.Right()}, c
	case stream.KindFlattenLast:
		f := node.NewFlattenLast(name, n.slots[0], def.Flatten(), storeSize, next)
		return []node.Lifecycle{f}, f
	case stream.KindMap:
		m := node.NewMap(name, n.slots[0], def.Mappings(), storeSize, next)
		return []node.Lifecycle{m}, m
	default:
		panic(fmt.Sprintf("unknown stream kind %s", def.Kind()))
	}
}

func (p *Plan) joinConfig(n *planNode, name string) node.JoinConfig {
	left, right := n.def.JoinKeys()
	return node.JoinConfig{
		Name:      name,
		LeftSlot:  n.slots[0],
		RightSlot: n.slots[1],
		LeftKey:   index.Composite(left),
		RightKey:  index.Composite(right),
		Filter:    n.def.JoinFilter(),
	}
}

// Route returns the source nodes that receive a fact of the given type.
// A source receives the facts of its class and, when its class is an
// interface, the facts implementing it.
func (net *Network) Route(t reflect.Type) []*node.Source {
	if r, ok := net.routes[t]; ok {
		return r
	}
	var r []*node.Source
	for _, b := range net.sources {
		if b.class == t || (b.class.Kind() == reflect.Interface && t.Implements(b.class)) {
			r = append(r, b.source)
		}
	}
	net.routes[t] = r
	return r
}

// Settle propagates every queued event until the network is quiescent.
// Each layer propagates its retracts, then its updates, then its inserts,
// before the next layer starts.
func (net *Network) Settle() {
	for _, layer := range net.layers {
		for _, p := range layer {
			p.PropagateRetracts()
		}
		for _, p := range layer {
			p.PropagateUpdates()
		}
		for _, p := range layer {
			p.PropagateInserts()
		}
	}
}

// Nodes returns the number of propagating nodes.
func (net *Network) Nodes() int {
	return net.nodes
}

// Layers returns the number of layers.
func (net *Network) Layers() int {
	return len(net.layers)
}
