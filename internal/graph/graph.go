// Package graph holds the immutable task graph and its derived intent index.
//
// A Graph is built once per loaded Definition and is shared read-only across
// every session.
package graph

import (
	"fmt"
	"sort"

	"github.com/aretw0/wayfinder/pkg/domain"
)

// Graph is the validated, read-only task graph.
type Graph struct {
	name  string
	nodes map[string]*domain.Node
	order []string

	out map[string][]domain.Edge
	in  map[string][]domain.Edge

	start   string
	initial string

	// intents is the global intent index: pred edges grouped by label.
	intents domain.IntentPool

	services map[string]string
	model    domain.ModelConfig
	sampler  *Sampler
}

// Load validates def and builds the graph. The sampler drives the one-time
// initial flow draw and every weighted choice made against this graph.
func Load(def *domain.Definition, sampler *Sampler) (*Graph, error) {
	if def == nil {
		return nil, &domain.GraphError{Kind: "empty_definition", Msg: "definition is nil"}
	}
	if sampler == nil {
		sampler = NewSampler(nil)
	}

	g := &Graph{
		name:     def.Name,
		nodes:    make(map[string]*domain.Node, len(def.Nodes)),
		out:      make(map[string][]domain.Edge),
		in:       make(map[string][]domain.Edge),
		intents:  make(domain.IntentPool),
		services: make(map[string]string, len(def.ServicesNodes)),
		model:    def.Model,
		sampler:  sampler,
	}

	for i := range def.Nodes {
		n := def.Nodes[i]
		if n.ID == "" {
			return nil, &domain.GraphError{Kind: "missing_id", Ref: fmt.Sprintf("nodes[%d]", i), Msg: "node has no id"}
		}
		if _, dup := g.nodes[n.ID]; dup {
			return nil, &domain.GraphError{Kind: "duplicate_node", Ref: n.ID, Msg: "node id declared twice"}
		}
		if n.Resource.ID == "" && n.Resource.Name == "" {
			return nil, &domain.GraphError{Kind: "missing_resource", Ref: n.ID, Msg: "node has no resource"}
		}
		if n.IsStart() {
			if g.start != "" {
				return nil, &domain.GraphError{Kind: "duplicate_start", Ref: n.ID, Msg: fmt.Sprintf("start node already declared as %q", g.start)}
			}
			g.start = n.ID
		}
		g.nodes[n.ID] = &n
		g.order = append(g.order, n.ID)
	}

	for i, e := range def.Edges {
		for _, end := range []string{e.Source, e.Target} {
			if _, ok := g.nodes[end]; !ok {
				return nil, &domain.GraphError{
					Kind: "dangling_edge",
					Ref:  fmt.Sprintf("edges[%d]", i),
					Msg:  fmt.Sprintf("%s -> %s references unknown node %q", e.Source, e.Target, end),
				}
			}
		}
		e.Intent = domain.NormalizeIntent(e.Intent)
		if e.Attribute.Weight <= 0 {
			e.Attribute.Weight = 1
		}
		g.addEdge(e)
	}

	for _, src := range g.order {
		for _, e := range g.out[src] {
			if e.Attribute.Pred {
				g.intents[e.Intent] = append(g.intents[e.Intent], e.Candidate())
			}
		}
	}

	for svc, nodeID := range def.ServicesNodes {
		if _, ok := g.nodes[nodeID]; !ok {
			return nil, &domain.GraphError{Kind: "unknown_service_node", Ref: svc, Msg: fmt.Sprintf("service entry %q is not a node", nodeID)}
		}
		g.services[svc] = nodeID
	}

	initial, err := g.drawInitial()
	if err != nil {
		return nil, err
	}
	g.initial = initial
	return g, nil
}

// addEdge inserts e, replacing an earlier edge between the same endpoints in
// place.
func (g *Graph) addEdge(e domain.Edge) {
	replace := func(list []domain.Edge) ([]domain.Edge, bool) {
		for i := range list {
			if list[i].Source == e.Source && list[i].Target == e.Target {
				list[i] = e
				return list, true
			}
		}
		return append(list, e), false
	}
	g.out[e.Source], _ = replace(g.out[e.Source])
	g.in[e.Target], _ = replace(g.in[e.Target])
}

// drawInitial picks the initial flow among the service entry nodes, weighted
// by the weight of each entry's first inbound edge.
func (g *Graph) drawInitial() (string, error) {
	if len(g.services) == 0 {
		return "", nil
	}
	names := make([]string, 0, len(g.services))
	for name := range g.services {
		names = append(names, name)
	}
	sort.Strings(names)

	weights := make([]float64, len(names))
	for i, name := range names {
		weights[i] = 1
		if in := g.in[g.services[name]]; len(in) > 0 {
			weights[i] = in[0].Attribute.Weight
		}
	}
	idx, err := g.sampler.Choose(weights)
	if err != nil {
		return "", fmt.Errorf("failed to draw initial flow: %w", err)
	}
	return g.services[names[idx]], nil
}

// Name returns the definition name, if any.
func (g *Graph) Name() string { return g.name }

// Model returns the classifier configuration declared by the definition.
func (g *Graph) Model() domain.ModelConfig { return g.model }

// Sampler returns the random source bound to this graph.
func (g *Graph) Sampler() *Sampler { return g.sampler }

// Node returns the node with the given id.
func (g *Graph) Node(id string) (domain.Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return domain.Node{}, false
	}
	return *n, true
}

// Has reports whether id is a node of the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Nodes returns every node in declaration order.
func (g *Graph) Nodes() []domain.Node {
	out := make([]domain.Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, *g.nodes[id])
	}
	return out
}

// Edges returns every edge, grouped by source in node declaration order.
func (g *Graph) Edges() []domain.Edge {
	var out []domain.Edge
	for _, id := range g.order {
		out = append(out, g.out[id]...)
	}
	return out
}

// OutEdges returns the outgoing edges of id in insertion order.
func (g *Graph) OutEdges(id string) []domain.Edge {
	return append([]domain.Edge(nil), g.out[id]...)
}

// InEdges returns the incoming edges of id in insertion order.
func (g *Graph) InEdges(id string) []domain.Edge {
	return append([]domain.Edge(nil), g.in[id]...)
}

// Successors returns the target ids of the outgoing edges of id.
func (g *Graph) Successors(id string) []string {
	edges := g.out[id]
	out := make([]string, len(edges))
	for i, e := range edges {
		out[i] = e.Target
	}
	return out
}

// IsLeaf reports whether id has no outgoing edges.
func (g *Graph) IsLeaf(id string) bool {
	return len(g.out[id]) == 0
}

// StartNode returns the node tagged as start, if any.
func (g *Graph) StartNode() (string, bool) {
	return g.start, g.start != ""
}

// InitialNode returns the initial flow drawn at load time, if any.
func (g *Graph) InitialNode() (string, bool) {
	return g.initial, g.initial != ""
}

// ServicesNodes returns a copy of the service entry map.
func (g *Graph) ServicesNodes() map[string]string {
	out := make(map[string]string, len(g.services))
	for k, v := range g.services {
		out[k] = v
	}
	return out
}
