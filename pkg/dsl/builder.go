package dsl

import (
	"fmt"

	"github.com/aretw0/wayfinder/pkg/adapters/memory"
	"github.com/aretw0/wayfinder/pkg/domain"
)

// Builder manages the graph construction.
type Builder struct {
	name  string
	order []string
	nodes map[string]*NodeBuilder
	edges []domain.Edge
}

// New creates a new graph builder.
func New(name string) *Builder {
	return &Builder{
		name:  name,
		nodes: make(map[string]*NodeBuilder),
	}
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node: domain.Node{
			ID: id,
		},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Start creates the entry node of the graph.
func (b *Builder) Start(id string) *NodeBuilder {
	nb := b.Add(id)
	nb.node.Type = domain.NodeTypeStart
	return nb
}

// Definition compiles the graph. Nodes keep the order they were added in.
// Edges pointing at undeclared nodes are reported here rather than at
// engine load time.
func (b *Builder) Definition() (domain.Definition, error) {
	def := domain.Definition{Name: b.name}
	for _, id := range b.order {
		def.Nodes = append(def.Nodes, b.nodes[id].node)
	}
	for _, e := range b.edges {
		if _, ok := b.nodes[e.Target]; !ok {
			return domain.Definition{}, fmt.Errorf("edge %s -> %s: target node not declared", e.Source, e.Target)
		}
	}
	def.Edges = append(def.Edges, b.edges...)
	return def, nil
}

// Build compiles the graph into a memory loader.
func (b *Builder) Build() (*memory.Loader, error) {
	def, err := b.Definition()
	if err != nil {
		return nil, fmt.Errorf("failed to build memory loader: %w", err)
	}
	return memory.NewLoader(def), nil
}
