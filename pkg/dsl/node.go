package dsl

import (
	"strings"

	"github.com/aretw0/wayfinder/pkg/domain"
)

// NodeBuilder provides a fluent API for configuring a node and its
// outgoing edges.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Worker sets the resource executing the node. The name doubles as ID.
func (n *NodeBuilder) Worker(name string) *NodeBuilder {
	return n.Resource(name, name)
}

// Resource sets the resource executing the node.
func (n *NodeBuilder) Resource(id, name string) *NodeBuilder {
	n.node.Resource = domain.Resource{ID: id, Name: name}
	return n
}

// Say sets the message the node delivers.
func (n *NodeBuilder) Say(value string) *NodeBuilder {
	n.node.Attribute.Value = value
	return n
}

// Task describes what the node accomplishes.
func (n *NodeBuilder) Task(task string) *NodeBuilder {
	n.node.Attribute.Task = task
	return n
}

// Directed marks the message to be delivered verbatim.
func (n *NodeBuilder) Directed() *NodeBuilder {
	n.node.Attribute.Directed = true
	return n
}

// Limit sets the visit budget of the node.
func (n *NodeBuilder) Limit(visits int) *NodeBuilder {
	n.node.Limit = &visits
	return n
}

// Tag adds a free-form tag to the node.
func (n *NodeBuilder) Tag(key string, value any) *NodeBuilder {
	if n.node.Attribute.Tags == nil {
		n.node.Attribute.Tags = make(map[string]any)
	}
	n.node.Attribute.Tags[key] = value
	return n
}

// Nested turns the node into a component embedding the sub-graph that
// starts at start.
func (n *NodeBuilder) Nested(start string) *NodeBuilder {
	n.node.Resource = domain.Resource{ID: domain.NestedGraphResource, Name: domain.NestedGraphResource}
	n.node.Attribute.Value = start
	return n
}

// Go adds an unconditional transition to the target node.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	return n.Weighted(target, 1)
}

// Weighted adds an unconditional transition drawn with the given weight.
func (n *NodeBuilder) Weighted(target string, weight float64) *NodeBuilder {
	return n.edge(target, domain.NoneIntent, domain.EdgeAttribute{Weight: weight})
}

// On adds a transition taken when the user's intent matches. The intent
// is only considered while the conversation sits on this node.
func (n *NodeBuilder) On(intent, target string, samples ...string) *NodeBuilder {
	return n.edge(target, intent, domain.EdgeAttribute{Weight: 1, SampleUtterances: samples})
}

// Global adds a transition whose intent is reachable from any node.
func (n *NodeBuilder) Global(intent, target string, samples ...string) *NodeBuilder {
	return n.edge(target, intent, domain.EdgeAttribute{Weight: 1, Pred: true, SampleUtterances: samples})
}

// Define attaches a definition to the intent of the last added edge.
func (n *NodeBuilder) Define(definition string) *NodeBuilder {
	if last := len(n.builder.edges) - 1; last >= 0 && n.builder.edges[last].Source == n.node.ID {
		n.builder.edges[last].Attribute.Definition = definition
	}
	return n
}

// Then moves on to another node of the same graph.
func (n *NodeBuilder) Then(id string) *NodeBuilder {
	return n.builder.Add(id)
}

func (n *NodeBuilder) edge(target, intent string, attr domain.EdgeAttribute) *NodeBuilder {
	n.builder.edges = append(n.builder.edges, domain.Edge{
		Source:    n.node.ID,
		Target:    target,
		Intent:    strings.ToLower(intent),
		Attribute: attr,
	})
	return n
}

// Build returns the underlying domain.Node.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.Node {
	return n.node
}
