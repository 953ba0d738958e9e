package domain

import "maps"

// NodeTypeStart marks the unique entry node of a task graph.
const NodeTypeStart = "start"

// Resource identifies the collaborator (worker or tool) that executes a node.
// It is opaque to the decision engine.
type Resource struct {
	ID   string `json:"id" yaml:"id" mapstructure:"id"`
	Name string `json:"name" yaml:"name" mapstructure:"name"`
}

// NodeAttribute holds the typed payload carried by a node.
type NodeAttribute struct {
	// Value is the display/config payload (e.g. the bot message or the
	// start node id of a nested graph).
	Value string `json:"value" yaml:"value" mapstructure:"value"`

	// Task is a free-form description of what the node accomplishes.
	Task string `json:"task,omitempty" yaml:"task,omitempty" mapstructure:"task"`

	// Directed marks nodes whose Value must be delivered verbatim.
	Directed bool `json:"directed" yaml:"directed" mapstructure:"directed"`

	Tags map[string]any `json:"tags,omitempty" yaml:"tags,omitempty" mapstructure:"tags"`

	// Limit is the per-node visit budget. Nil means unlimited.
	Limit *int `json:"limit,omitempty" yaml:"limit,omitempty" mapstructure:"limit"`
}

// Clone returns a copy that shares no map or pointer with a.
func (a NodeAttribute) Clone() NodeAttribute {
	next := a
	next.Tags = maps.Clone(a.Tags)
	if a.Limit != nil {
		l := *a.Limit
		next.Limit = &l
	}
	return next
}

// Node represents a conversation state in the task graph.
type Node struct {
	ID        string        `json:"id" yaml:"id" mapstructure:"id"`
	Type      string        `json:"type,omitempty" yaml:"type,omitempty" mapstructure:"type"`
	Resource  Resource      `json:"resource" yaml:"resource" mapstructure:"resource"`
	Attribute NodeAttribute `json:"attribute" yaml:"attribute" mapstructure:"attribute"`

	// Limit may also be declared at the node level. It takes precedence
	// over Attribute.Limit.
	Limit *int `json:"limit,omitempty" yaml:"limit,omitempty" mapstructure:"limit"`
}

// VisitLimit returns the declared visit budget of the node, if any.
func (n Node) VisitLimit() *int {
	if n.Limit != nil {
		return n.Limit
	}
	return n.Attribute.Limit
}

// IsStart reports whether the node is tagged as the graph entry.
func (n Node) IsStart() bool {
	return n.Type == NodeTypeStart
}

// IsNestedGraph reports whether the node embeds a sub-graph.
func (n Node) IsNestedGraph() bool {
	return n.Resource.Name == NestedGraphResource
}
