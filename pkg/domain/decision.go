package domain

import "maps"

// Turn is the inbound payload of a single conversation turn.
type Turn struct {
	Utterance string `json:"utterance"`

	// History is the formatted conversation so far, handed to the classifier.
	History string `json:"history,omitempty"`

	// AllowGlobalIntentSwitch permits jumping to globally reachable intents.
	AllowGlobalIntentSwitch bool `json:"allow_global_intent_switch"`
}

// NodeDecision tells the execution layer which node and resource to run next.
type NodeDecision struct {
	// NodeID is empty when the turn is routed to the fallback resource.
	NodeID       string        `json:"node_id"`
	Type         string        `json:"type,omitempty"`
	ResourceID   string        `json:"resource_id"`
	ResourceName string        `json:"resource_name"`
	Attributes   NodeAttribute `json:"attributes"`
	IsLeaf       bool          `json:"is_leaf"`
	CanBeSkipped bool          `json:"can_be_skipped"`

	// AddFlowStack reports that the previous node was pushed onto the flow
	// stack by this decision.
	AddFlowStack bool `json:"add_flow_stack"`

	AdditionalArgs map[string]any `json:"additional_args,omitempty"`
}

// IsFallback reports whether the decision routes to the fallback resource.
func (d NodeDecision) IsFallback() bool {
	return d.NodeID == ""
}

// DecisionFor builds the decision that activates node.
func DecisionFor(node Node, isLeaf, canBeSkipped bool) NodeDecision {
	attr := node.Attribute.Clone()
	tags := maps.Clone(attr.Tags)
	if tags == nil {
		tags = map[string]any{}
	}
	return NodeDecision{
		NodeID:         node.ID,
		Type:           node.Type,
		ResourceID:     node.Resource.ID,
		ResourceName:   node.Resource.Name,
		Attributes:     attr,
		IsLeaf:         isLeaf,
		CanBeSkipped:   canBeSkipped,
		AdditionalArgs: map[string]any{TagsArg: tags},
	}
}
