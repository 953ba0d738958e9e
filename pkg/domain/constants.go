package domain

// Reserved intent labels.
const (
	// UnsureIntent is the synthetic catch-all label always offered to the
	// classifier. Matching it routes the turn to the fallback resource.
	UnsureIntent = "others"

	// NoneIntent labels unconditional edges, selected by weighted draw.
	NoneIntent = "none"
)

// Reserved resource names.
const (
	// PlannerResource is the generic "decide what to do next" resource
	// used when no intent matched.
	PlannerResource = "planner"

	// NestedGraphResource marks component nodes that embed a sub-graph.
	// The node's attribute value names the sub-graph start node.
	NestedGraphResource = "NestedGraph"
)

// SimilarityThreshold is the minimum normalized edit similarity for a
// predicted label to be accepted as one of the candidate labels.
const SimilarityThreshold = 0.9

// TagsArg is the AdditionalArgs key carrying node tags.
const TagsArg = "tags"
