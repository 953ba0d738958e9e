package ports

import "github.com/aretw0/wayfinder/pkg/domain"

// NestedGraphResolver finds the nested graph component whose sub-graph has
// just completed, so the conversation can continue after it.
type NestedGraphResolver interface {
	// Resolve returns the component node ID to resume, if any. It may
	// annotate state.Path so later scans skip the completed sub-graph.
	Resolve(state *domain.State, isLeaf func(string) bool) (string, bool)
}
