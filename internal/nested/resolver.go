// Package nested resolves nested graph components: nodes whose resource is
// NestedGraph and whose attribute value names the start node of a sub-graph.
//
// When the conversation reaches a leaf inside a sub-graph, the resolver walks
// the session path back to the component that opened it so the caller can
// continue after the component.
package nested

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/wayfinder/internal/graph"
	"github.com/aretw0/wayfinder/internal/logging"
	"github.com/aretw0/wayfinder/pkg/domain"
)

// Resolver is the default nested graph resolver.
type Resolver struct {
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for tracing resolutions.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// NewResolver creates a resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds the innermost open component enclosing the leaf at the end
// of the session path. The leaf entry is stamped with a LeafJump to that
// component so later scans skip the completed sub-graph. When the component
// is itself a leaf, the search climbs to the next enclosing component.
func (r *Resolver) Resolve(s *domain.State, isLeaf func(string) bool) (string, bool) {
	leafIdx := len(s.Path) - 1
	if leafIdx < 1 {
		return "", false
	}

	found := ""
	for i := leafIdx; i >= 0; {
		p := s.Path[i]
		if p.LeafJump != nil && *p.LeafJump < i {
			// Sub-graph already closed; skip it with its component.
			i = *p.LeafJump - 1
			continue
		}
		if i < leafIdx && p.NestedGraphStart != "" && s.Path[i+1].NodeID == p.NestedGraphStart {
			jump := i
			s.Path[leafIdx].LeafJump = &jump
			found = p.NodeID
			r.logger.Debug("Nested graph component resolved", "component", found, "leaf", s.Path[leafIdx].NodeID)
			if !isLeaf(found) {
				return found, true
			}
		}
		i--
	}
	return found, found != ""
}

// Enter moves the session into the sub-graph of the component node.
// The execution layer calls it after running the component's resource.
func Enter(s *domain.State, g *graph.Graph, componentID string) error {
	comp, ok := g.Node(componentID)
	if !ok {
		return fmt.Errorf("unknown component node %q", componentID)
	}
	if !comp.IsNestedGraph() {
		return fmt.Errorf("node %q is not a nested graph component", componentID)
	}
	start := comp.Attribute.Value
	if start == "" {
		return fmt.Errorf("component %q declares no sub-graph start", componentID)
	}
	if !g.Has(start) {
		return fmt.Errorf("component %q: sub-graph start %q is not a node", componentID, start)
	}

	s.CurrNode = start
	s.Path = append(s.Path, domain.PathNode{
		NodeID:       start,
		GlobalIntent: s.CurrGlobalIntent,
	})
	return nil
}
