package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/wayfinder/pkg/domain"
)

// Loader implements ports.GraphLoader over an in-memory definition.
type Loader struct {
	def domain.Definition
}

// NewLoader wraps an existing definition.
func NewLoader(def domain.Definition) *Loader {
	return &Loader{def: def}
}

// NewFromNodes builds a loader from nodes and edges.
// This keeps test fixtures short.
func NewFromNodes(nodes []domain.Node, edges ...domain.Edge) *Loader {
	return &Loader{def: domain.Definition{Nodes: nodes, Edges: edges}}
}

// NewFromJSON decodes an object-form definition
// ({"nodes": [{"id": ...}], "edges": [{"source": ...}]}).
func NewFromJSON(raw string) (*Loader, error) {
	var def domain.Definition
	if err := json.Unmarshal([]byte(raw), &def); err != nil {
		return nil, fmt.Errorf("failed to decode definition: %w", err)
	}
	return &Loader{def: def}, nil
}

// Load returns a copy of the definition.
func (l *Loader) Load(ctx context.Context) (*domain.Definition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	def := l.def
	def.Nodes = append([]domain.Node(nil), l.def.Nodes...)
	def.Edges = append([]domain.Edge(nil), l.def.Edges...)
	if l.def.ServicesNodes != nil {
		def.ServicesNodes = make(map[string]string, len(l.def.ServicesNodes))
		for k, v := range l.def.ServicesNodes {
			def.ServicesNodes[k] = v
		}
	}
	return &def, nil
}
