package graph_test

import (
	"math/rand/v2"
	"testing"

	"github.com/aretw0/wayfinder/internal/graph"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(id, resource string) domain.Node {
	return domain.Node{ID: id, Resource: domain.Resource{ID: resource + "-id", Name: resource}}
}

func startNode(id string) domain.Node {
	n := node(id, "MessageWorker")
	n.Type = domain.NodeTypeStart
	return n
}

func edge(src, dst, intent string, weight float64, pred bool) domain.Edge {
	return domain.Edge{Source: src, Target: dst, Intent: intent, Attribute: domain.EdgeAttribute{Weight: weight, Pred: pred}}
}

func seeded() *graph.Sampler {
	return graph.NewSampler(rand.NewPCG(1, 2))
}

func TestLoad_BuildsIndices(t *testing.T) {
	def := &domain.Definition{
		Name: "shop",
		Nodes: []domain.Node{
			startNode("s"),
			node("menu", "MessageWorker"),
			node("book", "MessageWorker"),
			node("faq", "FaissRAGWorker"),
		},
		Edges: []domain.Edge{
			edge("s", "menu", "Browse", 0, false),
			edge("s", "book", "BOOK", 2, true),
			edge("menu", "book", "book", 1, true),
			edge("menu", "faq", "none", 1, false),
		},
	}

	g, err := graph.Load(def, seeded())
	require.NoError(t, err)

	start, ok := g.StartNode()
	require.True(t, ok)
	assert.Equal(t, "s", start)

	assert.Equal(t, []string{"menu", "book"}, g.Successors("s"))
	assert.True(t, g.IsLeaf("faq"))
	assert.False(t, g.IsLeaf("menu"))

	out := g.OutEdges("s")
	require.Len(t, out, 2)
	assert.Equal(t, "browse", out[0].Intent, "intents are lowercased")
	assert.Equal(t, 1.0, out[0].Attribute.Weight, "zero weight defaults to 1")

	in := g.InEdges("book")
	assert.Len(t, in, 2)

	intents := g.GlobalIntents()
	require.Contains(t, intents, "book")
	assert.Len(t, intents["book"], 2)
	assert.Equal(t, "s", intents["book"][0].Source)
	assert.Equal(t, "menu", intents["book"][1].Source)
	assert.NotContains(t, intents, "browse")

	local := g.LocalIntents("menu")
	assert.Len(t, local, 1, "random edges are not local intents")
	assert.Len(t, g.RandomEdges("menu"), 1)

	_, ok = g.InitialNode()
	assert.False(t, ok)
}

func TestLoad_GlobalIntentsAreCopies(t *testing.T) {
	def := &domain.Definition{
		Nodes: []domain.Node{startNode("s"), node("t", "W")},
		Edges: []domain.Edge{edge("s", "t", "book", 1, true)},
	}
	g, err := graph.Load(def, seeded())
	require.NoError(t, err)

	pool := g.GlobalIntents()
	pool.Consume("book", "t")
	assert.Empty(t, pool)
	assert.Contains(t, g.GlobalIntents(), "book", "shared index untouched")
}

func TestLoad_DuplicateEdgeReplaces(t *testing.T) {
	def := &domain.Definition{
		Nodes: []domain.Node{startNode("s"), node("a", "W"), node("b", "W")},
		Edges: []domain.Edge{
			edge("s", "a", "first", 1, false),
			edge("s", "b", "other", 1, false),
			edge("s", "a", "second", 5, false),
		},
	}
	g, err := graph.Load(def, seeded())
	require.NoError(t, err)

	out := g.OutEdges("s")
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Target, "position is kept")
	assert.Equal(t, "second", out[0].Intent)
	assert.Equal(t, 5.0, out[0].Attribute.Weight)
	assert.Len(t, g.InEdges("a"), 1)
}

func TestLoad_InitialNode(t *testing.T) {
	def := &domain.Definition{
		Nodes: []domain.Node{startNode("s"), node("svc", "W")},
		Edges: []domain.Edge{edge("s", "svc", "shop", 1, true)},
		ServicesNodes: map[string]string{
			"shopping": "svc",
		},
	}
	g, err := graph.Load(def, seeded())
	require.NoError(t, err)

	initial, ok := g.InitialNode()
	require.True(t, ok)
	assert.Equal(t, "svc", initial)
	assert.Equal(t, map[string]string{"shopping": "svc"}, g.ServicesNodes())
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		def  *domain.Definition
		kind string
	}{
		{
			name: "Duplicate Node",
			def:  &domain.Definition{Nodes: []domain.Node{node("a", "W"), node("a", "W")}},
			kind: "duplicate_node",
		},
		{
			name: "Missing ID",
			def:  &domain.Definition{Nodes: []domain.Node{node("", "W")}},
			kind: "missing_id",
		},
		{
			name: "Missing Resource",
			def:  &domain.Definition{Nodes: []domain.Node{{ID: "a"}}},
			kind: "missing_resource",
		},
		{
			name: "Dangling Edge",
			def: &domain.Definition{
				Nodes: []domain.Node{node("a", "W")},
				Edges: []domain.Edge{edge("a", "ghost", "x", 1, false)},
			},
			kind: "dangling_edge",
		},
		{
			name: "Two Start Nodes",
			def:  &domain.Definition{Nodes: []domain.Node{startNode("a"), startNode("b")}},
			kind: "duplicate_start",
		},
		{
			name: "Unknown Service Node",
			def: &domain.Definition{
				Nodes:         []domain.Node{node("a", "W")},
				ServicesNodes: map[string]string{"svc": "ghost"},
			},
			kind: "unknown_service_node",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := graph.Load(tt.def, seeded())
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidGraph)

			var ge *domain.GraphError
			require.ErrorAs(t, err, &ge)
			assert.Equal(t, tt.kind, ge.Kind)
		})
	}
}

func TestLoad_NoStartNode(t *testing.T) {
	g, err := graph.Load(&domain.Definition{Nodes: []domain.Node{node("a", "W")}}, seeded())
	require.NoError(t, err)
	_, ok := g.StartNode()
	assert.False(t, ok)
}
