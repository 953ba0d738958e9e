package wayfinder_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/aretw0/wayfinder"
	"github.com/aretw0/wayfinder/pkg/adapters/file"
	"github.com/aretw0/wayfinder/pkg/adapters/memory"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/ports"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func always(label string) ports.IntentClassifier {
	return ports.ClassifierFunc(func(ctx context.Context, req ports.ClassifyRequest) (domain.Prediction, error) {
		return domain.Prediction{Label: label}, nil
	})
}

func TestNew_FileGraph(t *testing.T) {
	ctx := context.Background()
	var decisions []*domain.DecisionEvent
	hooks := domain.LifecycleHooks{
		OnDecision: func(_ context.Context, e *domain.DecisionEvent) { decisions = append(decisions, e) },
	}

	eng, err := wayfinder.New(ctx,
		file.NewLoader(filepath.Join("pkg", "adapters", "file", "testdata", "taskgraph.json")),
		wayfinder.WithClassifier(always("make reservation")),
		wayfinder.WithLifecycleHooks(hooks),
		wayfinder.WithRand(rand.NewPCG(1, 2)),
	)
	require.NoError(t, err)
	assert.Equal(t, "booking", eng.Name)

	initial, ok := eng.Graph().InitialNode()
	require.True(t, ok)
	assert.Equal(t, "1", initial)

	state := eng.NewState("s1")
	d, next, err := eng.Decide(ctx, state, domain.Turn{Utterance: "book", AllowGlobalIntentSwitch: true})
	require.NoError(t, err)
	assert.Equal(t, "1", d.NodeID)
	assert.Equal(t, "1", next.CurrNode)
	assert.Empty(t, state.CurrNode, "input state is untouched")

	require.Len(t, decisions, 1)
	assert.Equal(t, "s1", decisions[0].SessionID)
	assert.Equal(t, domain.DecisionLocal, decisions[0].Kind)
}

func TestNew_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := wayfinder.New(ctx, nil)
	assert.Error(t, err)

	boom := errors.New("boom")
	_, err = wayfinder.New(ctx, loaderFunc(func(context.Context) (*domain.Definition, error) { return nil, boom }))
	assert.ErrorIs(t, err, boom)

	dangling := memory.NewFromNodes(
		[]domain.Node{{ID: "0", Type: domain.NodeTypeStart, Resource: domain.Resource{Name: "MessageWorker"}}},
		domain.Edge{Source: "0", Target: "ghost", Intent: "go"},
	)
	_, err = wayfinder.New(ctx, dangling)
	assert.ErrorIs(t, err, domain.ErrInvalidGraph)
}

type loaderFunc func(context.Context) (*domain.Definition, error)

func (f loaderFunc) Load(ctx context.Context) (*domain.Definition, error) { return f(ctx) }

func TestEngine_Definition(t *testing.T) {
	nodes := []domain.Node{
		{ID: "0", Type: domain.NodeTypeStart, Resource: domain.Resource{ID: "msg", Name: "MessageWorker"}},
		{ID: "1", Resource: domain.Resource{ID: "msg", Name: "MessageWorker"}},
	}
	edge := domain.Edge{Source: "0", Target: "1", Intent: "next", Attribute: domain.EdgeAttribute{Weight: 1}}

	eng, err := wayfinder.New(context.Background(), memory.NewFromNodes(nodes, edge), wayfinder.WithName("tiny"))
	require.NoError(t, err)
	assert.Equal(t, "tiny", eng.Name)

	def := eng.Definition()
	if diff := cmp.Diff(nodes, def.Nodes); diff != "" {
		t.Errorf("nodes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]domain.Edge{edge}, def.Edges); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_NestedGraph(t *testing.T) {
	comp := domain.Node{
		ID:        "c",
		Resource:  domain.Resource{ID: "nested", Name: domain.NestedGraphResource},
		Attribute: domain.NodeAttribute{Value: "s1"},
	}
	msg := func(id string) domain.Node {
		return domain.Node{ID: id, Resource: domain.Resource{ID: "msg", Name: "MessageWorker"}}
	}
	start := msg("0")
	start.Type = domain.NodeTypeStart

	loader := memory.NewFromNodes(
		[]domain.Node{start, comp, msg("after"), msg("s1")},
		domain.Edge{Source: "0", Target: "c", Intent: "nested", Attribute: domain.EdgeAttribute{Weight: 1}},
		domain.Edge{Source: "c", Target: "after", Intent: domain.NoneIntent, Attribute: domain.EdgeAttribute{Weight: 1}},
	)
	ctx := context.Background()
	eng, err := wayfinder.New(ctx, loader, wayfinder.WithClassifier(always("nested")))
	require.NoError(t, err)

	d, s, err := eng.Decide(ctx, eng.NewState("n"), domain.Turn{Utterance: "go"})
	require.NoError(t, err)
	require.Equal(t, "c", d.NodeID)
	assert.Equal(t, domain.NestedGraphResource, d.ResourceName)

	require.NoError(t, eng.EnterNestedGraph(s, "c"))
	assert.Equal(t, "s1", s.CurrNode)

	// s1 is a leaf; the component is resumed and its random edge taken.
	d, s, err = eng.Decide(ctx, s, domain.Turn{Utterance: "done"})
	require.NoError(t, err)
	assert.Equal(t, "after", d.NodeID)
	assert.Equal(t, "after", s.CurrNode)

	assert.Error(t, eng.EnterNestedGraph(s, "after"), "not a component")
}
