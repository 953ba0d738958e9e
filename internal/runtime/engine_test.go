package runtime_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/aretw0/wayfinder/internal/graph"
	"github.com/aretw0/wayfinder/internal/runtime"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecide_LocalIntentAtStartAnchorsGlobalFlow(t *testing.T) {
	def := &domain.Definition{
		Nodes: []domain.Node{start("s"), msg("n1"), msg("n2")},
		Edges: []domain.Edge{local("s", "n1", "greet"), local("n1", "n2", "next")},
	}
	c := script("greet")
	eng := newEngine(t, def, c)

	d, s, err := eng.Decide(context.Background(), nil, domain.Turn{Utterance: "hi there"})
	require.NoError(t, err)

	assert.Equal(t, "n1", d.NodeID)
	assert.Equal(t, "MessageWorker", d.ResourceName)
	assert.True(t, d.CanBeSkipped)
	assert.False(t, d.IsLeaf)
	assert.Equal(t, "greet", s.CurrGlobalIntent)
	assert.Equal(t, "greet", s.Intent)
	assert.Equal(t, "n1", s.CurrNode)

	require.Equal(t, 1, c.calls())
	req := c.requests[0]
	assert.Equal(t, "hi there", req.Utterance)
	assert.Contains(t, req.Candidates, "greet")
	assert.Contains(t, req.Candidates, domain.UnsureIntent)

	require.Len(t, s.NLURecords, 1)
	assert.Equal(t, []string{"greet", domain.UnsureIntent}, s.NLURecords[0].CandidateIntents)
	assert.Equal(t, "greet", s.NLURecords[0].PredIntent)
	assert.False(t, s.NLURecords[0].GlobalIntent)
}

func TestDecide_LeafFallsBackToInitialFlow(t *testing.T) {
	def := &domain.Definition{
		Nodes: []domain.Node{start("s"), msg("m"), msg("i"), msg("i2")},
		Edges: []domain.Edge{
			local("s", "m", "go"),
			global("s", "i", "shop", 1),
			local("i", "i2", "buy"),
		},
		ServicesNodes: map[string]string{"shop": "i"},
	}
	c := script()
	eng := newEngine(t, def, c)

	d, s, err := eng.Decide(context.Background(), stateAt("m"), domain.Turn{Utterance: "ok", AllowGlobalIntentSwitch: true})
	require.NoError(t, err)
	assert.Equal(t, "i", d.NodeID)
	assert.Equal(t, "i", s.CurrNode)
	assert.Equal(t, 0, c.calls())
}

func TestDecide_LeafNeverDeadEnds(t *testing.T) {
	def := &domain.Definition{
		Nodes: []domain.Node{start("s"), msg("a"), msg("b"), msg("entry")},
		Edges: []domain.Edge{
			local("s", "a", "x"),
			local("s", "b", "y"),
			global("s", "entry", "svc", 2),
			random("entry", "a"),
		},
		ServicesNodes: map[string]string{"svc": "entry"},
	}
	eng := newEngine(t, def, always(domain.Prediction{Label: "nonsense"}))

	for _, leaf := range []string{"a", "b"} {
		d, _, err := eng.Decide(context.Background(), stateAt(leaf), domain.Turn{Utterance: "?"})
		require.NoError(t, err)
		initial, _ := eng.Graph().InitialNode()
		assert.Equal(t, initial, d.NodeID, "leaf %s", leaf)
	}
}

func TestDecide_WeightedGlobalJump(t *testing.T) {
	def := &domain.Definition{
		Nodes: []domain.Node{start("s"), msg("h1"), msg("h2"), msg("t1"), msg("t2")},
		Edges: []domain.Edge{
			global("h1", "t1", "book", 3),
			global("h2", "t2", "book", 1),
		},
	}
	g, err := graph.Load(def, graph.NewSampler(nil))
	require.NoError(t, err)
	eng := runtime.NewEngine(g, always(domain.Prediction{Label: "book"}), nil)

	const trials = 4000
	hits := map[string]int{}
	for i := 0; i < trials; i++ {
		d, _, err := eng.Decide(context.Background(), nil, domain.Turn{Utterance: "book", AllowGlobalIntentSwitch: true})
		require.NoError(t, err)
		hits[d.NodeID]++
	}
	assert.Equal(t, trials, hits["t1"]+hits["t2"])
	assert.InDelta(t, 0.75, float64(hits["t1"])/trials, 0.04)
	assert.InDelta(t, 0.25, float64(hits["t2"])/trials, 0.04)
}

func TestDecide_IncompleteNodeStays(t *testing.T) {
	def := &domain.Definition{
		Nodes: []domain.Node{start("s"), msg("x"), msg("y"), msg("z")},
		Edges: []domain.Edge{local("s", "x", "go"), local("x", "y", "yes"), random("z", "y")},
	}

	t.Run("With Local Intents", func(t *testing.T) {
		c := script("zzz")
		eng := newEngine(t, def, c)
		st := stateAt("x")
		st.SetStatus("x", domain.StatusIncomplete)

		d, _, err := eng.Decide(context.Background(), st, domain.Turn{Utterance: "hmm"})
		require.NoError(t, err)
		assert.Equal(t, "x", d.NodeID)
		assert.Equal(t, 0, c.calls())
	})

	t.Run("After Failed Global Prediction", func(t *testing.T) {
		c := script("zzz")
		eng := newEngine(t, def, c)
		st := stateAt("z")
		st.SetStatus("z", domain.StatusIncomplete)
		st.AvailableGlobalIntents = domain.IntentPool{
			"book":              {{Intent: "book", Source: "s", Target: "y", Attribute: domain.EdgeAttribute{Weight: 1, Pred: true}}},
			domain.UnsureIntent: {domain.UnsureCandidate()},
		}

		d, s, err := eng.Decide(context.Background(), st, domain.Turn{Utterance: "hmm", AllowGlobalIntentSwitch: true})
		require.NoError(t, err)
		assert.Equal(t, "z", d.NodeID)
		assert.Equal(t, 1, c.calls())
		assert.Contains(t, s.AvailableGlobalIntents, "book")
	})
}

func TestDecide_StayIsIdempotent(t *testing.T) {
	def := &domain.Definition{
		Nodes: []domain.Node{start("s"), msg("x"), msg("y")},
		Edges: []domain.Edge{local("s", "x", "go"), local("x", "y", "yes")},
	}
	c := script("yes", "yes")
	eng := newEngine(t, def, c)

	st := stateAt("x")
	st.SetStatus("x", domain.StatusStay)

	d1, s1, err := eng.Decide(context.Background(), st, domain.Turn{Utterance: "yes"})
	require.NoError(t, err)
	d2, _, err := eng.Decide(context.Background(), s1, domain.Turn{Utterance: "yes"})
	require.NoError(t, err)

	assert.Equal(t, "x", d1.NodeID)
	assert.Equal(t, "x", d2.NodeID)
	assert.False(t, d1.CanBeSkipped)
	assert.Equal(t, 0, c.calls())
}

func TestDecide_GlobalIntentExhaustion(t *testing.T) {
	def := &domain.Definition{
		Nodes: []domain.Node{start("s"), msg("hub"), msg("book"), msg("done")},
		Edges: []domain.Edge{
			random("s", "hub"),
			global("hub", "book", "reserve", 1),
			random("book", "done"),
		},
	}
	eng := newEngine(t, def, always(domain.Prediction{Label: "reserve"}))
	turn := domain.Turn{Utterance: "reserve", AllowGlobalIntentSwitch: true}

	d, s, err := eng.Decide(context.Background(), nil, turn)
	require.NoError(t, err)
	assert.Equal(t, "book", d.NodeID)
	assert.NotContains(t, s.AvailableGlobalIntents, "reserve")
	assert.Contains(t, s.AvailableGlobalIntents, domain.UnsureIntent)

	for i := 0; i < 3; i++ {
		_, s, err = eng.Decide(context.Background(), s, turn)
		require.NoError(t, err)
		assert.NotContains(t, s.AvailableGlobalIntents, "reserve")
	}
}

func TestDecide_UnmatchedLabelRoutesToFallback(t *testing.T) {
	def := &domain.Definition{
		Nodes: []domain.Node{start("s"), msg("x")},
		Edges: []domain.Edge{local("s", "x", "reservations")},
	}
	var reasons []string
	hooks := domain.LifecycleHooks{
		OnFallback: func(_ context.Context, e *domain.FallbackEvent) {
			reasons = append(reasons, e.Reason)
		},
	}
	eng := newEngine(t, def, always(domain.Prediction{Label: "weather"}), runtime.WithLifecycleHooks(hooks))

	d, s, err := eng.Decide(context.Background(), nil, domain.Turn{Utterance: "sunny?"})
	require.NoError(t, err)

	assert.True(t, d.IsFallback())
	assert.Equal(t, domain.PlannerResource, d.ResourceID)
	assert.Equal(t, domain.PlannerResource, d.ResourceName)
	assert.Equal(t, "", d.Attributes.Value)
	assert.False(t, d.Attributes.Directed)
	assert.False(t, d.CanBeSkipped)
	assert.False(t, d.IsLeaf)
	assert.Equal(t, map[string]any{}, d.AdditionalArgs[domain.TagsArg])

	assert.Equal(t, domain.UnsureIntent, s.Intent)
	assert.Equal(t, domain.UnsureIntent, s.CurrGlobalIntent)
	assert.Equal(t, "s", s.CurrNode)
	require.NotEmpty(t, s.NLURecords)
	assert.True(t, s.NLURecords[len(s.NLURecords)-1].NoIntent)
	assert.Empty(t, s.Path, "fallback is not a visited node")
	assert.Equal(t, []string{domain.FallbackNoIntent}, reasons)
}

func TestDecide_FuzzyLabelMatch(t *testing.T) {
	def := &domain.Definition{
		Nodes: []domain.Node{start("s"), msg("x")},
		Edges: []domain.Edge{local("s", "x", "reservations")},
	}

	tests := []struct {
		predicted string
		want      string
	}{
		{predicted: "Reservations", want: "x"},
		{predicted: "reservation", want: "x"},
		{predicted: "reserve", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.predicted, func(t *testing.T) {
			eng := newEngine(t, def, always(domain.Prediction{Label: tt.predicted}))
			d, _, err := eng.Decide(context.Background(), nil, domain.Turn{Utterance: "u"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.NodeID)
		})
	}
}

func TestDecide_OnlyUnsureSkipsClassifier(t *testing.T) {
	def := &domain.Definition{
		Nodes: []domain.Node{start("s"), msg("x")},
		Edges: []domain.Edge{local("x", "s", "back")},
	}
	c := script("back")
	eng := newEngine(t, def, c)

	d, s, err := eng.Decide(context.Background(), nil, domain.Turn{Utterance: "hey", AllowGlobalIntentSwitch: true})
	require.NoError(t, err)
	assert.True(t, d.IsFallback())
	assert.Equal(t, 0, c.calls())
	require.Len(t, s.NLURecords, 1)
	assert.True(t, s.NLURecords[0].NoIntent)
	assert.Empty(t, s.NLURecords[0].CandidateIntents)
}

func TestDecide_ClassifierFailure(t *testing.T) {
	def := &domain.Definition{
		Nodes: []domain.Node{start("s"), msg("x")},
		Edges: []domain.Edge{local("s", "x", "go")},
	}

	failures := map[string]ports.IntentClassifier{
		"Error": ports.ClassifierFunc(func(context.Context, ports.ClassifyRequest) (domain.Prediction, error) {
			return domain.Prediction{}, errors.New("upstream 503")
		}),
		"Panic": ports.ClassifierFunc(func(context.Context, ports.ClassifyRequest) (domain.Prediction, error) {
			panic("boom")
		}),
		"Missing": nil,
	}

	for name, c := range failures {
		t.Run(name, func(t *testing.T) {
			var reason string
			var classifyErr error
			hooks := domain.LifecycleHooks{
				OnFallback: func(_ context.Context, e *domain.FallbackEvent) { reason = e.Reason },
				OnClassify: func(_ context.Context, e *domain.ClassifyEvent) { classifyErr = e.Err },
			}
			eng := newEngine(t, def, c, runtime.WithLifecycleHooks(hooks))

			d, s, err := eng.Decide(context.Background(), nil, domain.Turn{Utterance: "go"})
			require.NoError(t, err)
			assert.True(t, d.IsFallback())
			assert.Equal(t, domain.UnsureIntent, s.Intent)
			assert.Equal(t, domain.FallbackClassifierError, reason)
			assert.ErrorIs(t, classifyErr, domain.ErrClassifier)
		})
	}
}

func TestDecide_CanceledContext(t *testing.T) {
	def := &domain.Definition{
		Nodes: []domain.Node{start("s"), msg("x")},
		Edges: []domain.Edge{local("s", "x", "go")},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng := newEngine(t, def, script("go"))
	_, s, err := eng.Decide(ctx, nil, domain.Turn{Utterance: "go"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, s)
}

func TestDecide_CancelDuringClassification(t *testing.T) {
	def := &domain.Definition{
		Nodes: []domain.Node{start("s"), msg("x")},
		Edges: []domain.Edge{local("s", "x", "go")},
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := ports.ClassifierFunc(func(ctx context.Context, _ ports.ClassifyRequest) (domain.Prediction, error) {
		cancel()
		return domain.Prediction{}, ctx.Err()
	})

	eng := newEngine(t, def, c)
	_, _, err := eng.Decide(ctx, nil, domain.Turn{Utterance: "go"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecide_NoStartNode(t *testing.T) {
	def := &domain.Definition{Nodes: []domain.Node{msg("a")}}
	eng := newEngine(t, def, script())

	_, _, err := eng.Decide(context.Background(), nil, domain.Turn{})
	assert.ErrorIs(t, err, domain.ErrNoStartNode)
}

func TestDecide_UnknownCurrentNodeResetsToStart(t *testing.T) {
	def := &domain.Definition{
		Nodes: []domain.Node{start("s"), msg("x")},
		Edges: []domain.Edge{local("s", "x", "go")},
	}
	eng := newEngine(t, def, script("go"))

	d, _, err := eng.Decide(context.Background(), stateAt("removed"), domain.Turn{Utterance: "go"})
	require.NoError(t, err)
	assert.Equal(t, "x", d.NodeID)
}

func TestDecide_DoesNotMutateInput(t *testing.T) {
	def := &domain.Definition{
		Nodes: []domain.Node{start("s"), msg("x")},
		Edges: []domain.Edge{global("s", "x", "go", 1)},
	}
	eng := newEngine(t, def, script("go"))

	in := domain.NewState("sess")
	_, out, err := eng.Decide(context.Background(), in, domain.Turn{Utterance: "go"})
	require.NoError(t, err)

	assert.Empty(t, in.CurrNode)
	assert.Empty(t, in.AvailableGlobalIntents)
	assert.Zero(t, in.Turns)
	assert.Equal(t, 1, out.Turns)
	assert.Equal(t, "sess", out.SessionID)
}

func TestDecide_NLURecordsResetEachTurn(t *testing.T) {
	def := &domain.Definition{
		Nodes: []domain.Node{start("s"), msg("x")},
		Edges: []domain.Edge{local("s", "x", "go"), local("x", "s", "back")},
	}
	eng := newEngine(t, def, script("go", "back"))

	_, s, err := eng.Decide(context.Background(), nil, domain.Turn{Utterance: "go"})
	require.NoError(t, err)
	require.Len(t, s.NLURecords, 1)

	_, s, err = eng.Decide(context.Background(), s, domain.Turn{Utterance: "back"})
	require.NoError(t, err)
	require.Len(t, s.NLURecords, 1)
	assert.Equal(t, "back", s.NLURecords[0].PredIntent)
}

func TestDecide_NodeLimitCarried(t *testing.T) {
	three := 3
	one := 1
	limited := msg("x")
	limited.Attribute.Limit = &three
	nodeLevel := msg("y")
	nodeLevel.Limit = &one

	def := &domain.Definition{
		Nodes: []domain.Node{start("s"), limited, nodeLevel},
		Edges: []domain.Edge{local("s", "x", "go"), local("x", "y", "next")},
	}
	eng := newEngine(t, def, script("go", "next"))

	_, s, err := eng.Decide(context.Background(), nil, domain.Turn{Utterance: "go"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"x": 3, "y": 1}, s.NodeLimit)

	s.NodeLimit["x"] = 0
	s.NodeLimit["gone"] = 9
	_, s, err = eng.Decide(context.Background(), s, domain.Turn{Utterance: "next"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"x": 0, "y": 1}, s.NodeLimit)
}

func TestDecide_Hooks(t *testing.T) {
	def := &domain.Definition{
		Nodes: []domain.Node{start("s"), msg("x")},
		Edges: []domain.Edge{local("s", "x", "go")},
	}
	var decisions []*domain.DecisionEvent
	var classified []*domain.ClassifyEvent
	hooks := domain.LifecycleHooks{
		OnDecision: func(_ context.Context, e *domain.DecisionEvent) { decisions = append(decisions, e) },
		OnClassify: func(_ context.Context, e *domain.ClassifyEvent) { classified = append(classified, e) },
	}
	eng := newEngine(t, def, script("go"), runtime.WithLifecycleHooks(hooks))

	_, _, err := eng.Decide(context.Background(), domain.NewState("sess-1"), domain.Turn{Utterance: "go"})
	require.NoError(t, err)

	require.Len(t, decisions, 1)
	assert.Equal(t, "sess-1", decisions[0].SessionID)
	assert.Equal(t, "s", decisions[0].FromNode)
	assert.Equal(t, "x", decisions[0].NodeID)
	assert.Equal(t, domain.DecisionLocal, decisions[0].Kind)
	assert.Equal(t, domain.EventDecision, decisions[0].Type)

	require.Len(t, classified, 1)
	assert.False(t, classified[0].Global)
	assert.Equal(t, 2, classified[0].Candidates)
	assert.Equal(t, "go", classified[0].Predicted)
	assert.NoError(t, classified[0].Err)
}

func TestDecide_CustomFallbackResource(t *testing.T) {
	def := &domain.Definition{
		Nodes: []domain.Node{start("s"), msg("x")},
		Edges: []domain.Edge{local("s", "x", "go")},
	}
	res := domain.Resource{ID: "clarify-id", Name: "ClarifyWorker"}
	eng := newEngine(t, def, script(domain.UnsureIntent), runtime.WithFallbackResource(res))

	d, _, err := eng.Decide(context.Background(), nil, domain.Turn{Utterance: "?"})
	require.NoError(t, err)
	assert.Equal(t, "clarify-id", d.ResourceID)
	assert.Equal(t, "ClarifyWorker", d.ResourceName)
}

func TestDecide_ModelConfigPassedToClassifier(t *testing.T) {
	def := &domain.Definition{
		Nodes: []domain.Node{start("s"), msg("x")},
		Edges: []domain.Edge{local("s", "x", "go")},
		Model: domain.ModelConfig{Model: "gpt-4o-mini", Provider: "openai"},
	}

	c := script("go")
	eng := newEngine(t, def, c)
	_, _, err := eng.Decide(context.Background(), nil, domain.Turn{Utterance: "go", History: "user: go"})
	require.NoError(t, err)
	require.Equal(t, 1, c.calls())
	assert.Equal(t, "gpt-4o-mini", c.requests[0].Model.Model)
	assert.Equal(t, "user: go", c.requests[0].History)

	override := domain.ModelConfig{Model: "local-model"}
	c = script("go")
	g, err := graph.Load(def, graph.NewSampler(rand.NewPCG(3, 3)))
	require.NoError(t, err)
	eng = runtime.NewEngine(g, c, nil, runtime.WithModelConfig(override))
	_, _, err = eng.Decide(context.Background(), nil, domain.Turn{Utterance: "go"})
	require.NoError(t, err)
	assert.Equal(t, "local-model", c.requests[0].Model.Model)
}

func TestDecide_InitialFlowRefreshesPoolAndLimits(t *testing.T) {
	two := 2
	entry := msg("i")
	entry.Attribute.Limit = &two
	def := &domain.Definition{
		Nodes: []domain.Node{start("s"), msg("m"), entry, msg("i2")},
		Edges: []domain.Edge{
			local("s", "m", "go"),
			global("s", "i", "shop", 1),
			local("i", "i2", "buy"),
		},
		ServicesNodes: map[string]string{"shop": "i"},
	}
	eng := newEngine(t, def, script())

	d, s, err := eng.Decide(context.Background(), stateAt("m"), domain.Turn{Utterance: "ok"})
	require.NoError(t, err)
	assert.Equal(t, "i", d.NodeID)
	assert.Equal(t, map[string]int{"i": 2}, s.NodeLimit)
	assert.Contains(t, s.AvailableGlobalIntents, "shop")
}

func TestDecide_NegativeIndexDoesNotPanic(t *testing.T) {
	t.Run("global", func(t *testing.T) {
		def := &domain.Definition{
			Nodes: []domain.Node{start("s"), msg("h1"), msg("t1")},
			Edges: []domain.Edge{global("h1", "t1", "book", 1)},
		}
		eng := newEngine(t, def, always(domain.Prediction{Label: "book", Index: -1, Indexed: true}))

		var d domain.NodeDecision
		require.NotPanics(t, func() {
			var err error
			d, _, err = eng.Decide(context.Background(), nil, domain.Turn{Utterance: "book", AllowGlobalIntentSwitch: true})
			require.NoError(t, err)
		})
		assert.Equal(t, "t1", d.NodeID)
	})

	t.Run("local", func(t *testing.T) {
		def := &domain.Definition{
			Nodes: []domain.Node{start("s"), msg("n1")},
			Edges: []domain.Edge{local("s", "n1", "greet")},
		}
		eng := newEngine(t, def, always(domain.Prediction{Label: "greet", Index: -1, Indexed: true}))

		var d domain.NodeDecision
		require.NotPanics(t, func() {
			var err error
			d, _, err = eng.Decide(context.Background(), nil, domain.Turn{Utterance: "hi"})
			require.NoError(t, err)
		})
		assert.Equal(t, "n1", d.NodeID)
	})

	t.Run("out of range global index fails soft", func(t *testing.T) {
		def := &domain.Definition{
			Nodes: []domain.Node{start("s"), msg("h1"), msg("t1")},
			Edges: []domain.Edge{global("h1", "t1", "book", 1)},
		}
		eng := newEngine(t, def, always(domain.Prediction{Label: "book", Index: 7, Indexed: true}))

		require.NotPanics(t, func() {
			_, _, err := eng.Decide(context.Background(), nil, domain.Turn{Utterance: "book", AllowGlobalIntentSwitch: true})
			require.NoError(t, err)
		})
	})
}
