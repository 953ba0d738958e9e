package runtime_test

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/aretw0/wayfinder/internal/graph"
	"github.com/aretw0/wayfinder/internal/runtime"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/ports"
	"github.com/stretchr/testify/require"
)

func msg(id string) domain.Node {
	return domain.Node{
		ID:        id,
		Resource:  domain.Resource{ID: "msg", Name: "MessageWorker"},
		Attribute: domain.NodeAttribute{Value: "at " + id},
	}
}

func start(id string) domain.Node {
	n := msg(id)
	n.Type = domain.NodeTypeStart
	return n
}

func local(src, dst, intent string) domain.Edge {
	return domain.Edge{Source: src, Target: dst, Intent: intent, Attribute: domain.EdgeAttribute{Weight: 1}}
}

func global(src, dst, intent string, weight float64) domain.Edge {
	return domain.Edge{Source: src, Target: dst, Intent: intent, Attribute: domain.EdgeAttribute{Weight: weight, Pred: true}}
}

func random(src, dst string) domain.Edge {
	return local(src, dst, domain.NoneIntent)
}

func newEngine(t *testing.T, def *domain.Definition, c ports.IntentClassifier, opts ...runtime.EngineOption) *runtime.Engine {
	t.Helper()
	g, err := graph.Load(def, graph.NewSampler(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	return runtime.NewEngine(g, c, nil, opts...)
}

// scripted answers with the queued labels in order and records every request.
type scripted struct {
	mu       sync.Mutex
	answers  []domain.Prediction
	requests []ports.ClassifyRequest
}

func script(labels ...string) *scripted {
	s := &scripted{}
	for _, l := range labels {
		s.answers = append(s.answers, domain.Prediction{Label: l})
	}
	return s
}

func (s *scripted) Classify(_ context.Context, req ports.ClassifyRequest) (domain.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if len(s.answers) == 0 {
		return domain.Prediction{Label: domain.UnsureIntent}, nil
	}
	next := s.answers[0]
	s.answers = s.answers[1:]
	return next, nil
}

func (s *scripted) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// always answers with the same prediction.
func always(p domain.Prediction) ports.IntentClassifier {
	return ports.ClassifierFunc(func(context.Context, ports.ClassifyRequest) (domain.Prediction, error) {
		return p, nil
	})
}

func stateAt(node string) *domain.State {
	s := domain.NewState("test")
	s.CurrNode = node
	return s
}
