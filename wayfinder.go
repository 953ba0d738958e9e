package wayfinder

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/aretw0/wayfinder/internal/graph"
	"github.com/aretw0/wayfinder/internal/logging"
	"github.com/aretw0/wayfinder/internal/nested"
	"github.com/aretw0/wayfinder/internal/runtime"
	"github.com/aretw0/wayfinder/pkg/adapters/keyword"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/ports"
)

// Engine is the high-level entry point for the Wayfinder library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Engine struct {
	runtime    *runtime.Engine
	graph      *graph.Graph
	loader     ports.GraphLoader
	classifier ports.IntentClassifier
	resolver   ports.NestedGraphResolver
	source     rand.Source
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	model      *domain.ModelConfig
	fallback   *domain.Resource
	Name       string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithClassifier sets the intent classifier. Defaults to the offline
// keyword classifier.
func WithClassifier(c ports.IntentClassifier) Option {
	return func(e *Engine) {
		e.classifier = c
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRand sets the randomness source used for weighted choices, including
// the initial service draw at load time. Useful for reproducible runs.
func WithRand(src rand.Source) Option {
	return func(e *Engine) {
		e.source = src
	}
}

// WithNestedGraphResolver replaces the default nested graph resolver.
func WithNestedGraphResolver(r ports.NestedGraphResolver) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithModelConfig overrides the classifier configuration declared by the graph.
func WithModelConfig(model domain.ModelConfig) Option {
	return func(e *Engine) {
		e.model = &model
	}
}

// WithFallbackResource overrides the resource that handles unmatched turns.
func WithFallbackResource(res domain.Resource) Option {
	return func(e *Engine) {
		e.fallback = &res
	}
}

// WithName labels the engine. Defaults to the graph name.
func WithName(name string) Option {
	return func(e *Engine) {
		e.Name = name
	}
}

// New loads and validates the task graph and initializes a new Engine.
func New(ctx context.Context, loader ports.GraphLoader, opts ...Option) (*Engine, error) {
	if loader == nil {
		return nil, fmt.Errorf("a graph loader is required")
	}
	eng := &Engine{loader: loader}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.classifier == nil {
		eng.classifier = keyword.New()
	}

	def, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}
	g, err := graph.Load(def, graph.NewSampler(eng.source))
	if err != nil {
		return nil, err
	}
	eng.graph = g

	if eng.Name == "" {
		eng.Name = g.Name()
	}
	// Enrich logger with graph name if available
	if eng.Name != "" {
		eng.logger = eng.logger.With("graph", eng.Name)
	}
	if eng.resolver == nil {
		eng.resolver = nested.NewResolver(nested.WithLogger(eng.logger))
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
	}
	if eng.model != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithModelConfig(*eng.model))
	}
	if eng.fallback != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithFallbackResource(*eng.fallback))
	}
	eng.runtime = runtime.NewEngine(g, eng.classifier, eng.resolver, runtimeOpts...)

	start, _ := g.StartNode()
	initial, _ := g.InitialNode()
	eng.logger.Debug("Engine ready",
		"nodes", len(g.Nodes()),
		"start", start,
		"initial", initial,
	)
	return eng, nil
}

// Decide computes the node to execute next for one conversation turn.
// The input state is never modified.
func (e *Engine) Decide(ctx context.Context, state *domain.State, turn domain.Turn) (domain.NodeDecision, *domain.State, error) {
	return e.runtime.Decide(ctx, state, turn)
}

// NewState creates a clean session state for this engine.
func (e *Engine) NewState(sessionID string) *domain.State {
	return domain.NewState(sessionID)
}

// EnterNestedGraph moves the session into the sub-graph of a component
// node. The execution layer calls it when it runs a NestedGraph node.
func (e *Engine) EnterNestedGraph(state *domain.State, nodeID string) error {
	return nested.Enter(state, e.graph, nodeID)
}

// Graph returns the validated graph for visualization or introspection tools.
func (e *Engine) Graph() *graph.Graph {
	return e.graph
}

// Definition returns the graph as a plain definition.
func (e *Engine) Definition() domain.Definition {
	return domain.Definition{
		Name:          e.graph.Name(),
		Nodes:         e.graph.Nodes(),
		Edges:         e.graph.Edges(),
		ServicesNodes: e.graph.ServicesNodes(),
		Model:         e.graph.Model(),
	}
}

// Loader returns the underlying GraphLoader used by the engine.
func (e *Engine) Loader() ports.GraphLoader {
	return e.loader
}
