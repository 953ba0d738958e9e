// Package runtime implements the per-turn decision engine.
//
// Decide resolves the current node, applies the multi-step, leaf and
// flow-stack rules, classifies the utterance against local and global
// intents and returns the node the execution layer should run next. It never
// fails a turn for classifier or selection problems: the worst case is the
// fallback resource.
package runtime

import (
	"context"
	"log/slog"

	"github.com/aretw0/wayfinder/internal/graph"
	"github.com/aretw0/wayfinder/internal/logging"
	"github.com/aretw0/wayfinder/internal/nested"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/ports"
)

// Engine is the stateless decision core. All session data travels in
// domain.State, so one Engine serves every session of a graph.
type Engine struct {
	graph      *graph.Graph
	classifier ports.IntentClassifier
	resolver   ports.NestedGraphResolver
	logger     *slog.Logger
	hooks      domain.LifecycleHooks
	model      domain.ModelConfig
	fallback   domain.Resource
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithModelConfig overrides the classifier configuration declared by the graph.
func WithModelConfig(model domain.ModelConfig) EngineOption {
	return func(e *Engine) {
		e.model = model
	}
}

// WithFallbackResource overrides the resource that handles unmatched turns.
func WithFallbackResource(res domain.Resource) EngineOption {
	return func(e *Engine) {
		e.fallback = res
	}
}

// NewEngine creates a decision engine over g. A nil resolver uses the
// default nested graph resolver.
func NewEngine(g *graph.Graph, classifier ports.IntentClassifier, resolver ports.NestedGraphResolver, opts ...EngineOption) *Engine {
	e := &Engine{
		graph:      g,
		classifier: classifier,
		resolver:   resolver,
		logger:     logging.NewNop(),
		model:      g.Model(),
		fallback:   domain.Resource{ID: domain.PlannerResource, Name: domain.PlannerResource},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.resolver == nil {
		e.resolver = nested.NewResolver(nested.WithLogger(e.logger))
	}
	return e
}

// Graph returns the graph the engine decides over.
func (e *Engine) Graph() *graph.Graph {
	return e.graph
}

// turn carries the per-call context through the decision steps.
type turn struct {
	ctx    context.Context
	in     domain.Turn
	s      *domain.State
	from   string
	logger *slog.Logger
}

// Decide computes the next node for one conversation turn. The input state
// is not modified; the updated state is returned alongside the decision.
// Errors are only returned when the graph has no start node or ctx is done.
func (e *Engine) Decide(ctx context.Context, state *domain.State, in domain.Turn) (domain.NodeDecision, *domain.State, error) {
	if err := ctx.Err(); err != nil {
		return domain.NodeDecision{}, nil, err
	}

	s := state.Clone()
	if s == nil {
		s = domain.NewState("")
	}
	s.NLURecords = nil
	s.Turns++

	t := &turn{
		ctx:    ctx,
		in:     in,
		s:      s,
		logger: e.logger.With("session_id", s.SessionID),
	}

	curr, err := e.currentNode(t)
	if err != nil {
		return domain.NodeDecision{}, nil, err
	}
	t.from = curr

	if s.StatusOf(curr, domain.StatusComplete) == domain.StatusStay {
		t.logger.Debug("Multi-step node, staying", "node", curr)
		return e.finish(t, e.nodeDecision(curr, false), domain.DecisionStay), s, nil
	}

	if e.graph.IsLeaf(curr) {
		next, initial := e.resolveLeaf(t, curr)
		if initial {
			d := e.enter(t, next, "")
			e.seedGlobalIntents(s)
			e.updateNodeLimit(s)
			return e.finish(t, d, domain.DecisionInitial), s, nil
		}
		curr = next
	}
	s.CurrNode = curr

	e.seedGlobalIntents(s)
	e.updateNodeLimit(s)

	local := e.graph.LocalIntents(curr)
	allowGlobal := in.AllowGlobalIntentSwitch

	if len(local) == 0 && allowGlobal {
		r := e.predictGlobal(t, curr, nil)
		switch r.outcome {
		case decided:
			return e.finish(t, r.decision, domain.DecisionGlobal), s, nil
		case failed:
			return e.failTurn(t, curr)
		}
	}

	if s.StatusOf(curr, domain.StatusComplete) == domain.StatusIncomplete {
		t.logger.Debug("Node incomplete, staying", "node", curr)
		return e.finish(t, e.enter(t, curr, ""), domain.DecisionIncomplete), s, nil
	}

	if len(local) == 0 {
		if d, ok := e.advance(t, curr); ok {
			return e.finish(t, d, domain.DecisionRandom), s, nil
		}
	} else {
		r := e.predictLocal(t, curr, local)
		switch r.outcome {
		case decided:
			return e.finish(t, r.decision, domain.DecisionLocal), s, nil
		case failed:
			return e.failTurn(t, curr)
		}
	}

	if allowGlobal {
		excluded := map[string]bool{domain.NoneIntent: true}
		for label := range local {
			excluded[label] = true
		}
		r := e.predictGlobal(t, curr, excluded)
		switch r.outcome {
		case decided:
			return e.finish(t, r.decision, domain.DecisionGlobal), s, nil
		case failed:
			return e.failTurn(t, curr)
		case midFlow:
			if d, ok := e.advance(t, curr); ok {
				return e.finish(t, d, domain.DecisionRandom), s, nil
			}
		}
	}

	return e.unsure(t, curr, domain.FallbackNoIntent), s, nil
}

// failTurn handles a classifier failure. Cancellation is surfaced; anything
// else routes the turn to the fallback resource.
func (e *Engine) failTurn(t *turn, curr string) (domain.NodeDecision, *domain.State, error) {
	if err := t.ctx.Err(); err != nil {
		return domain.NodeDecision{}, nil, err
	}
	return e.unsure(t, curr, domain.FallbackClassifierError), t.s, nil
}

// currentNode resolves the node the turn starts from.
func (e *Engine) currentNode(t *turn) (string, error) {
	s := t.s
	if s.CurrNode != "" && e.graph.Has(s.CurrNode) {
		return s.CurrNode, nil
	}
	start, ok := e.graph.StartNode()
	if !ok {
		return "", domain.ErrNoStartNode
	}
	if s.CurrNode != "" {
		t.logger.Warn("Current node not in graph, resetting to start", "node", s.CurrNode, "start", start)
	}
	s.CurrNode = start
	return start, nil
}

// seedGlobalIntents copies the graph's global intent index into the session
// the first time it is needed.
func (e *Engine) seedGlobalIntents(s *domain.State) {
	if len(s.AvailableGlobalIntents) > 0 {
		return
	}
	pool := e.graph.GlobalIntents()
	if _, ok := pool[domain.UnsureIntent]; !ok {
		pool[domain.UnsureIntent] = []domain.IntentCandidate{domain.UnsureCandidate()}
	}
	s.AvailableGlobalIntents = pool
}

// updateNodeLimit carries the visit budget forward, filling nodes that have
// never been tracked with their declared limit.
func (e *Engine) updateNodeLimit(s *domain.State) {
	limits := make(map[string]int)
	for _, n := range e.graph.Nodes() {
		if v, ok := s.NodeLimit[n.ID]; ok {
			limits[n.ID] = v
			continue
		}
		if l := n.VisitLimit(); l != nil {
			limits[n.ID] = *l
		}
	}
	s.NodeLimit = limits
}

// nodeDecision builds the decision for a graph node.
func (e *Engine) nodeDecision(id string, canBeSkipped bool) domain.NodeDecision {
	node, _ := e.graph.Node(id)
	return domain.DecisionFor(node, e.graph.IsLeaf(id), canBeSkipped)
}

// enter makes id the current node. When it was reached through intent, the
// matching global candidates are consumed.
func (e *Engine) enter(t *turn, id, intent string) domain.NodeDecision {
	if intent != "" {
		t.s.AvailableGlobalIntents.Consume(intent, id)
	}
	t.s.CurrNode = id
	return e.nodeDecision(id, true)
}

// unsure routes the turn to the fallback resource.
func (e *Engine) unsure(t *turn, curr, reason string) domain.NodeDecision {
	s := t.s
	s.Intent = domain.UnsureIntent
	s.CurrGlobalIntent = domain.UnsureIntent
	s.MarkNoIntent()
	s.CurrNode = curr

	d := domain.NodeDecision{
		ResourceID:     e.fallback.ID,
		ResourceName:   e.fallback.Name,
		IsLeaf:         e.graph.IsLeaf(curr),
		CanBeSkipped:   false,
		AdditionalArgs: map[string]any{domain.TagsArg: map[string]any{}},
	}
	t.logger.Info("No intent matched, routing to fallback", "node", curr, "reason", reason)
	e.emitFallback(t, curr, reason)
	return e.finish(t, d, domain.DecisionFallback)
}

// finish records the decided node on the session path and reports it.
func (e *Engine) finish(t *turn, d domain.NodeDecision, kind domain.DecisionKind) domain.NodeDecision {
	if d.NodeID != "" {
		entry := domain.PathNode{NodeID: d.NodeID, GlobalIntent: t.s.CurrGlobalIntent}
		if node, ok := e.graph.Node(d.NodeID); ok && node.IsNestedGraph() {
			entry.NestedGraphStart = node.Attribute.Value
		}
		t.s.Path = append(t.s.Path, entry)
	}
	t.logger.Debug("Node decided",
		"from", t.from,
		"node", d.NodeID,
		"resource", d.ResourceName,
		"kind", kind,
		"intent", t.s.Intent,
	)
	e.emitDecision(t, d, kind)
	return d
}
