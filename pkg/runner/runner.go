package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/wayfinder"
	"github.com/aretw0/wayfinder/internal/logging"
	"github.com/aretw0/wayfinder/pkg/adapters/memory"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/session"
)

// DefaultFallbackMessage is shown when a turn is routed to the fallback resource.
const DefaultFallbackMessage = "Sorry, I'm not sure how to help with that. Could you rephrase?"

// Runner drives one conversation against an engine.
type Runner struct {
	engine  *wayfinder.Engine
	manager *session.Manager
	handler IOHandler
	logger  *slog.Logger

	sessionID       string
	allowGlobal     bool
	fallbackMessage string
	history         []string
}

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithManager configures the session manager used for persistence.
// Defaults to an in-memory store.
func WithManager(m *session.Manager) Option {
	return func(r *Runner) {
		r.manager = m
	}
}

// WithSessionID sets the session to create or resume.
func WithSessionID(id string) Option {
	return func(r *Runner) {
		r.sessionID = id
	}
}

// WithHandler configures the IOHandler. Defaults to a TextHandler on stdio.
func WithHandler(h IOHandler) Option {
	return func(r *Runner) {
		r.handler = h
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithGlobalIntentSwitch controls whether turns may jump to global intents.
// Enabled by default.
func WithGlobalIntentSwitch(allow bool) Option {
	return func(r *Runner) {
		r.allowGlobal = allow
	}
}

// WithFallbackMessage sets the reply used for fallback turns.
func WithFallbackMessage(msg string) Option {
	return func(r *Runner) {
		r.fallbackMessage = msg
	}
}

// New creates a Runner for engine.
func New(engine *wayfinder.Engine, opts ...Option) *Runner {
	r := &Runner{
		engine:          engine,
		logger:          logging.NewNop(),
		sessionID:       "local",
		allowGlobal:     true,
		fallbackMessage: DefaultFallbackMessage,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.manager == nil {
		r.manager = session.NewManager(memory.NewStore(), session.WithLogger(r.logger))
	}
	if r.handler == nil {
		r.handler = NewTextHandler(nil, nil)
	}
	return r
}

// IsQuit reports whether the utterance ends the conversation.
func IsQuit(utterance string) bool {
	switch strings.ToLower(strings.TrimSpace(utterance)) {
	case "quit", "exit":
		return true
	}
	return false
}

// Run greets the user and loops until the input ends, the user quits or
// ctx is canceled. Cancellation and end of input are not errors.
func (r *Runner) Run(ctx context.Context) error {
	state, err := r.manager.LoadOrStart(ctx, r.sessionID)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	if state.Turns == 0 {
		if err := r.greet(ctx); err != nil {
			return err
		}
	} else {
		_ = r.handler.Output(ctx, Message{
			Role: RoleSystem,
			Text: fmt.Sprintf("resuming session %q at node %q", r.sessionID, state.CurrNode),
		})
	}

	for {
		utterance, err := r.handler.Input(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}
		if utterance == "" {
			continue
		}
		if IsQuit(utterance) {
			return nil
		}

		if err := r.Step(ctx, utterance); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

func (r *Runner) greet(ctx context.Context) error {
	g := r.engine.Graph()
	start, ok := g.StartNode()
	if !ok {
		return domain.ErrNoStartNode
	}
	node, _ := g.Node(start)
	if node.Attribute.Value == "" {
		return nil
	}
	r.remember(RoleAssistant, node.Attribute.Value)
	return r.handler.Output(ctx, Message{Role: RoleAssistant, Text: node.Attribute.Value})
}

// Step runs one turn: decide, persist and reply.
func (r *Runner) Step(ctx context.Context, utterance string) error {
	r.remember(RoleUser, utterance)
	turn := domain.Turn{
		Utterance:               utterance,
		History:                 strings.Join(r.history, "\n"),
		AllowGlobalIntentSwitch: r.allowGlobal,
	}

	var decision domain.NodeDecision
	_, err := r.manager.Turn(ctx, r.sessionID, func(ctx context.Context, s *domain.State) (*domain.State, error) {
		d, next, err := r.engine.Decide(ctx, s, turn)
		if err != nil {
			return nil, err
		}
		decision = d
		// The runner is its own execution layer: component nodes open
		// their sub-graph right away.
		if d.ResourceName == domain.NestedGraphResource {
			if err := r.engine.EnterNestedGraph(next, d.NodeID); err != nil {
				r.logger.Warn("Failed to enter nested graph", "node", d.NodeID, "err", err)
			}
		}
		return next, nil
	})
	if err != nil {
		return fmt.Errorf("turn failed: %w", err)
	}

	reply := r.replyFor(decision)
	r.remember(RoleAssistant, reply)
	return r.handler.Output(ctx, Message{Role: RoleAssistant, Text: reply, Decision: &decision})
}

func (r *Runner) replyFor(d domain.NodeDecision) string {
	if d.IsFallback() {
		return r.fallbackMessage
	}
	if d.Attributes.Value != "" && d.ResourceName != domain.NestedGraphResource {
		return d.Attributes.Value
	}
	if d.Attributes.Task != "" {
		return fmt.Sprintf("[%s] %s", d.ResourceName, d.Attributes.Task)
	}
	return fmt.Sprintf("[%s]", d.ResourceName)
}

func (r *Runner) remember(role Role, text string) {
	r.history = append(r.history, fmt.Sprintf("%s: %s", role, text))
}

// History returns the formatted conversation so far.
func (r *Runner) History() string {
	return strings.Join(r.history, "\n")
}
