package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventDecision EventType = "decision"
	EventClassify EventType = "classify"
	EventFallback EventType = "fallback"
)

// DecisionKind names the rule that produced a decision.
type DecisionKind string

const (
	DecisionStay       DecisionKind = "stay"
	DecisionInitial    DecisionKind = "initial"
	DecisionIncomplete DecisionKind = "incomplete"
	DecisionGlobal     DecisionKind = "global"
	DecisionLocal      DecisionKind = "local"
	DecisionRandom     DecisionKind = "random"
	DecisionFallback   DecisionKind = "fallback"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// DecisionEvent is emitted once per turn with the final decision.
type DecisionEvent struct {
	EventBase
	FromNode     string       `json:"from_node"`
	NodeID       string       `json:"node_id"`
	ResourceName string       `json:"resource_name"`
	Kind         DecisionKind `json:"kind"`
	Intent       string       `json:"intent,omitempty"`
}

// ClassifyEvent is emitted after every classifier call.
type ClassifyEvent struct {
	EventBase
	NodeID     string        `json:"node_id"`
	Global     bool          `json:"global"`
	Candidates int           `json:"candidates"`
	Predicted  string        `json:"predicted,omitempty"`
	Duration   time.Duration `json:"duration"`
	Err        error         `json:"-"`
}

// Fallback reasons.
const (
	FallbackNoIntent        = "no_intent"
	FallbackClassifierError = "classifier_error"
)

// FallbackEvent is emitted when a turn is routed to the fallback resource.
type FallbackEvent struct {
	EventBase
	NodeID string `json:"node_id"`
	Reason string `json:"reason"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnDecision func(context.Context, *DecisionEvent)
	OnClassify func(context.Context, *ClassifyEvent)
	OnFallback func(context.Context, *FallbackEvent)
}

// Merge chains two hook sets; both are invoked, h first.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnDecision: chain(h.OnDecision, other.OnDecision),
		OnClassify: chain(h.OnClassify, other.OnClassify),
		OnFallback: chain(h.OnFallback, other.OnFallback),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
