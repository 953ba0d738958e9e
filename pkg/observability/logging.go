package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/wayfinder/pkg/domain"
)

// LoggingHooks returns lifecycle hooks writing one structured record per event.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDecision: func(ctx context.Context, e *domain.DecisionEvent) {
			logger.InfoContext(ctx, "decision",
				"session_id", e.SessionID,
				"from", e.FromNode,
				"node_id", e.NodeID,
				"resource", e.ResourceName,
				"kind", e.Kind,
				"intent", e.Intent,
			)
		},
		OnClassify: func(ctx context.Context, e *domain.ClassifyEvent) {
			attrs := []any{
				"session_id", e.SessionID,
				"node_id", e.NodeID,
				"scope", scopeOf(e.Global),
				"candidates", e.Candidates,
				"predicted", e.Predicted,
				"duration", e.Duration,
			}
			if e.Err != nil {
				logger.WarnContext(ctx, "classify", append(attrs, "err", e.Err)...)
				return
			}
			logger.DebugContext(ctx, "classify", attrs...)
		},
		OnFallback: func(ctx context.Context, e *domain.FallbackEvent) {
			logger.InfoContext(ctx, "fallback",
				"session_id", e.SessionID,
				"node_id", e.NodeID,
				"reason", e.Reason,
			)
		},
	}
}
