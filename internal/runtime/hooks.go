package runtime

import (
	"time"

	"github.com/aretw0/wayfinder/pkg/domain"
)

func (e *Engine) base(t *turn, typ domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp: time.Now(),
		Type:      typ,
		SessionID: t.s.SessionID,
	}
}

func (e *Engine) emitDecision(t *turn, d domain.NodeDecision, kind domain.DecisionKind) {
	if e.hooks.OnDecision == nil {
		return
	}
	e.hooks.OnDecision(t.ctx, &domain.DecisionEvent{
		EventBase:    e.base(t, domain.EventDecision),
		FromNode:     t.from,
		NodeID:       d.NodeID,
		ResourceName: d.ResourceName,
		Kind:         kind,
		Intent:       t.s.Intent,
	})
}

func (e *Engine) emitClassify(t *turn, node string, global bool, candidates int, pred domain.Prediction, elapsed time.Duration, err error) {
	if e.hooks.OnClassify == nil {
		return
	}
	e.hooks.OnClassify(t.ctx, &domain.ClassifyEvent{
		EventBase:  e.base(t, domain.EventClassify),
		NodeID:     node,
		Global:     global,
		Candidates: candidates,
		Predicted:  pred.String(),
		Duration:   elapsed,
		Err:        err,
	})
}

func (e *Engine) emitFallback(t *turn, node, reason string) {
	if e.hooks.OnFallback == nil {
		return
	}
	e.hooks.OnFallback(t.ctx, &domain.FallbackEvent{
		EventBase: e.base(t, domain.EventFallback),
		NodeID:    node,
		Reason:    reason,
	})
}
