package runtime

import (
	"fmt"
	"time"

	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/ports"
)

// outcome is the result kind of a prediction step.
type outcome int

const (
	// noMatch: the classifier answered with a label that matches no candidate.
	noMatch outcome = iota
	// unsure: the unsure label was chosen (or was the only candidate).
	unsure
	// midFlow: the in-progress global intent was predicted again while the
	// current node is still incomplete.
	midFlow
	// decided: a node was selected.
	decided
	// failed: the classifier returned an error.
	failed
)

type result struct {
	outcome  outcome
	label    string
	decision domain.NodeDecision
}

// predictGlobal classifies the utterance against the session's remaining
// global intents, minus excluded labels, and jumps to the matched target.
func (e *Engine) predictGlobal(t *turn, curr string, excluded map[string]bool) result {
	s := t.s
	candidates := s.AvailableGlobalIntents.Without(excluded)

	if _, ok := candidates[domain.UnsureIntent]; ok && len(candidates) == 1 {
		t.logger.Debug("Only the unsure intent is available", "node", curr)
		return result{outcome: unsure, label: domain.UnsureIntent}
	}
	if _, ok := candidates[domain.UnsureIntent]; !ok {
		candidates[domain.UnsureIntent] = []domain.IntentCandidate{domain.UnsureCandidate()}
	}

	pred, err := e.classify(t, curr, candidates, true)
	if err != nil {
		return result{outcome: failed}
	}
	label, ok := matchLabel(pred.Label, candidates)
	if !ok {
		t.logger.Debug("Global prediction matched no candidate", "node", curr, "predicted", pred.Label)
		return result{outcome: noMatch, label: pred.Label}
	}
	if label == domain.UnsureIntent {
		return result{outcome: unsure, label: label}
	}

	if label == s.CurrGlobalIntent &&
		!e.graph.IsLeaf(curr) &&
		s.StatusOf(curr, domain.StatusIncomplete) == domain.StatusIncomplete {
		t.logger.Debug("Global intent still in progress", "node", curr, "intent", label)
		return result{outcome: midFlow, label: label}
	}

	prevGlobal := s.CurrGlobalIntent
	next, intent := e.jumpToNode(t, curr, label, pred)
	d := e.enter(t, next, intent)
	if next != curr && !e.graph.IsLeaf(curr) {
		s.PushFlow(curr, prevGlobal)
		d.AddFlowStack = true
	}
	s.CurrGlobalIntent = label
	s.Intent = label
	return result{outcome: decided, label: label, decision: d}
}

// jumpToNode selects the target of a global intent. Selection problems fail
// soft: the turn stays at curr under the intent of its first inbound edge.
func (e *Engine) jumpToNode(t *turn, curr, label string, pred domain.Prediction) (string, string) {
	next, err := e.pickTarget(t.s.AvailableGlobalIntents[label], pred)
	if err != nil {
		t.logger.Error("Failed to jump to node", "node", curr, "intent", label, "error", err)
		intent := ""
		if in := e.graph.InEdges(curr); len(in) > 0 {
			intent = in[0].Intent
		}
		return curr, intent
	}
	return next, label
}

// pickTarget honours an explicit disambiguation index, else draws by weight.
func (e *Engine) pickTarget(cands []domain.IntentCandidate, pred domain.Prediction) (string, error) {
	var target string
	if pred.Indexed {
		if pred.Index < 0 || pred.Index >= len(cands) {
			return "", fmt.Errorf("index %d out of range for %d candidates", pred.Index, len(cands))
		}
		target = cands[pred.Index].Target
	} else {
		weights := make([]float64, len(cands))
		for i, c := range cands {
			weights[i] = c.Attribute.Weight
		}
		idx, err := e.graph.Sampler().Choose(weights)
		if err != nil {
			return "", err
		}
		target = cands[idx].Target
	}
	if !e.graph.Has(target) {
		return "", fmt.Errorf("candidate target %q is not a node", target)
	}
	return target, nil
}

// predictLocal classifies the utterance against the outgoing intents of curr.
func (e *Engine) predictLocal(t *turn, curr string, local domain.IntentPool) result {
	s := t.s
	candidates := local.Clone()
	if _, ok := candidates[domain.UnsureIntent]; !ok {
		candidates[domain.UnsureIntent] = []domain.IntentCandidate{domain.UnsureCandidate()}
	}

	pred, err := e.classify(t, curr, candidates, false)
	if err != nil {
		return result{outcome: failed}
	}
	label, ok := matchLabel(pred.Label, local)
	if !ok {
		t.logger.Debug("Local prediction matched no intent", "node", curr, "predicted", pred.Label)
		return result{outcome: noMatch, label: pred.Label}
	}

	s.Intent = label
	next := curr
	if edges := e.graph.EdgesFor(curr, label); len(edges) > 0 {
		i := 0
		if pred.Indexed && pred.Index >= 0 && pred.Index < len(edges) {
			i = pred.Index
		}
		next = edges[i].Target
	}
	d := e.enter(t, next, label)
	if start, ok := e.graph.StartNode(); ok && curr == start {
		s.CurrGlobalIntent = label
	}
	return result{outcome: decided, label: label, decision: d}
}

// classify calls the classifier and appends the attempt to the audit trail.
func (e *Engine) classify(t *turn, curr string, candidates domain.IntentPool, global bool) (domain.Prediction, error) {
	labels := sortedLabels(candidates)

	start := time.Now()
	pred, err := e.callClassifier(t, candidates)
	e.emitClassify(t, curr, global, len(labels), pred, time.Since(start), err)

	if err != nil {
		t.logger.Error("Intent classification failed", "node", curr, "global", global, "error", err)
		t.s.Record(domain.NLURecord{CandidateIntents: labels, GlobalIntent: global})
		return domain.Prediction{}, err
	}

	pred.Label = domain.NormalizeIntent(pred.Label)
	if pred.Index < 0 {
		pred.Indexed = false
		pred.Index = 0
	}
	t.s.Record(domain.NLURecord{
		CandidateIntents: labels,
		PredIntent:       pred.String(),
		GlobalIntent:     global,
	})
	t.logger.Debug("Intent classified", "node", curr, "global", global, "candidates", labels, "predicted", pred.String())
	return pred, nil
}

func (e *Engine) callClassifier(t *turn, candidates domain.IntentPool) (pred domain.Prediction, err error) {
	if e.classifier == nil {
		return pred, fmt.Errorf("%w: no classifier configured", domain.ErrClassifier)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", domain.ErrClassifier, r)
		}
	}()

	pred, err = e.classifier.Classify(t.ctx, ports.ClassifyRequest{
		Utterance:  t.in.Utterance,
		History:    t.in.History,
		Candidates: candidates,
		Model:      e.model,
	})
	if err != nil {
		return pred, fmt.Errorf("%w: %w", domain.ErrClassifier, err)
	}
	return pred, nil
}
