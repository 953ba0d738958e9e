package runtime

import "github.com/aretw0/wayfinder/pkg/domain"

// advance follows one of the unconditional edges of curr, drawn by weight.
func (e *Engine) advance(t *turn, curr string) (domain.NodeDecision, bool) {
	edges := e.graph.RandomEdges(curr)
	if len(edges) == 0 {
		return domain.NodeDecision{}, false
	}

	weights := make([]float64, len(edges))
	for i, edge := range edges {
		weights[i] = edge.Attribute.Weight
	}
	idx, err := e.graph.Sampler().Choose(weights)
	if err != nil {
		t.logger.Error("Random advance failed", "node", curr, "error", err)
		return domain.NodeDecision{}, false
	}

	next := edges[idx].Target
	if next == curr {
		return domain.NodeDecision{}, false
	}
	t.logger.Debug("No intent, advancing", "node", curr, "next", next)
	d := e.enter(t, next, "")
	t.s.MarkNoIntent()
	return d, true
}
