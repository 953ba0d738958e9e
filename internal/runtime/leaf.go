package runtime

// resolveLeaf picks where a turn continues when it starts at a leaf. The
// nested graph resolver is asked first, then the flow stack, then the
// initial flow. initial reports that the initial flow was chosen, in which
// case the initial node is the decision.
func (e *Engine) resolveLeaf(t *turn, curr string) (next string, initial bool) {
	s := t.s

	if comp, ok := e.resolver.Resolve(s, e.graph.IsLeaf); ok {
		if e.graph.Has(comp) {
			t.logger.Debug("Leaf closes nested graph", "leaf", curr, "component", comp)
			curr = comp
			s.CurrNode = comp
			if !e.graph.IsLeaf(comp) {
				return comp, false
			}
		} else {
			t.logger.Warn("Nested graph component not in graph", "component", comp)
		}
	}

	for {
		b, ok := s.PopFlow()
		if !ok {
			break
		}
		if !e.graph.Has(b.NodeID) {
			t.logger.Warn("Dropping flow stack entry for unknown node", "node", b.NodeID)
			continue
		}
		t.logger.Debug("Resuming interrupted flow", "node", b.NodeID, "global_intent", b.GlobalIntent)
		s.CurrGlobalIntent = b.GlobalIntent
		return b.NodeID, false
	}

	if id, ok := e.graph.InitialNode(); ok {
		t.logger.Debug("Leaf reached, falling back to initial flow", "leaf", curr, "initial", id)
		return id, true
	}
	return curr, false
}
