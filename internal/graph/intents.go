package graph

import "github.com/aretw0/wayfinder/pkg/domain"

// GlobalIntents returns a private copy of the global intent index. Sessions
// consume entries from their copy without touching the shared index.
func (g *Graph) GlobalIntents() domain.IntentPool {
	return g.intents.Clone()
}

// LocalIntents groups the labeled outgoing edges of id by intent. Random
// ("none") edges are left out.
func (g *Graph) LocalIntents(id string) domain.IntentPool {
	pool := make(domain.IntentPool)
	for _, e := range g.out[id] {
		if e.Intent == "" || e.IsRandom() {
			continue
		}
		pool[e.Intent] = append(pool[e.Intent], e.Candidate())
	}
	return pool
}

// RandomEdges returns the unconditional outgoing edges of id.
func (g *Graph) RandomEdges(id string) []domain.Edge {
	var out []domain.Edge
	for _, e := range g.out[id] {
		if e.IsRandom() {
			out = append(out, e)
		}
	}
	return out
}

// EdgesFor returns the outgoing edges of id labeled with intent.
func (g *Graph) EdgesFor(id, intent string) []domain.Edge {
	var out []domain.Edge
	for _, e := range g.out[id] {
		if e.Intent == intent {
			out = append(out, e)
		}
	}
	return out
}
