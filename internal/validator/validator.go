// Package validator lints a loaded task graph beyond the structural checks
// done at load time.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/wayfinder/internal/graph"
	"github.com/aretw0/wayfinder/pkg/domain"
)

// Report lists the findings of a validation run.
type Report struct {
	Errors   []string
	Warnings []string
}

// Err folds the errors into a single error, or nil when there are none.
func (r Report) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return fmt.Errorf("found %d errors:\n- %s", len(r.Errors), strings.Join(r.Errors, "\n- "))
}

func (r *Report) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ValidateGraph crawls g from its start node and reports nodes no turn can
// reach, misconfigured nested graph components and intents the classifier
// cannot tell apart.
func ValidateGraph(g *graph.Graph) Report {
	var r Report

	start, ok := g.StartNode()
	if !ok {
		r.errorf("graph has no start node")
		return r
	}

	for _, n := range g.Nodes() {
		if !n.IsNestedGraph() {
			continue
		}
		if n.Attribute.Value == "" {
			r.errorf("Nested graph component '%s' does not name its start node", n.ID)
		} else if !g.Has(n.Attribute.Value) {
			r.errorf("Nested graph component '%s' points at missing node '%s'", n.ID, n.Attribute.Value)
		}
	}

	// Global intents and service entries are reachable from any turn.
	queue := []string{start}
	for _, cands := range g.GlobalIntents() {
		for _, c := range cands {
			queue = append(queue, c.Target)
		}
	}
	for _, id := range g.ServicesNodes() {
		queue = append(queue, id)
	}

	visited := make(map[string]bool)
	for len(queue) > 0 {
		currentID := queue[0]
		queue = queue[1:]

		if visited[currentID] || !g.Has(currentID) {
			continue
		}
		visited[currentID] = true

		queue = append(queue, g.Successors(currentID)...)
		if n, _ := g.Node(currentID); n.IsNestedGraph() && n.Attribute.Value != "" {
			queue = append(queue, n.Attribute.Value)
		}
	}

	var unreachable []string
	for _, n := range g.Nodes() {
		if !visited[n.ID] {
			unreachable = append(unreachable, n.ID)
		}
	}
	sort.Strings(unreachable)
	for _, id := range unreachable {
		r.warnf("Node '%s' is unreachable from start node '%s'", id, start)
	}

	for _, e := range g.Edges() {
		switch {
		case e.Intent == domain.UnsureIntent:
			r.errorf("Edge %s -> %s uses the reserved intent '%s'", e.Source, e.Target, domain.UnsureIntent)
		case e.Intent == "":
			r.warnf("Edge %s -> %s has no intent; label it '%s' for an unconditional transition", e.Source, e.Target, domain.NoneIntent)
		case !e.IsRandom() && e.Attribute.Definition == "" && len(e.Attribute.SampleUtterances) == 0:
			r.warnf("Intent '%s' on edge %s -> %s has neither a definition nor sample utterances", e.Intent, e.Source, e.Target)
		}
	}

	return r
}
