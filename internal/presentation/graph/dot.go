package graph

import (
	"fmt"

	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/awalterschulze/gographviz"
)

// GenerateDOT produces a Graphviz digraph of the task graph. Identifiers and
// labels are escaped by gographviz as needed.
func GenerateDOT(name string, nodes []domain.Node, edges []domain.Edge, overlay *GraphOverlay) (string, error) {
	if name == "" {
		name = "wayfinder"
	}
	g := gographviz.NewEscape()
	if err := g.SetName(name); err != nil {
		return "", err
	}
	if err := g.SetDir(true); err != nil {
		return "", err
	}
	if err := g.AddAttr(name, "rankdir", "TB"); err != nil {
		return "", err
	}

	visited := map[string]bool{}
	current := ""
	if overlay != nil {
		for _, id := range overlay.VisitedNodes {
			visited[id] = true
		}
		current = overlay.CurrentNode
	}

	for _, n := range nodes {
		attrs := map[string]string{
			"label": fmt.Sprintf(`"%s\n%s"`, n.ID, n.Resource.Name),
			"shape": "box",
		}
		switch {
		case n.IsStart():
			attrs["shape"] = "doublecircle"
		case n.IsNestedGraph():
			attrs["shape"] = "box3d"
		}
		if n.Attribute.Task != "" {
			attrs["tooltip"] = n.Attribute.Task
		}
		switch {
		case n.ID == current:
			attrs["style"] = "filled"
			attrs["fillcolor"] = "#ffeb3b"
			attrs["penwidth"] = "3"
		case visited[n.ID]:
			attrs["style"] = "filled"
			attrs["fillcolor"] = "#e1f5fe"
		}
		if err := g.AddNode(name, n.ID, attrs); err != nil {
			return "", fmt.Errorf("node %q: %w", n.ID, err)
		}
	}

	for _, e := range edges {
		attrs := map[string]string{}
		if !e.IsRandom() && e.Intent != "" {
			attrs["label"] = e.Intent
		}
		if e.Attribute.Pred {
			attrs["style"] = "dashed"
		}
		if e.Attribute.Weight > 0 && e.Attribute.Weight != 1 {
			attrs["penwidth"] = fmt.Sprintf("%g", 1+e.Attribute.Weight/2)
		}
		if err := g.AddEdge(e.Source, e.Target, true, attrs); err != nil {
			return "", fmt.Errorf("edge %s -> %s: %w", e.Source, e.Target, err)
		}
	}
	return g.String(), nil
}
