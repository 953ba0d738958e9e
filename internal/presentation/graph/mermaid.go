// Package graph renders task graphs as Mermaid flowcharts and Graphviz DOT.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/wayfinder/pkg/domain"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// OverlayFromState builds an overlay from the session path and current node.
func OverlayFromState(s *domain.State) *GraphOverlay {
	if s == nil {
		return nil
	}
	o := &GraphOverlay{CurrentNode: s.CurrNode}
	for _, p := range s.Path {
		o.VisitedNodes = append(o.VisitedNodes, p.NodeID)
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart syntax string from the graph.
// It applies semantic styling:
// - Start: ((Circle))
// - Nested graph component: [[Subroutine]]
// - Default: [Rectangle]
// Global edges are dotted, unconditional edges carry no label.
// It also applies overlay styles (Visited/Current) if provided.
func GenerateMermaid(nodes []domain.Node, edges []domain.Edge, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range nodes {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch {
		case node.IsStart():
			opener, closer = "((", "))"
		case node.IsNestedGraph():
			opener, closer = "[[", "]]"
		}

		label := node.ID
		if node.Resource.Name != "" {
			label = fmt.Sprintf("%s<br/>%s", node.ID, escapeMermaid(node.Resource.Name))
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)
	}

	for _, e := range edges {
		from, to := sanitizeMermaidID(e.Source), sanitizeMermaidID(e.Target)
		arrow := "-->"
		switch {
		case e.IsRandom() || e.Intent == "":
			if e.Attribute.Pred {
				arrow = "-.->"
			}
		case e.Attribute.Pred:
			arrow = fmt.Sprintf("-. \"%s\" .->", escapeMermaid(e.Intent))
		default:
			arrow = fmt.Sprintf("-- \"%s\" -->", escapeMermaid(e.Intent))
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", from, arrow, to)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

func escapeMermaid(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	// Bare numeric ids are valid in Mermaid but clash with keywords like "end".
	if s == "end" || s == "graph" || s == "class" {
		s = "n_" + s
	}
	return s
}
