package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/switchboard/pkg/flow"
)

// Overlay contains call data to visualize on the graph.
type Overlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid produces a Mermaid flowchart of a flow.
// It applies semantic styling:
// - Entry: ((Circle))
// - Dial: [[Subroutine]]
// - Input: [/Parallelogram/]
// - Default: [Rectangle]
// Edges are labelled with the outcome (and input) that triggers them.
// It also applies overlay styles (Visited/Current) if provided.
func GenerateMermaid(def *flow.Definition, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range def.Nodes {
		safeID := sanitizeMermaidID(node.Name)

		opener, closer := "[", "]"
		switch {
		case node.Name == def.Entry:
			opener, closer = "((", "))"
		case node.Dial != nil:
			opener, closer = "[[", "]]"
		case node.Input != nil:
			opener, closer = "[/", "/]"
		}

		label := node.Name
		if node.Dial != nil {
			label = fmt.Sprintf("%s <br/> 📞 %s", node.Name, node.Dial.Endpoint)
		} else if node.Record != nil {
			label = fmt.Sprintf("%s <br/> ⏺ record", node.Name)
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))
	}

	hangups := false
	for _, r := range def.Rules {
		from := sanitizeMermaidID(r.Node)
		label := edgeLabel(r)

		switch {
		case r.Jump != "":
			sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", from, label, sanitizeMermaidID(r.Jump)))
		case r.JumpExpr != "":
			expr := strings.ReplaceAll(r.JumpExpr, "\"", "'")
			sb.WriteString(fmt.Sprintf("    %s -. \"%s: %s\" .-> %s_eval{{\"?\"}}\n", from, label, expr, from))
		case r.JumpAfterEval != "":
			sb.WriteString(fmt.Sprintf("    %s -. \"%s: %s()\" .-> %s_eval{{\"?\"}}\n", from, label, r.JumpAfterEval, from))
		case r.Hangup != "":
			hangups = true
			sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> hangup((\"hangup\"))\n", from, label))
		case r.Execute != "":
			sb.WriteString(fmt.Sprintf("    %s -. \"%s: ⚙ %s\" .-> %s\n", from, label, r.Execute, from))
		}
	}
	if hangups {
		sb.WriteString("    style hangup fill:#fee2e2,stroke:#b91c1c,color:#000;\n")
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
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}

		if overlay.CurrentNode != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode)))
		}
	}

	return sb.String()
}

func edgeLabel(r flow.RuleDef) string {
	if r.Input != nil {
		return fmt.Sprintf("%s '%s'", r.On, *r.Input)
	}
	return r.On
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
