package graph

import (
	"fmt"
	"strconv"

	"github.com/aretw0/switchboard/pkg/flow"
	"github.com/awalterschulze/gographviz"
)

// GenerateDOT renders a flow as a Graphviz digraph. Fixed jumps become edges
// labelled with their guard; hangups point to a shared "hangup" sink.
func GenerateDOT(def *flow.Definition) (string, error) {
	g := gographviz.NewGraph()
	if err := g.SetName("flow"); err != nil {
		return "", err
	}
	if err := g.SetDir(true); err != nil {
		return "", err
	}

	for _, node := range def.Nodes {
		attrs := map[string]string{"label": strconv.Quote(node.Name)}
		switch {
		case node.Name == def.Entry:
			attrs["shape"] = "doublecircle"
		case node.Dial != nil:
			attrs["shape"] = "component"
		case node.Input != nil:
			attrs["shape"] = "parallelogram"
		default:
			attrs["shape"] = "box"
		}
		if err := g.AddNode("flow", strconv.Quote(node.Name), attrs); err != nil {
			return "", fmt.Errorf("failed to add node %q: %w", node.Name, err)
		}
	}

	hangup := strconv.Quote("hangup")
	for _, r := range def.Rules {
		attrs := map[string]string{"label": strconv.Quote(edgeLabel(r))}
		var to string
		switch {
		case r.Jump != "":
			to = strconv.Quote(r.Jump)
		case r.Hangup != "":
			if !g.IsNode(hangup) {
				if err := g.AddNode("flow", hangup, map[string]string{"shape": "octagon"}); err != nil {
					return "", err
				}
			}
			to = hangup
		default:
			continue
		}
		if err := g.AddEdge(strconv.Quote(r.Node), to, true, attrs); err != nil {
			return "", fmt.Errorf("failed to add edge from %q: %w", r.Node, err)
		}
	}

	return g.String(), nil
}

// ParseDOT reads back the node and edge counts of a rendered graph.
func ParseDOT(dot string) (nodes, edges int, err error) {
	ast, err := gographviz.ParseString(dot)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to parse DOT: %w", err)
	}
	g := gographviz.NewGraph()
	if err := gographviz.Analyse(ast, g); err != nil {
		return 0, 0, fmt.Errorf("failed to analyze DOT: %w", err)
	}
	return len(g.Nodes.Nodes), len(g.Edges.Edges), nil
}
