package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/switchboard/internal/presentation/graph"
	"github.com/aretw0/switchboard/pkg/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
entry: main-menu
nodes:
  - name: main-menu
    input: {exactly: 1}
  - name: pin.check
    input: {exactly: 4}
  - name: transfer
    dial: {endpoint: PJSIP/sales}
  - name: bye
rules:
  - {node: main-menu, on: complete, input: "1", jump: pin.check}
  - {node: main-menu, on: timeout, hangup: caller}
  - {node: pin.check, on: complete, jump_expr: 'input == "1234" ? "transfer" : "bye"'}
  - {node: pin.check, on: cancel, execute: audit}
  - {node: transfer, on: complete, jump: bye}
`

func load(t *testing.T) *flow.Definition {
	t.Helper()
	def, err := flow.Parse(strings.NewReader(sample))
	require.NoError(t, err)
	return def
}

func TestGenerateMermaid(t *testing.T) {
	got := graph.GenerateMermaid(load(t), nil)

	for _, want := range []string{
		"graph TD\n",
		`main_menu(("main-menu"))`,
		`pin_check[/"pin.check"/]`,
		`transfer[["transfer <br/> 📞 PJSIP/sales"]]`,
		`bye["bye"]`,
		`main_menu -- "complete '1'" --> pin_check`,
		`main_menu -- "timeout" --> hangup(("hangup"))`,
		`pin_check -. "complete: input == '1234' ? 'transfer' : 'bye'" .-> pin_check_eval{{"?"}}`,
		`pin_check -. "cancel: ⚙ audit" .-> pin_check`,
	} {
		assert.Contains(t, got, want)
	}
	assert.NotContains(t, got, "Overlay Styles")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	got := graph.GenerateMermaid(load(t), &graph.Overlay{
		VisitedNodes: []string{"main-menu", "pin.check", "main-menu"},
		CurrentNode:  "transfer",
	})

	assert.Equal(t, 1, strings.Count(got, "class main_menu visited;"))
	assert.Contains(t, got, "class pin_check visited;")
	assert.Contains(t, got, "class transfer current;")
}

func TestGenerateDOT(t *testing.T) {
	dot, err := graph.GenerateDOT(load(t))
	require.NoError(t, err)

	assert.Contains(t, dot, "digraph flow")
	assert.Contains(t, dot, `shape=doublecircle`)

	nodes, edges, err := graph.ParseDOT(dot)
	require.NoError(t, err)
	assert.Equal(t, 5, nodes, "four flow nodes plus the hangup sink")
	assert.Equal(t, 3, edges)
}
