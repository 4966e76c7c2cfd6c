package validator

import (
	"context"
	"strings"
	"testing"

	"github.com/aretw0/switchboard/pkg/flow"
	"github.com/aretw0/switchboard/pkg/node"
	"github.com/aretw0/switchboard/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, doc string) *flow.Definition {
	t.Helper()
	def, err := flow.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	return def
}

func TestValidateFlow_Valid(t *testing.T) {
	def := parse(t, `
entry: start
nodes:
  - name: start
    input: {exactly: 1}
  - name: a
  - name: b
rules:
  - {node: start, on: complete, input: "1", jump: a}
  - {node: start, on: complete, jump: b}
  - {node: a, on: complete, jump: b}
  - {node: b, on: complete, hangup: caller}
`)
	assert.NoError(t, ValidateFlow(def, nil))

	reachable := Reachable(def)
	assert.True(t, reachable["a"])
	assert.True(t, reachable["b"])
}

func TestValidateFlow_BrokenLinkAndUnreachable(t *testing.T) {
	def := parse(t, `
entry: start
nodes:
  - name: start
  - name: orphan
rules:
  - {node: start, on: complete, jump: ghost_node}
`)
	err := ValidateFlow(def, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jump to missing node 'ghost_node'")
	assert.Contains(t, err.Error(), "Unreachable node: 'orphan'")
}

func TestValidateFlow_DynamicJumpSkipsReachability(t *testing.T) {
	def := parse(t, `
entry: start
nodes:
  - name: start
  - name: maybe
rules:
  - {node: start, on: complete, jump_expr: 'input == "1" ? "maybe" : ""'}
`)
	assert.NoError(t, ValidateFlow(def, nil))
}

func TestValidateFlow_ShadowedRule(t *testing.T) {
	def := parse(t, `
entry: start
nodes:
  - name: start
  - name: a
rules:
  - {node: start, on: complete, execute: log}
  - {node: start, on: complete, jump: a}
  - {node: start, on: complete, hangup: caller}
`)
	err := ValidateFlow(def, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rule 2 (start on complete): never evaluated, rule 1 always ends evaluation first")
	assert.NotContains(t, err.Error(), "rule 1 (start")
}

func TestValidateFlow_Declarations(t *testing.T) {
	def := parse(t, `
entry: start
nodes:
  - name: start
    input: {min: 4, max: 2, cancel_digit: "#", end_of_input_digit: "#"}
    validators:
      - {name: both, expr: 'true', check: luhn}
      - {name: broken, expr: 'input +'}
      - {name: unknown, check: luhn}
    dial: {endpoint: "not an endpoint"}
rules:
  - {node: start, on: hung_up, hangup: caller}
  - {node: start, on: cancel, execute: audit}
  - {node: start, on: timeout}
`)
	err := ValidateFlow(def, registry.NewRegistry())
	require.Error(t, err)
	msg := err.Error()

	assert.Contains(t, msg, "input min 4 exceeds max 2")
	assert.Contains(t, msg, "cancel digit and end-of-input digit are both '#'")
	assert.Contains(t, msg, "validator 'both' sets both expr and check")
	assert.Contains(t, msg, "validator 'broken'")
	assert.Contains(t, msg, `check "luhn": callback not registered`)
	assert.Contains(t, msg, "invalid dial endpoint")
	assert.Contains(t, msg, "unknown outcome 'hung_up'")
	assert.Contains(t, msg, `action "audit": callback not registered`)
	assert.Contains(t, msg, "exactly one action is required, got 0")
}

func TestValidateFlow_RegistryResolved(t *testing.T) {
	def := parse(t, `
entry: start
nodes:
  - name: start
    input: {exactly: 4}
    validators: [{name: luhn, check: luhn}]
rules:
  - {node: start, on: complete, execute: audit}
`)
	reg := registry.NewRegistry()
	reg.RegisterCheck("luhn", func(*node.Node) bool { return true })
	reg.RegisterAction("audit", func(context.Context, *node.Node) {})

	assert.NoError(t, ValidateFlow(def, reg))
}
