package flow

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/aretw0/switchboard/pkg/node"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// exprEnv exposes the finished node to expressions.
func exprEnv(n *node.Node) map[string]any {
	if n == nil {
		return map[string]any{"input": "", "attempts": 0, "state": "", "node": ""}
	}
	return map[string]any{
		"input":    n.Input(),
		"attempts": n.AttemptsUsed(),
		"state":    n.State().String(),
		"node":     n.Name(),
	}
}

// CompileCondition compiles a boolean expression over the node environment.
func CompileCondition(src string) (*vm.Program, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, fmt.Errorf("empty expression")
	}
	return expr.Compile(src, expr.Env(exprEnv(nil)), expr.AsBool())
}

// CompileTarget compiles an expression yielding a node name.
func CompileTarget(src string) (*vm.Program, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, fmt.Errorf("empty expression")
	}
	return expr.Compile(src, expr.Env(exprEnv(nil)), expr.AsKind(reflect.String))
}

func runCondition(p *vm.Program, n *node.Node) (bool, error) {
	out, err := expr.Run(p, exprEnv(n))
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("condition must evaluate to bool (got %T)", out)
	}
	return b, nil
}

func runTarget(p *vm.Program, n *node.Node) (string, error) {
	out, err := expr.Run(p, exprEnv(n))
	if err != nil {
		return "", err
	}
	s, ok := out.(string)
	if !ok {
		return "", fmt.Errorf("jump expression must evaluate to string (got %T)", out)
	}
	return s, nil
}
