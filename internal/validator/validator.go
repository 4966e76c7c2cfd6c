package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/flow"
	"github.com/aretw0/switchboard/pkg/registry"
)

// ValidateFlow checks a flow for broken links, unreachable nodes, shadowed
// rules and invalid declarations. Every problem is reported at once.
// Registry names are only checked when reg is not nil.
func ValidateFlow(def *flow.Definition, reg *registry.Registry) error {
	var errors []string
	report := func(format string, args ...any) {
		errors = append(errors, fmt.Sprintf(format, args...))
	}

	declared := make(map[string]bool, len(def.Nodes))
	for _, n := range def.Nodes {
		if declared[n.Name] {
			report("Duplicate node: '%s'", n.Name)
		}
		declared[n.Name] = true
		checkNode(n, reg, report)
	}
	if !declared[def.Entry] {
		report("Entry node '%s' is not declared", def.Entry)
	}

	dynamic := false
	type guard struct {
		node, on string
	}
	terminal := make(map[guard]int)

	for i, r := range def.Rules {
		where := fmt.Sprintf("rule %d (%s on %s)", i, r.Node, r.On)
		if !declared[r.Node] {
			report("%s: unknown node '%s'", where, r.Node)
		}
		state, ok := domain.ParseState(r.On)
		if !ok || state == domain.StateNotRun {
			report("%s: unknown outcome '%s'", where, r.On)
		}
		if n := r.Actions(); n != 1 {
			report("%s: exactly one action is required, got %d", where, n)
			continue
		}

		switch {
		case r.Jump != "":
			if !declared[r.Jump] {
				report("%s: jump to missing node '%s'", where, r.Jump)
			}
		case r.JumpExpr != "":
			dynamic = true
			if _, err := flow.CompileTarget(r.JumpExpr); err != nil {
				report("%s: invalid jump_expr: %v", where, err)
			}
		case r.JumpAfterEval != "":
			dynamic = true
			if reg != nil {
				if _, err := reg.Router(r.JumpAfterEval); err != nil {
					report("%s: %v", where, err)
				}
			}
		case r.Execute != "":
			if reg != nil {
				if _, err := reg.Action(r.Execute); err != nil {
					report("%s: %v", where, err)
				}
			}
		case r.Hangup != "":
			if r.Hangup != flow.HangupCaller && r.Hangup != flow.HangupAll {
				report("%s: invalid hangup mode '%s'", where, r.Hangup)
			}
		}

		g := guard{node: r.Node, on: state.String()}
		if prev, shadowed := terminal[g]; shadowed {
			report("%s: never evaluated, rule %d always ends evaluation first", where, prev)
		} else if r.Execute == "" && r.Input == nil {
			terminal[g] = i
		}
	}

	// Nodes reached only through evaluated jumps cannot be resolved statically.
	if !dynamic && declared[def.Entry] {
		reachable := Reachable(def)
		for _, n := range def.Nodes {
			if !reachable[n.Name] {
				report("Unreachable node: '%s'", n.Name)
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(errors), strings.Join(errors, "\n- "))
	}
	return nil
}

// Reachable returns the nodes reachable from the entry through fixed jumps.
func Reachable(def *flow.Definition) map[string]bool {
	visited := make(map[string]bool)
	queue := []string{def.Entry}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if visited[current] {
			continue
		}
		visited[current] = true

		for _, target := range def.Targets(current) {
			if !visited[target] {
				queue = append(queue, target)
			}
		}
	}
	return visited
}

func checkNode(n flow.NodeDef, reg *registry.Registry, report func(string, ...any)) {
	if n.Name == "" {
		report("Node without name")
		return
	}
	if in := n.Input; in != nil {
		if in.Exactly < 0 || in.Min < 0 || in.Max < 0 {
			report("Node '%s': input lengths must not be negative", n.Name)
		}
		if in.Max > 0 && in.Min > in.Max {
			report("Node '%s': input min %d exceeds max %d", n.Name, in.Min, in.Max)
		}
		if in.CancelDigit != "" && in.EndOfInputDigit != nil && in.CancelDigit == *in.EndOfInputDigit {
			report("Node '%s': cancel digit and end-of-input digit are both '%s'", n.Name, in.CancelDigit)
		}
	}
	for _, v := range n.Validators {
		switch {
		case v.Expr != "" && v.Check != "":
			report("Node '%s': validator '%s' sets both expr and check", n.Name, v.Name)
		case v.Expr != "":
			if _, err := flow.CompileCondition(v.Expr); err != nil {
				report("Node '%s': validator '%s': %v", n.Name, v.Name, err)
			}
		case v.Check != "":
			if reg != nil {
				if _, err := reg.Check(v.Check); err != nil {
					report("Node '%s': validator '%s': %v", n.Name, v.Name, err)
				}
			}
		default:
			report("Node '%s': validator '%s' needs expr or check", n.Name, v.Name)
		}
	}
	if n.Dial != nil {
		if _, err := domain.NormalizeEndpoint(n.Dial.Endpoint); err != nil {
			report("Node '%s': %v", n.Name, err)
		}
	}
}
