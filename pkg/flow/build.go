package flow

import (
	"context"
	"fmt"

	"github.com/aretw0/switchboard/pkg/call"
	"github.com/aretw0/switchboard/pkg/controller"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/node"
	"github.com/aretw0/switchboard/pkg/registry"
)

// Build registers the nodes and rules of the flow on a new controller for
// the session. Named callbacks are resolved in reg, which may be nil when the
// flow refers to none.
func (d *Definition) Build(session *call.Session, reg *registry.Registry, opts ...controller.Option) (*controller.Controller, error) {
	if reg == nil {
		reg = registry.NewRegistry()
	}

	seen := make(map[string]bool, len(d.Nodes))
	for _, nd := range d.Nodes {
		if nd.Name == "" {
			return nil, fmt.Errorf("%w: node without name", ErrInvalidFlow)
		}
		if seen[nd.Name] {
			return nil, fmt.Errorf("%w: duplicate node %q", ErrInvalidFlow, nd.Name)
		}
		seen[nd.Name] = true
	}
	if !seen[d.Entry] {
		return nil, fmt.Errorf("%w: entry node %q is not declared", ErrInvalidFlow, d.Entry)
	}

	c := controller.New(session, opts...)
	for _, nd := range d.Nodes {
		if err := buildNode(c.Register(nd.Name), nd, reg); err != nil {
			return nil, fmt.Errorf("%w: node %q: %v", ErrInvalidFlow, nd.Name, err)
		}
	}
	for i, rd := range d.Rules {
		if !seen[rd.Node] {
			return nil, fmt.Errorf("%w: rule %d refers to unknown node %q", ErrInvalidFlow, i, rd.Node)
		}
		if rd.Jump != "" && !seen[rd.Jump] {
			return nil, fmt.Errorf("%w: rule %d jumps to unknown node %q", ErrInvalidFlow, i, rd.Jump)
		}
		if err := buildRule(c.RegisterResult(rd.Node), rd, reg); err != nil {
			return nil, fmt.Errorf("%w: rule %d of node %q: %v", ErrInvalidFlow, i, rd.Node, err)
		}
	}
	return c, nil
}

func buildNode(n *node.Node, nd NodeDef, reg *registry.Registry) error {
	n.PrePrompts(nd.PrePrompts...).Prompts(nd.Prompts...)
	if nd.UninterruptiblePrePrompts {
		n.UninterruptiblePrePrompts()
	}
	if nd.UninterruptiblePrompts {
		n.UninterruptiblePrompts()
	}
	if nd.PrePromptDigitsAsInput != nil {
		n.PrePromptDigitsAsInput(*nd.PrePromptDigitsAsInput)
	}
	if nd.PromptDigitsAsInput != nil {
		n.PromptDigitsAsInput(*nd.PromptDigitsAsInput)
	}
	if nd.InterruptDigits != "" {
		n.InterruptDigits(nd.InterruptDigits)
	}

	if in := nd.Input; in != nil {
		if in.Exactly > 0 {
			n.ExpectExactly(in.Exactly)
		} else {
			if in.Max > 0 && in.Min > in.Max {
				return fmt.Errorf("input min %d exceeds max %d", in.Min, in.Max)
			}
			n.ExpectBetween(in.Min, in.Max)
		}
		if in.CancelDigit != "" {
			n.CancelDigit(in.CancelDigit)
		}
		if in.EndOfInputDigit != nil {
			n.EndOfInputDigit(*in.EndOfInputDigit)
		}
		if in.CancelRetries {
			n.CancelWithInputRetriesInput()
		}
		n.TimeBetweenDigits(in.TimeBetweenDigits).
			TotalTimeForInput(in.TotalTime).
			MaxAttempts(in.MaxAttempts)
	}

	for _, vd := range nd.Validators {
		check, err := buildCheck(vd, reg)
		if err != nil {
			return fmt.Errorf("validator %q: %w", vd.Name, err)
		}
		n.Validator(vd.Name, check, vd.ErrorSounds...)
	}

	if nd.Dial != nil {
		if _, err := domain.NormalizeEndpoint(nd.Dial.Endpoint); err != nil {
			return err
		}
		n.Dial(*nd.Dial)
	}
	if nd.Record != nil {
		n.Record(*nd.Record)
	}
	return nil
}

func buildCheck(vd ValidatorDef, reg *registry.Registry) (func(*node.Node) bool, error) {
	switch {
	case vd.Expr != "" && vd.Check != "":
		return nil, fmt.Errorf("expr and check are mutually exclusive")
	case vd.Check != "":
		check, err := reg.Check(vd.Check)
		if err != nil {
			return nil, err
		}
		return check, nil
	case vd.Expr != "":
		program, err := CompileCondition(vd.Expr)
		if err != nil {
			return nil, err
		}
		return func(n *node.Node) bool {
			ok, err := runCondition(program, n)
			if err != nil {
				n.Session().Logger().Warn("validator expression failed", "validator", vd.Name, "err", err)
				return false
			}
			return ok
		}, nil
	default:
		return nil, fmt.Errorf("either expr or check is required")
	}
}

func buildRule(r *controller.Rule, rd RuleDef, reg *registry.Registry) error {
	state, ok := domain.ParseState(rd.On)
	if !ok || state == domain.StateNotRun {
		return fmt.Errorf("unknown outcome %q", rd.On)
	}
	r.On(state)
	if rd.Input != nil {
		r.WithInput(*rd.Input)
	}

	if rd.Actions() != 1 {
		return fmt.Errorf("exactly one action is required, got %d", rd.Actions())
	}

	switch {
	case rd.Jump != "":
		r.JumpTo(rd.Jump)

	case rd.JumpExpr != "":
		program, err := CompileTarget(rd.JumpExpr)
		if err != nil {
			return err
		}
		r.JumpAfterEval(func(ctx context.Context, n *node.Node) string {
			target, err := runTarget(program, n)
			if err != nil {
				n.Session().Logger().Warn("jump expression failed", "node", n.Name(), "err", err)
				return ""
			}
			return target
		})

	case rd.JumpAfterEval != "":
		router, err := reg.Router(rd.JumpAfterEval)
		if err != nil {
			return err
		}
		r.JumpAfterEval(router)

	case rd.Execute != "":
		action, err := reg.Action(rd.Execute)
		if err != nil {
			return err
		}
		r.Execute(action)

	case rd.Hangup != "":
		switch rd.Hangup {
		case HangupCaller:
			r.Hangup(false)
		case HangupAll:
			r.Hangup(true)
		default:
			return fmt.Errorf("hangup must be %q or %q, got %q", HangupCaller, HangupAll, rd.Hangup)
		}
	}
	return nil
}
