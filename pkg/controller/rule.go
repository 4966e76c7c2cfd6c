package controller

import (
	"context"
	"fmt"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/node"
)

// Action is the kind of effect a rule has once its guard matches.
type Action int

const (
	ActionNone Action = iota
	ActionJump
	ActionJumpEval
	ActionExecute
	ActionHangup
)

func (a Action) String() string {
	switch a {
	case ActionJump:
		return "jump"
	case ActionJumpEval:
		return "jump_after_eval"
	case ActionExecute:
		return "execute"
	case ActionHangup:
		return "hangup"
	default:
		return "none"
	}
}

// Rule reacts to the outcome of one node. Configure one guard, optionally
// narrowed by an input value, and exactly one action.
type Rule struct {
	node string

	on       domain.State
	input    string
	hasInput bool

	action Action
	target string
	eval   func(ctx context.Context, n *node.Node) string
	exec   func(ctx context.Context, n *node.Node)
	all    bool
}

// Guards.

func (r *Rule) OnComplete() *Rule {
	r.on = domain.StateComplete
	return r
}

func (r *Rule) OnCancel() *Rule {
	r.on = domain.StateCancel
	return r
}

func (r *Rule) OnTimeout() *Rule {
	r.on = domain.StateTimeout
	return r
}

func (r *Rule) OnMaxAttemptsReached() *Rule {
	r.on = domain.StateMaxInputsReached
	return r
}

// On sets the guard from a state value.
func (r *Rule) On(s domain.State) *Rule {
	r.on = s
	return r
}

// WithInput narrows the guard to one exact input value.
func (r *Rule) WithInput(value string) *Rule {
	r.input = value
	r.hasInput = true
	return r
}

// Actions. Setting an action replaces the previous one.

func (r *Rule) JumpTo(name string) *Rule {
	r.action = ActionJump
	r.target = name
	return r
}

// JumpAfterEval resolves the next node when the rule fires. An empty name stops dispatch.
func (r *Rule) JumpAfterEval(fn func(ctx context.Context, n *node.Node) string) *Rule {
	r.action = ActionJumpEval
	r.eval = fn
	return r
}

// Execute runs fn and lets rule evaluation continue.
func (r *Rule) Execute(fn func(ctx context.Context, n *node.Node)) *Rule {
	r.action = ActionExecute
	r.exec = fn
	return r
}

// Hangup ends the call. With all set, the leg dialed by the node is deleted too.
func (r *Rule) Hangup(all bool) *Rule {
	r.action = ActionHangup
	r.all = all
	return r
}

// Accessors.

func (r *Rule) Node() string          { return r.node }
func (r *Rule) Guard() domain.State   { return r.on }
func (r *Rule) Action() Action        { return r.action }
func (r *Rule) Target() string        { return r.target }
func (r *Rule) Input() (string, bool) { return r.input, r.hasInput }

// Matches reports whether the rule fires for the finished node.
func (r *Rule) Matches(n *node.Node) bool {
	if r.action == ActionNone || r.on == domain.StateNotRun {
		return false
	}
	if n.State() != r.on {
		return false
	}
	return !r.hasInput || n.Input() == r.input
}

func (r *Rule) String() string {
	s := fmt.Sprintf("%s on %s", r.node, r.on)
	if r.hasInput {
		s += fmt.Sprintf(" input=%q", r.input)
	}
	s += " -> " + r.action.String()
	if r.action == ActionJump {
		s += " " + r.target
	}
	return s
}
