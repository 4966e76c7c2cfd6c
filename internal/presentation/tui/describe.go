package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/switchboard/pkg/flow"
)

// DescribeFlow renders a flow as markdown: one section per node listing its
// prompts, input policy and outgoing rules.
func DescribeFlow(def *flow.Definition) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Flow\n\nEntry node: `%s`\n", def.Entry)

	for _, n := range def.Nodes {
		fmt.Fprintf(&sb, "\n## %s\n\n", n.Name)
		if len(n.PrePrompts) > 0 {
			fmt.Fprintf(&sb, "- **pre-prompts**: %s\n", codeList(n.PrePrompts))
		}
		if len(n.Prompts) > 0 {
			fmt.Fprintf(&sb, "- **prompts**: %s\n", codeList(n.Prompts))
		}
		if in := n.Input; in != nil {
			fmt.Fprintf(&sb, "- **input**: %s\n", describeInput(in))
		}
		for _, v := range n.Validators {
			source := v.Check
			if v.Expr != "" {
				source = "`" + v.Expr + "`"
			}
			fmt.Fprintf(&sb, "- **validator** %s: %s\n", v.Name, source)
		}
		if n.Dial != nil {
			fmt.Fprintf(&sb, "- **dial**: `%s`\n", n.Dial.Endpoint)
		}
		if n.Record != nil {
			sb.WriteString("- **record**\n")
		}

		rules := rulesOf(def, n.Name)
		if len(rules) == 0 {
			continue
		}
		sb.WriteString("\n| on | input | action |\n|---|---|---|\n")
		for _, r := range rules {
			input := "*any*"
			if r.Input != nil {
				input = fmt.Sprintf("`%s`", *r.Input)
			}
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", r.On, input, describeAction(r))
		}
	}
	return sb.String()
}

func rulesOf(def *flow.Definition, name string) []flow.RuleDef {
	var rules []flow.RuleDef
	for _, r := range def.Rules {
		if r.Node == name {
			rules = append(rules, r)
		}
	}
	return rules
}

func describeInput(in *flow.InputDef) string {
	var parts []string
	switch {
	case in.Exactly > 0:
		parts = append(parts, fmt.Sprintf("exactly %d digits", in.Exactly))
	case in.Max > 0:
		parts = append(parts, fmt.Sprintf("%d to %d digits", in.Min, in.Max))
	default:
		parts = append(parts, fmt.Sprintf("at least %d digits", in.Min))
	}
	if in.CancelDigit != "" {
		parts = append(parts, fmt.Sprintf("cancel `%s`", in.CancelDigit))
	}
	if in.MaxAttempts > 0 {
		parts = append(parts, fmt.Sprintf("%d attempts", in.MaxAttempts))
	}
	return strings.Join(parts, ", ")
}

func describeAction(r flow.RuleDef) string {
	switch {
	case r.Jump != "":
		return "jump to " + r.Jump
	case r.JumpExpr != "":
		return "jump to `" + strings.ReplaceAll(r.JumpExpr, "|", "\\|") + "`"
	case r.JumpAfterEval != "":
		return "jump via " + r.JumpAfterEval
	case r.Execute != "":
		return "execute " + r.Execute
	case r.Hangup != "":
		return "hang up " + r.Hangup
	}
	return ""
}

func codeList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "`" + s + "`"
	}
	return strings.Join(quoted, ", ")
}
