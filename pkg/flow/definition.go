package flow

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aretw0/switchboard/pkg/domain"
	"gopkg.in/yaml.v3"
)

// ErrInvalidFlow is returned when a flow cannot be parsed or built.
var ErrInvalidFlow = errors.New("invalid flow")

// Hangup modes of a rule.
const (
	HangupCaller = "caller"
	HangupAll    = "all"
)

// Definition is a parsed flow file.
type Definition struct {
	Entry string    `yaml:"entry"`
	Nodes []NodeDef `yaml:"nodes"`
	Rules []RuleDef `yaml:"rules"`
}

// NodeDef declares one node.
type NodeDef struct {
	Name string `yaml:"name"`

	PrePrompts                []string `yaml:"pre_prompts"`
	Prompts                   []string `yaml:"prompts"`
	UninterruptiblePrePrompts bool     `yaml:"uninterruptible_pre_prompts"`
	UninterruptiblePrompts    bool     `yaml:"uninterruptible_prompts"`
	PrePromptDigitsAsInput    *bool    `yaml:"pre_prompt_digits_as_input"`
	PromptDigitsAsInput       *bool    `yaml:"prompt_digits_as_input"`
	InterruptDigits           string   `yaml:"interrupt_digits"`

	Input      *InputDef      `yaml:"input"`
	Validators []ValidatorDef `yaml:"validators"`

	Dial   *domain.DialSpec   `yaml:"dial"`
	Record *domain.RecordSpec `yaml:"record"`
}

// InputDef is the digit collection policy of a node.
type InputDef struct {
	Exactly int `yaml:"exactly"`
	Min     int `yaml:"min"`
	Max     int `yaml:"max"`

	CancelDigit     string  `yaml:"cancel_digit"`
	EndOfInputDigit *string `yaml:"end_of_input_digit"`
	CancelRetries   bool    `yaml:"cancel_retries"`

	TimeBetweenDigits time.Duration `yaml:"time_between_digits"`
	TotalTime         time.Duration `yaml:"total_time"`
	MaxAttempts       int           `yaml:"max_attempts"`
}

// ValidatorDef is either an expression or a registered check.
type ValidatorDef struct {
	Name        string   `yaml:"name"`
	Expr        string   `yaml:"expr"`
	Check       string   `yaml:"check"`
	ErrorSounds []string `yaml:"error_sounds"`
}

// RuleDef is one transition rule. Exactly one of Jump, JumpExpr,
// JumpAfterEval, Execute and Hangup must be set.
type RuleDef struct {
	Node  string  `yaml:"node"`
	On    string  `yaml:"on"`
	Input *string `yaml:"input"`

	Jump          string `yaml:"jump"`
	JumpExpr      string `yaml:"jump_expr"`
	JumpAfterEval string `yaml:"jump_after_eval"`
	Execute       string `yaml:"execute"`
	Hangup        string `yaml:"hangup"`
}

// Actions returns the number of actions set on the rule.
func (r RuleDef) Actions() int {
	count := 0
	for _, v := range []string{r.Jump, r.JumpExpr, r.JumpAfterEval, r.Execute, r.Hangup} {
		if v != "" {
			count++
		}
	}
	return count
}

// Parse decodes a flow document. Unknown fields are rejected.
func Parse(r io.Reader) (*Definition, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidFlow)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidFlow, err)
	}
	if def.Entry == "" {
		return nil, fmt.Errorf("%w: missing entry node", ErrInvalidFlow)
	}
	return &def, nil
}

// Load reads and parses a flow file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow %s: %w", path, err)
	}
	return Parse(bytes.NewReader(data))
}

// Node returns the declaration of a node.
func (d *Definition) Node(name string) (NodeDef, bool) {
	for _, n := range d.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return NodeDef{}, false
}

// Targets returns the fixed jump targets of a node's rules, in rule order.
func (d *Definition) Targets(name string) []string {
	var targets []string
	for _, r := range d.Rules {
		if r.Node == name && r.Jump != "" {
			targets = append(targets, r.Jump)
		}
	}
	return targets
}
