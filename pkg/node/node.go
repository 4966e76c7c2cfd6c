// Package node implements one IVR dialog step: prompts, DTMF collection,
// validation with retries, and optional dial and record actions.
package node

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/switchboard/pkg/call"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/sound"
	"github.com/google/uuid"
)

// NoTimeout disables an input timer.
const NoTimeout time.Duration = 0

// Defaults applied by New.
const (
	DefaultEndOfInputDigit = "#"
	DefaultMaxAttempts     = 3
)

// Hook is a lifecycle callback invoked with the node being run.
type Hook func(ctx context.Context, n *Node)

// Validator is a named predicate over the collected input.
// ErrorSounds are played on the bridge when the predicate rejects.
type Validator struct {
	Name        string
	Check       func(n *Node) bool
	ErrorSounds []string
}

// Node is one dialog step. Configure it with the builder methods before Run;
// reconfiguring a running node is not supported.
type Node struct {
	name    string
	session *call.Session
	logger  *slog.Logger
	newID   func() string

	prePrompts              []string
	prompts                 []string
	prePromptsInterruptible bool
	promptsInterruptible    bool
	prePromptDigitAsInput   bool
	promptDigitAsInput      bool
	interruptDigits         string

	minInput          int
	maxInput          int
	cancelDigit       string
	endOfInputDigit   string
	cancelRetries     bool
	timeBetweenDigits time.Duration
	totalTimeForInput time.Duration
	maxAttempts       int

	validators []Validator
	dial       *domain.DialSpec
	record     *domain.RecordSpec

	beforeRun             Hook
	afterRun              Hook
	afterFailedValidation Hook
	onValidInput          Hook
	onInputFailed         Hook

	mu            sync.RWMutex
	input         string
	state         domain.State
	attemptsUsed  int
	dialedChannel string
}

// Option configures a Node at construction.
type Option func(*Node)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Node) {
		n.logger = logger
	}
}

// WithIDGenerator replaces the generator of dialed channel IDs and recording names.
func WithIDGenerator(fn func() string) Option {
	return func(n *Node) {
		n.newID = fn
	}
}

// New creates a node bound to a call session.
func New(name string, session *call.Session, opts ...Option) *Node {
	n := &Node{
		name:                    name,
		session:                 session,
		logger:                  session.Logger(),
		newID:                   uuid.NewString,
		prePromptsInterruptible: true,
		promptsInterruptible:    true,
		promptDigitAsInput:      true,
		interruptDigits:         sound.DefaultInterruptDigits,
		endOfInputDigit:         DefaultEndOfInputDigit,
		maxAttempts:             DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = n.logger.With("node", name)
	return n
}

// Prompt configuration.

// PrePrompts appends sounds played once, before the first prompts.
func (n *Node) PrePrompts(uris ...string) *Node {
	n.prePrompts = append(n.prePrompts, uris...)
	return n
}

// Prompts appends sounds replayed on every attempt.
func (n *Node) Prompts(uris ...string) *Node {
	n.prompts = append(n.prompts, uris...)
	return n
}

// UninterruptiblePrePrompts makes digits unable to cut the pre-prompts short.
func (n *Node) UninterruptiblePrePrompts() *Node {
	n.prePromptsInterruptible = false
	return n
}

// UninterruptiblePrompts makes digits unable to cut the prompts short.
func (n *Node) UninterruptiblePrompts() *Node {
	n.promptsInterruptible = false
	return n
}

// PrePromptDigitsAsInput sets whether a digit interrupting the pre-prompts is collected.
func (n *Node) PrePromptDigitsAsInput(asInput bool) *Node {
	n.prePromptDigitAsInput = asInput
	return n
}

// PromptDigitsAsInput sets whether a digit interrupting the prompts is collected.
func (n *Node) PromptDigitsAsInput(asInput bool) *Node {
	n.promptDigitAsInput = asInput
	return n
}

// InterruptDigits sets the digits that interrupt both prompt chains.
func (n *Node) InterruptDigits(digits string) *Node {
	n.interruptDigits = digits
	return n
}

// Input configuration.

// ExpectExactly requires input of exactly length digits.
func (n *Node) ExpectExactly(length int) *Node {
	return n.ExpectBetween(length, length)
}

// ExpectAtLeast requires min digits; input then ends only with the end-of-input digit.
func (n *Node) ExpectAtLeast(min int) *Node {
	return n.ExpectBetween(min, 0)
}

// ExpectAtMost accepts up to max digits.
func (n *Node) ExpectAtMost(max int) *Node {
	return n.ExpectBetween(0, max)
}

// ExpectBetween sets the input length bounds. A max of 0 means unbounded.
func (n *Node) ExpectBetween(min, max int) *Node {
	n.minInput = min
	n.maxInput = max
	return n
}

// NoInput makes the node complete as soon as its prompts are played.
func (n *Node) NoInput() *Node {
	return n.ExpectBetween(0, 0)
}

// CancelDigit sets the digit that ends the node in CANCEL. Empty disables it.
func (n *Node) CancelDigit(d string) *Node {
	n.cancelDigit = d
	return n
}

// EndOfInputDigit sets the digit that submits the input. Empty disables it.
func (n *Node) EndOfInputDigit(d string) *Node {
	n.endOfInputDigit = d
	return n
}

// CancelWithInputRetriesInput turns the cancel digit into a clear-and-retry
// key once at least one digit has been collected.
func (n *Node) CancelWithInputRetriesInput() *Node {
	n.cancelRetries = true
	return n
}

// TimeBetweenDigits sets the inactivity timeout, re-armed by every digit.
func (n *Node) TimeBetweenDigits(d time.Duration) *Node {
	n.timeBetweenDigits = d
	return n
}

// TotalTimeForInput bounds the whole collection of one attempt.
func (n *Node) TotalTimeForInput(d time.Duration) *Node {
	n.totalTimeForInput = d
	return n
}

// MaxAttempts sets how many failed attempts end the node. Non-positive values are ignored.
func (n *Node) MaxAttempts(attempts int) *Node {
	if attempts > 0 {
		n.maxAttempts = attempts
	}
	return n
}

// Validator appends a named check. Checks run in registration order.
func (n *Node) Validator(name string, check func(*Node) bool, errorSounds ...string) *Node {
	n.validators = append(n.validators, Validator{Name: name, Check: check, ErrorSounds: errorSounds})
	return n
}

// Actions.

// Dial originates and bridges an outbound leg once input is accepted.
func (n *Node) Dial(spec domain.DialSpec) *Node {
	n.dial = &spec
	return n
}

// Record records the bridge after input and dial.
func (n *Node) Record(spec domain.RecordSpec) *Node {
	n.record = &spec
	return n
}

// Hooks.

// BeforeRun sets the hook called when Run starts.
func (n *Node) BeforeRun(h Hook) *Node {
	n.beforeRun = h
	return n
}

// AfterRun sets the hook called when Run ends, whatever the outcome.
func (n *Node) AfterRun(h Hook) *Node {
	n.afterRun = h
	return n
}

// AfterFailedValidation sets the hook called after OnInputFailed for every rejected input.
func (n *Node) AfterFailedValidation(h Hook) *Node {
	n.afterFailedValidation = h
	return n
}

// OnValidInput sets the hook called when the input passes validation.
func (n *Node) OnValidInput(h Hook) *Node {
	n.onValidInput = h
	return n
}

// OnInputFailed sets the hook called when a validator rejects the input.
func (n *Node) OnInputFailed(h Hook) *Node {
	n.onInputFailed = h
	return n
}

// Accessors.

func (n *Node) Name() string              { return n.name }
func (n *Node) Session() *call.Session    { return n.session }
func (n *Node) MinInput() int             { return n.minInput }
func (n *Node) MaxInput() int             { return n.maxInput }
func (n *Node) PromptSounds() []string    { return append([]string(nil), n.prompts...) }
func (n *Node) PrePromptSounds() []string { return append([]string(nil), n.prePrompts...) }

// Validators returns the names of the configured validators in order.
func (n *Node) Validators() []string {
	names := make([]string, len(n.validators))
	for i, v := range n.validators {
		names[i] = v.Name
	}
	return names
}

// Input returns the digits collected in the current attempt.
func (n *Node) Input() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.input
}

// State returns the outcome of the last run.
func (n *Node) State() domain.State {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

// AttemptsUsed returns the number of failed attempts of the last run.
func (n *Node) AttemptsUsed() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.attemptsUsed
}

// DialedChannel returns the ID of the outbound leg, if the node dialed one.
func (n *Node) DialedChannel() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.dialedChannel
}

func (n *Node) expectsInput() bool {
	return n.minInput >= 1 || n.maxInput >= 1
}
