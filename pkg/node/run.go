package node

import (
	"context"
	"time"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/event"
	"github.com/aretw0/switchboard/pkg/sound"
)

// step is what an attempt does next.
type step int

const (
	stepPrompts step = iota
	stepCollect
	stepDone
)

// Run executes the node once: pre-prompts, prompts, digit collection with
// retries, then dial and record. A terminal outcome is not an error; read it
// from State. Run fails on remote errors of non-teardown commands, on context
// cancellation (including the caller hanging up) and on internal faults.
// The after-run hook and the NodeFinished event are emitted in every case.
func (n *Node) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(n.session.Context(), cancel)
	defer stop()

	n.reset()
	n.logger.Debug("node started")
	if n.beforeRun != nil {
		n.beforeRun(ctx, n)
	}
	defer func() { n.finished(ctx, err) }()

	// One digit stream for the whole attempt, shared with the prompt chains,
	// so that digits typed between playback and collection are kept.
	digits := n.session.Subscribe(event.Key{Kind: event.DigitReceived, ID: n.session.ChannelID()})
	defer digits.Close()

	next, err := n.playPrePrompts(ctx, digits.C())
	for err == nil && next != stepDone {
		switch next {
		case stepPrompts:
			next, err = n.playPrompts(ctx, digits.C())
		case stepCollect:
			if !n.expectsInput() {
				n.setState(domain.StateComplete)
				next = stepDone
				continue
			}
			next, err = n.collect(ctx, digits.C())
		}
	}
	if err != nil {
		return err
	}

	if err := n.doDial(ctx, digits.C()); err != nil {
		return err
	}
	return n.doRecord(ctx)
}

func (n *Node) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.input = ""
	n.state = domain.StateNotRun
	n.attemptsUsed = 0
	n.dialedChannel = ""
}

func (n *Node) finished(ctx context.Context, err error) {
	if n.afterRun != nil {
		n.afterRun(ctx, n)
	}
	n.mu.Lock()
	if n.state == domain.StateNotRun {
		n.state = domain.StateComplete
	}
	state := n.state
	input := n.input
	attempts := n.attemptsUsed
	n.mu.Unlock()

	if err != nil {
		n.logger.Warn("node aborted", "state", state.String(), "err", err)
	} else {
		n.logger.Info("node finished", "state", state.String(), "input", input, "attempts", attempts)
	}
	n.session.Bus().Publish(event.Event{
		Kind:  event.NodeFinished,
		ID:    n.session.ID(),
		Node:  n.name,
		State: state,
		At:    time.Now(),
	})
}

func (n *Node) chain(uris []string, interruptible, asInput bool, digits <-chan event.Event) *sound.Chain {
	opts := []sound.Option{
		sound.WithInterruptDigits(n.interruptDigits),
		sound.WithDigitAsInput(asInput),
		sound.WithDigitSource(digits),
	}
	if !interruptible {
		opts = append(opts, sound.Uninterruptible())
	}
	c := sound.New(n.session, n.session.Bridge(), opts...)
	for _, uri := range uris {
		c.Add(uri)
	}
	return c
}

// playPrePrompts plays the pre-prompt chain. A trailing digit is processed
// before the prompts play.
func (n *Node) playPrePrompts(ctx context.Context, digits <-chan event.Event) (step, error) {
	c := n.chain(n.prePrompts, n.prePromptsInterruptible, n.prePromptDigitAsInput, digits)
	d, err := c.Play(ctx)
	if err != nil || d == "" {
		return stepPrompts, err
	}
	next, err := n.processDigit(ctx, d)
	if next == stepDone {
		return stepDone, err
	}
	return stepPrompts, err
}

func (n *Node) playPrompts(ctx context.Context, digits <-chan event.Event) (step, error) {
	c := n.chain(n.prompts, n.promptsInterruptible, n.promptDigitAsInput, digits)
	d, err := c.Play(ctx)
	if err != nil || d == "" {
		return stepCollect, err
	}
	return n.processDigit(ctx, d)
}

// collect waits for digits until the attempt ends or a timer expires.
func (n *Node) collect(ctx context.Context, digits <-chan event.Event) (step, error) {
	between := newTimer(n.timeBetweenDigits)
	defer between.stop()
	total := newTimer(n.totalTimeForInput)
	defer total.stop()

	for {
		select {
		case <-ctx.Done():
			return stepDone, ctx.Err()

		case e := <-digits:
			between.reset()
			next, err := n.processDigit(ctx, e.Digit)
			if err != nil || next != stepCollect {
				return next, err
			}

		case <-between.c():
			return n.expired("time_between_digits"), nil

		case <-total.c():
			return n.expired("total_time_for_input"), nil
		}
	}
}

// expired consumes an attempt after a timer fired. When attempts are
// exhausted the node ends in TIMEOUT, otherwise the prompts are replayed.
func (n *Node) expired(timer string) step {
	n.mu.Lock()
	n.attemptsUsed++
	attempts := n.attemptsUsed
	n.input = ""
	exhausted := attempts >= n.maxAttempts
	if exhausted {
		n.state = domain.StateTimeout
	}
	n.mu.Unlock()

	n.logger.Debug("input timer expired", "timer", timer, "attempts", attempts)
	if exhausted {
		return stepDone
	}
	return stepPrompts
}

// processDigit feeds one digit to the input state machine.
func (n *Node) processDigit(ctx context.Context, d string) (step, error) {
	if d == "" {
		return stepDone, domain.ErrEmptyDigit
	}
	if !n.expectsInput() {
		n.logger.Debug("digit ignored, no input expected", "digit", d)
		return stepCollect, nil
	}
	n.logger.Debug("digit received", "digit", d)

	if n.cancelDigit != "" && d == n.cancelDigit {
		n.mu.Lock()
		if n.cancelRetries && n.input != "" {
			n.input = ""
			n.mu.Unlock()
			n.logger.Debug("input cleared by cancel digit")
			return stepCollect, nil
		}
		n.state = domain.StateCancel
		n.mu.Unlock()
		return stepDone, nil
	}

	if n.endOfInputDigit != "" && d == n.endOfInputDigit {
		return n.complete(ctx), nil
	}

	n.mu.Lock()
	n.input += d
	full := n.maxInput > 0 && len(n.input) >= n.maxInput
	n.mu.Unlock()
	if full {
		return n.complete(ctx), nil
	}
	return stepCollect, nil
}

// complete submits the input for validation and applies the retry policy.
func (n *Node) complete(ctx context.Context) step {
	n.setState(domain.StateComplete)
	if n.Validate(ctx) {
		if n.onValidInput != nil {
			n.onValidInput(ctx, n)
		}
		return stepDone
	}

	if n.onInputFailed != nil {
		n.onInputFailed(ctx, n)
	}
	if n.afterFailedValidation != nil {
		n.afterFailedValidation(ctx, n)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.attemptsUsed++
	n.input = ""
	if n.attemptsUsed >= n.maxAttempts {
		n.state = domain.StateMaxInputsReached
		return stepDone
	}
	n.state = domain.StateNotRun
	return stepPrompts
}

// Validate runs the minimum length check and then every validator in order,
// stopping at the first rejection. The error sounds of a rejecting validator
// are played on the bridge before Validate returns.
func (n *Node) Validate(ctx context.Context) bool {
	if input := n.Input(); n.expectsInput() && len(input) < n.minInput {
		n.logger.Debug("validation failed", "validator", "min_length", "input", input)
		return false
	}

	for _, v := range n.validators {
		if v.Check(n) {
			continue
		}
		n.logger.Info("validation failed", "validator", v.Name, "input", n.Input())
		if len(v.ErrorSounds) > 0 {
			c := sound.New(n.session, n.session.Bridge(), sound.Uninterruptible())
			for _, uri := range v.ErrorSounds {
				c.Add(uri)
			}
			if _, err := c.Play(ctx); err != nil {
				n.logger.Warn("error sound failed", "validator", v.Name, "err", err)
			}
		}
		return false
	}
	return true
}

func (n *Node) setState(s domain.State) {
	n.mu.Lock()
	n.state = s
	n.mu.Unlock()
}

// timer wraps an optional time.Timer; a disabled timer never fires.
type timer struct {
	d time.Duration
	t *time.Timer
}

func newTimer(d time.Duration) *timer {
	t := &timer{d: d}
	if d > NoTimeout {
		t.t = time.NewTimer(d)
	}
	return t
}

func (t *timer) c() <-chan time.Time {
	if t.t == nil {
		return nil
	}
	return t.t.C
}

func (t *timer) reset() {
	if t.t != nil {
		t.t.Reset(t.d)
	}
}

func (t *timer) stop() {
	if t.t != nil {
		t.t.Stop()
	}
}
