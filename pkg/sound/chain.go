// Package sound plays an ordered queue of media references as one interruptible unit.
package sound

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/aretw0/switchboard/pkg/call"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/event"
	"github.com/google/uuid"
)

// DefaultInterruptDigits is the set of digits that interrupt a chain unless configured otherwise.
const DefaultInterruptDigits = "0123456789*#"

// Chain queues media URIs for one target and plays them back to back.
type Chain struct {
	session *call.Session
	target  domain.Target
	sounds  []string

	interruptible   bool
	interruptDigits string
	digitAsInput    bool

	newID  func() string
	digits <-chan event.Event
	logger *slog.Logger

	mu     sync.Mutex
	active map[string]struct{}
}

// Option configures a Chain.
type Option func(*Chain)

// WithInterruptDigits sets the digits that interrupt playback.
func WithInterruptDigits(digits string) Option {
	return func(c *Chain) {
		c.interruptDigits = digits
	}
}

// WithDigitAsInput makes Play return the interrupting digit.
func WithDigitAsInput(asInput bool) Option {
	return func(c *Chain) {
		c.digitAsInput = asInput
	}
}

// Uninterruptible disables digit interruption.
func Uninterruptible() Option {
	return func(c *Chain) {
		c.interruptible = false
	}
}

// WithIDGenerator replaces the playback ID generator.
func WithIDGenerator(fn func() string) Option {
	return func(c *Chain) {
		c.newID = fn
	}
}

// WithDigitSource makes the chain read interrupt digits from an existing
// stream instead of subscribing on its own. A node passes the digit stream of
// its attempt so that no digit is lost between playback and collection.
// Digits read while the chain is uninterruptible are discarded.
func WithDigitSource(digits <-chan event.Event) Option {
	return func(c *Chain) {
		c.digits = digits
	}
}

// New creates an empty chain playing on target within the session.
func New(session *call.Session, target domain.Target, opts ...Option) *Chain {
	c := &Chain{
		session:         session,
		target:          target,
		interruptible:   true,
		interruptDigits: DefaultInterruptDigits,
		newID:           uuid.NewString,
		logger:          session.Logger(),
		active:          make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add appends a media URI to the queue.
func (c *Chain) Add(uri string) *Chain {
	c.sounds = append(c.sounds, uri)
	return c
}

// Len returns the number of queued sounds.
func (c *Chain) Len() int {
	return len(c.sounds)
}

// Sounds returns a copy of the queue.
func (c *Chain) Sounds() []string {
	return append([]string(nil), c.sounds...)
}

// Active returns the playback IDs still tracked by the chain.
func (c *Chain) Active() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.active))
	for id := range c.active {
		ids = append(ids, id)
	}
	return ids
}

// Play dispatches every queued sound and waits until the last one finishes or
// an interrupt digit arrives. The returned digit is non-empty only when the
// chain was interrupted and the interrupting digit counts as input.
func (c *Chain) Play(ctx context.Context) (string, error) {
	if len(c.sounds) == 0 {
		return "", nil
	}

	ids := make([]string, len(c.sounds))
	keys := make([]event.Key, 0, len(c.sounds)+1)
	for i := range c.sounds {
		ids[i] = c.newID()
		keys = append(keys, event.Key{Kind: event.PlaybackFinished, ID: ids[i]})
	}

	digits := c.digits
	if digits == nil && c.interruptible {
		dsub := c.session.Subscribe(event.Key{Kind: event.DigitReceived, ID: c.session.ChannelID()})
		defer dsub.Close()
		digits = dsub.C()
	}
	// Every playback finishes exactly once, so one slot per sound is lossless.
	sub := c.session.SubscribeSized(len(keys), keys...)
	defer sub.Close()

	client := c.session.Client()
	for i, uri := range c.sounds {
		c.track(ids[i])
		if err := client.Play(ctx, c.target, ids[i], uri); err != nil {
			c.untrack(ids[i])
			c.Stop(ctx)
			return "", fmt.Errorf("play %s on %s: %w", uri, c.target, err)
		}
	}
	last := ids[len(ids)-1]
	c.logger.Debug("sound chain playing", "target", c.target.String(), "sounds", len(ids))

	for {
		select {
		case <-ctx.Done():
			c.Stop(ctx)
			return "", ctx.Err()

		case e := <-sub.C():
			c.untrack(e.ID)
			if e.ID == last {
				c.Stop(ctx)
				return "", nil
			}

		case e := <-digits:
			if !c.interruptible || !c.isInterruptDigit(e.Digit) {
				continue
			}
			c.logger.Debug("sound chain interrupted", "target", c.target.String(), "digit", e.Digit)
			c.Stop(ctx)
			if c.digitAsInput {
				return e.Digit, nil
			}
			return "", nil
		}
	}
}

// Stop best-effort stops every tracked playback and clears the set.
// It never fails and may be called any number of times.
func (c *Chain) Stop(ctx context.Context) {
	c.mu.Lock()
	ids := make([]string, 0, len(c.active))
	for id := range c.active {
		ids = append(ids, id)
	}
	c.active = make(map[string]struct{})
	c.mu.Unlock()

	if len(ids) == 0 {
		return
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), call.CleanupTimeout)
	defer cancel()
	client := c.session.Client()
	for _, id := range ids {
		if err := domain.IgnoreNotFound(client.StopPlayback(stopCtx, id)); err != nil {
			c.logger.Debug("stop playback failed", "playback_id", id, "err", err)
		}
	}
}

func (c *Chain) isInterruptDigit(d string) bool {
	return len(d) == 1 && strings.Contains(c.interruptDigits, d)
}

func (c *Chain) track(id string) {
	c.mu.Lock()
	c.active[id] = struct{}{}
	c.mu.Unlock()
}

func (c *Chain) untrack(id string) {
	c.mu.Lock()
	delete(c.active, id)
	c.mu.Unlock()
}
