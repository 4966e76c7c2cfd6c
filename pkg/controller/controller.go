package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/switchboard/pkg/call"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/node"
	"github.com/aretw0/switchboard/pkg/ports"
)

// DefaultMaxHops bounds the jumps followed by one JumpTo.
const DefaultMaxHops = 1000

// Observer is notified every time a node run ends, before rules are evaluated.
type Observer interface {
	NodeFinished(ctx context.Context, sessionID string, n *node.Node, d time.Duration)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, sessionID string, n *node.Node, d time.Duration)

func (f ObserverFunc) NodeFinished(ctx context.Context, sessionID string, n *node.Node, d time.Duration) {
	f(ctx, sessionID, n, d)
}

// Controller owns the nodes and rules of one call.
type Controller struct {
	session *call.Session
	logger  *slog.Logger

	mu    sync.RWMutex
	nodes map[string]*node.Node
	rules map[string][]*Rule

	observers []Observer
	trail     ports.TrailStore
	maxHops   int
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithObserver adds an observer of finished nodes.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observers = append(c.observers, o)
	}
}

// WithTrail records every finished node in the store.
func WithTrail(store ports.TrailStore) Option {
	return func(c *Controller) {
		c.trail = store
	}
}

// WithMaxHops bounds the number of nodes one JumpTo may run.
func WithMaxHops(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxHops = n
		}
	}
}

// New creates a controller for a call session.
func New(session *call.Session, opts ...Option) *Controller {
	c := &Controller{
		session: session,
		logger:  session.Logger(),
		nodes:   make(map[string]*node.Node),
		rules:   make(map[string][]*Rule),
		maxHops: DefaultMaxHops,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the call the controller drives.
func (c *Controller) Session() *call.Session {
	return c.session
}

// Register creates a node under name, replacing any node registered before.
func (c *Controller) Register(name string, opts ...node.Option) *node.Node {
	opts = append([]node.Option{node.WithLogger(c.logger)}, opts...)
	n := node.New(name, c.session, opts...)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.nodes[name]; exists {
		c.logger.Debug("node replaced", "node", name)
	}
	c.nodes[name] = n
	return n
}

// RegisterResult appends a new rule for the outcomes of the named node.
func (c *Controller) RegisterResult(name string) *Rule {
	r := &Rule{node: name}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules[name] = append(c.rules[name], r)
	return r
}

// Node returns a registered node.
func (c *Controller) Node(name string) (*node.Node, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.nodes[name]
	return n, ok
}

// Nodes returns the registered node names in lexical order.
func (c *Controller) Nodes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.nodes))
	for name := range c.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Rules returns the rules of a node in registration order.
func (c *Controller) Rules(name string) []*Rule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Rule(nil), c.rules[name]...)
}

// JumpTo runs the named node and keeps following the jumps its rules produce.
// It returns domain.ErrNodeNotFound for an unregistered name, the first node
// error, or nil once dispatch stops.
func (c *Controller) JumpTo(ctx context.Context, name string) error {
	for hops := 0; ; hops++ {
		if hops >= c.maxHops {
			return fmt.Errorf("%w: stopped after %d nodes", domain.ErrTooManyHops, hops)
		}

		n, ok := c.Node(name)
		if !ok {
			return fmt.Errorf("jump to %q: %w", name, domain.ErrNodeNotFound)
		}

		c.logger.Debug("jump", "node", name)
		start := time.Now()
		err := n.Run(ctx)
		elapsed := time.Since(start)
		c.finished(ctx, n, start, elapsed)
		if err != nil {
			return fmt.Errorf("node %s: %w", name, err)
		}

		next, err := c.dispatch(ctx, n)
		if err != nil || next == "" {
			return err
		}
		name = next
	}
}

func (c *Controller) finished(ctx context.Context, n *node.Node, start time.Time, elapsed time.Duration) {
	if c.trail != nil {
		visit := domain.Visit{
			Node:     n.Name(),
			State:    n.State().String(),
			Input:    n.Input(),
			Attempts: n.AttemptsUsed(),
			At:       start.UTC(),
			Duration: elapsed,
		}
		appendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), call.CleanupTimeout)
		if err := c.trail.Append(appendCtx, c.session.ID(), visit); err != nil {
			c.logger.Warn("failed to record visit", "node", n.Name(), "err", err)
		}
		cancel()
	}
	for _, o := range c.observers {
		o.NodeFinished(ctx, c.session.ID(), n, elapsed)
	}
}

// dispatch evaluates the rules of a finished node and returns the next node name.
func (c *Controller) dispatch(ctx context.Context, n *node.Node) (string, error) {
	for _, r := range c.Rules(n.Name()) {
		if !r.Matches(n) {
			continue
		}
		c.logger.Debug("rule matched", "rule", r.String())

		switch r.action {
		case ActionExecute:
			r.exec(ctx, n)

		case ActionJump:
			return r.target, nil

		case ActionJumpEval:
			next := r.eval(ctx, n)
			if next == "" {
				c.logger.Debug("evaluated jump has no target", "node", n.Name())
			}
			return next, nil

		case ActionHangup:
			return "", c.hangup(ctx, n, r.all)
		}
	}
	c.logger.Debug("dispatch stopped", "node", n.Name(), "state", n.State().String())
	return "", nil
}

func (c *Controller) hangup(ctx context.Context, n *node.Node, all bool) error {
	if dialed := n.DialedChannel(); all && dialed != "" {
		if err := c.session.Hangup(ctx, dialed); err != nil {
			c.logger.Warn("failed to hang up dialed leg", "dialed_channel", dialed, "err", err)
		}
	}
	c.logger.Info("hanging up", "node", n.Name())
	if err := c.session.Hangup(ctx, c.session.ChannelID()); err != nil {
		return fmt.Errorf("hang up after %s: %w", n.Name(), err)
	}
	return nil
}
