package switchboard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/switchboard/internal/logging"
	"github.com/aretw0/switchboard/internal/validator"
	"github.com/aretw0/switchboard/pkg/call"
	"github.com/aretw0/switchboard/pkg/controller"
	"github.com/aretw0/switchboard/pkg/flow"
	"github.com/aretw0/switchboard/pkg/ports"
	"github.com/aretw0/switchboard/pkg/registry"
)

// Version is overridden at build time with -ldflags "-X github.com/aretw0/switchboard.Version=...".
var Version = "0.1.0-dev"

// Engine is the high-level entry point for the Switchboard library.
// It holds a validated flow and builds a fresh controller for every call.
type Engine struct {
	def       *flow.Definition
	registry  *registry.Registry
	trail     ports.TrailStore
	observers []controller.Observer
	maxHops   int
	logger    *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithRegistry provides the named callbacks the flow refers to.
func WithRegistry(reg *registry.Registry) Option {
	return func(e *Engine) {
		e.registry = reg
	}
}

// WithTrail records every finished node of every call in store.
func WithTrail(store ports.TrailStore) Option {
	return func(e *Engine) {
		e.trail = store
	}
}

// WithObserver notifies o of every finished node of every call.
func WithObserver(o controller.Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, o)
	}
}

// WithMaxHops overrides the per-call jump limit.
func WithMaxHops(n int) Option {
	return func(e *Engine) {
		e.maxHops = n
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New loads the flow file at path and validates it.
func New(path string, opts ...Option) (*Engine, error) {
	def, err := flow.Load(path)
	if err != nil {
		return nil, err
	}
	return NewFromDefinition(def, opts...)
}

// NewFromDefinition validates an already parsed flow.
func NewFromDefinition(def *flow.Definition, opts ...Option) (*Engine, error) {
	e := &Engine{
		def:      def,
		registry: registry.NewRegistry(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := validator.ValidateFlow(def, e.registry); err != nil {
		return nil, fmt.Errorf("%w: %v", flow.ErrInvalidFlow, err)
	}
	return e, nil
}

// Definition returns the flow served by the engine.
func (e *Engine) Definition() *flow.Definition {
	return e.def
}

// Controller builds the controller of one call. Extra options are applied
// after the engine-wide ones.
func (e *Engine) Controller(session *call.Session, opts ...controller.Option) (*controller.Controller, error) {
	base := []controller.Option{controller.WithLogger(e.logger)}
	if e.trail != nil {
		base = append(base, controller.WithTrail(e.trail))
	}
	if e.maxHops > 0 {
		base = append(base, controller.WithMaxHops(e.maxHops))
	}
	for _, o := range e.observers {
		base = append(base, controller.WithObserver(o))
	}
	return e.def.Build(session, e.registry, append(base, opts...)...)
}

// Handle runs the flow for one call from its entry node until dispatch stops.
func (e *Engine) Handle(ctx context.Context, session *call.Session, opts ...controller.Option) error {
	c, err := e.Controller(session, opts...)
	if err != nil {
		return err
	}
	e.logger.Info("call started", "session_id", session.ID(), "entry", e.def.Entry)
	err = c.JumpTo(ctx, e.def.Entry)
	e.logger.Info("call finished", "session_id", session.ID(), "err", err)
	return err
}
