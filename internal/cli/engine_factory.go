package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/switchboard"
	"github.com/aretw0/switchboard/internal/config"
	"github.com/aretw0/switchboard/pkg/adapters/memory"
	"github.com/aretw0/switchboard/pkg/adapters/redis"
	"github.com/aretw0/switchboard/pkg/flow"
	"github.com/aretw0/switchboard/pkg/node"
	"github.com/aretw0/switchboard/pkg/ports"
	"github.com/aretw0/switchboard/pkg/registry"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewTrailStore opens the trail backend selected in the settings.
// The redis backend is pinged so that a wrong address fails early.
func NewTrailStore(ctx context.Context, s *config.Settings) (ports.TrailStore, io.Closer, error) {
	switch s.TrailBackend() {
	case config.TrailRedis:
		store := redis.New(s.RedisAddr(), s.RedisPassword(), s.RedisDB(),
			redis.WithPrefix(s.RedisPrefix()),
			redis.WithTTL(s.TrailTTL()),
		)
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("trail backend unavailable: %w", err)
		}
		return store, store, nil
	default:
		return memory.NewStore(), nopCloser{}, nil
	}
}

// StubRegistry registers a placeholder for every callback the flow names, so
// that flows written for an embedding application can still be simulated.
// Actions only log, routers stop dispatch and checks accept any input.
func StubRegistry(def *flow.Definition, logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry()
	for _, r := range def.Rules {
		switch {
		case r.Execute != "":
			name := r.Execute
			reg.RegisterAction(name, func(ctx context.Context, n *node.Node) {
				logger.Info("execute", "callback", name, "node", n.Name(), "input", n.Input())
			})
		case r.JumpAfterEval != "":
			name := r.JumpAfterEval
			reg.RegisterRouter(name, func(ctx context.Context, n *node.Node) string {
				logger.Info("jump_after_eval", "callback", name, "node", n.Name())
				return ""
			})
		}
	}
	for _, n := range def.Nodes {
		for _, v := range n.Validators {
			if v.Check != "" {
				reg.RegisterCheck(v.Check, func(*node.Node) bool { return true })
			}
		}
	}
	return reg
}

// CreateEngine loads a flow with CLI conventions: stubbed callbacks and the
// logger of the command.
func CreateEngine(path string, logger *slog.Logger, opts ...switchboard.Option) (*switchboard.Engine, error) {
	def, err := flow.Load(path)
	if err != nil {
		return nil, err
	}
	base := []switchboard.Option{
		switchboard.WithLogger(logger),
		switchboard.WithRegistry(StubRegistry(def, logger)),
	}
	engine, err := switchboard.NewFromDefinition(def, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}
