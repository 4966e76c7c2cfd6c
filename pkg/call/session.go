// Package call holds the per-call context the dialog engine runs against.
package call

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/switchboard/internal/logging"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/event"
	"github.com/aretw0/switchboard/pkg/ports"
	"github.com/google/uuid"
)

// CleanupTimeout bounds best-effort teardown commands issued after the run context is gone.
const CleanupTimeout = 2 * time.Second

// Session is the context of one call: its primary channel, its bridge, the
// telephony command service and the event bus scoped to this call.
// Nodes and sound chains hold a reference to it; they never own the channel
// or the bridge.
type Session struct {
	id        string
	channelID string
	bridgeID  string

	client ports.Telephony
	bus    *event.Bus
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Session.
type Option func(*Session)

// WithID overrides the generated session ID.
func WithID(id string) Option {
	return func(s *Session) {
		s.id = id
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithBus injects an event bus, e.g. one shared with a transport adapter.
func WithBus(bus *event.Bus) Option {
	return func(s *Session) {
		s.bus = bus
	}
}

// New creates a session for a call answered on channelID and joined to bridgeID.
func New(client ports.Telephony, channelID, bridgeID string, opts ...Option) *Session {
	s := &Session{
		id:        uuid.NewString(),
		channelID: channelID,
		bridgeID:  bridgeID,
		client:    client,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.bus == nil {
		s.bus = event.NewBus(event.WithLogger(s.logger))
	}
	s.logger = s.logger.With("session_id", s.id, "channel_id", channelID)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

func (s *Session) ID() string               { return s.id }
func (s *Session) ChannelID() string        { return s.channelID }
func (s *Session) BridgeID() string         { return s.bridgeID }
func (s *Session) Client() ports.Telephony  { return s.client }
func (s *Session) Bus() *event.Bus          { return s.bus }
func (s *Session) Logger() *slog.Logger     { return s.logger }
func (s *Session) Channel() domain.Target   { return domain.Channel(s.channelID) }
func (s *Session) Bridge() domain.Target    { return domain.Bridge(s.bridgeID) }
func (s *Session) Context() context.Context { return s.ctx }

// Subscribe registers interest in events of this call.
func (s *Session) Subscribe(keys ...event.Key) *event.Subscription {
	return s.bus.Subscribe(keys...)
}

// SubscribeSized registers interest with room for at least capacity buffered events.
func (s *Session) SubscribeSized(capacity int, keys ...event.Key) *event.Subscription {
	return s.bus.SubscribeSized(capacity, keys...)
}

// Dispatch feeds an event coming from the telephony service into the call.
// The end of the primary channel cancels the session context.
func (s *Session) Dispatch(e event.Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	s.bus.Publish(e)
	if e.Kind == event.SessionEnd && e.ID == s.channelID {
		s.logger.Debug("primary channel ended", "cause", e.Cause)
		s.cancel()
	}
}

// Ended reports whether the primary channel has gone away.
func (s *Session) Ended() bool {
	return s.ctx.Err() != nil
}

// Close releases the session context.
func (s *Session) Close() {
	s.cancel()
}

// Hangup deletes a channel, treating an already gone channel as success.
func (s *Session) Hangup(ctx context.Context, channelID string) error {
	if channelID == "" {
		return nil
	}
	return domain.IgnoreNotFound(s.client.Hangup(ctx, channelID))
}

// Cleanup runs a best-effort teardown command on a fresh context, so it still
// goes out when the run context was cancelled. Not-found is ignored; any other
// failure is logged and swallowed.
func (s *Session) Cleanup(what string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), CleanupTimeout)
	defer cancel()
	if err := domain.IgnoreNotFound(fn(ctx)); err != nil {
		s.logger.Warn("cleanup failed", "op", what, "err", err)
	}
}
