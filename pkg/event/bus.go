package event

import (
	"io"
	"log/slog"
	"sync"
)

// DefaultBufferSize is the number of events a subscription buffers before dropping.
const DefaultBufferSize = 64

// Bus fans events out to the subscriptions registered for their key.
// One Bus serves one call session; it is safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Key]map[*Subscription]struct{}
	buffer int
	logger *slog.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithBufferSize sets the channel capacity of new subscriptions.
func WithBufferSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// WithLogger configures the logger used to report dropped events.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// NewBus creates an empty bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		subs:   make(map[Key]map[*Subscription]struct{}),
		buffer: DefaultBufferSize,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscription receives the events of one or more keys on a single channel.
type Subscription struct {
	bus  *Bus
	keys []Key
	ch   chan Event
	once sync.Once
}

// Subscribe registers interest in the given keys.
// The subscription must be closed when no longer needed.
func (b *Bus) Subscribe(keys ...Key) *Subscription {
	return b.SubscribeSized(b.buffer, keys...)
}

// SubscribeSized is Subscribe with an explicit buffer capacity. A subscriber
// that expects a known number of events sizes its buffer to that number so
// none of them can be dropped before it starts reading.
func (b *Bus) SubscribeSized(capacity int, keys ...Key) *Subscription {
	if capacity < b.buffer {
		capacity = b.buffer
	}
	sub := &Subscription{
		bus:  b,
		keys: keys,
		ch:   make(chan Event, capacity),
	}

	b.mu.Lock()
	for _, k := range keys {
		set, ok := b.subs[k]
		if !ok {
			set = make(map[*Subscription]struct{})
			b.subs[k] = set
		}
		set[sub] = struct{}{}
	}
	b.mu.Unlock()
	return sub
}

// C returns the delivery channel. It is never closed, so that a late
// Publish cannot panic; stop reading after Close.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Close unregisters the subscription. Calling Close more than once is a no-op.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		for _, k := range s.keys {
			set := s.bus.subs[k]
			delete(set, s)
			if len(set) == 0 {
				delete(s.bus.subs, k)
			}
		}
	})
}

// Publish delivers the event to every subscription of its key.
// Delivery never blocks: if a subscriber's buffer is full the event is dropped for it.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[e.Key()] {
		select {
		case sub.ch <- e:
		default:
			b.logger.Warn("event dropped, subscriber buffer full", "event", e.Kind.String(), "id", e.ID)
		}
	}
}

// SubscriberCount returns the number of live subscriptions for a key.
func (b *Bus) SubscriberCount(k Key) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[k])
}
