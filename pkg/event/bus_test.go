package event

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case e := <-sub.C():
		return e
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event")
		return Event{}
	}
}

func TestBus_SubscribeUnsubscribe(t *testing.T) {
	bus := NewBus()
	key := Key{Kind: DigitReceived, ID: "chan-1"}

	sub1 := bus.Subscribe(key)
	sub2 := bus.Subscribe(key)
	assert.Equal(t, 2, bus.SubscriberCount(key))

	sub1.Close()
	assert.Equal(t, 1, bus.SubscriberCount(key))

	sub1.Close() // idempotent
	sub2.Close()
	assert.Equal(t, 0, bus.SubscriberCount(key))
}

func TestBus_RoutesByTypedKey(t *testing.T) {
	bus := NewBus()
	digits := bus.Subscribe(Key{Kind: DigitReceived, ID: "chan-1"})
	defer digits.Close()
	playbacks := bus.Subscribe(Key{Kind: PlaybackFinished, ID: "chan-1"})
	defer playbacks.Close()

	bus.Publish(Digit("chan-1", "5"))
	bus.Publish(Digit("chan-2", "6"))

	e := receive(t, digits)
	assert.Equal(t, "5", e.Digit)

	select {
	case e := <-digits.C():
		t.Fatalf("unexpected event for other channel: %+v", e)
	case e := <-playbacks.C():
		t.Fatalf("digit leaked into playback stream: %+v", e)
	default:
	}
}

func TestBus_MultiKeySubscription(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(
		Key{Kind: PlaybackFinished, ID: "pb-1"},
		Key{Kind: SessionEnd, ID: "chan-1"},
	)
	defer sub.Close()

	bus.Publish(Playback(PlaybackFinished, "pb-1"))
	bus.Publish(Session(SessionEnd, "chan-1"))

	assert.Equal(t, PlaybackFinished, receive(t, sub).Kind)
	assert.Equal(t, SessionEnd, receive(t, sub).Kind)
}

func TestBus_DropsWhenFull(t *testing.T) {
	bus := NewBus(WithBufferSize(1))
	key := Key{Kind: DigitReceived, ID: "chan-1"}
	sub := bus.Subscribe(key)
	defer sub.Close()

	bus.Publish(Digit("chan-1", "1"))
	bus.Publish(Digit("chan-1", "2")) // dropped, must not block

	e := receive(t, sub)
	require.Equal(t, "1", e.Digit)
	select {
	case e := <-sub.C():
		t.Fatalf("expected drop, got %+v", e)
	default:
	}
}

func TestBus_SubscribeSized(t *testing.T) {
	bus := NewBus(WithBufferSize(2))
	keys := make([]Key, 0, 100)
	for i := 0; i < 100; i++ {
		keys = append(keys, Key{Kind: PlaybackFinished, ID: fmt.Sprintf("pb-%d", i)})
	}
	sub := bus.SubscribeSized(len(keys), keys...)
	defer sub.Close()

	for _, k := range keys {
		bus.Publish(Playback(PlaybackFinished, k.ID))
	}
	require.Len(t, sub.C(), len(keys))
	assert.Equal(t, "pb-0", receive(t, sub).ID)

	small := bus.SubscribeSized(0, Key{Kind: DigitReceived, ID: "chan-1"})
	defer small.Close()
	assert.Equal(t, 2, cap(small.C()))
}

func TestBus_PublishAfterCloseIsIgnored(t *testing.T) {
	bus := NewBus()
	key := Key{Kind: DigitReceived, ID: "chan-1"}
	sub := bus.Subscribe(key)
	sub.Close()

	assert.NotPanics(t, func() { bus.Publish(Digit("chan-1", "1")) })
	assert.Len(t, sub.C(), 0)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "digit_received", DigitReceived.String())
	assert.Equal(t, "node_finished", NodeFinished.String())
	assert.Equal(t, "kind(99)", Kind(99).String())
	assert.Equal(t, "session_end/chan-1", Key{Kind: SessionEnd, ID: "chan-1"}.String())
}
