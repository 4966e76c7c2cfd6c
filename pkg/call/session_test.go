package call_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/switchboard/pkg/adapters/memory"
	"github.com/aretw0/switchboard/pkg/call"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Defaults(t *testing.T) {
	tel := memory.NewTelephony()
	s := call.New(tel, "chan-1", "bridge-1")

	assert.NotEmpty(t, s.ID())
	assert.Equal(t, domain.Channel("chan-1"), s.Channel())
	assert.Equal(t, domain.Bridge("bridge-1"), s.Bridge())
	assert.Same(t, tel, s.Client())
	assert.False(t, s.Ended())

	custom := call.New(tel, "chan-2", "bridge-2", call.WithID("call-42"))
	assert.Equal(t, "call-42", custom.ID())
}

func TestSession_PrimaryHangupCancelsContext(t *testing.T) {
	tel := memory.NewTelephony()
	s := tel.Answer("chan-1", "bridge-1")

	// Another channel ending leaves the call alive.
	s.Dispatch(event.Session(event.SessionEnd, "chan-2"))
	assert.False(t, s.Ended())

	tel.EndChannel("chan-1")
	assert.True(t, s.Ended())
	assert.ErrorIs(t, s.Context().Err(), context.Canceled)
}

func TestSession_DispatchStampsTime(t *testing.T) {
	s := call.New(memory.NewTelephony(), "chan-1", "bridge-1")
	sub := s.Subscribe(event.Key{Kind: event.DigitReceived, ID: "chan-1"})
	defer sub.Close()

	s.Dispatch(event.Digit("chan-1", "5"))

	select {
	case e := <-sub.C():
		assert.Equal(t, "5", e.Digit)
		assert.False(t, e.At.IsZero())
	case <-time.After(time.Second):
		t.Fatal("digit not delivered")
	}
}

func TestSession_HangupIgnoresGoneChannel(t *testing.T) {
	tel := memory.NewTelephony()
	s := tel.Answer("chan-1", "bridge-1")

	require.NoError(t, s.Hangup(context.Background(), "chan-1"))
	assert.NoError(t, s.Hangup(context.Background(), "chan-1"), "second hangup finds nothing")
	assert.NoError(t, s.Hangup(context.Background(), ""))
}

func TestSession_CleanupRunsAfterCancel(t *testing.T) {
	s := call.New(memory.NewTelephony(), "chan-1", "bridge-1")
	s.Close()

	var deadline bool
	s.Cleanup("probe", func(ctx context.Context) error {
		_, deadline = ctx.Deadline()
		return ctx.Err()
	})
	assert.True(t, deadline)

	// Failures are swallowed.
	s.Cleanup("failing", func(ctx context.Context) error {
		return fmt.Errorf("stop: %w", domain.ErrConflict)
	})
}
