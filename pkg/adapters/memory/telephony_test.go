package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/switchboard/pkg/adapters/memory"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []event.Event
}

func (r *recorder) sink(e event.Event) {
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []event.Kind {
	kinds := make([]event.Kind, len(r.events))
	for i, e := range r.events {
		kinds[i] = e.Kind
	}
	return kinds
}

func TestTelephony_PlayAutoFinish(t *testing.T) {
	tel := memory.NewTelephony()
	rec := &recorder{}
	tel.Attach(rec.sink)
	tel.AddChannel("chan-1")

	err := tel.Play(context.Background(), domain.Channel("chan-1"), "pb-1", "sound:hello")
	require.NoError(t, err)

	assert.Equal(t, []event.Kind{event.PlaybackStarted, event.PlaybackFinished}, rec.kinds())
	assert.Equal(t, []string{"sound:hello"}, tel.PlayedMedia())
	assert.Empty(t, tel.ActivePlaybacks())
}

func TestTelephony_StopPlayback(t *testing.T) {
	tel := memory.NewTelephony(memory.WithAutoFinish(false))
	rec := &recorder{}
	tel.Attach(rec.sink)
	ctx := context.Background()

	require.NoError(t, tel.Play(ctx, domain.Bridge("bridge-1"), "pb-1", "sound:hello"))
	assert.Equal(t, []string{"pb-1"}, tel.ActivePlaybacks())

	require.NoError(t, tel.StopPlayback(ctx, "pb-1"))
	assert.Equal(t, []string{"pb-1"}, tel.StoppedPlaybacks())
	assert.Equal(t, event.PlaybackFinished, rec.events[len(rec.events)-1].Kind)

	err := tel.StopPlayback(ctx, "pb-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTelephony_PlayOnDeadChannel(t *testing.T) {
	tel := memory.NewTelephony()
	err := tel.Play(context.Background(), domain.Channel("gone"), "pb-1", "sound:hello")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTelephony_FailNext(t *testing.T) {
	tel := memory.NewTelephony()
	tel.AddChannel("chan-1")
	boom := errors.New("boom")
	tel.FailNext(memory.OpPlay, boom)
	ctx := context.Background()
	assert.Equal(t, 1, tel.PendingFailures(memory.OpPlay))

	assert.ErrorIs(t, tel.Play(ctx, domain.Channel("chan-1"), "pb-1", "a"), boom)
	assert.Zero(t, tel.PendingFailures(memory.OpPlay))
	assert.NoError(t, tel.Play(ctx, domain.Channel("chan-1"), "pb-2", "b"))
}

func TestTelephony_OriginateAndHangup(t *testing.T) {
	tel := memory.NewTelephony()
	rec := &recorder{}
	tel.Attach(rec.sink)
	ctx := context.Background()

	require.NoError(t, tel.Originate(ctx, domain.OriginateRequest{ChannelID: "leg-2", Endpoint: "PJSIP/alice"}))
	require.NoError(t, tel.AddToBridge(ctx, "bridge-1", "leg-2"))
	require.NoError(t, tel.Hangup(ctx, "leg-2"))

	assert.Equal(t, []event.Kind{event.SessionStart, event.ChannelEnteredBridge, event.SessionEnd}, rec.kinds())
	assert.Equal(t, []string{"leg-2"}, tel.Hangups())
	assert.ErrorIs(t, tel.Hangup(ctx, "leg-2"), domain.ErrNotFound)

	err := tel.Originate(ctx, domain.OriginateRequest{ChannelID: "leg-3"})
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestTelephony_ManualRecording(t *testing.T) {
	tel := memory.NewTelephony(memory.WithAutoRecord(false))
	rec := &recorder{}
	tel.Attach(rec.sink)
	ctx := context.Background()

	spec := domain.RecordSpec{Name: "voicemail", Format: "wav"}
	require.NoError(t, tel.Record(ctx, domain.Bridge("bridge-1"), spec))
	assert.ErrorIs(t, tel.Record(ctx, domain.Bridge("bridge-1"), spec), domain.ErrConflict)

	tel.FailRecording("voicemail", "disk full")
	require.Len(t, rec.events, 2)
	assert.Equal(t, event.RecordingFailed, rec.events[1].Kind)
	assert.Equal(t, "disk full", rec.events[1].Cause)

	assert.ErrorIs(t, tel.StopRecording(ctx, "voicemail"), domain.ErrNotFound)
}

func TestTelephony_AnswerCreatesSession(t *testing.T) {
	tel := memory.NewTelephony()
	sess := tel.Answer("chan-1", "bridge-1")
	defer sess.Close()

	sub := sess.Subscribe(event.Key{Kind: event.DigitReceived, ID: "chan-1"})
	defer sub.Close()

	tel.PressDigits("chan-1", "42")
	assert.Equal(t, "4", (<-sub.C()).Digit)
	assert.Equal(t, "2", (<-sub.C()).Digit)

	tel.EndChannel("chan-1")
	assert.True(t, sess.Ended())
}
