package sound_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/switchboard/pkg/adapters/memory"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/sound"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	digit string
	err   error
}

func sequentialIDs() sound.Option {
	n := 0
	return sound.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("pb-%d", n)
	})
}

func playAsync(ctx context.Context, c *sound.Chain) <-chan result {
	done := make(chan result, 1)
	go func() {
		d, err := c.Play(ctx)
		done <- result{digit: d, err: err}
	}()
	return done
}

func await(t *testing.T, done <-chan result) result {
	t.Helper()
	select {
	case r := <-done:
		return r
	case <-time.After(time.Second):
		t.Fatal("sound chain did not resolve")
		return result{}
	}
}

func waitActive(t *testing.T, tel *memory.Telephony, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(tel.ActivePlaybacks()) == n
	}, time.Second, 5*time.Millisecond)
}

func TestChain_EmptyResolvesImmediately(t *testing.T) {
	tel := memory.NewTelephony()
	sess := tel.Answer("chan-1", "bridge-1")

	digit, err := sound.New(sess, sess.Bridge()).Play(context.Background())
	require.NoError(t, err)
	assert.Empty(t, digit)
	assert.Empty(t, tel.Plays())
}

func TestChain_PlaysEverySoundOnTarget(t *testing.T) {
	tel := memory.NewTelephony()
	sess := tel.Answer("chan-1", "bridge-1")

	chain := sound.New(sess, sess.Bridge(), sequentialIDs()).
		Add("sound:welcome").
		Add("sound:menu")
	assert.Equal(t, 2, chain.Len())

	digit, err := chain.Play(context.Background())
	require.NoError(t, err)
	assert.Empty(t, digit)
	assert.Empty(t, chain.Active())

	plays := tel.Plays()
	require.Len(t, plays, 2)
	assert.Equal(t, domain.Bridge("bridge-1"), plays[0].Target)
	assert.Equal(t, "pb-1", plays[0].PlaybackID)
	assert.Equal(t, []string{"sound:welcome", "sound:menu"}, tel.PlayedMedia())
}

func TestChain_LongQueueResolves(t *testing.T) {
	tel := memory.NewTelephony()
	sess := tel.Answer("chan-1", "bridge-1")

	chain := sound.New(sess, sess.Bridge(), sequentialIDs())
	for i := 0; i < 200; i++ {
		chain.Add(fmt.Sprintf("sound:digits/%d", i))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	digit, err := chain.Play(ctx)
	require.NoError(t, err)
	assert.Empty(t, digit)
	assert.Empty(t, chain.Active())
	assert.Len(t, tel.Plays(), 200)
}

func TestChain_ResolvesOnLastPlayback(t *testing.T) {
	tel := memory.NewTelephony(memory.WithAutoFinish(false))
	sess := tel.Answer("chan-1", "bridge-1")

	chain := sound.New(sess, sess.Channel(), sequentialIDs()).Add("a").Add("b")
	done := playAsync(context.Background(), chain)
	waitActive(t, tel, 2)

	tel.FinishPlayback("pb-1")
	select {
	case <-done:
		t.Fatal("resolved before the last playback finished")
	case <-time.After(30 * time.Millisecond):
	}

	tel.FinishPlayback("pb-2")
	r := await(t, done)
	require.NoError(t, r.err)
	assert.Empty(t, r.digit)
	assert.Empty(t, tel.StoppedPlaybacks())
}

func TestChain_Interruption(t *testing.T) {
	tel := memory.NewTelephony(memory.WithAutoFinish(false))
	sess := tel.Answer("chan-1", "bridge-1")

	chain := sound.New(sess, sess.Bridge(),
		sequentialIDs(),
		sound.WithInterruptDigits("5"),
		sound.WithDigitAsInput(true),
	).Add("sound:one").Add("sound:two")

	done := playAsync(context.Background(), chain)
	waitActive(t, tel, 2)

	tel.PressDigits("chan-1", "4")
	tel.PressDigits("chan-1", "5")

	r := await(t, done)
	require.NoError(t, r.err)
	assert.Equal(t, "5", r.digit)
	assert.ElementsMatch(t, []string{"pb-1", "pb-2"}, tel.StoppedPlaybacks())
	assert.Empty(t, tel.ActivePlaybacks())
	assert.Empty(t, chain.Active())
	assert.Len(t, tel.Plays(), 2, "no start playback beyond the dispatched ones")
}

func TestChain_InterruptDigitNotInput(t *testing.T) {
	tel := memory.NewTelephony(memory.WithAutoFinish(false))
	sess := tel.Answer("chan-1", "bridge-1")

	chain := sound.New(sess, sess.Bridge()).Add("sound:one")
	done := playAsync(context.Background(), chain)
	waitActive(t, tel, 1)

	tel.PressDigits("chan-1", "#")

	r := await(t, done)
	require.NoError(t, r.err)
	assert.Empty(t, r.digit)
	assert.Len(t, tel.StoppedPlaybacks(), 1)
}

func TestChain_Uninterruptible(t *testing.T) {
	tel := memory.NewTelephony(memory.WithAutoFinish(false))
	sess := tel.Answer("chan-1", "bridge-1")

	chain := sound.New(sess, sess.Bridge(), sound.Uninterruptible()).Add("sound:legal")
	done := playAsync(context.Background(), chain)
	waitActive(t, tel, 1)

	tel.PressDigits("chan-1", "1")
	select {
	case <-done:
		t.Fatal("uninterruptible chain resolved on a digit")
	case <-time.After(30 * time.Millisecond):
	}

	tel.FinishAllPlaybacks()
	r := await(t, done)
	require.NoError(t, r.err)
	assert.Empty(t, r.digit)
}

func TestChain_StartFailureStopsDispatched(t *testing.T) {
	tel := memory.NewTelephony(memory.WithAutoFinish(false))
	sess := tel.Answer("chan-1", "bridge-1")
	tel.FailNext(memory.OpPlay, nil)
	tel.FailNext(memory.OpPlay, fmt.Errorf("media: %w", domain.ErrInvalidParameter))

	chain := sound.New(sess, sess.Bridge(), sequentialIDs()).Add("sound:ok").Add("sound:bad")
	_, err := chain.Play(context.Background())

	require.ErrorIs(t, err, domain.ErrInvalidParameter)
	assert.Equal(t, []string{"pb-1"}, tel.StoppedPlaybacks())
	assert.Empty(t, chain.Active())
}

func TestChain_ContextCancel(t *testing.T) {
	tel := memory.NewTelephony(memory.WithAutoFinish(false))
	sess := tel.Answer("chan-1", "bridge-1")

	ctx, cancel := context.WithCancel(context.Background())
	chain := sound.New(sess, sess.Bridge()).Add("sound:long")
	done := playAsync(ctx, chain)
	waitActive(t, tel, 1)

	cancel()
	r := await(t, done)
	assert.ErrorIs(t, r.err, context.Canceled)
	assert.Len(t, tel.StoppedPlaybacks(), 1)
}

func TestChain_StopIsIdempotent(t *testing.T) {
	tel := memory.NewTelephony(memory.WithAutoFinish(false))
	sess := tel.Answer("chan-1", "bridge-1")

	chain := sound.New(sess, sess.Bridge()).Add("sound:one")
	done := playAsync(context.Background(), chain)
	waitActive(t, tel, 1)

	chain.Stop(context.Background())
	chain.Stop(context.Background())
	assert.Empty(t, chain.Active())
	assert.Len(t, tel.StoppedPlaybacks(), 1)

	// the stop produced the finished event of the last playback
	r := await(t, done)
	assert.NoError(t, r.err)
}
