package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseState(t *testing.T) {
	tests := []struct {
		name string
		want State
		ok   bool
	}{
		{"complete", StateComplete, true},
		{"cancel", StateCancel, true},
		{"timeout", StateTimeout, true},
		{"max_inputs_reached", StateMaxInputsReached, true},
		{"max_attempts", StateMaxInputsReached, true},
		{"not_run", StateNotRun, true},
		{"finished", StateNotRun, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseState(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "max_inputs_reached", StateMaxInputsReached.String())
	assert.Equal(t, "unknown", State(42).String())
	assert.False(t, StateNotRun.IsTerminal())
	assert.True(t, StateTimeout.IsTerminal())
}

func TestTarget(t *testing.T) {
	assert.Equal(t, "channel:chan-1", Channel("chan-1").String())
	assert.Equal(t, Target{Kind: TargetBridge, ID: "b"}, Bridge("b"))
}

func TestIgnoreNotFound(t *testing.T) {
	assert.NoError(t, IgnoreNotFound(fmt.Errorf("playback pb-1: %w", ErrNotFound)))
	assert.NoError(t, IgnoreNotFound(nil))

	conflict := fmt.Errorf("recording: %w", ErrConflict)
	assert.True(t, errors.Is(IgnoreNotFound(conflict), ErrConflict))
}
