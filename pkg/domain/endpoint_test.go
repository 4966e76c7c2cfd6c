package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "technology string", raw: "PJSIP/alice", want: "PJSIP/alice"},
		{name: "sip uri", raw: "sip:alice@pbx.example.com", want: "PJSIP/alice@pbx.example.com"},
		{name: "sip uri with port", raw: "sip:1000@10.0.0.5:5070", want: "PJSIP/1000@10.0.0.5:5070"},
		{name: "trimmed", raw: "  SIP/trunk/555  ", want: "SIP/trunk/555"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeEndpoint(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeEndpoint_Invalid(t *testing.T) {
	for _, raw := range []string{"", "alice", "PJSIP/", "/alice"} {
		_, err := NormalizeEndpoint(raw)
		assert.ErrorIs(t, err, ErrInvalidEndpoint, "raw=%q", raw)
	}
}

func TestParseState_Aliases(t *testing.T) {
	s, ok := ParseState("max_attempts")
	assert.True(t, ok)
	assert.Equal(t, StateMaxInputsReached, s)

	s, ok = ParseState("cancel")
	assert.True(t, ok)
	assert.Equal(t, StateCancel, s)
	assert.Equal(t, "cancel", s.String())

	_, ok = ParseState("bogus")
	assert.False(t, ok)
}

func TestIgnoreNotFound_Sentinels(t *testing.T) {
	assert.NoError(t, IgnoreNotFound(nil))
	assert.NoError(t, IgnoreNotFound(ErrNotFound))
	assert.ErrorIs(t, IgnoreNotFound(ErrConflict), ErrConflict)
}
