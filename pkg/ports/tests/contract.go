// Package tests holds reusable contract suites for port implementations.
package tests

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunTrailStoreContract runs a suite of tests to verify that a TrailStore implementation
// adheres to the defined interface contract.
func RunTrailStoreContract(t *testing.T, store ports.TrailStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Append and Trail", func(t *testing.T) {
		first := domain.Visit{Node: "menu", State: domain.StateComplete.String(), Input: "1", Attempts: 1, At: time.Now().UTC()}
		second := domain.Visit{Node: "sales", State: domain.StateCancel.String(), Attempts: 0, At: time.Now().UTC()}

		require.NoError(t, store.Append(ctx, sessionID, first))
		require.NoError(t, store.Append(ctx, sessionID, second))

		trail, err := store.Trail(ctx, sessionID)
		require.NoError(t, err)
		require.Len(t, trail, 2)
		assert.Equal(t, "menu", trail[0].Node)
		assert.Equal(t, "1", trail[0].Input)
		assert.Equal(t, "sales", trail[1].Node)
		assert.Equal(t, "cancel", trail[1].State)
	})

	t.Run("Unknown Session", func(t *testing.T) {
		trail, err := store.Trail(ctx, "non-existent-"+sessionID)
		require.NoError(t, err)
		assert.Empty(t, trail)
	})

	t.Run("Sessions", func(t *testing.T) {
		ids, err := store.Sessions(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, sessionID)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Append(ctx, sessionID, domain.Visit{Node: "bye"}))
		require.NoError(t, store.Delete(ctx, sessionID))

		trail, err := store.Trail(ctx, sessionID)
		require.NoError(t, err)
		assert.Empty(t, trail)

		ids, err := store.Sessions(ctx)
		require.NoError(t, err)
		assert.NotContains(t, ids, sessionID)
	})
}
