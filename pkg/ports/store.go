package ports

import (
	"context"

	"github.com/aretw0/switchboard/pkg/domain"
)

// TrailStore persists the nodes a call went through.
type TrailStore interface {
	// Append records one finished node for the given session.
	Append(ctx context.Context, sessionID string, visit domain.Visit) error

	// Trail returns the visits of a session in the order they were appended.
	// An unknown session yields an empty trail.
	Trail(ctx context.Context, sessionID string) ([]domain.Visit, error)

	// Delete removes the trail of a session.
	Delete(ctx context.Context, sessionID string) error

	// Sessions lists the sessions that currently have a trail.
	Sessions(ctx context.Context) ([]string, error)
}
