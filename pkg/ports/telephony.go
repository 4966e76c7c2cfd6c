package ports

import (
	"context"

	"github.com/aretw0/switchboard/pkg/domain"
)

// Telephony is the command side of the call-control service.
// Every command only acknowledges the request; progress is reported later as
// events dispatched into the call session. Implementations report remote
// failures wrapping domain.ErrNotFound, domain.ErrConflict,
// domain.ErrInvalidParameter or domain.ErrUnprocessable.
type Telephony interface {
	// Play starts playing media on the target under the caller-chosen playback ID.
	Play(ctx context.Context, target domain.Target, playbackID, media string) error

	// StopPlayback stops a playback. Stopping a finished playback yields domain.ErrNotFound.
	StopPlayback(ctx context.Context, playbackID string) error

	// Record starts a live recording on the target.
	Record(ctx context.Context, target domain.Target, spec domain.RecordSpec) error

	// StopRecording stops and stores a live recording.
	StopRecording(ctx context.Context, name string) error

	// Originate creates a new outbound channel bound to req.ChannelID.
	Originate(ctx context.Context, req domain.OriginateRequest) error

	// Hangup deletes a channel.
	Hangup(ctx context.Context, channelID string) error

	// AddToBridge adds a channel to a bridge.
	AddToBridge(ctx context.Context, bridgeID, channelID string) error

	// RemoveFromBridge removes a channel from a bridge.
	RemoveFromBridge(ctx context.Context, bridgeID, channelID string) error

	// SendDTMF sends digits on a channel.
	SendDTMF(ctx context.Context, channelID, digits string) error
}
