// Package event provides typed, per-session event dispatch for call-control events.
package event

import (
	"fmt"
	"time"

	"github.com/aretw0/switchboard/pkg/domain"
)

// Kind is the category of an event.
type Kind int

const (
	DigitReceived Kind = iota + 1
	PlaybackStarted
	PlaybackFinished
	RecordingStarted
	RecordingFinished
	RecordingFailed
	ChannelEnteredBridge
	ChannelLeftBridge
	SessionStart
	SessionEnd
	NodeFinished
)

var kindNames = map[Kind]string{
	DigitReceived:        "digit_received",
	PlaybackStarted:      "playback_started",
	PlaybackFinished:     "playback_finished",
	RecordingStarted:     "recording_started",
	RecordingFinished:    "recording_finished",
	RecordingFailed:      "recording_failed",
	ChannelEnteredBridge: "channel_entered_bridge",
	ChannelLeftBridge:    "channel_left_bridge",
	SessionStart:         "session_start",
	SessionEnd:           "session_end",
	NodeFinished:         "node_finished",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Key addresses one event stream: a kind of event for one owning identifier
// (channel id, bridge id, playback id, recording name or session id).
type Key struct {
	Kind Kind
	ID   string
}

func (k Key) String() string {
	return k.Kind.String() + "/" + k.ID
}

// Event is one call-control notification.
type Event struct {
	Kind Kind
	// ID is the owning identifier; together with Kind it forms the Key.
	ID string

	// Digit is set for DigitReceived.
	Digit string
	// ChannelID is set for bridge membership events.
	ChannelID string
	// Cause carries the hangup cause or recording failure reason.
	Cause string

	// Node and State are set for NodeFinished.
	Node  string
	State domain.State

	At time.Time
}

// Key returns the stream this event belongs to.
func (e Event) Key() Key {
	return Key{Kind: e.Kind, ID: e.ID}
}

// Digit builds a DigitReceived event for a channel.
func Digit(channelID, digit string) Event {
	return Event{Kind: DigitReceived, ID: channelID, Digit: digit, At: time.Now()}
}

// Playback builds a playback event (PlaybackStarted or PlaybackFinished).
func Playback(kind Kind, playbackID string) Event {
	return Event{Kind: kind, ID: playbackID, At: time.Now()}
}

// Recording builds a recording event for a recording name.
func Recording(kind Kind, name, cause string) Event {
	return Event{Kind: kind, ID: name, Cause: cause, At: time.Now()}
}

// Session builds a SessionStart or SessionEnd event for a channel.
func Session(kind Kind, channelID string) Event {
	return Event{Kind: kind, ID: channelID, At: time.Now()}
}
