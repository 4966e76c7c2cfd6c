package domain

import "fmt"

// TargetKind tells whether a media operation addresses a channel or a bridge.
type TargetKind string

const (
	TargetChannel TargetKind = "channel"
	TargetBridge  TargetKind = "bridge"
)

// Target identifies the resource a playback or recording runs against.
type Target struct {
	Kind TargetKind
	ID   string
}

// Channel returns a channel target.
func Channel(id string) Target {
	return Target{Kind: TargetChannel, ID: id}
}

// Bridge returns a bridge target.
func Bridge(id string) Target {
	return Target{Kind: TargetBridge, ID: id}
}

func (t Target) String() string {
	return fmt.Sprintf("%s:%s", t.Kind, t.ID)
}
