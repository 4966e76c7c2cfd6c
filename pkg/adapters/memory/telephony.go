package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/switchboard/pkg/call"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/event"
)

// Telephony commands, used to inject failures with FailNext.
const (
	OpPlay             = "play"
	OpStopPlayback     = "stop_playback"
	OpRecord           = "record"
	OpStopRecording    = "stop_recording"
	OpOriginate        = "originate"
	OpHangup           = "hangup"
	OpAddToBridge      = "add_to_bridge"
	OpRemoveFromBridge = "remove_from_bridge"
	OpSendDTMF         = "send_dtmf"
)

// PlayCommand is one recorded start-playback command.
type PlayCommand struct {
	Target     domain.Target
	PlaybackID string
	Media      string
}

// BridgeCommand is one recorded bridge membership command.
type BridgeCommand struct {
	BridgeID  string
	ChannelID string
	Added     bool
}

// Telephony implements ports.Telephony in memory.
// Every command is recorded and answered with the events a real call-control
// service would emit, delivered synchronously to the attached sinks.
// Safe for concurrent use.
type Telephony struct {
	mu sync.Mutex

	autoFinish bool
	autoAnswer bool
	autoRecord bool

	sinks    []func(event.Event)
	channels map[string]bool
	playing  map[string]PlayCommand
	recLive  map[string]domain.RecordSpec
	failures map[string][]error

	plays       []PlayCommand
	stopped     []string
	recordings  []domain.RecordSpec
	stoppedRecs []string
	originated  []domain.OriginateRequest
	hangups     []string
	bridgeCmds  []BridgeCommand
	sentDTMF    map[string]string
}

// TelephonyOption configures the simulator.
type TelephonyOption func(*Telephony)

// WithAutoFinish makes every playback finish as soon as it starts (default true).
func WithAutoFinish(enabled bool) TelephonyOption {
	return func(t *Telephony) {
		t.autoFinish = enabled
	}
}

// WithAutoAnswer makes originated channels answer immediately (default true).
func WithAutoAnswer(enabled bool) TelephonyOption {
	return func(t *Telephony) {
		t.autoAnswer = enabled
	}
}

// WithAutoRecord makes every recording finish as soon as it starts (default true).
func WithAutoRecord(enabled bool) TelephonyOption {
	return func(t *Telephony) {
		t.autoRecord = enabled
	}
}

// NewTelephony creates a simulator with every automatic behavior enabled.
func NewTelephony(opts ...TelephonyOption) *Telephony {
	t := &Telephony{
		autoFinish: true,
		autoAnswer: true,
		autoRecord: true,
		channels:   make(map[string]bool),
		playing:    make(map[string]PlayCommand),
		recLive:    make(map[string]domain.RecordSpec),
		failures:   make(map[string][]error),
		sentDTMF:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Attach registers a sink for emitted events.
func (t *Telephony) Attach(sink func(event.Event)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sinks = append(t.sinks, sink)
}

// Answer simulates an inbound call: it creates a session for channelID in
// bridgeID, attaches it and marks the channel as live.
func (t *Telephony) Answer(channelID, bridgeID string, opts ...call.Option) *call.Session {
	s := call.New(t, channelID, bridgeID, opts...)
	t.Attach(s.Dispatch)
	t.AddChannel(channelID)
	return s
}

// AddChannel marks a channel as live.
func (t *Telephony) AddChannel(channelID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.channels[channelID] = true
}

// FailNext makes the next call of op fail with err.
func (t *Telephony) FailNext(op string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[op] = append(t.failures[op], err)
}

// PendingFailures returns how many injected failures of op are still queued.
func (t *Telephony) PendingFailures(op string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.failures[op])
}

func (t *Telephony) injected(op string) error {
	queue := t.failures[op]
	if len(queue) == 0 {
		return nil
	}
	t.failures[op] = queue[1:]
	return queue[0]
}

func (t *Telephony) emit(events ...event.Event) {
	t.mu.Lock()
	sinks := append([]func(event.Event){}, t.sinks...)
	t.mu.Unlock()
	for _, e := range events {
		for _, sink := range sinks {
			sink(e)
		}
	}
}

// Play implements ports.Telephony.
func (t *Telephony) Play(ctx context.Context, target domain.Target, playbackID, media string) error {
	t.mu.Lock()
	if err := t.injected(OpPlay); err != nil {
		t.mu.Unlock()
		return err
	}
	if target.Kind == domain.TargetChannel && !t.channels[target.ID] {
		t.mu.Unlock()
		return fmt.Errorf("channel %s: %w", target.ID, domain.ErrNotFound)
	}
	cmd := PlayCommand{Target: target, PlaybackID: playbackID, Media: media}
	t.plays = append(t.plays, cmd)
	auto := t.autoFinish
	if !auto {
		t.playing[playbackID] = cmd
	}
	t.mu.Unlock()

	events := []event.Event{event.Playback(event.PlaybackStarted, playbackID)}
	if auto {
		events = append(events, event.Playback(event.PlaybackFinished, playbackID))
	}
	t.emit(events...)
	return nil
}

// StopPlayback implements ports.Telephony.
func (t *Telephony) StopPlayback(ctx context.Context, playbackID string) error {
	t.mu.Lock()
	if err := t.injected(OpStopPlayback); err != nil {
		t.mu.Unlock()
		return err
	}
	if _, ok := t.playing[playbackID]; !ok {
		t.mu.Unlock()
		return fmt.Errorf("playback %s: %w", playbackID, domain.ErrNotFound)
	}
	delete(t.playing, playbackID)
	t.stopped = append(t.stopped, playbackID)
	t.mu.Unlock()

	t.emit(event.Playback(event.PlaybackFinished, playbackID))
	return nil
}

// Record implements ports.Telephony.
func (t *Telephony) Record(ctx context.Context, target domain.Target, spec domain.RecordSpec) error {
	t.mu.Lock()
	if err := t.injected(OpRecord); err != nil {
		t.mu.Unlock()
		return err
	}
	if _, exists := t.recLive[spec.Name]; exists {
		t.mu.Unlock()
		return fmt.Errorf("recording %s: %w", spec.Name, domain.ErrConflict)
	}
	t.recordings = append(t.recordings, spec)
	auto := t.autoRecord
	if !auto {
		t.recLive[spec.Name] = spec
	}
	t.mu.Unlock()

	events := []event.Event{event.Recording(event.RecordingStarted, spec.Name, "")}
	if auto {
		events = append(events, event.Recording(event.RecordingFinished, spec.Name, ""))
	}
	t.emit(events...)
	return nil
}

// StopRecording implements ports.Telephony.
func (t *Telephony) StopRecording(ctx context.Context, name string) error {
	t.mu.Lock()
	if err := t.injected(OpStopRecording); err != nil {
		t.mu.Unlock()
		return err
	}
	if _, ok := t.recLive[name]; !ok {
		t.mu.Unlock()
		return fmt.Errorf("recording %s: %w", name, domain.ErrNotFound)
	}
	delete(t.recLive, name)
	t.stoppedRecs = append(t.stoppedRecs, name)
	t.mu.Unlock()

	t.emit(event.Recording(event.RecordingFinished, name, ""))
	return nil
}

// Originate implements ports.Telephony.
func (t *Telephony) Originate(ctx context.Context, req domain.OriginateRequest) error {
	t.mu.Lock()
	if err := t.injected(OpOriginate); err != nil {
		t.mu.Unlock()
		return err
	}
	if req.Endpoint == "" {
		t.mu.Unlock()
		return fmt.Errorf("originate without endpoint: %w", domain.ErrInvalidParameter)
	}
	t.originated = append(t.originated, req)
	t.channels[req.ChannelID] = true
	auto := t.autoAnswer
	t.mu.Unlock()

	if auto {
		t.emit(event.Session(event.SessionStart, req.ChannelID))
	}
	return nil
}

// Hangup implements ports.Telephony.
func (t *Telephony) Hangup(ctx context.Context, channelID string) error {
	t.mu.Lock()
	if err := t.injected(OpHangup); err != nil {
		t.mu.Unlock()
		return err
	}
	if !t.channels[channelID] {
		t.mu.Unlock()
		return fmt.Errorf("channel %s: %w", channelID, domain.ErrNotFound)
	}
	delete(t.channels, channelID)
	t.hangups = append(t.hangups, channelID)
	t.mu.Unlock()

	e := event.Session(event.SessionEnd, channelID)
	e.Cause = "normal_clearing"
	t.emit(e)
	return nil
}

// AddToBridge implements ports.Telephony.
func (t *Telephony) AddToBridge(ctx context.Context, bridgeID, channelID string) error {
	return t.bridge(OpAddToBridge, event.ChannelEnteredBridge, bridgeID, channelID, true)
}

// RemoveFromBridge implements ports.Telephony.
func (t *Telephony) RemoveFromBridge(ctx context.Context, bridgeID, channelID string) error {
	return t.bridge(OpRemoveFromBridge, event.ChannelLeftBridge, bridgeID, channelID, false)
}

func (t *Telephony) bridge(op string, kind event.Kind, bridgeID, channelID string, added bool) error {
	t.mu.Lock()
	if err := t.injected(op); err != nil {
		t.mu.Unlock()
		return err
	}
	if !t.channels[channelID] {
		t.mu.Unlock()
		return fmt.Errorf("channel %s: %w", channelID, domain.ErrNotFound)
	}
	t.bridgeCmds = append(t.bridgeCmds, BridgeCommand{BridgeID: bridgeID, ChannelID: channelID, Added: added})
	t.mu.Unlock()

	t.emit(event.Event{Kind: kind, ID: bridgeID, ChannelID: channelID})
	return nil
}

// SendDTMF implements ports.Telephony.
func (t *Telephony) SendDTMF(ctx context.Context, channelID, digits string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.injected(OpSendDTMF); err != nil {
		return err
	}
	if !t.channels[channelID] {
		return fmt.Errorf("channel %s: %w", channelID, domain.ErrNotFound)
	}
	t.sentDTMF[channelID] += digits
	return nil
}

// Caller-side stimuli.

// PressDigits emits one DigitReceived event per digit on the channel.
func (t *Telephony) PressDigits(channelID, digits string) {
	for _, d := range digits {
		t.emit(event.Digit(channelID, string(d)))
	}
}

// FinishPlayback completes a playback that is still running.
func (t *Telephony) FinishPlayback(playbackID string) {
	t.mu.Lock()
	_, ok := t.playing[playbackID]
	delete(t.playing, playbackID)
	t.mu.Unlock()
	if ok {
		t.emit(event.Playback(event.PlaybackFinished, playbackID))
	}
}

// FinishAllPlaybacks completes every running playback.
func (t *Telephony) FinishAllPlaybacks() {
	for _, id := range t.ActivePlaybacks() {
		t.FinishPlayback(id)
	}
}

// FinishRecording completes a live recording.
func (t *Telephony) FinishRecording(name string) {
	t.endRecording(name, event.RecordingFinished, "")
}

// FailRecording reports a live recording as failed.
func (t *Telephony) FailRecording(name, cause string) {
	t.endRecording(name, event.RecordingFailed, cause)
}

func (t *Telephony) endRecording(name string, kind event.Kind, cause string) {
	t.mu.Lock()
	_, ok := t.recLive[name]
	delete(t.recLive, name)
	t.mu.Unlock()
	if ok {
		t.emit(event.Recording(kind, name, cause))
	}
}

// AnswerChannel reports an originated channel as answered.
func (t *Telephony) AnswerChannel(channelID string) {
	t.emit(event.Session(event.SessionStart, channelID))
}

// EndChannel simulates the remote party hanging up.
func (t *Telephony) EndChannel(channelID string) {
	t.mu.Lock()
	delete(t.channels, channelID)
	t.mu.Unlock()
	e := event.Session(event.SessionEnd, channelID)
	e.Cause = "remote_hangup"
	t.emit(e)
}

// Inspection.

// Plays returns every start-playback command issued so far.
func (t *Telephony) Plays() []PlayCommand {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]PlayCommand(nil), t.plays...)
}

// PlayedMedia returns the media of every start-playback command in order.
func (t *Telephony) PlayedMedia() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	media := make([]string, len(t.plays))
	for i, p := range t.plays {
		media[i] = p.Media
	}
	return media
}

// ActivePlaybacks returns the IDs of playbacks still running.
func (t *Telephony) ActivePlaybacks() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.playing))
	for id := range t.playing {
		ids = append(ids, id)
	}
	return ids
}

// StoppedPlaybacks returns the IDs of playbacks stopped by a command.
func (t *Telephony) StoppedPlaybacks() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.stopped...)
}

// Recordings returns every start-recording command.
func (t *Telephony) Recordings() []domain.RecordSpec {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]domain.RecordSpec(nil), t.recordings...)
}

// StoppedRecordings returns the names of recordings stopped by a command.
func (t *Telephony) StoppedRecordings() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.stoppedRecs...)
}

// Originated returns every originate command.
func (t *Telephony) Originated() []domain.OriginateRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]domain.OriginateRequest(nil), t.originated...)
}

// Hangups returns the channels deleted by a command.
func (t *Telephony) Hangups() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.hangups...)
}

// BridgeCommands returns every bridge membership command.
func (t *Telephony) BridgeCommands() []BridgeCommand {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]BridgeCommand(nil), t.bridgeCmds...)
}

// SentDTMF returns the digits sent on a channel.
func (t *Telephony) SentDTMF(channelID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sentDTMF[channelID]
}
