package node

import (
	"context"
	"fmt"

	"github.com/aretw0/switchboard/pkg/call"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/event"
)

// DialedAppArgs marks channels originated by a node in the stasis application arguments.
const DialedAppArgs = "dialed"

// doDial originates the outbound leg, bridges it once it answers and waits
// until it ends. The leg is torn down when the caller hangs up or presses the
// hangup digit.
func (n *Node) doDial(ctx context.Context, digits <-chan event.Event) error {
	if n.dial == nil {
		return nil
	}
	spec := *n.dial

	endpoint, err := domain.NormalizeEndpoint(spec.Endpoint)
	if err != nil {
		return fmt.Errorf("dial from node %s: %w", n.name, err)
	}

	leg := n.newID()
	n.mu.Lock()
	n.dialedChannel = leg
	n.mu.Unlock()

	primary := n.session.ChannelID()
	sub := n.session.Subscribe(
		event.Key{Kind: event.SessionStart, ID: leg},
		event.Key{Kind: event.SessionEnd, ID: leg},
		event.Key{Kind: event.SessionEnd, ID: primary},
	)
	defer sub.Close()

	client := n.session.Client()
	logger := n.logger.With("dialed_channel", leg, "endpoint", endpoint)

	err = client.Originate(ctx, domain.OriginateRequest{
		ChannelID: leg,
		Endpoint:  endpoint,
		App:       spec.App,
		AppArgs:   DialedAppArgs,
		CallerID:  spec.CallerID,
		Timeout:   spec.Timeout,
	})
	if err != nil {
		return fmt.Errorf("originate %s: %w", endpoint, err)
	}
	logger.Info("dialing")

	recording := ""
	stopping := false
	hungUp := false
	stopRecording := func() {
		if recording == "" {
			return
		}
		name := recording
		recording = ""
		n.session.Cleanup("stop_recording", func(ctx context.Context) error {
			return client.StopRecording(ctx, name)
		})
	}
	// teardown may run more than once: a failed hangup is retried by the
	// next hangup digit.
	teardown := func(reason string) {
		stopping = true
		stopRecording()
		if hungUp {
			return
		}
		logger.Debug("tearing down dialed leg", "reason", reason)
		hctx, cancel := context.WithTimeout(context.Background(), call.CleanupTimeout)
		defer cancel()
		if err := n.session.Hangup(hctx, leg); err != nil {
			logger.Warn("hangup of dialed leg failed", "reason", reason, "err", err)
			return
		}
		hungUp = true
	}

	for {
		select {
		case <-ctx.Done():
			teardown("context done")
			return ctx.Err()

		case e := <-digits:
			if spec.HangupDigit != "" && e.Digit == spec.HangupDigit {
				teardown("hangup digit")
			}

		case e := <-sub.C():
			switch {
			case e.Kind == event.SessionStart:
				if stopping {
					logger.Debug("dialed leg answered after teardown, ignoring")
					continue
				}
				name, err := n.connect(ctx, leg, spec)
				recording = name
				if err != nil {
					teardown("connect failed")
					return err
				}
				logger.Info("dialed leg answered")

			case e.ID == leg:
				logger.Info("dialed leg ended", "cause", e.Cause)
				stopRecording()
				return nil

			default:
				teardown("caller hung up")
				return fmt.Errorf("caller hung up during dial: %w", context.Canceled)
			}
		}
	}
}

// connect joins the answered leg to the bridge, starts the bridge recording
// and plays the answer announcement. It returns the recording name once the
// recording has started.
func (n *Node) connect(ctx context.Context, leg string, spec domain.DialSpec) (string, error) {
	client := n.session.Client()
	if err := client.AddToBridge(ctx, n.session.BridgeID(), leg); err != nil {
		return "", fmt.Errorf("bridge dialed leg %s: %w", leg, err)
	}

	recording := ""
	if spec.RecordingFile != "" {
		format := spec.RecordingFormat
		if format == "" {
			format = domain.DefaultRecordingFormat
		}
		rec := domain.RecordSpec{Name: spec.RecordingFile, Format: format, IfExists: "overwrite"}
		if err := client.Record(ctx, n.session.Bridge(), rec); err != nil {
			return "", fmt.Errorf("record dialed call %s: %w", rec.Name, err)
		}
		recording = rec.Name
	}

	if spec.AnswerSound != "" {
		if err := client.Play(ctx, domain.Channel(leg), n.newID(), spec.AnswerSound); err != nil {
			return recording, fmt.Errorf("play answer sound: %w", err)
		}
	}
	return recording, nil
}

// doRecord records the bridge and waits until the recording finishes.
func (n *Node) doRecord(ctx context.Context) error {
	if n.record == nil {
		return nil
	}
	spec := *n.record
	if spec.Name == "" {
		spec.Name = fmt.Sprintf("node-%s-%s", n.name, n.newID())
	}
	if spec.Format == "" {
		spec.Format = domain.DefaultRecordingFormat
	}

	sub := n.session.Subscribe(
		event.Key{Kind: event.RecordingFinished, ID: spec.Name},
		event.Key{Kind: event.RecordingFailed, ID: spec.Name},
	)
	defer sub.Close()

	client := n.session.Client()
	if err := client.Record(ctx, n.session.Bridge(), spec); err != nil {
		return fmt.Errorf("record %s: %w", spec.Name, err)
	}
	n.logger.Info("recording", "recording", spec.Name)

	select {
	case <-ctx.Done():
		n.session.Cleanup("stop_recording", func(ctx context.Context) error {
			return client.StopRecording(ctx, spec.Name)
		})
		return ctx.Err()
	case e := <-sub.C():
		if e.Kind == event.RecordingFailed {
			return fmt.Errorf("%w: %s: %s", domain.ErrRecordingFailed, spec.Name, e.Cause)
		}
		n.logger.Info("recording finished", "recording", spec.Name)
		return nil
	}
}
