package switchboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/switchboard/internal/logging"
	"github.com/aretw0/switchboard/pkg/adapters/memory"
	"github.com/aretw0/switchboard/pkg/call"
	"github.com/aretw0/switchboard/pkg/controller"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/event"
	"github.com/aretw0/switchboard/pkg/node"
	"github.com/google/uuid"
)

// Script symbols besides DTMF digits.
const (
	ScriptHangup = 'h' // the caller hangs up
	ScriptEndLeg = 'x' // the last dialed party hangs up
	ScriptPause  = ',' // wait one extra delay
)

const (
	defaultDelay   = 200 * time.Millisecond
	callerPrefix   = "sim-caller-"
	bridgePrefix   = "sim-bridge-"
	visitLineWidth = 16
)

// ErrBadScript is returned for a script symbol the runner does not know.
var ErrBadScript = errors.New("invalid script symbol")

// Runner plays a flow against the in-memory telephony simulator, pressing
// the digits of a script as a caller would.
// This allows for easy testing and demos without a telephony server.
type Runner struct {
	Output     io.Writer
	Script     string
	DigitDelay time.Duration
	AutoAnswer bool
	Logger     *slog.Logger

	// Telephony is created by Run when nil.
	Telephony *memory.Telephony
}

// NewRunner creates a runner with the default delay and auto-answer enabled.
func NewRunner(out io.Writer, script string) *Runner {
	return &Runner{
		Output:     out,
		Script:     script,
		DigitDelay: defaultDelay,
		AutoAnswer: true,
	}
}

// Run simulates one call and returns the visited nodes in order.
func (r *Runner) Run(ctx context.Context, engine *Engine) ([]domain.Visit, error) {
	for _, s := range r.Script {
		if !validSymbol(s) {
			return nil, fmt.Errorf("%w: %q", ErrBadScript, s)
		}
	}
	logger := r.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	tel := r.Telephony
	if tel == nil {
		tel = memory.NewTelephony(memory.WithAutoAnswer(r.AutoAnswer))
	}

	id := uuid.NewString()
	session := tel.Answer(callerPrefix+id, bridgePrefix+id, call.WithID(id), call.WithLogger(logger))
	defer session.Close()

	var mu sync.Mutex
	var visits []domain.Visit
	record := controller.ObserverFunc(func(ctx context.Context, sessionID string, n *node.Node, d time.Duration) {
		v := domain.Visit{
			Node:     n.Name(),
			State:    n.State().String(),
			Input:    n.Input(),
			Attempts: n.AttemptsUsed(),
			At:       time.Now().UTC(),
			Duration: d,
		}
		mu.Lock()
		visits = append(visits, v)
		mu.Unlock()
		if r.Output != nil {
			fmt.Fprintf(r.Output, "→ %-*s %-20s input=%q attempts=%d (%s)\n",
				visitLineWidth, v.Node, v.State, v.Input, v.Attempts, d.Round(time.Millisecond))
		}
	})

	feedCtx, stopFeed := context.WithCancel(ctx)
	defer stopFeed()
	go r.feed(feedCtx, tel, session)

	err := engine.Handle(ctx, session, controller.WithObserver(record))

	mu.Lock()
	defer mu.Unlock()
	return visits, err
}

// feed waits for the call to listen for digits before each symbol, then
// applies it after the configured delay.
func (r *Runner) feed(ctx context.Context, tel *memory.Telephony, session *call.Session) {
	delay := r.DigitDelay
	if delay <= 0 {
		delay = defaultDelay
	}
	digits := event.Key{Kind: event.DigitReceived, ID: session.ChannelID()}

	for _, s := range r.Script {
		for session.Bus().SubscriberCount(digits) == 0 {
			if !sleep(ctx, 5*time.Millisecond) {
				return
			}
		}
		if !sleep(ctx, delay) {
			return
		}
		switch s {
		case ScriptPause:
		case ScriptHangup:
			tel.EndChannel(session.ChannelID())
			return
		case ScriptEndLeg:
			if legs := tel.Originated(); len(legs) > 0 {
				tel.EndChannel(legs[len(legs)-1].ChannelID)
			}
		default:
			tel.PressDigits(session.ChannelID(), string(s))
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func validSymbol(s rune) bool {
	switch {
	case s >= '0' && s <= '9', s == '*', s == '#':
		return true
	case s == ScriptHangup, s == ScriptEndLeg, s == ScriptPause:
		return true
	}
	return false
}
