// Package socket drives the push side of job discovery: a persistent
// connection to the protocol backend's realtime channel, reconnected with
// backoff on drop, translating ROOM_JOINED/ON_NEW_TASK/ON_EVALUATE events
// into dispatcher calls.
//
// The wire-level realtime transport is treated as an opaque external
// collaborator — this package depends only on
// the Transport interface below, never on a concrete socket/websocket
// library, so it stays testable with a fake and compiles without pulling
// in a client for a protocol this runtime does not own.
package socket

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/yourorg/acp-seller/internal/alert"
)

// EventType names the realtime events this runtime acts on.
type EventType string

const (
	EventRoomJoined EventType = "ROOM_JOINED"
	EventNewTask    EventType = "ON_NEW_TASK"
	EventEvaluate   EventType = "ON_EVALUATE"
)

// Event is one realtime message, already decoded by the Transport.
type Event struct {
	Type EventType
	Job  map[string]any
}

// Transport is the injected realtime channel. Connect blocks until a
// connection is established (or ctx is canceled) and returns a Session to
// read events from. Implementations own their own wire protocol, auth
// handshake, and room-join handshake.
type Transport interface {
	Connect(ctx context.Context) (Session, error)
}

// Session is one live connection. Next blocks until an event arrives, the
// connection drops (returns an error), or ctx is canceled.
type Session interface {
	Next(ctx context.Context) (Event, error)
	Close() error
}

// Dispatcher is the subset of dispatch.Dispatcher the listener calls.
type Dispatcher interface {
	HandleJob(ctx context.Context, raw map[string]any, source string)
}

const sourceLabel = "socket"

const (
	minReconnectDelay = 1 * time.Second
	maxReconnectDelay = 60 * time.Second
	reconnectFactor   = 2.0

	// disconnectAlertThreshold is how long a connection must stay down
	// before the listener pages — a reconnect within this window is
	// normal churn, not an incident.
	disconnectAlertThreshold = 2 * time.Minute

	// failedAttemptsAlertThreshold is the number of consecutive failed
	// reconnect attempts before the listener pages regardless of elapsed
	// time, so a fast-failing backend (immediate auth rejection, say)
	// still surfaces as an incident.
	failedAttemptsAlertThreshold = 3

	dedupKeyDisconnect = "acp-seller-socket-disconnected"
)

// Listener owns the realtime connection lifecycle.
type Listener struct {
	Transport  Transport
	Dispatcher Dispatcher
	Alert      *alert.Client
	Logger     *slog.Logger

	heartbeatEvery time.Duration
}

// New builds a Listener. alertClient may be a no-op (routing key unset).
func New(transport Transport, d Dispatcher, alertClient *alert.Client, logger *slog.Logger) *Listener {
	return &Listener{
		Transport:      transport,
		Dispatcher:     d,
		Alert:          alertClient,
		Logger:         logger.With("component", "socket"),
		heartbeatEvery: 30 * time.Second,
	}
}

// Run connects, reads events until the connection drops or ctx is
// canceled, and reconnects with capped exponential backoff. It returns
// only when ctx is canceled.
func (l *Listener) Run(ctx context.Context) {
	delay := minReconnectDelay
	var disconnectedSince time.Time
	failedAttempts := 0
	alertTriggered := false

	for {
		if ctx.Err() != nil {
			return
		}

		sess, err := l.Transport.Connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failedAttempts++
			if disconnectedSince.IsZero() {
				disconnectedSince = time.Now()
			}
			l.Logger.Warn("socket_connect_failed", "attempt", failedAttempts, "err", err)
			if l.maybeAlertDisconnected(ctx, disconnectedSince, failedAttempts) {
				alertTriggered = true
			}
			if !sleepCtx(ctx, delay) {
				return
			}
			delay = nextReconnectDelay(delay)
			continue
		}

		l.Logger.Info("socket_connected")
		disconnectedSince = time.Time{}
		failedAttempts = 0
		delay = minReconnectDelay
		if alertTriggered {
			l.Alert.Resolve(ctx, dedupKeyDisconnect, "seller socket reconnected")
			alertTriggered = false
		}

		l.readLoop(ctx, sess)
		sess.Close()

		if ctx.Err() != nil {
			return
		}
		disconnectedSince = time.Now()
		l.Logger.Warn("socket_disconnected")
	}
}

// readLoop consumes events from sess until it errors or ctx is canceled.
// A heartbeat log line is written when an event arrives and at least
// heartbeatEvery has passed since the previous heartbeat (or since the
// loop started); while no events arrive, no heartbeat is logged.
func (l *Listener) readLoop(ctx context.Context, sess Session) {
	lastHeartbeat := time.Now()
	for {
		if ctx.Err() != nil {
			return
		}

		ev, err := sess.Next(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				l.Logger.Debug("socket_read_failed", "err", err)
			}
			return
		}

		if time.Since(lastHeartbeat) >= l.heartbeatEvery {
			l.Logger.Info("socket_heartbeat")
			lastHeartbeat = time.Now()
		}

		switch ev.Type {
		case EventRoomJoined:
			l.Logger.Info("socket_room_joined")
		case EventNewTask, EventEvaluate:
			l.Dispatcher.HandleJob(ctx, ev.Job, sourceLabel)
		default:
			l.Logger.Debug("socket_event_ignored", "type", string(ev.Type))
		}
	}
}

// maybeAlertDisconnected fires the disconnect alert once either threshold
// is crossed, and reports whether it did so Run knows a matching Resolve
// is owed on reconnect. It may fire again on later failed attempts within
// the same incident (PagerDuty's dedup_key coalesces those into the same
// underlying alert), but Run only ever sends one Resolve per incident
// regardless of how many Trigger calls preceded it.
func (l *Listener) maybeAlertDisconnected(ctx context.Context, since time.Time, failedAttempts int) bool {
	if failedAttempts == failedAttemptsAlertThreshold || time.Since(since) >= disconnectAlertThreshold {
		l.Alert.Trigger(ctx, dedupKeyDisconnect, "seller socket has been disconnected", "critical")
		return true
	}
	return false
}

func nextReconnectDelay(d time.Duration) time.Duration {
	next := time.Duration(float64(d) * reconnectFactor)
	if next > maxReconnectDelay {
		next = maxReconnectDelay
	}
	return next
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
