package socket

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/acp-seller/internal/alert"
)

type fakeSession struct {
	events chan Event
	closed bool
}

func (s *fakeSession) Next(ctx context.Context) (Event, error) {
	select {
	case ev, ok := <-s.events:
		if !ok {
			return Event{}, errors.New("connection dropped")
		}
		return ev, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeTransport struct {
	mu       sync.Mutex
	sessions []*fakeSession
	next     int
	failFor  int // Connect fails this many times before succeeding
}

func (t *fakeTransport) Connect(ctx context.Context) (Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failFor > 0 {
		t.failFor--
		return nil, errors.New("connect refused")
	}
	if t.next >= len(t.sessions) {
		return nil, io.EOF
	}
	s := t.sessions[t.next]
	t.next++
	return s, nil
}

type recordingDispatcher struct {
	mu   sync.Mutex
	jobs []map[string]any
}

func (d *recordingDispatcher) HandleJob(ctx context.Context, raw map[string]any, source string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, raw)
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.jobs)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestListenerDispatchesNewTaskAndEvaluateEvents(t *testing.T) {
	sess := &fakeSession{events: make(chan Event, 4)}
	sess.events <- Event{Type: EventRoomJoined}
	sess.events <- Event{Type: EventNewTask, Job: map[string]any{"id": 1}}
	sess.events <- Event{Type: EventEvaluate, Job: map[string]any{"id": 2}}
	close(sess.events)

	transport := &fakeTransport{sessions: []*fakeSession{sess}}
	d := &recordingDispatcher{}
	alertClient := alert.New("", "test", testLogger())
	l := New(transport, d, alertClient, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	l.Run(ctx)

	assert.Equal(t, 2, d.count())
}

func TestListenerReconnectsAfterConnectFailures(t *testing.T) {
	sess := &fakeSession{events: make(chan Event)}
	close(sess.events)

	transport := &fakeTransport{sessions: []*fakeSession{sess}, failFor: 2}
	d := &recordingDispatcher{}
	alertClient := alert.New("", "test", testLogger())
	l := New(transport, d, alertClient, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	// Give it time to burn through the two failures (1s + 2s backoff) and
	// connect on the third attempt, then cancel.
	time.Sleep(3500 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop after cancel")
	}

	transport.mu.Lock()
	defer transport.mu.Unlock()
	assert.Equal(t, 1, transport.next, "the third connect attempt should have handed out the session")
}

// TestReconnectFailureTriggersThenResolvesAlert covers §4.F's "resolve iff
// a trigger was previously sent" invariant: a burst of failed connects
// crossing failedAttemptsAlertThreshold fires exactly one trigger, and the
// eventual successful reconnect fires exactly one matching resolve.
func TestReconnectFailureTriggersThenResolvesAlert(t *testing.T) {
	var mu sync.Mutex
	var actions []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			EventAction string `json:"event_action"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		actions = append(actions, body.EventAction)
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	alertClient := alert.New("routing-key", "test", testLogger())
	alertClient.HTTPClient = server.Client()
	alertClient.EventsURL = server.URL

	// This session never sends an event or closes, so once connected the
	// listener simply blocks in readLoop until ctx is canceled — no further
	// reconnect attempts (and no further trigger/resolve pairs) to race
	// against the assertions below.
	sess := &fakeSession{events: make(chan Event)}
	transport := &fakeTransport{sessions: []*fakeSession{sess}, failFor: failedAttemptsAlertThreshold}
	d := &recordingDispatcher{}
	l := New(transport, d, alertClient, testLogger())

	// The three failed attempts sleep 1s + 2s + 4s of backoff before the
	// fourth attempt connects; give the run loop enough wall-clock to get
	// there before canceling.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	time.Sleep(8 * time.Second)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, actions, 2)
	assert.Equal(t, "trigger", actions[0])
	assert.Equal(t, "resolve", actions[1])
}

func TestNextReconnectDelayCapsAtMax(t *testing.T) {
	d := maxReconnectDelay / 2
	for i := 0; i < 10; i++ {
		d = nextReconnectDelay(d)
	}
	assert.Equal(t, maxReconnectDelay, d)
}
