// Package ledger holds the process-lifetime idempotency state described in
// the stage ledger: which jobs have already been accepted or
// delivered, and which job ids currently have a stage in flight. It is
// deliberately not persisted — the remote backend stays the source of
// truth across restarts; the remote backend stays authoritative.
//
// The in-flight set is the in-process counterpart of internal/ratelimit's
// cross-process per-job claim keys in Redis: here a mutex-guarded map,
// since this layer needs only synchronization primitives, not
// cross-process state.
package ledger

import "sync"

// Stage records which side-effect bundles have already run for a job.
type Stage struct {
	Accepted  bool
	Delivered bool
}

// Ledger is the process-wide idempotency map plus in-flight set.
type Ledger struct {
	mu       sync.Mutex
	stages   map[int64]Stage
	inFlight map[int64]struct{}
}

// New creates an empty Ledger.
func New() *Ledger {
	return &Ledger{
		stages:   make(map[int64]Stage),
		inFlight: make(map[int64]struct{}),
	}
}

// TryEnter attempts to mark jobID in flight. It returns false if the job
// already has a stage executing — the caller must drop the event silently
// (spec invariant 1: at most one concurrent stage per jobId).
func (l *Ledger) TryEnter(jobID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.inFlight[jobID]; busy {
		return false
	}
	l.inFlight[jobID] = struct{}{}
	return true
}

// Leave removes jobID from the in-flight set. Safe to call even if the job
// was never entered.
func (l *Ledger) Leave(jobID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inFlight, jobID)
}

// Stage returns the current ledger entry for jobID (zero value if none).
func (l *Ledger) Stage(jobID int64) Stage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stages[jobID]
}

// MarkAccepted sets the accepted flag for jobID, preserving Delivered.
func (l *Ledger) MarkAccepted(jobID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.stages[jobID]
	s.Accepted = true
	l.stages[jobID] = s
}

// MarkDelivered sets the delivered flag for jobID, preserving Accepted.
func (l *Ledger) MarkDelivered(jobID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.stages[jobID]
	s.Delivered = true
	l.stages[jobID] = s
}
