// Package domain holds the seller runtime's core types: the job/memo shapes
// borrowed read-only from the protocol backend, and the offering/handler
// contract the stage executor drives.
package domain

import "time"

// Memo is a chat-like envelope attached to a job. NextPhaseOK is false when
// the memo's next_phase field could not be normalized (absent, or an
// unrecognized variant) — callers must check it before trusting NextPhase.
type Memo struct {
	ID          int64
	NextPhase   Phase
	NextPhaseOK bool
	Content     string
	MemoType    *string
	Status      *string
	CreatedAt   *time.Time
}

// Job is the unit of work. It is borrowed read-only per event; the runtime
// holds no canonical copy and never mutates it. Raw preserves the original
// decoded payload so normalizer fallbacks (offering name / requirements
// resolution from memo JSON) have the full document to work with even after
// the typed fields above have been extracted.
type Job struct {
	ID               int64
	Phase            Phase
	ClientAddress    string
	ProviderAddress  string
	EvaluatorAddress string
	Price            float64
	Memos            []Memo
	Context          map[string]any
	Deliverable      any
	MemoToSign       any
	Raw              map[string]any
}

// HasDeliverable reports whether the job's deliverable field is already
// populated (invariant 4: such jobs are treated as already-delivered).
func (j *Job) HasDeliverable() bool {
	switch v := j.Deliverable.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}
