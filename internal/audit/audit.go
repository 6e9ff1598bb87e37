// Package audit is a best-effort, non-authoritative trail of stage
// attempts, written to Postgres purely for operator visibility (the
// "acp-audit history" CLI reads it back). It must never affect job
// processing: every write swallows its own error after logging it, and a
// Store built with a nil pool is a permissive no-op. When no
// ACP_DATABASE_URL is configured, cmd/acp-seller builds no Store at all and
// the stage executor skips recording for its nil *Store.
//
// Modeled as an append-only execution log: one row per stage attempt
// rather than one row per queue job attempt, since this runtime keeps
// no job row of its own to foreign-key against.
package audit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store appends stage-attempt records to Postgres.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New builds a Store. pool may be nil, in which case every Record call is
// a no-op.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	return &Store{pool: pool, logger: logger.With("component", "audit")}
}

// Record appends one stage-attempt row. stage is "accept" or "deliver";
// outcome is "ok", "rejected", or "error"; detail is a short human-readable
// note (never requirement or memo content, per the logging contract every
// other seller-facing component follows). Each attempt gets its own
// execution id, so a retried attempt for the same job/stage can still be
// told apart in the trail.
func (s *Store) Record(ctx context.Context, jobID int64, stage, outcome, detail string) {
	if s.pool == nil {
		return
	}
	executionID := uuid.New()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO stage_attempts (job_id, stage, outcome, detail, execution_id)
		VALUES ($1, $2, $3, $4, $5)`, jobID, stage, outcome, detail, executionID)
	if err != nil {
		s.logger.Warn("audit_record_failed", "job_id", jobID, "stage", stage, "execution_id", executionID, "err", err)
	}
}

// AttemptRow is one row of stage-attempt history.
type AttemptRow struct {
	ID          int64
	JobID       int64
	Stage       string
	Outcome     string
	Detail      string
	OccurredAt  string
	ExecutionID string
}

// History returns every recorded attempt for jobID, oldest first. Returns
// an empty slice (not an error) when the store is disabled.
func (s *Store) History(ctx context.Context, jobID int64) ([]AttemptRow, error) {
	if s.pool == nil {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, job_id, stage, outcome, detail, occurred_at::text, execution_id::text
		FROM stage_attempts
		WHERE job_id = $1
		ORDER BY occurred_at ASC`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AttemptRow
	for rows.Next() {
		var r AttemptRow
		if err := rows.Scan(&r.ID, &r.JobID, &r.Stage, &r.Outcome, &r.Detail, &r.OccurredAt, &r.ExecutionID); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Tail returns the most recent limit attempts across all jobs, newest
// first.
func (s *Store) Tail(ctx context.Context, limit int) ([]AttemptRow, error) {
	if s.pool == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, job_id, stage, outcome, detail, occurred_at::text, execution_id::text
		FROM stage_attempts
		ORDER BY occurred_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AttemptRow
	for rows.Next() {
		var r AttemptRow
		if err := rows.Scan(&r.ID, &r.JobID, &r.Stage, &r.Outcome, &r.Detail, &r.OccurredAt, &r.ExecutionID); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
