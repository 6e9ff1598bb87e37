// Package poll implements the pull-side reconciler: a ticking loop that
// asks the protocol backend for this seller's active jobs and feeds every
// page through the dispatcher, so a job the push socket missed (a dropped
// connection, a skipped event) is eventually observed anyway.
//
// Built as a context-cancelable for loop around a time.Timer, re-armed
// after each tick rather than a fixed time.Ticker, since the interval
// itself changes on success/failure.
package poll

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/acp-seller/internal/httpclient"
)

// Dispatcher is the subset of dispatch.Dispatcher the reconciler calls.
type Dispatcher interface {
	HandleJob(ctx context.Context, raw map[string]any, source string)
}

const (
	minInterval     = 2 * time.Second
	maxInterval     = 120 * time.Second
	backoffFactor   = 1.8
	sourceLabel     = "poll"
)

// Reconciler periodically lists this seller's active jobs and replays them
// through a Dispatcher.
type Reconciler struct {
	HTTP         *httpclient.Client
	Dispatcher   Dispatcher
	PageSize     int
	BaseInterval time.Duration
	Logger       *slog.Logger
}

// New builds a Reconciler. baseInterval is clamped to minInterval.
func New(http *httpclient.Client, d Dispatcher, pageSize int, baseInterval time.Duration, logger *slog.Logger) *Reconciler {
	if baseInterval < minInterval {
		baseInterval = minInterval
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Reconciler{
		HTTP:         http,
		Dispatcher:   d,
		PageSize:     pageSize,
		BaseInterval: baseInterval,
		Logger:       logger.With("component", "poll"),
	}
}

// activeJobsPage decodes the backend's two observed response shapes for
// GET /acp/jobs/active: an envelope {"data": [...]}, or a bare JSON array.
// UnmarshalJSON below picks whichever one the bytes actually are.
type activeJobsPage struct {
	Jobs []map[string]any
}

func (p *activeJobsPage) UnmarshalJSON(b []byte) error {
	var envelope struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(b, &envelope); err == nil && envelope.Data != nil {
		p.Jobs = envelope.Data
		return nil
	}
	var bare []map[string]any
	if err := json.Unmarshal(b, &bare); err != nil {
		return err
	}
	p.Jobs = bare
	return nil
}

// Run polls until ctx is canceled. It performs one catch-up poll
// immediately on entry (so a fresh process does not wait a full interval
// before seeing work already queued), then re-arms a timer after every
// poll: the interval resets to BaseInterval on success and backs off
// multiplicatively (capped at maxInterval) on failure.
func (r *Reconciler) Run(ctx context.Context) {
	interval := r.BaseInterval
	r.Logger.Info("poll_start", "interval_ms", interval.Milliseconds(), "page_size", r.PageSize)

	for {
		ok := r.pollOnce(ctx)
		if ok {
			interval = r.BaseInterval
		} else {
			interval = nextBackoff(interval)
		}

		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			r.Logger.Info("poll_stop")
			return
		case <-t.C:
		}
	}
}

func nextBackoff(interval time.Duration) time.Duration {
	next := time.Duration(float64(interval) * backoffFactor)
	if next > maxInterval {
		next = maxInterval
	}
	if next < minInterval {
		next = minInterval
	}
	return next
}

// pollOnce fetches every page of active jobs (1-indexed)
// and dispatches each one. It returns false on the first page-fetch
// failure so Run can back off; jobs already dispatched from earlier pages
// in the same call still ran. A short page (fewer rows than PageSize)
// ends the walk, since the backend never pads the final page.
func (r *Reconciler) pollOnce(ctx context.Context) bool {
	page := 1
	total := 0
	for {
		jobs, err := r.fetchPage(ctx, page)
		if err != nil {
			r.Logger.Warn("poll_page_failed", "page", page, "err", err)
			return false
		}

		for _, raw := range jobs {
			r.Dispatcher.HandleJob(ctx, raw, sourceLabel)
			total++
		}

		if len(jobs) < r.PageSize {
			break
		}
		page++
	}
	r.Logger.Debug("poll_cycle_complete", "jobs_seen", total)
	return true
}

func (r *Reconciler) fetchPage(ctx context.Context, page int) ([]map[string]any, error) {
	path := activeJobsPath(page, r.PageSize)
	var decoded activeJobsPage
	if err := r.HTTP.Do(ctx, "GET", path, nil, &decoded); err != nil {
		return nil, err
	}
	return decoded.Jobs, nil
}

func activeJobsPath(page, pageSize int) string {
	return fmt.Sprintf("/acp/jobs/active?page=%d&pageSize=%d", page, pageSize)
}
