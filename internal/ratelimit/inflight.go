// Package ratelimit is the optional cross-process mirror of the in-process
// ledger.Ledger in-flight set (internal/ledger). It exists so that running
// more than one seller replica against the same wallet does not double-issue
// accept/deliver calls for the same job id. Disabled when no Redis URL is
// configured; every call here is best-effort and callers fall back to the
// in-process ledger alone on error.
//
// Uses one SETNX key per job (with a TTL) and DEL to release, rather than
// a counter, so a seller releasing twice can never corrupt the guard.
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// guardMember is the fixed value stored under each job key; the key's
// existence (via SETNX + TTL) is what matters, not its value.
const guardMember = "1"

// Guard is a cross-process stage guard backed by Redis. A nil *Guard (or a
// Guard wrapping a nil client) is valid and treats every claim as granted —
// this is how the feature stays optional per ACP_REDIS_URL.
type Guard struct {
	rc  *redis.Client
	ttl time.Duration
}

// New builds a Guard. Pass a nil client to get a permissive no-op guard.
func New(rc *redis.Client, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Guard{rc: rc, ttl: ttl}
}

// Claim attempts to record jobID as "stage in flight cluster-wide". It
// returns true when the claim was granted (or the guard is disabled);
// false means another replica is already processing this job.
func (g *Guard) Claim(ctx context.Context, jobID int64) (bool, error) {
	if g == nil || g.rc == nil {
		return true, nil
	}
	ok, err := g.rc.SetNX(ctx, guardKey(jobID), guardMember, g.ttl).Result()
	if err != nil {
		return true, err
	}
	return ok, nil
}

// Release clears the cross-process claim for jobID. Safe to call even if
// Claim was never called or already expired.
func (g *Guard) Release(ctx context.Context, jobID int64) error {
	if g == nil || g.rc == nil {
		return nil
	}
	return g.rc.Del(ctx, guardKey(jobID)).Err()
}

// ReapStaleEntries is a defensive sweep that is a no-op today because
// every guard key already carries a TTL — Redis itself reaps stale
// entries. It is kept
// as an explicit extension point: a future multi-datacenter deployment that
// needs an audited reclaim pass (rather than silent TTL expiry) has
// somewhere to add it without touching callers.
func (g *Guard) ReapStaleEntries(ctx context.Context) error {
	return nil
}
