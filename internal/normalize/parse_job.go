package normalize

import (
	"time"

	"github.com/yourorg/acp-seller/internal/domain"
)

// ParseJob builds a domain.Job from a raw decoded JSON payload (as produced
// by the socket listener or the poll reconciler). It never returns an
// error: malformed sub-fields are simply dropped, since every caller
// ultimately re-checks the pieces it cares about (job id, phase, provider
// address) and drops the event itself when those are missing.
func ParseJob(raw map[string]any) *domain.Job {
	job := &domain.Job{Raw: raw}

	if id, ok := JobID(raw["id"]); ok {
		job.ID = id
	}
	if p, ok := Phase(raw["phase"]); ok {
		job.Phase = p
	} else {
		job.Phase = domain.PhaseUnknown
	}

	job.ClientAddress = stringField(raw, "clientAddress")
	job.ProviderAddress = stringField(raw, "providerAddress")
	job.EvaluatorAddress = stringField(raw, "evaluatorAddress")

	if price, ok := raw["price"].(float64); ok {
		job.Price = price
	}

	if ctx, ok := raw["context"].(map[string]any); ok {
		job.Context = ctx
	}

	job.Deliverable = raw["deliverable"]
	job.MemoToSign = raw["memoToSign"]

	if rawMemos, ok := raw["memos"].([]any); ok {
		job.Memos = make([]domain.Memo, 0, len(rawMemos))
		for _, rm := range rawMemos {
			mm, ok := rm.(map[string]any)
			if !ok {
				continue
			}
			job.Memos = append(job.Memos, parseMemo(mm))
		}
	}

	return job
}

func parseMemo(m map[string]any) domain.Memo {
	memo := domain.Memo{}
	if id, ok := JobID(m["id"]); ok {
		memo.ID = id
	}
	if p, ok := Phase(m["nextPhase"]); ok {
		memo.NextPhase = p
		memo.NextPhaseOK = true
	}
	memo.Content = stringField(m, "content")
	if v := stringField(m, "memoType"); v != "" {
		memo.MemoType = &v
	}
	if v := stringField(m, "status"); v != "" {
		memo.Status = &v
	}
	if v := stringField(m, "createdAt"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			memo.CreatedAt = &t
		}
	}
	return memo
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}
