package normalize

import (
	"encoding/json"
	"strings"

	"github.com/yourorg/acp-seller/internal/domain"
)

// reservedRequirementKeys are the top-level negotiation-memo fields that are
// never themselves part of the service requirements, used as the last-resort
// fallback in ResolveServiceRequirements.
var reservedRequirementKeys = map[string]struct{}{
	"name":               {},
	"offeringName":       {},
	"offering":           {},
	"requirement":        {},
	"requirements":       {},
	"serviceRequirements": {},
	"price":              {},
	"priceValue":         {},
	"priceType":          {},
	"jobFee":             {},
	"memoToSign":         {},
}

// ResolveOfferingName resolves the logical offering name a job is targeting.
// Priority: job.context keys, then job.name, then the negotiation-memo's
// JSON content using the same key priority. Returns ("", false) when no
// source yields a non-empty name.
func ResolveOfferingName(job *domain.Job) (string, bool) {
	if name, ok := firstNonEmptyString(job.Context, "jobOfferingName", "offeringName", "offering", "name"); ok {
		return name, true
	}
	if name, ok := firstNonEmptyString(job.Raw, "name"); ok {
		return name, true
	}
	if memo := negotiationMemo(job); memo != nil {
		if obj, ok := parseJSONObject(memo.Content); ok {
			if name, ok := firstNonEmptyString(obj, "jobOfferingName", "offeringName", "offering", "name"); ok {
				return name, true
			}
		}
	}
	return "", false
}

// ResolveServiceRequirements resolves the buyer's stated requirements for a
// job. Priority: job.context map fields, then the negotiation-memo JSON's
// map fields, then the negotiation-memo JSON minus the reserved key set.
// Always returns a non-nil map, empty when nothing resolves.
func ResolveServiceRequirements(job *domain.Job) map[string]any {
	if m, ok := firstMapField(job.Context, "requirement", "requirements", "serviceRequirements"); ok {
		return m
	}
	if memo := negotiationMemo(job); memo != nil {
		if obj, ok := parseJSONObject(memo.Content); ok {
			if m, ok := firstMapField(obj, "requirement", "requirements", "serviceRequirements"); ok {
				return m
			}
			return withoutReservedKeys(obj)
		}
	}
	return map[string]any{}
}

func negotiationMemo(job *domain.Job) *domain.Memo {
	return FindMemoByNextPhase(job.Memos, domain.PhaseNegotiation)
}

func firstNonEmptyString(m map[string]any, keys ...string) (string, bool) {
	if m == nil {
		return "", false
	}
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s != "" {
			return s, true
		}
	}
	return "", false
}

func firstMapField(m map[string]any, keys ...string) (map[string]any, bool) {
	if m == nil {
		return nil, false
	}
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		if sub, ok := v.(map[string]any); ok {
			return sub, true
		}
	}
	return nil, false
}

func withoutReservedKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if _, reserved := reservedRequirementKeys[k]; reserved {
			continue
		}
		out[k] = v
	}
	return out
}

// parseJSONObject attempts to decode s as a JSON object. Memo content is
// frequently — but not always — a JSON document; non-JSON or non-object
// content simply yields (nil, false) rather than an error, since every
// normalizer function here is total.
func parseJSONObject(s string) (map[string]any, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	return obj, ok
}
