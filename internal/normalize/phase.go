// Package normalize canonicalizes the protocol's schema-tolerant payloads:
// phases and memo targets that arrive as either numbers or strings, and the
// offering name / service requirements that buyers express across several
// payload shapes and protocol versions. Every exported function here is
// total — invalid input yields an "absent" result, never an error.
package normalize

import (
	"math"
	"strconv"
	"strings"

	"github.com/yourorg/acp-seller/internal/domain"
)

var phaseNames = map[string]domain.Phase{
	"REQUEST":     domain.PhaseRequest,
	"NEGOTIATION": domain.PhaseNegotiation,
	"TRANSACTION": domain.PhaseTransaction,
	"EVALUATION":  domain.PhaseEvaluation,
	"COMPLETED":   domain.PhaseCompleted,
	"REJECTED":    domain.PhaseRejected,
	"EXPIRED":     domain.PhaseExpired,
}

// Phase normalizes v into a domain.Phase. v may be an integer 0..6, a
// numeric string ("0".."6"), or a symbolic string (case-insensitive). Any
// other shape returns (PhaseUnknown, false).
func Phase(v any) (domain.Phase, bool) {
	switch t := v.(type) {
	case nil:
		return domain.PhaseUnknown, false
	case domain.Phase:
		if t >= domain.PhaseRequest && t <= domain.PhaseExpired {
			return t, true
		}
		return domain.PhaseUnknown, false
	case int:
		return phaseFromInt(t)
	case int32:
		return phaseFromInt(int(t))
	case int64:
		return phaseFromInt(int(t))
	case float32:
		if float64(t) != math.Trunc(float64(t)) {
			return domain.PhaseUnknown, false
		}
		return phaseFromInt(int(t))
	case float64:
		if t != math.Trunc(t) {
			return domain.PhaseUnknown, false
		}
		return phaseFromInt(int(t))
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return domain.PhaseUnknown, false
		}
		if n, err := strconv.Atoi(s); err == nil {
			return phaseFromInt(n)
		}
		if p, ok := phaseNames[strings.ToUpper(s)]; ok {
			return p, true
		}
		return domain.PhaseUnknown, false
	default:
		return domain.PhaseUnknown, false
	}
}

func phaseFromInt(n int) (domain.Phase, bool) {
	if n < 0 || n > 6 {
		return domain.PhaseUnknown, false
	}
	return domain.Phase(n), true
}

// PhaseLabel returns the canonical symbolic label for v, or "unknown" when
// v cannot be normalized.
func PhaseLabel(v any) string {
	p, ok := Phase(v)
	if !ok {
		return "unknown"
	}
	return p.String()
}
