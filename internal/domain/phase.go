package domain

// Phase is a job's position in the ACP lifecycle. The zero value is
// PhaseRequest; use PhaseUnknown for "could not normalize".
type Phase int

const (
	PhaseUnknown     Phase = -1
	PhaseRequest     Phase = 0
	PhaseNegotiation Phase = 1
	PhaseTransaction Phase = 2
	PhaseEvaluation  Phase = 3
	PhaseCompleted   Phase = 4
	PhaseRejected    Phase = 5
	PhaseExpired     Phase = 6
)

// Terminal reports whether a job in this phase can no longer be acted on.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseCompleted, PhaseRejected, PhaseExpired:
		return true
	default:
		return false
	}
}

func (p Phase) String() string {
	switch p {
	case PhaseRequest:
		return "REQUEST"
	case PhaseNegotiation:
		return "NEGOTIATION"
	case PhaseTransaction:
		return "TRANSACTION"
	case PhaseEvaluation:
		return "EVALUATION"
	case PhaseCompleted:
		return "COMPLETED"
	case PhaseRejected:
		return "REJECTED"
	case PhaseExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}
