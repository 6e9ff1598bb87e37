package normalize

import "github.com/yourorg/acp-seller/internal/domain"

// FindMemoByNextPhase returns the first memo (in order) whose normalized
// next_phase equals phase, or nil when none match.
func FindMemoByNextPhase(memos []domain.Memo, phase domain.Phase) *domain.Memo {
	for i := range memos {
		if memos[i].NextPhaseOK && memos[i].NextPhase == phase {
			return &memos[i]
		}
	}
	return nil
}

// HasMemoWithNextPhase reports whether any memo targets phase.
func HasMemoWithNextPhase(memos []domain.Memo, phase domain.Phase) bool {
	return FindMemoByNextPhase(memos, phase) != nil
}
