package puzzle

import (
	"errors"
	"fmt"

	"github.com/yungbote/puzzleplan-backend/internal/domain/planning"
)

var ErrInvalidTransition = errors.New("invalid piece transition")

var allowedTransitions = map[planning.PieceStatus]planning.PieceStatus{
	planning.StatusLocked:     planning.StatusAvailable,
	planning.StatusAvailable:  planning.StatusInProgress,
	planning.StatusInProgress: planning.StatusComplete,
}

// CheckTransition reports whether a piece may move from one status to another.
// Status only moves forward one step; complete is terminal.
func CheckTransition(from, to planning.PieceStatus) error {
	if next, ok := allowedTransitions[from]; ok && next == to {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// SourceStatus returns the only status from which a piece may enter to.
func SourceStatus(to planning.PieceStatus) (planning.PieceStatus, bool) {
	for from, next := range allowedTransitions {
		if next == to {
			return from, true
		}
	}
	return "", false
}
