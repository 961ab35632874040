package puzzle

import (
	"github.com/google/uuid"

	"github.com/yungbote/puzzleplan-backend/internal/domain/planning"
)

// PieceState is the slice of a piece row the engine needs.
type PieceState struct {
	ID     uuid.UUID
	Type   planning.PieceType
	Status planning.PieceStatus
}

// ComputeUnlocks returns the ids of locked pieces whose prerequisites are all
// complete once justCompletedID is treated as complete. The result follows
// metadata order and is never nil.
func ComputeUnlocks(pieces []PieceState, justCompletedID uuid.UUID) []uuid.UUID {
	snapshot := make(map[planning.PieceType]PieceState, len(pieces))
	for _, p := range pieces {
		if p.ID == justCompletedID {
			p.Status = planning.StatusComplete
		}
		snapshot[p.Type] = p
	}

	out := []uuid.UUID{}
	for _, t := range planning.AllPieceTypes() {
		p, ok := snapshot[t]
		if !ok || p.Status != planning.StatusLocked {
			continue
		}
		if prerequisitesComplete(t, snapshot) {
			out = append(out, p.ID)
		}
	}
	return out
}

// A prerequisite with no row in the snapshot counts as incomplete.
func prerequisitesComplete(t planning.PieceType, snapshot map[planning.PieceType]PieceState) bool {
	for _, pre := range planning.Prerequisites(t) {
		p, ok := snapshot[pre]
		if !ok || p.Status != planning.StatusComplete {
			return false
		}
	}
	return true
}

// InitialStatus is the status a piece gets at project creation: the unlock
// rule evaluated against a board where nothing is complete.
func InitialStatus(t planning.PieceType) planning.PieceStatus {
	if prerequisitesComplete(t, nil) {
		return planning.StatusAvailable
	}
	return planning.StatusLocked
}

// InitialStates returns InitialStatus for every piece type.
func InitialStates() map[planning.PieceType]planning.PieceStatus {
	out := make(map[planning.PieceType]planning.PieceStatus, 5)
	for _, t := range planning.AllPieceTypes() {
		out[t] = InitialStatus(t)
	}
	return out
}
