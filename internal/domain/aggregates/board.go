package aggregates

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/puzzleplan-backend/internal/domain/planning"
)

var BoardAggregateContract = Contract{
	Name:       "Planning.Board",
	ReadPolicy: ReadPolicyInvariantScoped,
	Ops:        []string{"CreateProject", "OpenPiece", "CompletePiece", "SaveDraft", "DeleteProject"},
}

// BoardAggregate owns every write that changes piece status.
//
// Failures are *Error with codes CodeValidation, CodeNotFound,
// CodePreconditionFailed, CodeConflict, CodeRetryable or CodeInternal.
// A piece the caller does not own is reported as CodeNotFound.
type BoardAggregate interface {
	Aggregate

	// CreateProject inserts a project together with its five pieces.
	CreateProject(ctx context.Context, in CreateProjectInput) (CreateProjectResult, error)

	// OpenPiece moves an available piece to in_progress. In-progress and
	// complete pieces are returned unchanged; locked pieces are not found.
	OpenPiece(ctx context.Context, in OpenPieceInput) (OpenPieceResult, error)

	// CompletePiece stores the summary, marks the piece complete and unlocks
	// every piece whose prerequisites are now complete.
	CompletePiece(ctx context.Context, in CompletePieceInput) (CompletePieceResult, error)

	// SaveDraft stores structured draft content on an in-progress piece.
	SaveDraft(ctx context.Context, in SaveDraftInput) (*planning.PuzzlePiece, error)

	// DeleteProject removes a project with its pieces, conversations and messages.
	DeleteProject(ctx context.Context, in DeleteProjectInput) error
}

type CreateProjectInput struct {
	UserID      uuid.UUID
	Name        string
	Description *string
}

type CreateProjectResult struct {
	Project *planning.Project
	Pieces  []*planning.PuzzlePiece
}

type OpenPieceInput struct {
	UserID  uuid.UUID
	PieceID uuid.UUID
}

type OpenPieceResult struct {
	Piece          *planning.PuzzlePiece
	PreviousStatus planning.PieceStatus
	Changed        bool
}

type CompletePieceInput struct {
	UserID  uuid.UUID
	PieceID uuid.UUID
	Summary string
}

type CompletePieceResult struct {
	Piece    *planning.PuzzlePiece
	Unlocked []*planning.PuzzlePiece
}

type SaveDraftInput struct {
	UserID  uuid.UUID
	PieceID uuid.UUID
	Content []byte
}

type DeleteProjectInput struct {
	UserID    uuid.UUID
	ProjectID uuid.UUID
}
