package services

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/puzzleplan-backend/internal/domain"
	"github.com/yungbote/puzzleplan-backend/internal/realtime"
)

// BoardNotifier pushes board changes to every open session of the owner.
type BoardNotifier interface {
	ProjectCreated(ctx context.Context, userID uuid.UUID, project *types.Project, pieces []*types.PuzzlePiece)
	ProjectUpdated(ctx context.Context, userID uuid.UUID, project *types.Project)
	ProjectDeleted(ctx context.Context, userID uuid.UUID, projectID uuid.UUID)
	PieceStatusChanged(ctx context.Context, userID uuid.UUID, piece *types.PuzzlePiece, previous types.PieceStatus)
	PieceContentUpdated(ctx context.Context, userID uuid.UUID, piece *types.PuzzlePiece)
}

type boardNotifier struct {
	emit SSEEmitter
}

func NewBoardNotifier(emit SSEEmitter) BoardNotifier {
	return &boardNotifier{emit: emit}
}

func (n *boardNotifier) send(ctx context.Context, userID uuid.UUID, event realtime.SSEEvent, data map[string]any) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.WithoutCancel(ctx), realtime.SSEMessage{
		Channel: realtime.UserChannel(userID.String()),
		Event:   event,
		Data:    data,
	})
}

func (n *boardNotifier) ProjectCreated(ctx context.Context, userID uuid.UUID, project *types.Project, pieces []*types.PuzzlePiece) {
	n.send(ctx, userID, realtime.SSEEventProjectCreated, map[string]any{
		"project": project,
		"pieces":  pieces,
	})
}

func (n *boardNotifier) ProjectUpdated(ctx context.Context, userID uuid.UUID, project *types.Project) {
	n.send(ctx, userID, realtime.SSEEventProjectUpdated, map[string]any{"project": project})
}

func (n *boardNotifier) ProjectDeleted(ctx context.Context, userID uuid.UUID, projectID uuid.UUID) {
	n.send(ctx, userID, realtime.SSEEventProjectDeleted, map[string]any{"project_id": projectID})
}

func (n *boardNotifier) PieceStatusChanged(ctx context.Context, userID uuid.UUID, piece *types.PuzzlePiece, previous types.PieceStatus) {
	if piece == nil {
		return
	}
	n.send(ctx, userID, realtime.SSEEventPieceStatusChanged, map[string]any{
		"project_id":      piece.ProjectID,
		"piece_id":        piece.ID,
		"piece_type":      piece.PieceType,
		"status":          piece.Status,
		"previous_status": previous,
	})
}

func (n *boardNotifier) PieceContentUpdated(ctx context.Context, userID uuid.UUID, piece *types.PuzzlePiece) {
	if piece == nil {
		return
	}
	n.send(ctx, userID, realtime.SSEEventPieceContentUpdated, map[string]any{
		"project_id": piece.ProjectID,
		"piece_id":   piece.ID,
		"piece_type": piece.PieceType,
	})
}
