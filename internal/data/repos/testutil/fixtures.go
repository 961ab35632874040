package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/puzzleplan-backend/internal/domain"
	"github.com/yungbote/puzzleplan-backend/internal/domain/planning"
)

func SeedProject(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, name string) *types.Project {
	tb.Helper()
	now := time.Now().UTC()
	p := &types.Project{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed project: %v", err)
	}
	return p
}

// SeedBoard creates one piece per entry in statuses and returns them by type.
func SeedBoard(tb testing.TB, ctx context.Context, tx *gorm.DB, projectID uuid.UUID, statuses map[types.PieceType]types.PieceStatus) map[types.PieceType]*types.PuzzlePiece {
	tb.Helper()
	out := map[types.PieceType]*types.PuzzlePiece{}
	now := time.Now().UTC()
	for _, pt := range planning.AllPieceTypes() {
		st, ok := statuses[pt]
		if !ok {
			continue
		}
		piece := &types.PuzzlePiece{
			ID:        uuid.New(),
			ProjectID: projectID,
			PieceType: pt,
			Status:    st,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if st == types.StatusComplete {
			s := "summary of " + string(pt)
			piece.Summary = &s
		}
		if err := tx.WithContext(ctx).Create(piece).Error; err != nil {
			tb.Fatalf("seed piece %s: %v", pt, err)
		}
		out[pt] = piece
	}
	return out
}

func SeedConversation(tb testing.TB, ctx context.Context, tx *gorm.DB, projectID, userID uuid.UUID, pieceType *string) *types.Conversation {
	tb.Helper()
	now := time.Now().UTC()
	c := &types.Conversation{
		ID:        uuid.New(),
		ProjectID: projectID,
		UserID:    userID,
		PieceType: pieceType,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed conversation: %v", err)
	}
	return c
}

func PieceStatus(tb testing.TB, tx *gorm.DB, id uuid.UUID) types.PieceStatus {
	tb.Helper()
	var p types.PuzzlePiece
	if err := tx.Where("id = ?", id).Take(&p).Error; err != nil {
		tb.Fatalf("load piece %s: %v", id, err)
	}
	return p.Status
}
