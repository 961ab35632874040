package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/puzzleplan-backend/internal/platform/apierr"
	"github.com/yungbote/puzzleplan-backend/internal/platform/ctxutil"
)

const (
	codeProjectNotFound      = "project_not_found"
	codePieceNotFound        = "piece_not_found"
	codeConversationNotFound = "conversation_not_found"
	codeInvalidPieceType     = "invalid_piece_type"
	codeInvalidRequest       = "invalid_request"
)

func requireCaller(ctx context.Context) (uuid.UUID, error) {
	userID := ctxutil.CallerID(ctx)
	if userID == uuid.Nil {
		return uuid.Nil, apierr.Unauthorized("not authenticated")
	}
	return userID, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
