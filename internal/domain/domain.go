package domain

import (
	"github.com/yungbote/puzzleplan-backend/internal/domain/chat"
	"github.com/yungbote/puzzleplan-backend/internal/domain/planning"
)

type PieceType = planning.PieceType
type PieceStatus = planning.PieceStatus
type PieceMetadata = planning.PieceMetadata

const (
	PiecePurpose    = planning.PiecePurpose
	PieceCustomers  = planning.PieceCustomers
	PieceBoundaries = planning.PieceBoundaries
	PieceFeatures   = planning.PieceFeatures
	PieceMVP        = planning.PieceMVP

	StatusLocked     = planning.StatusLocked
	StatusAvailable  = planning.StatusAvailable
	StatusInProgress = planning.StatusInProgress
	StatusComplete   = planning.StatusComplete
)

type Project = planning.Project
type PuzzlePiece = planning.PuzzlePiece
type PieceWithOwner = planning.PieceWithOwner

type Conversation = chat.Conversation
type Message = chat.Message

// AllModels lists every persisted model in migration order.
func AllModels() []any {
	return []any{
		&Project{},
		&PuzzlePiece{},
		&Conversation{},
		&Message{},
	}
}
