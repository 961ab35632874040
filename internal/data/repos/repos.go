package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/puzzleplan-backend/internal/data/repos/chat"
	"github.com/yungbote/puzzleplan-backend/internal/data/repos/planning"
	"github.com/yungbote/puzzleplan-backend/internal/platform/logger"
)

type ProjectRepo = planning.ProjectRepo
type PuzzlePieceRepo = planning.PuzzlePieceRepo
type StatusUpdate = planning.StatusUpdate

type ConversationRepo = chat.ConversationRepo
type MessageRepo = chat.MessageRepo

func NewProjectRepo(db *gorm.DB, log *logger.Logger) ProjectRepo {
	return planning.NewProjectRepo(db, log)
}

func NewPuzzlePieceRepo(db *gorm.DB, log *logger.Logger) PuzzlePieceRepo {
	return planning.NewPuzzlePieceRepo(db, log)
}

func NewConversationRepo(db *gorm.DB, log *logger.Logger) ConversationRepo {
	return chat.NewConversationRepo(db, log)
}

func NewMessageRepo(db *gorm.DB, log *logger.Logger) MessageRepo {
	return chat.NewMessageRepo(db, log)
}
