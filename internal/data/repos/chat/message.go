package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/puzzleplan-backend/internal/domain"
	domainchat "github.com/yungbote/puzzleplan-backend/internal/domain/chat"
	"github.com/yungbote/puzzleplan-backend/internal/platform/dbctx"
	"github.com/yungbote/puzzleplan-backend/internal/platform/logger"
)

type MessageRepo interface {
	Append(dbc dbctx.Context, conversationID uuid.UUID, role, content string) (*types.Message, error)
	ListByConversation(dbc dbctx.Context, conversationID uuid.UUID, limit int) ([]*types.Message, error)
	DeleteByConversationIDs(dbc dbctx.Context, conversationIDs []uuid.UUID) error
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, log *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: log.With("repo", "MessageRepo")}
}

// Append stores a message at the next seq of its conversation. Two concurrent
// appends on the same conversation collide on the (conversation_id, seq)
// unique index rather than interleaving silently.
func (r *messageRepo) Append(dbc dbctx.Context, conversationID uuid.UUID, role, content string) (*types.Message, error) {
	if conversationID == uuid.Nil {
		return nil, fmt.Errorf("missing conversation_id")
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if !domainchat.ValidRole(role) {
		return nil, fmt.Errorf("invalid role %q", role)
	}
	txx := dbc.DB(r.db)

	var maxSeq int64
	if err := txx.
		Model(&types.Message{}).
		Where("conversation_id = ?", conversationID).
		Select("COALESCE(MAX(seq), 0)").
		Row().
		Scan(&maxSeq); err != nil {
		return nil, err
	}

	msg := &types.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Seq:            maxSeq + 1,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	if err := txx.Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *messageRepo) ListByConversation(dbc dbctx.Context, conversationID uuid.UUID, limit int) ([]*types.Message, error) {
	if conversationID == uuid.Nil {
		return nil, fmt.Errorf("missing conversation_id")
	}
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	var out []*types.Message
	if err := dbc.DB(r.db).
		Where("conversation_id = ?", conversationID).
		Order("seq ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) DeleteByConversationIDs(dbc dbctx.Context, conversationIDs []uuid.UUID) error {
	if len(conversationIDs) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Where("conversation_id IN ?", conversationIDs).
		Delete(&types.Message{}).Error
}
