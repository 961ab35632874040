package chat

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/puzzleplan-backend/internal/domain"
	"github.com/yungbote/puzzleplan-backend/internal/platform/dbctx"
	"github.com/yungbote/puzzleplan-backend/internal/platform/logger"
)

type ConversationRepo interface {
	Create(dbc dbctx.Context, rows []*types.Conversation) ([]*types.Conversation, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Conversation, error)
	ListByProject(dbc dbctx.Context, projectID uuid.UUID) ([]*types.Conversation, error)
	ListIDsByProjectIDs(dbc dbctx.Context, projectIDs []uuid.UUID) ([]uuid.UUID, error)
	Touch(dbc dbctx.Context, id uuid.UUID) error
	DeleteByProjectIDs(dbc dbctx.Context, projectIDs []uuid.UUID) error
}

type conversationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConversationRepo(db *gorm.DB, log *logger.Logger) ConversationRepo {
	return &conversationRepo{db: db, log: log.With("repo", "ConversationRepo")}
}

func (r *conversationRepo) Create(dbc dbctx.Context, rows []*types.Conversation) ([]*types.Conversation, error) {
	if len(rows) == 0 {
		return []*types.Conversation{}, nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		if row.UpdatedAt.IsZero() {
			row.UpdatedAt = now
		}
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *conversationRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Conversation, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	var out []*types.Conversation
	if err := dbc.DB(r.db).
		Where("id = ?", id).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *conversationRepo) ListByProject(dbc dbctx.Context, projectID uuid.UUID) ([]*types.Conversation, error) {
	if projectID == uuid.Nil {
		return nil, fmt.Errorf("missing project_id")
	}
	var out []*types.Conversation
	if err := dbc.DB(r.db).
		Where("project_id = ?", projectID).
		Order("updated_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *conversationRepo) ListIDsByProjectIDs(dbc dbctx.Context, projectIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(projectIDs) == 0 {
		return []uuid.UUID{}, nil
	}
	var rows []*types.Conversation
	if err := dbc.DB(r.db).
		Select("id").
		Where("project_id IN ?", projectIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ID)
	}
	return out, nil
}

func (r *conversationRepo) Touch(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	return dbc.DB(r.db).
		Model(&types.Conversation{}).
		Where("id = ?", id).
		Update("updated_at", time.Now().UTC()).Error
}

func (r *conversationRepo) DeleteByProjectIDs(dbc dbctx.Context, projectIDs []uuid.UUID) error {
	if len(projectIDs) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Where("project_id IN ?", projectIDs).
		Delete(&types.Conversation{}).Error
}
