package planning

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/puzzleplan-backend/internal/domain"
	"github.com/yungbote/puzzleplan-backend/internal/platform/dbctx"
	"github.com/yungbote/puzzleplan-backend/internal/platform/logger"
)

type ProjectRepo interface {
	Create(dbc dbctx.Context, rows []*types.Project) ([]*types.Project, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Project, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Project, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Project, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type projectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectRepo(db *gorm.DB, log *logger.Logger) ProjectRepo {
	return &projectRepo{db: db, log: log.With("repo", "ProjectRepo")}
}

func (r *projectRepo) Create(dbc dbctx.Context, rows []*types.Project) ([]*types.Project, error) {
	if len(rows) == 0 {
		return []*types.Project{}, nil
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

// GetByID returns nil, nil when the project does not exist.
func (r *projectRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Project, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	var out []*types.Project
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

func (r *projectRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Project, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	var out []*types.Project
	if err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *projectRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Project, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	if dbc.Tx == nil {
		return nil, fmt.Errorf("LockByID required dbc.Tx")
	}
	var out types.Project
	if err := dbc.Tx.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *projectRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["updated_at"] = time.Now().UTC()
	return dbc.DB(r.db).
		Model(&types.Project{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *projectRepo) DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Where("id IN ?", ids).
		Delete(&types.Project{}).Error
}
