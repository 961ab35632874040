package planning

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/puzzleplan-backend/internal/domain"
	"github.com/yungbote/puzzleplan-backend/internal/platform/dbctx"
	"github.com/yungbote/puzzleplan-backend/internal/platform/logger"
)

// StatusUpdate moves one piece to To, but only while it is still in From.
type StatusUpdate struct {
	ID   uuid.UUID
	From types.PieceStatus
	To   types.PieceStatus
}

type PuzzlePieceRepo interface {
	Create(dbc dbctx.Context, rows []*types.PuzzlePiece) ([]*types.PuzzlePiece, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.PuzzlePiece, error)
	GetWithOwner(dbc dbctx.Context, id uuid.UUID) (*types.PieceWithOwner, error)
	GetByProjectAndType(dbc dbctx.Context, projectID uuid.UUID, pieceType types.PieceType) (*types.PuzzlePiece, error)
	ListByProject(dbc dbctx.Context, projectID uuid.UUID) ([]*types.PuzzlePiece, error)
	ListCompletedWithSummary(dbc dbctx.Context, projectID uuid.UUID) ([]*types.PuzzlePiece, error)
	UpdateStatuses(dbc dbctx.Context, updates []StatusUpdate) (int64, error)
	DeleteByProjectIDs(dbc dbctx.Context, projectIDs []uuid.UUID) error
}

type puzzlePieceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPuzzlePieceRepo(db *gorm.DB, log *logger.Logger) PuzzlePieceRepo {
	return &puzzlePieceRepo{db: db, log: log.With("repo", "PuzzlePieceRepo")}
}

func (r *puzzlePieceRepo) Create(dbc dbctx.Context, rows []*types.PuzzlePiece) ([]*types.PuzzlePiece, error) {
	if len(rows) == 0 {
		return []*types.PuzzlePiece{}, nil
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

func (r *puzzlePieceRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.PuzzlePiece, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	var out []*types.PuzzlePiece
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

// GetWithOwner reads a piece together with the user that owns its project.
// It returns nil, nil when either row is missing.
func (r *puzzlePieceRepo) GetWithOwner(dbc dbctx.Context, id uuid.UUID) (*types.PieceWithOwner, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	var out []*types.PieceWithOwner
	if err := dbc.DB(r.db).
		Table("puzzle_piece").
		Select("puzzle_piece.*, project.user_id AS owner_user_id").
		Joins("JOIN project ON project.id = puzzle_piece.project_id").
		Where("puzzle_piece.id = ?", id).
		Limit(1).
		Scan(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *puzzlePieceRepo) GetByProjectAndType(dbc dbctx.Context, projectID uuid.UUID, pieceType types.PieceType) (*types.PuzzlePiece, error) {
	if projectID == uuid.Nil {
		return nil, fmt.Errorf("missing project_id")
	}
	var out []*types.PuzzlePiece
	if err := dbc.DB(r.db).
		Where("project_id = ? AND piece_type = ?", projectID, pieceType).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *puzzlePieceRepo) ListByProject(dbc dbctx.Context, projectID uuid.UUID) ([]*types.PuzzlePiece, error) {
	if projectID == uuid.Nil {
		return nil, fmt.Errorf("missing project_id")
	}
	var out []*types.PuzzlePiece
	if err := dbc.DB(r.db).
		Where("project_id = ?", projectID).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *puzzlePieceRepo) ListCompletedWithSummary(dbc dbctx.Context, projectID uuid.UUID) ([]*types.PuzzlePiece, error) {
	if projectID == uuid.Nil {
		return nil, fmt.Errorf("missing project_id")
	}
	var out []*types.PuzzlePiece
	if err := dbc.DB(r.db).
		Where("project_id = ? AND status = ? AND summary IS NOT NULL AND summary <> ''", projectID, types.StatusComplete).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatuses applies each update guarded by its expected prior status and
// returns how many rows changed. Updates sharing the same From/To pair are
// issued as one statement.
func (r *puzzlePieceRepo) UpdateStatuses(dbc dbctx.Context, updates []StatusUpdate) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	type pair struct{ from, to types.PieceStatus }
	var order []pair
	groups := map[pair][]uuid.UUID{}
	for _, u := range updates {
		if u.ID == uuid.Nil {
			return 0, fmt.Errorf("missing id in status update")
		}
		k := pair{u.From, u.To}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], u.ID)
	}

	now := time.Now().UTC()
	var total int64
	for _, k := range order {
		res := dbc.DB(r.db).
			Model(&types.PuzzlePiece{}).
			Where("id IN ? AND status = ?", groups[k], k.from).
			Updates(map[string]interface{}{
				"status":     k.to,
				"updated_at": now,
			})
		if res.Error != nil {
			return total, res.Error
		}
		total += res.RowsAffected
	}
	return total, nil
}

func (r *puzzlePieceRepo) DeleteByProjectIDs(dbc dbctx.Context, projectIDs []uuid.UUID) error {
	if len(projectIDs) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Where("project_id IN ?", projectIDs).
		Delete(&types.PuzzlePiece{}).Error
}
