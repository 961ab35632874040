package aggregates

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/puzzleplan-backend/internal/domain/planning"
	"github.com/yungbote/puzzleplan-backend/internal/platform/dbctx"
)

// CASGuard updates puzzle pieces only while they still hold an expected
// status. A row that moved underneath the caller is simply not matched.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

// PieceUpdate describes one guarded write. Status, when set, is the new
// status; Set carries any other columns. updated_at is always stamped.
type PieceUpdate struct {
	From   planning.PieceStatus
	Status planning.PieceStatus
	Set    map[string]any
	At     time.Time
}

func (u PieceUpdate) columns() map[string]any {
	cols := make(map[string]any, len(u.Set)+2)
	for k, v := range u.Set {
		cols[k] = v
	}
	if u.Status != "" {
		cols["status"] = u.Status
	}
	at := u.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	cols["updated_at"] = at
	return cols
}

// Piece applies u to one piece and reports whether it still matched.
func (g CASGuard) Piece(dbc dbctx.Context, id uuid.UUID, u PieceUpdate) (bool, error) {
	db := dbc.Tx
	if db == nil {
		db = g.db
	}
	if db == nil {
		return false, ValidationError("missing db for guarded piece update")
	}
	if id == uuid.Nil {
		return false, ValidationError("nil piece id in guarded update")
	}
	if !u.From.Valid() {
		return false, ValidationError("guarded update needs a valid expected status")
	}
	res := db.WithContext(dbc.Ctx).
		Model(&planning.PuzzlePiece{}).
		Where("id = ? AND status = ?", id, u.From).
		Updates(u.columns())
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RequireCASSuccess converts a lost compare-and-set into a conflict.
func RequireCASSuccess(ok bool, message string) error {
	if ok {
		return nil
	}
	return ConflictError(message)
}

// RequireStatus fails with a precondition error unless current is one of
// allowed.
func RequireStatus(current planning.PieceStatus, message string, allowed ...planning.PieceStatus) error {
	if len(allowed) == 0 {
		return ValidationError("allowed statuses cannot be empty")
	}
	for _, s := range allowed {
		if current == s {
			return nil
		}
	}
	return PreconditionError(message)
}
