package planning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PieceType string

const (
	PiecePurpose    PieceType = "purpose"
	PieceCustomers  PieceType = "customers"
	PieceBoundaries PieceType = "boundaries"
	PieceFeatures   PieceType = "features"
	PieceMVP        PieceType = "mvp"
)

func (t PieceType) Valid() bool {
	_, ok := pieceMetadata[t]
	return ok
}

func (t PieceType) String() string { return string(t) }

// ParsePieceType accepts only the five known piece types.
func ParsePieceType(s string) (PieceType, bool) {
	t := PieceType(s)
	if !t.Valid() {
		return "", false
	}
	return t, true
}

type PieceStatus string

const (
	StatusLocked     PieceStatus = "locked"
	StatusAvailable  PieceStatus = "available"
	StatusInProgress PieceStatus = "in_progress"
	StatusComplete   PieceStatus = "complete"
)

func (s PieceStatus) Valid() bool {
	switch s {
	case StatusLocked, StatusAvailable, StatusInProgress, StatusComplete:
		return true
	}
	return false
}

func (s PieceStatus) String() string { return string(s) }

// PuzzlePiece is one planning artifact of a project. There is exactly one row
// per (project_id, piece_type); piece_type and project_id never change.
type PuzzlePiece struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_puzzle_piece_project_type,priority:1;index" json:"project_id"`
	PieceType PieceType   `gorm:"column:piece_type;not null;uniqueIndex:idx_puzzle_piece_project_type,priority:2;check:chk_puzzle_piece_type,piece_type IN ('purpose','customers','boundaries','features','mvp')" json:"piece_type"`
	Status    PieceStatus `gorm:"column:status;not null;index;check:chk_puzzle_piece_status,status IN ('locked','available','in_progress','complete')" json:"status"`

	Summary *string        `gorm:"column:summary" json:"summary,omitempty"`
	Content datatypes.JSON `gorm:"column:content" json:"content,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (PuzzlePiece) TableName() string { return "puzzle_piece" }

// PieceWithOwner is a piece joined with the user id that owns its project.
type PieceWithOwner struct {
	PuzzlePiece
	OwnerUserID uuid.UUID `gorm:"column:owner_user_id" json:"owner_user_id"`
}

func (p *PuzzlePiece) HasSummary() bool {
	return p != nil && p.Summary != nil && *p.Summary != ""
}

