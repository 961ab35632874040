package chat

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is a chat attached to a project and optionally one piece.
type Conversation struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID  `gorm:"type:uuid;not null;index" json:"project_id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	PieceID   *uuid.UUID `gorm:"type:uuid;column:piece_id;index" json:"piece_id,omitempty"`
	PieceType *string    `gorm:"column:piece_type" json:"piece_type,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}

func (Conversation) TableName() string { return "conversation" }
