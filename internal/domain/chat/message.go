package chat

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_message_conversation_seq,priority:1" json:"conversation_id"`
	Seq            int64     `gorm:"column:seq;not null;uniqueIndex:idx_message_conversation_seq,priority:2" json:"seq"`
	Role           string    `gorm:"column:role;not null" json:"role"`
	Content        string    `gorm:"column:content;not null" json:"content"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Message) TableName() string { return "message" }
