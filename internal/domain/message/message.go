package message

import (
	"time"

	"github.com/google/uuid"
)

// ===============================================
// Message Types
// ===============================================

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Known reports whether the role is one the engine understands.
// Unknown roles are excluded from context assembly rather than
// silently included.
func (r Role) Known() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Status tracks delivery state of a persisted message.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusFailed    Status = "failed"
	StatusDeleted   Status = "deleted"
)

// ===============================================
// Message Structure
// ===============================================

// Message is a single conversation turn. Content is immutable once
// created; only Status and Reactions may change afterwards. Soft
// deletion is expressed through StatusDeleted, never by removing the
// row from the store.
type Message struct {
	ID             string            `json:"id"`
	ConversationID string            `json:"conversation_id"`
	Role           Role              `json:"role"`
	Content        string            `json:"content"`
	CreatedAt      time.Time         `json:"created_at"`
	Status         Status            `json:"status"`
	Reactions      map[string]string `json:"reactions,omitempty"` // user id -> reaction kind
}

// New creates a message with a fresh public ID and sent status.
func New(conversationID string, role Role, content string) *Message {
	return &Message{
		ID:             "msg_" + uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
		Status:         StatusSent,
		Reactions:      map[string]string{},
	}
}

// IsDeleted reports whether the message has been soft-deleted.
func (m *Message) IsDeleted() bool {
	return m.Status == StatusDeleted
}

// ReactionCount returns the number of reactions attached to the message.
func (m *Message) ReactionCount() int {
	return len(m.Reactions)
}
