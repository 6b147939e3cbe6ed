package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatRole identifies the author of a chat turn
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatTurn is one message in a user's conversation with the assistant
type ChatTurn struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"-"`
	Role      ChatRole  `json:"role"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
