package domain

import "time"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Conversation is a persisted thread of messages owned by one user.
// The core never deletes conversations; UpdatedAt moves whenever a
// message is appended.
type Conversation struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConversationSummary is a conversation plus its message count, used by
// history listings.
type ConversationSummary struct {
	Conversation
	MessageCount int64 `json:"message_count"`
}

// MessageRecord is one persisted message. Records are append-only and
// immutable once written; within a conversation they are totally ordered
// by creation time. UserID is denormalized from the conversation for audit.
type MessageRecord struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	UserID         int64     `json:"user_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}
