package domain

import "context"

// TaskStore is durable, owner-scoped task storage. Every operation takes the
// acting user's id and must treat a task owned by anyone else exactly like a
// missing one (ErrNotFound) so ownership is never probeable.
type TaskStore interface {
	CreateTask(ctx context.Context, t Task) (*Task, error)
	GetTask(ctx context.Context, userID, taskID int64) (*Task, error)
	ListTasks(ctx context.Context, userID int64, f TaskFilter) ([]Task, error)
	UpdateTask(ctx context.Context, userID, taskID int64, patch TaskPatch) (*Task, error)
	DeleteTask(ctx context.Context, userID, taskID int64) error
	SearchTasks(ctx context.Context, userID int64, query string, limit int) ([]Task, error)

	// CompleteTask marks a pending task completed and, when successor is
	// non-nil, creates it in the same transaction. Completing an
	// already-completed task fails with ErrAlreadyCompleted.
	CompleteTask(ctx context.Context, userID, taskID int64, successor *Task) (*Task, *Task, error)
}

// ConversationStore is durable conversation and message storage. The message
// log is append-only per conversation.
type ConversationStore interface {
	CreateConversation(ctx context.Context, userID int64) (*Conversation, error)
	GetConversation(ctx context.Context, id int64) (*Conversation, error)
	ListConversations(ctx context.Context, userID int64, limit int) ([]ConversationSummary, error)

	AppendMessage(ctx context.Context, msg MessageRecord) (*MessageRecord, error)
	RecentMessages(ctx context.Context, convID int64, limit int) ([]MessageRecord, error)
	ListMessages(ctx context.Context, convID int64) ([]MessageRecord, error)
}
