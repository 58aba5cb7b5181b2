package domain

import "errors"

var (
	// ErrNotFound covers both missing and foreign-owned tasks; the two are
	// deliberately indistinguishable to callers.
	ErrNotFound = errors.New("task not found")

	ErrConversationNotFound = errors.New("conversation not found")

	// ErrForbidden means the caller's identity does not match the resource
	// owner.
	ErrForbidden = errors.New("forbidden")

	// ErrAlreadyCompleted rejects a second completion of a task; completion
	// never silently toggles.
	ErrAlreadyCompleted = errors.New("task already completed")

	// ErrInvalidMessage rejects empty or oversized chat messages before any
	// storage write.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrEngineUnavailable aborts a whole request when the language engine
	// cannot be reached; no assistant message is persisted for that turn.
	ErrEngineUnavailable = errors.New("language engine unavailable")
)
