package domain

import "time"

// Priority levels a task can carry. Empty means unset.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority validates a priority string. Empty is accepted as "no priority".
func ParsePriority(s string) (Priority, bool) {
	switch Priority(s) {
	case "", PriorityHigh, PriorityMedium, PriorityLow:
		return Priority(s), true
	}
	return "", false
}

// Recurrence is the repetition rule of a recurring task. Empty means one-shot.
type Recurrence string

const (
	RecurDaily   Recurrence = "daily"
	RecurWeekly  Recurrence = "weekly"
	RecurMonthly Recurrence = "monthly"
)

// ParseRecurrence validates a recurrence string. Empty is accepted as "none".
func ParseRecurrence(s string) (Recurrence, bool) {
	switch Recurrence(s) {
	case "", RecurDaily, RecurWeekly, RecurMonthly:
		return Recurrence(s), true
	}
	return "", false
}

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
)

// Task is a single todo item owned by exactly one user.
// DueDate is an ISO date (YYYY-MM-DD), DueTime is HH:MM; both empty when unset.
// RecurrenceDay is the weekday (1=Monday..7=Sunday) for weekly recurrence and
// the day-of-month (1-31) for monthly; zero otherwise.
type Task struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Completed     bool       `json:"completed"`
	Priority      Priority   `json:"priority,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	DueDate       string     `json:"due_date,omitempty"`
	DueTime       string     `json:"due_time,omitempty"`
	Recurrence    Recurrence `json:"recurrence,omitempty"`
	RecurrenceDay int        `json:"recurrence_day,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TaskFilter narrows a task listing. Nil/zero fields match everything.
type TaskFilter struct {
	Completed *bool
	Priority  Priority
	Tag       string
}

// TaskPatch is a partial task update. Nil fields are left untouched;
// non-nil pointers to zero values clear the field.
type TaskPatch struct {
	Title         *string
	Description   *string
	Priority      *Priority
	Tags          *[]string
	DueDate       *string
	DueTime       *string
	Recurrence    *Recurrence
	RecurrenceDay *int
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.Tags == nil && p.DueDate == nil && p.DueTime == nil &&
		p.Recurrence == nil && p.RecurrenceDay == nil
}
