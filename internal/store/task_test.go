package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todobot/internal/domain"
)

func mustCreateTask(t *testing.T, s *Store, task domain.Task) *domain.Task {
	t.Helper()
	created, err := s.CreateTask(context.Background(), task)
	require.NoError(t, err)
	return created
}

func TestTask_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := mustCreateTask(t, s, domain.Task{
		UserID:   1,
		Title:    "Buy milk",
		Priority: domain.PriorityHigh,
		Tags:     []string{"errand", "home"},
		DueDate:  "2026-09-05",
		DueTime:  "18:30",
	})
	assert.NotZero(t, created.ID)

	got, err := s.GetTask(ctx, 1, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", got.Title)
	assert.Equal(t, domain.PriorityHigh, got.Priority)
	assert.Equal(t, []string{"errand", "home"}, got.Tags)
	assert.Equal(t, "2026-09-05", got.DueDate)
	assert.Equal(t, "18:30", got.DueTime)
	assert.False(t, got.Completed)
}

func TestTask_ForeignOwnerLooksMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := mustCreateTask(t, s, domain.Task{UserID: 1, Title: "Mine"})

	_, err := s.GetTask(ctx, 2, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = s.DeleteTask(ctx, 2, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.UpdateTask(ctx, 2, created.ID, domain.TaskPatch{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, _, err = s.CompleteTask(ctx, 2, created.ID, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// And the task is untouched.
	got, err := s.GetTask(ctx, 1, created.ID)
	require.NoError(t, err)
	assert.False(t, got.Completed)
}

func TestTask_ListFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreateTask(t, s, domain.Task{UserID: 1, Title: "High", Priority: domain.PriorityHigh})
	mustCreateTask(t, s, domain.Task{UserID: 1, Title: "Tagged", Tags: []string{"work"}})
	done := mustCreateTask(t, s, domain.Task{UserID: 1, Title: "Done"})
	mustCreateTask(t, s, domain.Task{UserID: 2, Title: "Foreign"})

	_, _, err := s.CompleteTask(ctx, 1, done.ID, nil)
	require.NoError(t, err)

	all, err := s.ListTasks(ctx, 1, domain.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	pending := false
	open, err := s.ListTasks(ctx, 1, domain.TaskFilter{Completed: &pending})
	require.NoError(t, err)
	assert.Len(t, open, 2)

	high, err := s.ListTasks(ctx, 1, domain.TaskFilter{Priority: domain.PriorityHigh})
	require.NoError(t, err)
	require.Len(t, high, 1)
	assert.Equal(t, "High", high[0].Title)

	tagged, err := s.ListTasks(ctx, 1, domain.TaskFilter{Tag: "WORK"})
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, "Tagged", tagged[0].Title)
}

func TestTask_UpdatePartial(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := mustCreateTask(t, s, domain.Task{
		UserID: 1, Title: "Old title", Description: "keep me",
		Priority: domain.PriorityLow,
	})

	newTitle := "New title"
	noPriority := domain.Priority("")
	updated, err := s.UpdateTask(ctx, 1, created.ID, domain.TaskPatch{
		Title:    &newTitle,
		Priority: &noPriority,
	})
	require.NoError(t, err)
	assert.Equal(t, "New title", updated.Title)
	assert.Equal(t, "keep me", updated.Description, "untouched fields stay")
	assert.Empty(t, updated.Priority, "explicit zero clears the field")

	got, err := s.GetTask(ctx, 1, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "New title", got.Title)
}

func TestTask_Search(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreateTask(t, s, domain.Task{UserID: 1, Title: "Buy milk"})
	mustCreateTask(t, s, domain.Task{UserID: 1, Title: "Call mom", Description: "about milk delivery"})
	mustCreateTask(t, s, domain.Task{UserID: 1, Title: "Unrelated"})
	mustCreateTask(t, s, domain.Task{UserID: 2, Title: "milk for someone else"})

	found, err := s.SearchTasks(ctx, 1, "milk", 10)
	require.NoError(t, err)
	assert.Len(t, found, 2, "matches title or description, own tasks only")
}

func TestCompleteTask_RejectsDoubleCompletion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := mustCreateTask(t, s, domain.Task{UserID: 1, Title: "Once"})

	completed, successor, err := s.CompleteTask(ctx, 1, created.ID, nil)
	require.NoError(t, err)
	assert.True(t, completed.Completed)
	assert.Nil(t, successor)

	_, _, err = s.CompleteTask(ctx, 1, created.ID, nil)
	assert.ErrorIs(t, err, domain.ErrAlreadyCompleted)
}

func TestCompleteTask_CreatesSuccessorAtomically(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := mustCreateTask(t, s, domain.Task{
		UserID: 1, Title: "Water plants", Tags: []string{"home"},
		DueDate: "2026-03-16", Recurrence: domain.RecurWeekly, RecurrenceDay: 1,
	})

	next := &domain.Task{
		UserID: 1, Title: "Water plants", Tags: []string{"home"},
		DueDate: "2026-03-23", Recurrence: domain.RecurWeekly, RecurrenceDay: 1,
	}
	completed, successor, err := s.CompleteTask(ctx, 1, created.ID, next)
	require.NoError(t, err)
	assert.True(t, completed.Completed)
	require.NotNil(t, successor)
	assert.NotZero(t, successor.ID)
	assert.NotEqual(t, created.ID, successor.ID, "new record, not a clone in place")

	got, err := s.GetTask(ctx, 1, successor.ID)
	require.NoError(t, err)
	assert.False(t, got.Completed)
	assert.Equal(t, "2026-03-23", got.DueDate)
	assert.Equal(t, []string{"home"}, got.Tags)
}
