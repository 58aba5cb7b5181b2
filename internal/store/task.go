package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"todobot/internal/domain"
)

const taskColumns = `id, user_id, title, description, completed, priority, tags,
	due_date, due_time, recurrence, recurrence_day, created_at, updated_at`

func (s *Store) CreateTask(ctx context.Context, t domain.Task) (*domain.Task, error) {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (user_id, title, description, completed, priority, tags,
		 due_date, due_time, recurrence, recurrence_day, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Title, t.Description, t.Completed, string(t.Priority), encodeTags(t.Tags),
		t.DueDate, t.DueTime, string(t.Recurrence), t.RecurrenceDay, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &t, nil
}

// GetTask loads a task owned by userID. A task owned by someone else is
// reported as not found, never as forbidden.
func (s *Store) GetTask(ctx context.Context, userID, taskID int64) (*domain.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND user_id = ?`, taskID, userID,
	)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", taskID, err)
	}
	return t, nil
}

func (s *Store) ListTasks(ctx context.Context, userID int64, f domain.TaskFilter) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ?`
	args := []any{userID}

	if f.Completed != nil {
		query += ` AND completed = ?`
		args = append(args, *f.Completed)
	}
	if f.Priority != "" {
		query += ` AND priority = ?`
		args = append(args, string(f.Priority))
	}

	query += ` ORDER BY completed ASC, due_date = '', due_date ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks, err := collectTasks(rows)
	if err != nil {
		return nil, err
	}

	// Tag filtering happens after decode; tags live in a JSON column.
	if f.Tag != "" {
		filtered := tasks[:0]
		for _, t := range tasks {
			for _, tag := range t.Tags {
				if strings.EqualFold(tag, f.Tag) {
					filtered = append(filtered, t)
					break
				}
			}
		}
		tasks = filtered
	}
	return tasks, nil
}

func (s *Store) UpdateTask(ctx context.Context, userID, taskID int64, patch domain.TaskPatch) (*domain.Task, error) {
	t, err := s.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.Tags != nil {
		t.Tags = *patch.Tags
	}
	if patch.DueDate != nil {
		t.DueDate = *patch.DueDate
	}
	if patch.DueTime != nil {
		t.DueTime = *patch.DueTime
	}
	if patch.Recurrence != nil {
		t.Recurrence = *patch.Recurrence
	}
	if patch.RecurrenceDay != nil {
		t.RecurrenceDay = *patch.RecurrenceDay
	}
	t.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		`UPDATE tasks SET title=?, description=?, priority=?, tags=?, due_date=?,
		 due_time=?, recurrence=?, recurrence_day=?, updated_at=?
		 WHERE id=? AND user_id=?`,
		t.Title, t.Description, string(t.Priority), encodeTags(t.Tags), t.DueDate,
		t.DueTime, string(t.Recurrence), t.RecurrenceDay, t.UpdatedAt,
		taskID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update task %d: %w", taskID, err)
	}
	return t, nil
}

func (s *Store) DeleteTask(ctx context.Context, userID, taskID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = ? AND user_id = ?`, taskID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", taskID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task %d: %w", taskID, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) SearchTasks(ctx context.Context, userID int64, query string, limit int) ([]domain.Task, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE user_id = ? AND (title LIKE ? OR description LIKE ?)
		 ORDER BY completed ASC, id ASC LIMIT ?`,
		userID, pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search tasks: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

// CompleteTask marks a pending task completed and inserts its successor, when
// given, in one transaction. The guard on completed = 0 makes a concurrent
// double-completion lose cleanly instead of materializing two successors.
func (s *Store) CompleteTask(ctx context.Context, userID, taskID int64, successor *domain.Task) (*domain.Task, *domain.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("complete task %d: %w", taskID, err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE tasks SET completed = 1, updated_at = ? WHERE id = ? AND user_id = ? AND completed = 0`,
		now, taskID, userID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("complete task %d: %w", taskID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, nil, fmt.Errorf("complete task %d: %w", taskID, err)
	}
	if n == 0 {
		// Missing, foreign, or already completed; look once to tell the
		// caller which.
		var completed bool
		err := tx.QueryRowContext(ctx,
			`SELECT completed FROM tasks WHERE id = ? AND user_id = ?`, taskID, userID,
		).Scan(&completed)
		if err == sql.ErrNoRows {
			return nil, nil, domain.ErrNotFound
		}
		if err != nil {
			return nil, nil, fmt.Errorf("complete task %d: %w", taskID, err)
		}
		return nil, nil, domain.ErrAlreadyCompleted
	}

	row := tx.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND user_id = ?`, taskID, userID,
	)
	completed, err := scanTask(row)
	if err != nil {
		return nil, nil, fmt.Errorf("complete task %d: %w", taskID, err)
	}

	var created *domain.Task
	if successor != nil {
		successor.CreatedAt = now
		successor.UpdatedAt = now
		res, err := tx.ExecContext(ctx,
			`INSERT INTO tasks (user_id, title, description, completed, priority, tags,
			 due_date, due_time, recurrence, recurrence_day, created_at, updated_at)
			 VALUES (?, ?, ?, 0, ?, ?, ?, ?, ?, ?, ?, ?)`,
			successor.UserID, successor.Title, successor.Description, string(successor.Priority),
			encodeTags(successor.Tags), successor.DueDate, successor.DueTime,
			string(successor.Recurrence), successor.RecurrenceDay, now, now,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("create next occurrence: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, nil, fmt.Errorf("create next occurrence: %w", err)
		}
		c := *successor
		c.ID = id
		created = &c
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("complete task %d: %w", taskID, err)
	}
	return completed, created, nil
}

// --- scanning helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var t domain.Task
	var priority, recurrence, tags string
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed,
		&priority, &tags, &t.DueDate, &t.DueTime, &recurrence, &t.RecurrenceDay,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Priority = domain.Priority(priority)
	t.Recurrence = domain.Recurrence(recurrence)
	t.Tags = decodeTags(tags)
	return &t, nil
}

func collectTasks(rows *sql.Rows) ([]domain.Task, error) {
	var tasks []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func encodeTags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeTags(s string) []string {
	if s == "" || s == "[]" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(s), &tags); err != nil {
		return nil
	}
	return tags
}
