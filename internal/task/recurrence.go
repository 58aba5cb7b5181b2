// Package task holds the pure task-domain logic that does not touch storage,
// chiefly the recurrence engine deciding when a completed repeating task
// materializes its next occurrence.
package task

import (
	"fmt"
	"time"

	"todobot/internal/domain"
)

// DateLayout is the ISO calendar-date layout used for due dates.
const DateLayout = "2006-01-02"

// ShortMonthPolicy decides what monthly recurrence does in months shorter
// than the recurrence day.
type ShortMonthPolicy string

const (
	// PolicyClamp lands on the month's last day (day 31 in February becomes
	// the 28th or 29th).
	PolicyClamp ShortMonthPolicy = "clamp"
	// PolicySkip advances to the next month that actually has the day.
	PolicySkip ShortMonthPolicy = "skip"
)

// ParsePolicy validates a policy string, defaulting empty to clamp.
func ParsePolicy(s string) (ShortMonthPolicy, error) {
	switch ShortMonthPolicy(s) {
	case "":
		return PolicyClamp, nil
	case PolicyClamp, PolicySkip:
		return ShortMonthPolicy(s), nil
	}
	return "", fmt.Errorf("unknown short-month policy %q", s)
}

// NextOccurrence computes the due date of the next occurrence of a recurring
// task, strictly after current.
//
// daily: one day forward. weekly: the next date whose weekday equals day
// (1=Monday..7=Sunday), at least one day forward. monthly: the earliest date
// after current whose day-of-month equals day, with short months resolved by
// the policy.
func NextOccurrence(pattern domain.Recurrence, day int, current time.Time, policy ShortMonthPolicy) (time.Time, error) {
	current = truncateToDate(current)

	switch pattern {
	case domain.RecurDaily:
		return current.AddDate(0, 0, 1), nil

	case domain.RecurWeekly:
		if day < 1 || day > 7 {
			return time.Time{}, fmt.Errorf("weekly recurrence day must be 1-7, got %d", day)
		}
		// 7 means Sunday, which time.Weekday numbers as 0.
		target := time.Weekday(day % 7)
		next := current.AddDate(0, 0, 1)
		for next.Weekday() != target {
			next = next.AddDate(0, 0, 1)
		}
		return next, nil

	case domain.RecurMonthly:
		if day < 1 || day > 31 {
			return time.Time{}, fmt.Errorf("monthly recurrence day must be 1-31, got %d", day)
		}
		// Walk forward month by month, starting with the current one: a due
		// date early in a month still gets that month's occurrence.
		for i := 0; i < 48; i++ {
			first := time.Date(current.Year(), current.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, i, 0)
			d := day
			if last := daysInMonth(first.Year(), first.Month()); d > last {
				if policy == PolicySkip {
					continue
				}
				d = last
			}
			candidate := time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
			if candidate.After(current) {
				return candidate, nil
			}
		}
		return time.Time{}, fmt.Errorf("no month with day %d within horizon", day)

	default:
		return time.Time{}, fmt.Errorf("unknown recurrence pattern %q", pattern)
	}
}

// NextDueDate is NextOccurrence over ISO date strings, as stored on tasks.
func NextDueDate(pattern domain.Recurrence, day int, currentDue string, policy ShortMonthPolicy) (string, error) {
	cur, err := time.ParseInLocation(DateLayout, currentDue, time.UTC)
	if err != nil {
		return "", fmt.Errorf("parse due date %q: %w", currentDue, err)
	}
	next, err := NextOccurrence(pattern, day, cur, policy)
	if err != nil {
		return "", err
	}
	return next.Format(DateLayout), nil
}

// Successor builds the next occurrence of a completed recurring task: same
// title, description, priority, tags, and recurrence, a freshly computed due
// date, and completed reset to false. Returns nil for non-recurring tasks
// and for recurring tasks without a due date to advance from.
func Successor(t *domain.Task, policy ShortMonthPolicy, now time.Time) (*domain.Task, error) {
	if t.Recurrence == "" {
		return nil, nil
	}

	due := t.DueDate
	if due == "" {
		// No anchor to advance from; recur from the completion date instead.
		due = truncateToDate(now).Format(DateLayout)
	}
	nextDue, err := NextDueDate(t.Recurrence, t.RecurrenceDay, due, policy)
	if err != nil {
		return nil, err
	}

	tags := make([]string, len(t.Tags))
	copy(tags, t.Tags)

	return &domain.Task{
		UserID:        t.UserID,
		Title:         t.Title,
		Description:   t.Description,
		Priority:      t.Priority,
		Tags:          tags,
		DueDate:       nextDue,
		DueTime:       t.DueTime,
		Recurrence:    t.Recurrence,
		RecurrenceDay: t.RecurrenceDay,
	}, nil
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
