package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todobot/internal/domain"
)

func date(s string) time.Time {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNextOccurrence_Daily(t *testing.T) {
	next, err := NextOccurrence(domain.RecurDaily, 0, date("2026-03-15"), PolicyClamp)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-16", next.Format(DateLayout))

	// Month and year boundaries roll over.
	next, err = NextOccurrence(domain.RecurDaily, 0, date("2026-12-31"), PolicyClamp)
	require.NoError(t, err)
	assert.Equal(t, "2027-01-01", next.Format(DateLayout))
}

func TestNextOccurrence_Weekly(t *testing.T) {
	// 2026-03-16 is a Monday.
	cases := []struct {
		current string
		day     int
		want    string
	}{
		{"2026-03-16", 3, "2026-03-18"}, // Monday -> Wednesday same week
		{"2026-03-16", 1, "2026-03-23"}, // Monday -> next Monday, never same day
		{"2026-03-16", 7, "2026-03-22"}, // Monday -> Sunday
		{"2026-03-21", 1, "2026-03-23"}, // Saturday -> Monday
	}
	for _, tc := range cases {
		next, err := NextOccurrence(domain.RecurWeekly, tc.day, date(tc.current), PolicyClamp)
		require.NoError(t, err)
		assert.Equal(t, tc.want, next.Format(DateLayout), "from %s day %d", tc.current, tc.day)
	}
}

func TestNextOccurrence_WeeklyRejectsBadDay(t *testing.T) {
	_, err := NextOccurrence(domain.RecurWeekly, 0, date("2026-03-16"), PolicyClamp)
	assert.Error(t, err)
	_, err = NextOccurrence(domain.RecurWeekly, 8, date("2026-03-16"), PolicyClamp)
	assert.Error(t, err)
}

func TestNextOccurrence_MonthlyClampsShortMonth(t *testing.T) {
	// 2026 is not a leap year: day 31 in February clamps to the 28th.
	next, err := NextOccurrence(domain.RecurMonthly, 31, date("2026-02-15"), PolicyClamp)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-28", next.Format(DateLayout))

	// Leap year February clamps to the 29th.
	next, err = NextOccurrence(domain.RecurMonthly, 30, date("2028-02-01"), PolicyClamp)
	require.NoError(t, err)
	assert.Equal(t, "2028-02-29", next.Format(DateLayout))
}

func TestNextOccurrence_MonthlySkipsShortMonth(t *testing.T) {
	next, err := NextOccurrence(domain.RecurMonthly, 31, date("2026-02-15"), PolicySkip)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-31", next.Format(DateLayout))
}

func TestNextOccurrence_MonthlyStrictlyAfter(t *testing.T) {
	// Due exactly on the recurrence day advances a full month.
	next, err := NextOccurrence(domain.RecurMonthly, 15, date("2026-03-15"), PolicyClamp)
	require.NoError(t, err)
	assert.Equal(t, "2026-04-15", next.Format(DateLayout))

	// Due before the recurrence day stays inside the same month.
	next, err = NextOccurrence(domain.RecurMonthly, 20, date("2026-03-15"), PolicyClamp)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-20", next.Format(DateLayout))
}

func TestNextOccurrence_UnknownPattern(t *testing.T) {
	_, err := NextOccurrence(domain.Recurrence("yearly"), 1, date("2026-03-15"), PolicyClamp)
	assert.Error(t, err)
}

func TestSuccessor_CopiesFieldsAndResetsCompletion(t *testing.T) {
	orig := &domain.Task{
		UserID:        7,
		Title:         "Water plants",
		Description:   "All of them",
		Completed:     true,
		Priority:      domain.PriorityLow,
		Tags:          []string{"home", "garden"},
		DueDate:       "2026-03-16",
		DueTime:       "09:00",
		Recurrence:    domain.RecurWeekly,
		RecurrenceDay: 1,
	}

	next, err := Successor(orig, PolicyClamp, date("2026-03-16"))
	require.NoError(t, err)
	require.NotNil(t, next)

	assert.False(t, next.Completed)
	assert.Equal(t, orig.Title, next.Title)
	assert.Equal(t, orig.Description, next.Description)
	assert.Equal(t, orig.Priority, next.Priority)
	assert.Equal(t, orig.Tags, next.Tags)
	assert.Equal(t, orig.DueTime, next.DueTime)
	assert.Equal(t, orig.Recurrence, next.Recurrence)
	assert.Equal(t, orig.RecurrenceDay, next.RecurrenceDay)
	assert.Equal(t, "2026-03-23", next.DueDate)
	assert.Zero(t, next.ID, "successor is a new record, not a clone in place")

	// Mutating the successor's tags must not touch the original.
	next.Tags[0] = "changed"
	assert.Equal(t, "home", orig.Tags[0])
}

func TestSuccessor_NonRecurringIsNil(t *testing.T) {
	next, err := Successor(&domain.Task{Title: "One-shot"}, PolicyClamp, date("2026-03-16"))
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestSuccessor_NoDueDateAnchorsOnCompletion(t *testing.T) {
	next, err := Successor(&domain.Task{
		Title:      "Standup notes",
		Recurrence: domain.RecurDaily,
	}, PolicyClamp, date("2026-03-16"))
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "2026-03-17", next.DueDate)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyClamp, p)

	p, err = ParsePolicy("skip")
	require.NoError(t, err)
	assert.Equal(t, PolicySkip, p)

	_, err = ParsePolicy("truncate")
	assert.Error(t, err)
}
