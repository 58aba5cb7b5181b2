package tool

import (
	"context"
	"fmt"

	"todobot/internal/domain"
	"todobot/internal/task"
)

const (
	maxTags       = 30
	maxTagLength  = 50
	maxSearchHits = 100
)

// --- tool schemas ---

type param struct {
	Type        string
	Description string
	Enum        []string
	Items       string // element type when Type is "array"
}

// schema builds a JSON Schema "parameters" object for a tool.
func schema(properties map[string]param, required []string) map[string]any {
	props := make(map[string]any, len(properties))
	for name, p := range properties {
		entry := map[string]any{"type": p.Type, "description": p.Description}
		if len(p.Enum) > 0 {
			entry["enum"] = p.Enum
		}
		if p.Items != "" {
			entry["items"] = map[string]any{"type": p.Items}
		}
		props[name] = entry
	}
	out := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

var taskFieldParams = map[string]param{
	"title":          {Type: "string", Description: "Short task title"},
	"description":    {Type: "string", Description: "Longer free-form details"},
	"priority":       {Type: "string", Description: "Task priority", Enum: []string{"high", "medium", "low"}},
	"tags":           {Type: "array", Description: "Short labels attached to the task", Items: "string"},
	"due_date":       {Type: "string", Description: "Due date as YYYY-MM-DD"},
	"due_time":       {Type: "string", Description: "Due time as HH:MM; requires due_date"},
	"recurrence":     {Type: "string", Description: "Repetition rule", Enum: []string{"daily", "weekly", "monthly"}},
	"recurrence_day": {Type: "integer", Description: "Weekday 1-7 (Mon-Sun) for weekly, day of month 1-31 for monthly"},
}

func toolDefinitions() []domain.ToolDefinition {
	withTaskID := func(extra map[string]param) map[string]param {
		props := map[string]param{
			"task_id": {Type: "integer", Description: "Identifier of an existing task"},
		}
		for k, v := range extra {
			props[k] = v
		}
		return props
	}

	return []domain.ToolDefinition{
		{
			Name:        string(NameAdd),
			Description: "Create a new task for the user.",
			Parameters:  schema(taskFieldParams, []string{"title"}),
		},
		{
			Name:        string(NameList),
			Description: "List the user's tasks, optionally filtered.",
			Parameters: schema(map[string]param{
				"completed": {Type: "boolean", Description: "Only completed (true) or only pending (false) tasks"},
				"priority":  {Type: "string", Description: "Only tasks with this priority", Enum: []string{"high", "medium", "low"}},
				"tag":       {Type: "string", Description: "Only tasks carrying this tag"},
			}, nil),
		},
		{
			Name:        string(NameComplete),
			Description: "Mark a task as completed. A recurring task gets its next occurrence created automatically.",
			Parameters:  schema(withTaskID(nil), []string{"task_id"}),
		},
		{
			Name:        string(NameUpdate),
			Description: "Change fields of an existing task. Only provided fields change; null clears a field.",
			Parameters:  schema(withTaskID(taskFieldParams), []string{"task_id"}),
		},
		{
			Name:        string(NameDelete),
			Description: "Delete a task permanently.",
			Parameters:  schema(withTaskID(nil), []string{"task_id"}),
		},
		{
			Name:        string(NameSearch),
			Description: "Search the user's tasks by words in the title or description.",
			Parameters: schema(map[string]param{
				"query": {Type: "string", Description: "Search terms"},
				"limit": {Type: "integer", Description: "Maximum number of results"},
			}, []string{"query"}),
		},
	}
}

// --- executors ---

func (r *Registry) runAdd(ctx context.Context, userID int64, args map[string]any) Envelope {
	t := domain.Task{UserID: userID}

	title, err := requiredString(args, "title")
	if err != nil {
		return failure(NameAdd, err.Error())
	}
	t.Title = title

	if desc, present, err := stringArg(args, "description"); err != nil {
		return failure(NameAdd, err.Error())
	} else if present {
		t.Description = desc
	}
	if p, present, err := stringArg(args, "priority"); err != nil {
		return failure(NameAdd, err.Error())
	} else if present {
		prio, ok := domain.ParsePriority(p)
		if !ok {
			return failure(NameAdd, fmt.Sprintf("priority must be one of high, medium, low; got %q", p))
		}
		t.Priority = prio
	}
	if tags, present, err := stringListArg(args, "tags"); err != nil {
		return failure(NameAdd, err.Error())
	} else if present {
		t.Tags = tags
	}
	if d, present, err := stringArg(args, "due_date"); err != nil {
		return failure(NameAdd, err.Error())
	} else if present {
		t.DueDate = d
	}
	if tm, present, err := stringArg(args, "due_time"); err != nil {
		return failure(NameAdd, err.Error())
	} else if present {
		t.DueTime = tm
	}
	if rec, present, err := stringArg(args, "recurrence"); err != nil {
		return failure(NameAdd, err.Error())
	} else if present {
		recurrence, ok := domain.ParseRecurrence(rec)
		if !ok {
			return failure(NameAdd, fmt.Sprintf("recurrence must be one of daily, weekly, monthly; got %q", rec))
		}
		t.Recurrence = recurrence
	}
	if day, present, err := intArg(args, "recurrence_day"); err != nil {
		return failure(NameAdd, err.Error())
	} else if present {
		t.RecurrenceDay = int(day)
	}

	if err := validateTaskFields(&t); err != nil {
		return failure(NameAdd, err.Error())
	}

	created, err := r.tasks.CreateTask(ctx, t)
	if err != nil {
		return r.domainFailure(NameAdd, err)
	}
	return success(NameAdd, map[string]any{"task": created})
}

func (r *Registry) runList(ctx context.Context, userID int64, args map[string]any) Envelope {
	var f domain.TaskFilter

	if completed, present, err := boolArg(args, "completed"); err != nil {
		return failure(NameList, err.Error())
	} else if present {
		f.Completed = &completed
	}
	if p, present, err := stringArg(args, "priority"); err != nil {
		return failure(NameList, err.Error())
	} else if present {
		prio, ok := domain.ParsePriority(p)
		if !ok {
			return failure(NameList, fmt.Sprintf("priority must be one of high, medium, low; got %q", p))
		}
		f.Priority = prio
	}
	if tag, present, err := stringArg(args, "tag"); err != nil {
		return failure(NameList, err.Error())
	} else if present {
		f.Tag = tag
	}

	tasks, err := r.tasks.ListTasks(ctx, userID, f)
	if err != nil {
		return r.domainFailure(NameList, err)
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return success(NameList, map[string]any{"tasks": tasks, "count": len(tasks)})
}

func (r *Registry) runComplete(ctx context.Context, userID int64, args map[string]any) Envelope {
	taskID, err := requiredInt(args, "task_id")
	if err != nil {
		return failure(NameComplete, err.Error())
	}

	current, err := r.tasks.GetTask(ctx, userID, taskID)
	if err != nil {
		return r.domainFailure(NameComplete, err)
	}
	if current.Completed {
		return failure(NameComplete, "task is already completed")
	}

	successor, err := task.Successor(current, r.policy, r.now())
	if err != nil {
		return r.domainFailure(NameComplete, err)
	}

	completed, created, err := r.tasks.CompleteTask(ctx, userID, taskID, successor)
	if err != nil {
		return r.domainFailure(NameComplete, err)
	}

	result := map[string]any{"task": completed}
	if created != nil {
		result["next_occurrence"] = created
	}
	return success(NameComplete, result)
}

func (r *Registry) runUpdate(ctx context.Context, userID int64, args map[string]any) Envelope {
	taskID, err := requiredInt(args, "task_id")
	if err != nil {
		return failure(NameUpdate, err.Error())
	}

	current, err := r.tasks.GetTask(ctx, userID, taskID)
	if err != nil {
		return r.domainFailure(NameUpdate, err)
	}

	patch, err := buildPatch(args)
	if err != nil {
		return failure(NameUpdate, err.Error())
	}
	if patch.Empty() {
		return failure(NameUpdate, "no fields to update")
	}

	// Validate the post-update shape of the task, not just the patch: a
	// due_time is only meaningful together with a due date, wherever either
	// comes from.
	merged := *current
	applyPatch(&merged, patch)
	if err := validateTaskFields(&merged); err != nil {
		return failure(NameUpdate, err.Error())
	}

	updated, err := r.tasks.UpdateTask(ctx, userID, taskID, patch)
	if err != nil {
		return r.domainFailure(NameUpdate, err)
	}
	return success(NameUpdate, map[string]any{"task": updated})
}

func (r *Registry) runDelete(ctx context.Context, userID int64, args map[string]any) Envelope {
	taskID, err := requiredInt(args, "task_id")
	if err != nil {
		return failure(NameDelete, err.Error())
	}
	if err := r.tasks.DeleteTask(ctx, userID, taskID); err != nil {
		return r.domainFailure(NameDelete, err)
	}
	return success(NameDelete, map[string]any{"deleted_id": taskID})
}

func (r *Registry) runSearch(ctx context.Context, userID int64, args map[string]any) Envelope {
	query, err := requiredString(args, "query")
	if err != nil {
		return failure(NameSearch, err.Error())
	}
	limit := int64(20)
	if n, present, err := intArg(args, "limit"); err != nil {
		return failure(NameSearch, err.Error())
	} else if present {
		if n < 1 || n > maxSearchHits {
			return failure(NameSearch, fmt.Sprintf("limit must be between 1 and %d", maxSearchHits))
		}
		limit = n
	}

	tasks, err := r.tasks.SearchTasks(ctx, userID, query, int(limit))
	if err != nil {
		return r.domainFailure(NameSearch, err)
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return success(NameSearch, map[string]any{"tasks": tasks, "count": len(tasks)})
}

// --- field validation and patching ---

// validateTaskFields enforces the invariants every stored task satisfies,
// whether it arrives via add or via update.
func validateTaskFields(t *domain.Task) error {
	if t.Title == "" {
		return argErrorf("title must not be empty")
	}
	if len(t.Title) > domain.MaxTitleLength {
		return argErrorf("title must be at most %d characters", domain.MaxTitleLength)
	}
	if len(t.Description) > domain.MaxDescriptionLength {
		return argErrorf("description must be at most %d characters", domain.MaxDescriptionLength)
	}
	if len(t.Tags) > maxTags {
		return argErrorf("at most %d tags are allowed", maxTags)
	}
	for _, tag := range t.Tags {
		if tag == "" || len(tag) > maxTagLength {
			return argErrorf("tags must be non-empty and at most %d characters", maxTagLength)
		}
	}
	if t.DueDate != "" && !validDate(t.DueDate) {
		return argErrorf("due_date must be formatted YYYY-MM-DD")
	}
	if t.DueTime != "" {
		if !validClock(t.DueTime) {
			return argErrorf("due_time must be formatted HH:MM")
		}
		if t.DueDate == "" {
			return argErrorf("due_time requires a due_date")
		}
	}

	switch t.Recurrence {
	case "":
		if t.RecurrenceDay != 0 {
			return argErrorf("recurrence_day requires a recurrence pattern")
		}
	case domain.RecurDaily:
		if t.RecurrenceDay != 0 {
			return argErrorf("recurrence_day is not used with daily recurrence")
		}
	case domain.RecurWeekly:
		if t.RecurrenceDay < 1 || t.RecurrenceDay > 7 {
			return argErrorf("weekly recurrence needs recurrence_day between 1 (Monday) and 7 (Sunday)")
		}
	case domain.RecurMonthly:
		if t.RecurrenceDay < 1 || t.RecurrenceDay > 31 {
			return argErrorf("monthly recurrence needs recurrence_day between 1 and 31")
		}
	}
	return nil
}

// buildPatch reads updatable fields from args. A key that is present with a
// JSON null clears the field; an absent key leaves it alone.
func buildPatch(args map[string]any) (domain.TaskPatch, error) {
	var p domain.TaskPatch

	explicitNull := func(key string) bool {
		raw, ok := args[key]
		return ok && raw == nil
	}
	strField := func(key string, dst **string) error {
		if explicitNull(key) {
			empty := ""
			*dst = &empty
			return nil
		}
		if s, present, err := stringArg(args, key); err != nil {
			return err
		} else if present {
			*dst = &s
		}
		return nil
	}

	if err := strField("title", &p.Title); err != nil {
		return p, err
	}
	if err := strField("description", &p.Description); err != nil {
		return p, err
	}
	if err := strField("due_date", &p.DueDate); err != nil {
		return p, err
	}
	if err := strField("due_time", &p.DueTime); err != nil {
		return p, err
	}

	if explicitNull("priority") {
		none := domain.Priority("")
		p.Priority = &none
	} else if s, present, err := stringArg(args, "priority"); err != nil {
		return p, err
	} else if present {
		prio, ok := domain.ParsePriority(s)
		if !ok {
			return p, argErrorf("priority must be one of high, medium, low; got %q", s)
		}
		p.Priority = &prio
	}

	if explicitNull("tags") {
		empty := []string{}
		p.Tags = &empty
	} else if tags, present, err := stringListArg(args, "tags"); err != nil {
		return p, err
	} else if present {
		p.Tags = &tags
	}

	if explicitNull("recurrence") {
		none := domain.Recurrence("")
		p.Recurrence = &none
		zero := 0
		p.RecurrenceDay = &zero
	} else if s, present, err := stringArg(args, "recurrence"); err != nil {
		return p, err
	} else if present {
		rec, ok := domain.ParseRecurrence(s)
		if !ok {
			return p, argErrorf("recurrence must be one of daily, weekly, monthly; got %q", s)
		}
		p.Recurrence = &rec
	}

	if explicitNull("recurrence_day") {
		zero := 0
		p.RecurrenceDay = &zero
	} else if n, present, err := intArg(args, "recurrence_day"); err != nil {
		return p, err
	} else if present {
		day := int(n)
		p.RecurrenceDay = &day
	}

	return p, nil
}

func applyPatch(t *domain.Task, p domain.TaskPatch) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Tags != nil {
		t.Tags = *p.Tags
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.DueTime != nil {
		t.DueTime = *p.DueTime
	}
	if p.Recurrence != nil {
		t.Recurrence = *p.Recurrence
	}
	if p.RecurrenceDay != nil {
		t.RecurrenceDay = *p.RecurrenceDay
	}
}
