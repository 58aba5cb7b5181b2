// Package tool declares the fixed set of task operations the language engine
// may request, validates their arguments, and executes them against the task
// store. Results and failures are normalized into envelopes; a tool failure
// never escapes as a Go error.
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"todobot/internal/domain"
	"todobot/internal/metrics"
	"todobot/internal/task"
)

// Name identifies one of the six callable operations. The set is closed:
// adding an operation means adding a constant here and a case in Dispatch,
// a compile-visible change rather than a runtime string match.
type Name string

const (
	NameAdd      Name = "add_task"
	NameList     Name = "list_tasks"
	NameComplete Name = "complete_task"
	NameUpdate   Name = "update_task"
	NameDelete   Name = "delete_task"
	NameSearch   Name = "search_tasks"
)

// Names lists every registered tool name, in declaration order.
func Names() []Name {
	return []Name{NameAdd, NameList, NameComplete, NameUpdate, NameDelete, NameSearch}
}

// ParseName reports whether s names a registered tool.
func ParseName(s string) (Name, bool) {
	switch Name(s) {
	case NameAdd, NameList, NameComplete, NameUpdate, NameDelete, NameSearch:
		return Name(s), true
	}
	return "", false
}

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Envelope is the uniform result of one tool invocation. It is echoed to the
// engine and to the caller but never persisted verbatim.
type Envelope struct {
	Tool    Name           `json:"tool"`
	Status  Status         `json:"status"`
	Result  map[string]any `json:"result,omitempty"`
	Message string         `json:"message,omitempty"`
}

// JSON renders the envelope for the engine's follow-up turn.
func (e Envelope) JSON() string {
	data, err := json.Marshal(e)
	if err != nil {
		return `{"status":"error","message":"unencodable tool result"}`
	}
	return string(data)
}

func success(tool Name, result map[string]any) Envelope {
	return Envelope{Tool: tool, Status: StatusSuccess, Result: result}
}

func failure(tool Name, msg string) Envelope {
	return Envelope{Tool: tool, Status: StatusError, Message: msg}
}

// Registry executes the closed tool set against the task store.
type Registry struct {
	tasks   domain.TaskStore
	policy  task.ShortMonthPolicy
	logger  *slog.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

type Config struct {
	Tasks   domain.TaskStore
	Policy  task.ShortMonthPolicy
	Logger  *slog.Logger
	Metrics *metrics.Collector // optional
	Now     func() time.Time   // optional, for tests
}

func NewRegistry(cfg Config) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Policy == "" {
		cfg.Policy = task.PolicyClamp
	}
	return &Registry{
		tasks:   cfg.Tasks,
		policy:  cfg.Policy,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		now:     cfg.Now,
	}
}

// Dispatch validates and executes a single requested tool call on behalf of
// userID. The user identity always comes from the authenticated request,
// never from the engine's arguments. Unknown names and schema violations
// yield error envelopes without touching storage.
func (r *Registry) Dispatch(ctx context.Context, userID int64, call domain.ToolCall) Envelope {
	name, ok := ParseName(call.Name)
	if !ok {
		// Defensive path: a correct engine only requests declared tools.
		r.logger.Warn("unknown tool requested", "tool", call.Name, "user", userID)
		env := Envelope{Tool: Name(call.Name), Status: StatusError, Message: "unknown tool: " + call.Name}
		r.record(env)
		return env
	}

	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}

	var env Envelope
	switch name {
	case NameAdd:
		env = r.runAdd(ctx, userID, args)
	case NameList:
		env = r.runList(ctx, userID, args)
	case NameComplete:
		env = r.runComplete(ctx, userID, args)
	case NameUpdate:
		env = r.runUpdate(ctx, userID, args)
	case NameDelete:
		env = r.runDelete(ctx, userID, args)
	case NameSearch:
		env = r.runSearch(ctx, userID, args)
	}

	if env.Status == StatusError {
		r.logger.Info("tool returned error", "tool", name, "user", userID, "message", env.Message)
	}
	r.record(env)
	return env
}

// Definitions returns the schemas handed to the engine.
func (r *Registry) Definitions() []domain.ToolDefinition {
	return toolDefinitions()
}

func (r *Registry) record(env Envelope) {
	r.metrics.Inc("todobot_tool_invocations_total",
		metrics.Label{Name: "tool", Value: string(env.Tool)},
		metrics.Label{Name: "status", Value: string(env.Status)})
}

// domainFailure maps store-level errors onto envelopes. Domain conditions
// get precise messages the engine can explain conversationally; anything
// else stays an opaque internal failure.
func (r *Registry) domainFailure(tool Name, err error) Envelope {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return failure(tool, "task not found")
	case errors.Is(err, domain.ErrAlreadyCompleted):
		return failure(tool, "task is already completed")
	default:
		r.logger.Error("tool execution failed", "tool", tool, "error", err)
		return failure(tool, "internal error executing "+string(tool))
	}
}
