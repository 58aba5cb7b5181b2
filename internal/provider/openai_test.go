package provider

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todobot/internal/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAI(OpenAIConfig{
		APIKey:  "test-key",
		APIBase: srv.URL,
		Model:   "test-model",
		Client:  srv.Client(),
		Logger:  quietLogger(),
	})
}

func TestChatDecodesToolCalls(t *testing.T) {
	var captured oaiRequest
	engine := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		resp := map[string]any{
			"choices": []map[string]any{{
				"finish_reason": "tool_calls",
				"message": map[string]any{
					"role":    "assistant",
					"content": "",
					"tool_calls": []map[string]any{{
						"id":   "call_abc",
						"type": "function",
						"function": map[string]any{
							"name":      "add_task",
							"arguments": `{"title":"buy milk"}`,
						},
					}},
				},
			}},
		}
		json.NewEncoder(w).Encode(resp)
	})

	out, err := engine.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{
			{Role: "system", Content: "you manage tasks"},
			{Role: "user", Content: "remind me to buy milk"},
		},
		Tools: []domain.ToolDefinition{{Name: "add_task", Description: "d", Parameters: map[string]any{"type": "object"}}},
	})
	require.NoError(t, err)

	assert.Equal(t, "test-model", captured.Model)
	require.Len(t, captured.Tools, 1)
	assert.Equal(t, "add_task", captured.Tools[0].Function.Name)

	assert.Equal(t, "tool_calls", out.FinishReason)
	require.True(t, out.HasToolCalls())
	assert.Equal(t, "call_abc", out.ToolCalls[0].ID)
	assert.Equal(t, "add_task", out.ToolCalls[0].Name)
	assert.Equal(t, "buy milk", out.ToolCalls[0].Arguments["title"])
}

func TestChatSynthesizesMissingCallID(t *testing.T) {
	engine := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"choices": []map[string]any{{
				"finish_reason": "tool_calls",
				"message": map[string]any{
					"role": "assistant",
					"tool_calls": []map[string]any{{
						"type":     "function",
						"function": map[string]any{"name": "list_tasks", "arguments": "{}"},
					}},
				},
			}},
		}
		json.NewEncoder(w).Encode(resp)
	})

	out, err := engine.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{{Role: "user", Content: "show my tasks"}},
	})
	require.NoError(t, err)
	require.True(t, out.HasToolCalls())
	assert.NotEmpty(t, out.ToolCalls[0].ID)
}

func TestChatRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	engine := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
			return
		}
		resp := map[string]any{
			"choices": []map[string]any{{
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "done"},
			}},
		}
		json.NewEncoder(w).Encode(resp)
	})

	out, err := engine.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "done", out.Content)
	assert.Equal(t, int32(2), calls.Load())
}

func TestChatDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	engine := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	})

	_, err := engine.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHealthy(t *testing.T) {
	engine := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	})
	assert.NoError(t, engine.Healthy(context.Background()))

	bad := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	assert.Error(t, bad.Healthy(context.Background()))
}
