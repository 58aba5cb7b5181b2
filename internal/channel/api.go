// Package channel exposes the chat gateway over HTTP. Every task-affecting
// route sits under /api/users/{user_id}/ and requires a bearer token whose
// subject matches the user in the path.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"todobot/internal/agent"
	"todobot/internal/auth"
	"todobot/internal/domain"
	"todobot/internal/metrics"
)

const maxBodySize = 1 << 20 // 1MB

// ChatService is what the HTTP layer needs from the conversational core.
type ChatService interface {
	HandleChat(ctx context.Context, userID, conversationID int64, text string) (*agent.ChatResult, error)
}

// API is the HTTP front of the gateway.
type API struct {
	addr          string
	chat          ChatService
	conversations domain.ConversationStore
	verifier      *auth.Verifier
	logger        *slog.Logger
	metrics       *metrics.Collector
	metricsPath   string // empty disables the endpoint
	server        *http.Server
}

type APIConfig struct {
	Addr          string
	Chat          ChatService
	Conversations domain.ConversationStore
	Verifier      *auth.Verifier
	Logger        *slog.Logger
	Metrics       *metrics.Collector // optional
	MetricsPath   string             // optional
}

func NewAPI(cfg APIConfig) *API {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &API{
		addr:          cfg.Addr,
		chat:          cfg.Chat,
		conversations: cfg.Conversations,
		verifier:      cfg.Verifier,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
		metricsPath:   cfg.MetricsPath,
	}
}

// Handler builds the route table. Exposed separately from Start so tests
// can drive it with httptest.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/users/{user_id}/chat", a.authed(a.handleChat))
	mux.HandleFunc("GET /api/users/{user_id}/conversations", a.authed(a.handleListConversations))
	mux.HandleFunc("GET /api/users/{user_id}/conversations/{conversation_id}/messages", a.authed(a.handleListMessages))
	mux.HandleFunc("GET /status", a.handleStatus)
	if a.metricsPath != "" {
		mux.HandleFunc("GET "+a.metricsPath, a.metrics.Handler())
	}
	return a.withRequestID(mux)
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (a *API) Start(ctx context.Context) error {
	a.server = &http.Server{
		Addr:              a.addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      150 * time.Second, // engine turns can be slow
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.server.Shutdown(shutdownCtx)
	}()

	a.logger.Info("http api listening", "addr", a.addr)
	if err := a.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// --- middleware ---

// statusRecorder remembers the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (a *API) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", reqID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		a.logger.Info("request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"request_id", reqID,
			"duration", time.Since(start),
		)
		a.metrics.Inc("todobot_http_requests_total",
			metrics.Label{Name: "method", Value: r.Method},
			metrics.Label{Name: "status", Value: strconv.Itoa(rec.status)})
		a.metrics.Observe("todobot_http_request_seconds", time.Since(start).Seconds(),
			metrics.Label{Name: "method", Value: r.Method})
	})
}

// authed verifies the bearer token and checks that its subject matches the
// user id in the path. The handler receives the already-verified id.
func (a *API) authed(next func(http.ResponseWriter, *http.Request, int64)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const prefix = "Bearer "
		header := r.Header.Get("Authorization")
		if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		tokenUser, err := a.verifier.Verify(header[len(prefix):])
		if err != nil {
			a.logger.Warn("token rejected", "error", err)
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		pathUser, err := strconv.ParseInt(r.PathValue("user_id"), 10, 64)
		if err != nil || pathUser <= 0 {
			writeError(w, http.StatusBadRequest, "invalid user id")
			return
		}
		if pathUser != tokenUser {
			writeError(w, http.StatusForbidden, "token does not match user")
			return
		}

		next(w, r, tokenUser)
	}
}

// --- handlers ---

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID int64  `json:"conversation_id,omitempty"`
}

func (a *API) handleChat(w http.ResponseWriter, r *http.Request, userID int64) {
	var req chatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := a.chat.HandleChat(r.Context(), userID, req.ConversationID, req.Message)
	if err != nil {
		a.writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleListConversations(w http.ResponseWriter, r *http.Request, userID int64) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 200 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		limit = n
	}

	convs, err := a.conversations.ListConversations(r.Context(), userID, limit)
	if err != nil {
		a.logger.Error("list conversations failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if convs == nil {
		convs = []domain.ConversationSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": convs})
}

func (a *API) handleListMessages(w http.ResponseWriter, r *http.Request, userID int64) {
	convID, err := strconv.ParseInt(r.PathValue("conversation_id"), 10, 64)
	if err != nil || convID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	conv, err := a.conversations.GetConversation(r.Context(), convID)
	if err != nil {
		if errors.Is(err, domain.ErrConversationNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		a.logger.Error("load conversation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	// A foreign conversation looks exactly like a missing one.
	if conv.UserID != userID {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	msgs, err := a.conversations.ListMessages(r.Context(), convID)
	if err != nil {
		a.logger.Error("list messages failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if msgs == nil {
		msgs = []domain.MessageRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversation_id": convID, "messages": msgs})
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(a.metrics.Uptime().Seconds()),
	})
}

// --- response plumbing ---

func (a *API) writeChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "conversation belongs to another user")
	case errors.Is(err, domain.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, "conversation not found")
	case errors.Is(err, domain.ErrEngineUnavailable):
		// The user's message is saved; say so instead of a bare 503.
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "the assistant is temporarily unavailable, your message was saved",
		})
	default:
		a.logger.Error("chat failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Fprintf(w, `{"error":"encode failure"}`)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
