// Package agent is the conversational core: it turns one inbound user
// message into a persisted exchange, letting the language engine request
// task operations along the way. The gateway holds no per-conversation
// state in memory; every request rebuilds its context from storage.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"todobot/internal/domain"
	"todobot/internal/metrics"
	"todobot/internal/tool"
)

const (
	defaultContextWindow = 50
	defaultMaxMessageLen = 5000
	defaultEngineTokens  = 1024
	defaultTemperature   = 0.3

	fallbackReply = "I've handled that, but I have nothing further to add."
)

// Gateway processes chat turns. Safe for concurrent use; all state lives in
// the stores.
type Gateway struct {
	engine        domain.Provider
	conversations domain.ConversationStore
	tools         *tool.Registry
	logger        *slog.Logger
	metrics       *metrics.Collector
	persona       *Persona
	contextWindow int
	maxMessageLen int
	now           func() time.Time
}

type Config struct {
	Engine        domain.Provider
	Conversations domain.ConversationStore
	Tools         *tool.Registry
	Logger        *slog.Logger
	Metrics       *metrics.Collector // optional
	Persona       *Persona           // optional
	ContextWindow int
	MaxMessageLen int
	Now           func() time.Time // optional, for tests
}

func New(cfg Config) *Gateway {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = defaultContextWindow
	}
	if cfg.MaxMessageLen <= 0 {
		cfg.MaxMessageLen = defaultMaxMessageLen
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Gateway{
		engine:        cfg.Engine,
		conversations: cfg.Conversations,
		tools:         cfg.Tools,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
		persona:       cfg.Persona,
		contextWindow: cfg.ContextWindow,
		maxMessageLen: cfg.MaxMessageLen,
		now:           cfg.Now,
	}
}

// ChatResult is the outcome of one processed turn.
type ChatResult struct {
	ConversationID int64    `json:"conversation_id"`
	Reply          string   `json:"response"`
	ToolsInvoked   []string `json:"tool_calls"`
}

// HandleChat processes one user message for userID. A zero conversationID
// starts a new conversation. The user message is committed before the engine
// is consulted, so an engine outage never loses what the user said.
func (g *Gateway) HandleChat(ctx context.Context, userID, conversationID int64, text string) (*ChatResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: message is empty", domain.ErrInvalidMessage)
	}
	if len(text) > g.maxMessageLen {
		return nil, fmt.Errorf("%w: message exceeds %d bytes", domain.ErrInvalidMessage, g.maxMessageLen)
	}

	conv, err := g.resolveConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	if _, err := g.conversations.AppendMessage(ctx, domain.MessageRecord{
		ConversationID: conv.ID,
		UserID:         userID,
		Role:           domain.RoleUser,
		Content:        text,
	}); err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}
	g.metrics.Inc("todobot_messages_total", metrics.Label{Name: "role", Value: domain.RoleUser})

	history, err := g.conversations.RecentMessages(ctx, conv.ID, g.contextWindow)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	messages := BuildWindow(g.systemPrompt(), history)

	reply, invoked, err := g.runEngineTurn(ctx, userID, messages)
	if err != nil {
		return nil, err
	}
	if reply == "" {
		reply = fallbackReply
	}
	if invoked == nil {
		invoked = []string{}
	}

	if _, err := g.conversations.AppendMessage(ctx, domain.MessageRecord{
		ConversationID: conv.ID,
		UserID:         userID,
		Role:           domain.RoleAssistant,
		Content:        reply,
	}); err != nil {
		return nil, fmt.Errorf("persist reply: %w", err)
	}
	g.metrics.Inc("todobot_messages_total", metrics.Label{Name: "role", Value: domain.RoleAssistant})

	return &ChatResult{ConversationID: conv.ID, Reply: reply, ToolsInvoked: invoked}, nil
}

func (g *Gateway) resolveConversation(ctx context.Context, userID, conversationID int64) (*domain.Conversation, error) {
	if conversationID == 0 {
		conv, err := g.conversations.CreateConversation(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("create conversation: %w", err)
		}
		g.logger.Info("conversation started", "conversation", conv.ID, "user", userID)
		return conv, nil
	}

	conv, err := g.conversations.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return conv, nil
}

// runEngineTurn calls the engine and executes any requested tools, then
// gives the engine exactly one follow-up turn to phrase its reply around
// the tool results. Tool calls in the follow-up are not executed; one
// message means one round of actions.
func (g *Gateway) runEngineTurn(ctx context.Context, userID int64, messages []domain.Message) (string, []string, error) {
	resp, err := g.chat(ctx, messages)
	if err != nil {
		return "", nil, err
	}
	if !resp.HasToolCalls() {
		return resp.Content, nil, nil
	}

	messages = append(messages, domain.Message{
		Role:      domain.RoleAssistant,
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
	})

	invoked := make([]string, 0, len(resp.ToolCalls))
	for _, tc := range resp.ToolCalls {
		env := g.tools.Dispatch(ctx, userID, tc)
		invoked = append(invoked, tc.Name)
		messages = append(messages, domain.Message{
			Role:       domain.RoleTool,
			Content:    env.JSON(),
			ToolCallID: tc.ID,
			ToolName:   tc.Name,
		})
	}

	followUp, err := g.chat(ctx, messages)
	if err != nil {
		return "", nil, err
	}
	if followUp.HasToolCalls() {
		g.logger.Warn("engine requested tools past the action round", "count", len(followUp.ToolCalls))
	}
	return followUp.Content, invoked, nil
}

func (g *Gateway) chat(ctx context.Context, messages []domain.Message) (*domain.ChatResponse, error) {
	start := g.now()
	resp, err := g.engine.Chat(ctx, domain.ChatRequest{
		Messages:    messages,
		Tools:       g.tools.Definitions(),
		MaxTokens:   defaultEngineTokens,
		Temperature: defaultTemperature,
	})
	g.metrics.Observe("todobot_engine_latency_seconds", time.Since(start).Seconds())
	if err != nil {
		g.logger.Error("engine call failed", "engine", g.engine.Name(), "error", err)
		g.metrics.Inc("todobot_engine_errors_total")
		return nil, fmt.Errorf("%w: %v", domain.ErrEngineUnavailable, err)
	}
	if resp == nil {
		return nil, errors.New("engine returned no response")
	}
	return resp, nil
}
