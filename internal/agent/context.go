package agent

import "todobot/internal/domain"

// BuildWindow shapes persisted history into the message list handed to the
// engine: the system prompt first, then the stored turns oldest to newest.
// history is expected already trimmed to the context window; older turns
// simply fall off, no summarization happens.
func BuildWindow(systemPrompt string, history []domain.MessageRecord) []domain.Message {
	out := make([]domain.Message, 0, len(history)+1)
	out = append(out, domain.Message{Role: domain.RoleSystem, Content: systemPrompt})
	for _, rec := range history {
		out = append(out, domain.Message{Role: rec.Role, Content: rec.Content})
	}
	return out
}
