package agent

import (
	"fmt"
	"strings"
)

const basePrompt = `You are a task management assistant. You help the user track their
to-do list through conversation.

You have tools to create, list, complete, update, delete, and search the
user's tasks. Use them whenever the user asks about their tasks; never
invent task contents from memory. When a tool reports an error, explain
the problem conversationally instead of echoing the raw message.

Dates the user gives you must be resolved to concrete YYYY-MM-DD values
before calling a tool. Be brief and concrete in your replies.`

// systemPrompt assembles the engine's standing instructions. The current
// date is included so relative phrases like "tomorrow" resolve correctly.
func (g *Gateway) systemPrompt() string {
	var sb strings.Builder
	sb.WriteString(basePrompt)
	fmt.Fprintf(&sb, "\n\nToday is %s.", g.now().Format("Monday, 2006-01-02"))

	if g.persona != nil {
		if g.persona.Name != "" {
			fmt.Fprintf(&sb, "\n\nYour name is %s.", g.persona.Name)
		}
		if g.persona.Style != "" {
			fmt.Fprintf(&sb, " %s", g.persona.Style)
		}
		if len(g.persona.Instructions) > 0 {
			sb.WriteString("\n\nAdditional instructions:\n")
			for _, ins := range g.persona.Instructions {
				fmt.Fprintf(&sb, "- %s\n", ins)
			}
		}
	}
	return sb.String()
}
