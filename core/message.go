package core

import "time"

// Conversation roles. Tool-role messages hold human-readable invocation log
// entries and are retained in the stored transcript but never sent back to
// the model as history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// Message is a single entry of a conversation transcript. Insertion order is
// chronological order; the engine only ever appends.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage stamps a message with the current UTC time.
func NewMessage(role, content string) Message {
	return Message{Role: role, Content: content, Timestamp: time.Now().UTC()}
}

// WithoutRole returns the messages whose role differs from the given one,
// preserving order. Used to drop tool-log entries before prompting.
func WithoutRole(messages []Message, role string) []Message {
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role != role {
			out = append(out, m)
		}
	}
	return out
}
