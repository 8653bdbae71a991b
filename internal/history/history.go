// Package history implements the append-only conversation log that is the
// single piece of state carried across takeover iterations within one run.
//
// The log is strictly append-only: the first two entries (the system
// directive and the original task) are written at construction and are never
// removed or reordered, and later entries are never mutated or deleted. The
// engine loop is the only writer; readers receive copies.
package history

import "fmt"

// Message roles. These match the wire-level chat roles expected by
// OpenAI-compatible providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role-tagged entry in the log.
type Message struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Log is the ordered record of messages for one run.
type Log struct {
	messages []Message
}

// New creates a log seeded with the system directive and the original task.
func New(systemPrompt, task string) *Log {
	return &Log{
		messages: []Message{
			{Role: RoleSystem, Content: systemPrompt},
			{Role: RoleUser, Content: task},
		},
	}
}

// Append adds a message to the end of the log. It panics on an unknown role:
// a bad role here is always a programming error, and letting it reach the
// provider produces a confusing remote failure instead.
func (l *Log) Append(role, content string) {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
	default:
		panic(fmt.Sprintf("history: unknown role %q", role))
	}
	l.messages = append(l.messages, Message{Role: role, Content: content})
}

// Messages returns a copy of the full log in order.
func (l *Log) Messages() []Message {
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len reports the number of messages in the log.
func (l *Log) Len() int {
	return len(l.messages)
}

// LastAssistant returns the most recent assistant message, if any.
func (l *Log) LastAssistant() (Message, bool) {
	for i := len(l.messages) - 1; i >= 0; i-- {
		if l.messages[i].Role == RoleAssistant {
			return l.messages[i], true
		}
	}
	return Message{}, false
}
