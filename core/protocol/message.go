// Package protocol defines the conversation message shapes shared by the
// turn normalizer, the chat session, and transcript storage.
package protocol

// Role identifies the sender of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the recognized roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// ValidRoles returns the recognized roles in declaration order.
func ValidRoles() []Role {
	return []Role{RoleSystem, RoleUser, RoleAssistant}
}

// Message is a single entry of a conversation. Messages are treated as
// immutable once appended to a session's history.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// NewMessage creates a Message with the given role and content.
//
// Example:
//
//	msg := protocol.NewMessage(protocol.RoleUser, "Hello, world!")
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

// InitMessages creates a single-element message slice from a role and content string.
func InitMessages(role Role, content string) []Message {
	return []Message{NewMessage(role, content)}
}

// Conversation builds an alternating user/assistant message slice from
// content strings, starting with the user. Convenience for tests and replays.
func Conversation(contents ...string) []Message {
	msgs := make([]Message, len(contents))
	for i, content := range contents {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		msgs[i] = NewMessage(role, content)
	}
	return msgs
}
