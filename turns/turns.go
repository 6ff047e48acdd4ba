// Package turns converts a flat conversation into the user/assistant pairs
// that a chat session replays into the engine.
package turns

import "github.com/tailored-agentic-units/chat/core/protocol"

// Turn is one user/assistant exchange.
type Turn struct {
	User      string
	Assistant string
}

// Normalize drops system messages and pairs the remainder, which must
// alternate user, assistant, user, assistant. A sequence that starts with
// an assistant, repeats a role, uses an unknown role, or ends on a user
// message fails with *MalformedHistoryError naming the first offending
// input index.
func Normalize(messages []protocol.Message) ([]Turn, error) {
	result := make([]Turn, 0, len(messages)/2)

	var (
		pending   *Turn
		lastIndex = -1
	)

	for i, msg := range messages {
		switch msg.Role {
		case protocol.RoleSystem:
			continue
		case protocol.RoleUser:
			if pending != nil {
				return nil, &MalformedHistoryError{Index: i, Role: msg.Role, Expected: protocol.RoleAssistant}
			}
			pending = &Turn{User: msg.Content}
			lastIndex = i
		case protocol.RoleAssistant:
			if pending == nil {
				return nil, &MalformedHistoryError{Index: i, Role: msg.Role, Expected: protocol.RoleUser}
			}
			pending.Assistant = msg.Content
			result = append(result, *pending)
			pending = nil
		default:
			expected := protocol.RoleUser
			if pending != nil {
				expected = protocol.RoleAssistant
			}
			return nil, &MalformedHistoryError{Index: i, Role: msg.Role, Expected: expected}
		}
	}

	if pending != nil {
		return nil, &MalformedHistoryError{Index: lastIndex, Role: protocol.RoleUser, Expected: protocol.RoleAssistant}
	}

	return result, nil
}
