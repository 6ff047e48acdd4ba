package turns

import (
	"errors"
	"fmt"

	"github.com/tailored-agentic-units/chat/core/protocol"
)

// ErrMalformedHistory is matched by every MalformedHistoryError.
var ErrMalformedHistory = errors.New("malformed history")

// MalformedHistoryError reports the first message that breaks strict
// user/assistant alternation. Index is the position in the input slice,
// system messages included.
type MalformedHistoryError struct {
	Index    int
	Role     protocol.Role
	Expected protocol.Role
}

func (e *MalformedHistoryError) Error() string {
	if e.Role == "" {
		return fmt.Sprintf("malformed history at index %d: missing %s message", e.Index, e.Expected)
	}
	return fmt.Sprintf("malformed history at index %d: got %s message, want %s", e.Index, e.Role, e.Expected)
}

// Unwrap enables errors.Is(err, ErrMalformedHistory).
func (e *MalformedHistoryError) Unwrap() error {
	return ErrMalformedHistory
}
