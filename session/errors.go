package session

import (
	"errors"
	"fmt"
)

// ErrInactiveSession is matched by every InactiveSessionError.
var ErrInactiveSession = errors.New("chat session is not active")

// InactiveSessionError is returned by Generate and GenerateMessages when
// the session does not hold its model's active slot. Call Initialize to
// reclaim the slot, or start a new session.
type InactiveSessionError struct {
	SessionID string
	ActiveID  string // "" when the slot is empty
}

func (e *InactiveSessionError) Error() string {
	if e.ActiveID == "" {
		return fmt.Sprintf("chat session %s is not active: call Initialize to continue", e.SessionID)
	}
	return fmt.Sprintf("chat session %s is not active (slot held by %s): create a new session or call Initialize to continue", e.SessionID, e.ActiveID)
}

// Unwrap enables errors.Is(err, ErrInactiveSession).
func (e *InactiveSessionError) Unwrap() error {
	return ErrInactiveSession
}
