// Package history persists chat transcripts so a conversation can be
// resumed later by replaying its messages into a fresh session.
//
// Stores are keyed by session ID. Backends perform I/O on every call and
// hold no cache; callers own the transcripts they pass in and get back.
package history

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/tailored-agentic-units/chat/core/protocol"
)

// Transcript is the persisted form of a chat session.
type Transcript struct {
	ID           string             `json:"id"`
	Model        string             `json:"model"`
	SystemPrompt string             `json:"system_prompt,omitempty"`
	Messages     []protocol.Message `json:"messages"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Clone returns a deep copy of t.
func (t *Transcript) Clone() *Transcript {
	c := *t
	c.Messages = slices.Clone(t.Messages)
	return &c
}

// Store persists transcripts.
type Store interface {
	// List returns the IDs of all stored transcripts in ascending order.
	List(ctx context.Context) ([]string, error)
	// Load retrieves a transcript. Missing IDs fail with ErrNotFound.
	Load(ctx context.Context, id string) (*Transcript, error)
	// Save creates or replaces a transcript, stamping its timestamps.
	Save(ctx context.Context, t *Transcript) error
	// Delete removes transcripts. Missing IDs are ignored.
	Delete(ctx context.Context, ids ...string) error
}

// touch sets CreatedAt on first save and UpdatedAt on every save.
func touch(t *Transcript) {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
}

// validateID rejects IDs that cannot be used as a single path element.
func validateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
