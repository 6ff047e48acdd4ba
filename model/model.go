// Package model provides the handle chat sessions are bound to: an engine
// plus its defaults and the record of which session is currently allowed
// to generate against it.
//
// The active slot stores a session ID, never a session pointer, so a handle
// does not keep sessions alive. Only Claim and Release mutate it; the last
// caller of Claim wins.
package model

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tailored-agentic-units/chat/engine"
	"github.com/tailored-agentic-units/chat/observability"
)

// ErrNoEngine is returned by New when no engine is supplied.
var ErrNoEngine = errors.New("model requires an engine")

// Model event types.
const (
	EventSlotClaim   observability.EventType = "model.slot.claim"
	EventSlotRelease observability.EventType = "model.slot.release"
)

// Option configures a Model after config-driven initialization.
type Option func(*Model)

// WithObserver overrides the default NoOpObserver.
func WithObserver(o observability.Observer) Option {
	return func(m *Model) { m.observer = o }
}

// Model is a handle on a loaded generation engine.
type Model struct {
	name         string
	systemPrompt string
	defaults     engine.Options
	engine       engine.Engine
	observer     observability.Observer

	mu     sync.Mutex
	active string
}

// New creates a Model bound to e and described by cfg. A nil cfg uses
// DefaultConfig.
func New(e engine.Engine, cfg *Config, opts ...Option) (*Model, error) {
	if e == nil {
		return nil, ErrNoEngine
	}
	if cfg == nil {
		defaults := DefaultConfig()
		cfg = &defaults
	}

	m := &Model{
		name:         cfg.Name,
		systemPrompt: cfg.SystemPrompt,
		engine:       e,
		observer:     observability.NoOpObserver{},
	}
	m.defaults.Merge(&cfg.Options)

	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Name returns the identifying model name.
func (m *Model) Name() string {
	return m.name
}

// SystemPrompt returns the default system prompt for new sessions.
func (m *Model) SystemPrompt() string {
	return m.systemPrompt
}

// Defaults returns a copy of the model's default tunables.
func (m *Model) Defaults() engine.Options {
	var copied engine.Options
	copied.Merge(&m.defaults)
	return copied
}

// Engine returns the generation engine.
func (m *Model) Engine() engine.Engine {
	return m.engine
}

// Claim makes id the active session and returns the ID it evicted, or ""
// when the slot was empty or already held by id. The evicted session is
// not notified.
func (m *Model) Claim(ctx context.Context, id string) string {
	m.mu.Lock()
	previous := m.active
	m.active = id
	m.mu.Unlock()

	if previous == id {
		previous = ""
	}

	m.observer.OnEvent(ctx, observability.Event{
		Type:      EventSlotClaim,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "model.Claim",
		Data: map[string]any{
			observability.KeyModel:   m.name,
			observability.KeySession: id,
			"evicted":                previous,
		},
	})

	return previous
}

// Release empties the slot if id holds it and reports whether it did.
func (m *Model) Release(ctx context.Context, id string) bool {
	m.mu.Lock()
	released := id != "" && m.active == id
	if released {
		m.active = ""
	}
	m.mu.Unlock()

	if released {
		m.observer.OnEvent(ctx, observability.Event{
			Type:      EventSlotRelease,
			Level:     observability.LevelVerbose,
			Timestamp: time.Now(),
			Source:    "model.Release",
			Data: map[string]any{
				observability.KeyModel:   m.name,
				observability.KeySession: id,
			},
		})
	}
	return released
}

// Active returns the ID holding the slot, or "" when it is empty.
func (m *Model) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Holds reports whether id currently holds the slot.
func (m *Model) Holds(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return id != "" && m.active == id
}
