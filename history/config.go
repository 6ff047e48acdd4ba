package history

import (
	"context"
	"fmt"
	"io"
)

// Backend names accepted by NewStore.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config selects and locates the transcript store.
type Config struct {
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"` // directory for file, database file for sqlite
}

// DefaultConfig returns the default history configuration (in-memory).
func DefaultConfig() Config {
	return Config{Backend: BackendMemory}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Backend != "" {
		c.Backend = source.Backend
	}
	if source.Path != "" {
		c.Path = source.Path
	}
}

// Persistent reports whether the configured backend keeps transcripts past
// the life of the process.
func (c *Config) Persistent() bool {
	return c.Backend == BackendFile || c.Backend == BackendSQLite
}

// NewStore creates a Store from configuration. BackendNone yields a nil
// Store, which disables persistence. Stores holding resources implement
// io.Closer; release them with Close.
func NewStore(ctx context.Context, cfg *Config) (Store, error) {
	switch cfg.Backend {
	case BackendNone:
		return nil, nil
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("file backend requires a path")
		}
		return NewFileStore(cfg.Path), nil
	case BackendSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite backend requires a path")
		}
		s, err := OpenSQLiteStore(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
	}
}

// Close closes s if it holds resources. A nil Store is a no-op.
func Close(s Store) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
