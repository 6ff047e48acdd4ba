package session

import "github.com/tailored-agentic-units/chat/engine"

// Config holds session-layer settings applied on top of the model's
// defaults. An empty SystemPrompt inherits the model's.
type Config struct {
	SystemPrompt string         `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	Options      engine.Options `json:"options,omitempty" yaml:"options,omitempty"`
}

// DefaultConfig returns the default session configuration: no overrides.
func DefaultConfig() Config {
	return Config{}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.SystemPrompt != "" {
		c.SystemPrompt = source.SystemPrompt
	}
	c.Options.Merge(&source.Options)
}

// SessionOptions converts c into constructor options for New.
func (c *Config) SessionOptions() []Option {
	var opts []Option
	if c.SystemPrompt != "" {
		opts = append(opts, WithSystemPrompt(c.SystemPrompt))
	}
	opts = append(opts, WithOptions(c.Options))
	return opts
}
