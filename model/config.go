package model

import "github.com/tailored-agentic-units/chat/engine"

// Config describes a model handle: how it is named, the system prompt new
// sessions inherit, and the tunables beneath every session's own options.
type Config struct {
	Name         string         `json:"name,omitempty" yaml:"name,omitempty"`
	SystemPrompt string         `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	Options      engine.Options `json:"options,omitempty" yaml:"options,omitempty"`
}

// DefaultConfig returns an unnamed model with engine.DefaultOptions.
func DefaultConfig() Config {
	return Config{
		Name:    "default",
		Options: engine.DefaultOptions(),
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Name != "" {
		c.Name = source.Name
	}
	if source.SystemPrompt != "" {
		c.SystemPrompt = source.SystemPrompt
	}
	c.Options.Merge(&source.Options)
}
