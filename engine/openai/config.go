package openai

import (
	"fmt"
	"time"
)

// Config locates an OpenAI-compatible chat completions API.
type Config struct {
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Model   string `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"` // time to first response byte
}

// DefaultConfig returns the configuration for the public OpenAI API.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-mini",
		Timeout: "30s",
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.BaseURL != "" {
		c.BaseURL = source.BaseURL
	}
	if source.APIKey != "" {
		c.APIKey = source.APIKey
	}
	if source.Model != "" {
		c.Model = source.Model
	}
	if source.Timeout != "" {
		c.Timeout = source.Timeout
	}
}

// Validate checks that the configuration can build an Engine.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("openai: base_url is required")
	}
	if c.Model == "" {
		return fmt.Errorf("openai: model is required")
	}
	if _, err := c.timeout(); err != nil {
		return err
	}
	return nil
}

func (c *Config) timeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("openai: invalid timeout %q: %w", c.Timeout, err)
	}
	return d, nil
}
