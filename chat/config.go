package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/chat/engine/openai"
	"github.com/tailored-agentic-units/chat/history"
	"github.com/tailored-agentic-units/chat/model"
	"github.com/tailored-agentic-units/chat/observability"
	"github.com/tailored-agentic-units/chat/session"
)

// Engine providers accepted in EngineConfig.Provider.
const (
	ProviderOpenAI = "openai"
	ProviderRemote = "remote"
	ProviderEcho   = "echo"
)

// RemoteConfig locates a Connect engine server.
type RemoteConfig struct {
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

// EngineConfig selects the generation engine behind the model.
type EngineConfig struct {
	Provider string        `json:"provider,omitempty" yaml:"provider,omitempty"`
	OpenAI   openai.Config `json:"openai" yaml:"openai"`
	Remote   RemoteConfig  `json:"remote" yaml:"remote"`
}

// Merge applies non-zero values from source into c.
func (c *EngineConfig) Merge(source *EngineConfig) {
	if source.Provider != "" {
		c.Provider = source.Provider
	}
	c.OpenAI.Merge(&source.OpenAI)
	if source.Remote.URL != "" {
		c.Remote.URL = source.Remote.URL
	}
}

// Config holds initialization parameters for all chat subsystems.
// Each section delegates to that subsystem's config-driven constructor.
type Config struct {
	Engine        EngineConfig         `json:"engine" yaml:"engine"`
	Model         model.Config         `json:"model" yaml:"model"`
	Session       session.Config       `json:"session" yaml:"session"`
	History       history.Config       `json:"history" yaml:"history"`
	Observability observability.Config `json:"observability" yaml:"observability"`
}

// DefaultConfig returns a Config with defaults for all subsystems.
func DefaultConfig() Config {
	return Config{
		Engine: EngineConfig{
			Provider: ProviderOpenAI,
			OpenAI:   openai.DefaultConfig(),
		},
		Model:         model.DefaultConfig(),
		Session:       session.DefaultConfig(),
		History:       history.DefaultConfig(),
		Observability: observability.DefaultConfig(),
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's Merge method.
func (c *Config) Merge(source *Config) {
	c.Engine.Merge(&source.Engine)
	c.Model.Merge(&source.Model)
	c.Session.Merge(&source.Session)
	c.History.Merge(&source.History)
	c.Observability.Merge(&source.Observability)
}

// envPattern matches ${VAR} and ${VAR:-default} expressions.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// LoadConfig reads a JSON or YAML config file (by extension), expands
// environment variables, merges it with defaults, and returns the result.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded, err := expandEnv(data)
	if err != nil {
		return nil, fmt.Errorf("failed to expand config file: %w", err)
	}

	var loaded Config
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(expanded, &loaded)
	default:
		err = json.Unmarshal(expanded, &loaded)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}

// expandEnv replaces ${VAR} and ${VAR:-default} patterns. Variables with no
// value and no default are reported together.
func expandEnv(raw []byte) ([]byte, error) {
	var errs []error

	result := envPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		subs := envPattern.FindSubmatch(match)
		name := string(subs[1])

		// ${VAR:-default} also falls back when VAR is set but empty.
		if value, ok := os.LookupEnv(name); ok && (value != "" || subs[2] == nil) {
			return []byte(value)
		}
		if subs[2] != nil {
			return subs[2]
		}

		errs = append(errs, fmt.Errorf("unresolved variable: %s", name))
		return match
	})

	return result, errors.Join(errs...)
}
