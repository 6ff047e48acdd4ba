package chat_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tailored-agentic-units/chat/chat"
	"github.com/tailored-agentic-units/chat/history"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := chat.DefaultConfig()

	if cfg.Engine.Provider != chat.ProviderOpenAI {
		t.Errorf("got provider %q, want openai", cfg.Engine.Provider)
	}
	if cfg.Model.Options.NPredict == nil || *cfg.Model.Options.NPredict != 4096 {
		t.Error("model defaults should carry the engine defaults")
	}
	if cfg.History.Backend != history.BackendMemory {
		t.Errorf("got history backend %q, want memory", cfg.History.Backend)
	}
	if cfg.Observability.Observer != "slog" {
		t.Errorf("got observer %q, want slog", cfg.Observability.Observer)
	}
}

func TestLoadConfig_JSON(t *testing.T) {
	path := writeConfig(t, "chat.json", `{
		"engine": {"provider": "echo"},
		"model": {"name": "local", "system_prompt": "be kind", "options": {"temperature": 0.7}},
		"history": {"backend": "file", "path": "/tmp/transcripts"}
	}`)

	cfg, err := chat.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Engine.Provider != chat.ProviderEcho {
		t.Errorf("got provider %q", cfg.Engine.Provider)
	}
	if cfg.Model.Name != "local" || cfg.Model.SystemPrompt != "be kind" {
		t.Errorf("unexpected model config: %+v", cfg.Model)
	}
	if *cfg.Model.Options.Temperature != 0.7 {
		t.Errorf("got temperature %v, want 0.7", *cfg.Model.Options.Temperature)
	}
	if *cfg.Model.Options.TopK != 40 {
		t.Errorf("unset options should keep defaults, got topK %d", *cfg.Model.Options.TopK)
	}
	if cfg.History.Backend != "file" || cfg.History.Path != "/tmp/transcripts" {
		t.Errorf("unexpected history config: %+v", cfg.History)
	}
	if cfg.Engine.OpenAI.BaseURL == "" {
		t.Error("openai defaults should survive the merge")
	}
}

func TestLoadConfig_YAMLWithEnv(t *testing.T) {
	t.Setenv("CHAT_TEST_KEY", "sk-from-env")
	t.Setenv("CHAT_TEST_EMPTY_MODEL", "")

	path := writeConfig(t, "chat.yaml", `
engine:
  provider: openai
  openai:
    api_key: ${CHAT_TEST_KEY}
    base_url: ${CHAT_TEST_UNSET_URL:-http://localhost:4891/v1}
    model: ${CHAT_TEST_EMPTY_MODEL:-local-model}
session:
  options:
    n_predict: 64
observability:
  level: debug
  metrics: true
`)

	cfg, err := chat.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Engine.OpenAI.APIKey != "sk-from-env" {
		t.Errorf("got api key %q", cfg.Engine.OpenAI.APIKey)
	}
	if cfg.Engine.OpenAI.BaseURL != "http://localhost:4891/v1" {
		t.Errorf("got base url %q, want default from expression", cfg.Engine.OpenAI.BaseURL)
	}
	if cfg.Engine.OpenAI.Model != "local-model" {
		t.Errorf("got model %q, want default for a set but empty variable", cfg.Engine.OpenAI.Model)
	}
	if cfg.Session.Options.NPredict == nil || *cfg.Session.Options.NPredict != 64 {
		t.Error("expected session n_predict 64")
	}
	if cfg.Observability.Level != "debug" || !cfg.Observability.Metrics {
		t.Errorf("unexpected observability config: %+v", cfg.Observability)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.json") }},
		{"bad json", func(t *testing.T) string { return writeConfig(t, "bad.json", "{") }},
		{"bad yaml", func(t *testing.T) string { return writeConfig(t, "bad.yml", "engine: [") }},
		{"unresolved variable", func(t *testing.T) string {
			return writeConfig(t, "env.yaml", "engine:\n  remote:\n    url: ${CHAT_TEST_DEFINITELY_UNSET}\n")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := chat.LoadConfig(tt.path(t)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
