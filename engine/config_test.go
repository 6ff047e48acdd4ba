package engine_test

import (
	"testing"

	"github.com/tailored-agentic-units/chat/engine"
)

func TestDefaultOptions(t *testing.T) {
	opts := engine.DefaultOptions()
	cfg := opts.Config(0)

	if cfg.NBatch != 100 {
		t.Errorf("got NBatch %d, want 100", cfg.NBatch)
	}
	if cfg.NPredict != 4096 {
		t.Errorf("got NPredict %d, want 4096", cfg.NPredict)
	}
	if cfg.PromptTemplate != "%1" {
		t.Errorf("got PromptTemplate %q, want %%1", cfg.PromptTemplate)
	}
	if cfg.Special {
		t.Error("Special should default to false")
	}
}

func TestOptions_Merge(t *testing.T) {
	opts := engine.DefaultOptions()

	opts.Merge(&engine.Options{
		NBatch:      engine.Ptr(8),
		Temperature: engine.Ptr(0.7),
	})

	cfg := opts.Config(0)
	if cfg.NBatch != 8 {
		t.Errorf("got NBatch %d, want 8", cfg.NBatch)
	}
	if cfg.Temperature != 0.7 {
		t.Errorf("got Temperature %v, want 0.7", cfg.Temperature)
	}
	if cfg.TopK != 40 {
		t.Errorf("got TopK %d, want 40 (preserved default)", cfg.TopK)
	}
}

func TestOptions_Merge_NilSource(t *testing.T) {
	opts := engine.DefaultOptions()
	opts.Merge(nil)

	if got := opts.Config(0).NBatch; got != 100 {
		t.Errorf("got NBatch %d, want 100", got)
	}
}

func TestOptions_Merge_DoesNotAlias(t *testing.T) {
	source := engine.Options{NBatch: engine.Ptr(8)}

	var opts engine.Options
	opts.Merge(&source)
	*source.NBatch = 99

	if got := opts.Config(0).NBatch; got != 8 {
		t.Errorf("merged value aliased source: got %d, want 8", got)
	}
}

func TestResolve_Precedence(t *testing.T) {
	defaults := &engine.Options{
		NBatch:      engine.Ptr(100),
		NPredict:    engine.Ptr(4096),
		Temperature: engine.Ptr(0.1),
	}
	session := &engine.Options{
		NBatch:      engine.Ptr(16),
		Temperature: engine.Ptr(0.5),
	}
	call := &engine.Options{
		Temperature: engine.Ptr(0.9),
	}

	tests := []struct {
		name     string
		defaults *engine.Options
		session  *engine.Options
		call     *engine.Options
		batch    int
		predict  int
		temp     float64
	}{
		{"defaults only", defaults, nil, nil, 100, 4096, 0.1},
		{"session over defaults", defaults, session, nil, 16, 4096, 0.5},
		{"call over session", defaults, session, call, 16, 4096, 0.9},
		{"call over defaults", defaults, nil, call, 100, 4096, 0.9},
		{"all nil", nil, nil, nil, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := engine.Resolve(tt.defaults, tt.session, tt.call).Config(0)

			if cfg.NBatch != tt.batch {
				t.Errorf("got NBatch %d, want %d", cfg.NBatch, tt.batch)
			}
			if cfg.NPredict != tt.predict {
				t.Errorf("got NPredict %d, want %d", cfg.NPredict, tt.predict)
			}
			if cfg.Temperature != tt.temp {
				t.Errorf("got Temperature %v, want %v", cfg.Temperature, tt.temp)
			}
		})
	}
}

func TestResolve_DoesNotModifyLayers(t *testing.T) {
	defaults := &engine.Options{NBatch: engine.Ptr(100)}
	call := &engine.Options{NBatch: engine.Ptr(1)}

	_ = engine.Resolve(defaults, nil, call)

	if *defaults.NBatch != 100 {
		t.Errorf("defaults mutated: got %d, want 100", *defaults.NBatch)
	}
}

func TestOptions_Config_Position(t *testing.T) {
	cfg := engine.DefaultOptions().Config(42)

	if cfg.NPast != 42 {
		t.Errorf("got NPast %d, want 42", cfg.NPast)
	}
	if cfg.FakeReply != nil {
		t.Error("FakeReply should be unset")
	}
}

func TestConfig_WithFakeReply(t *testing.T) {
	base := engine.DefaultOptions().Config(3)
	withReply := base.WithFakeReply("known answer")

	if withReply.FakeReply == nil || *withReply.FakeReply != "known answer" {
		t.Fatalf("got FakeReply %v, want %q", withReply.FakeReply, "known answer")
	}
	if base.FakeReply != nil {
		t.Error("WithFakeReply modified the receiver")
	}
	if withReply.NPast != 3 {
		t.Errorf("got NPast %d, want 3", withReply.NPast)
	}
}
