package remote_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tailored-agentic-units/chat/engine"
	"github.com/tailored-agentic-units/chat/engine/mock"
	"github.com/tailored-agentic-units/chat/engine/remote"
)

func serve(t *testing.T, e engine.Engine) *remote.Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.Handle(remote.NewHandler(e))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return remote.NewClient(srv.Client(), srv.URL)
}

func TestGenerate_RoundTrip(t *testing.T) {
	backend := mock.NewEngine(mock.WithReplies("one two three"))
	client := serve(t, backend)

	var tokens []string
	cfg := engine.DefaultOptions().Config(7)
	resp, err := client.Generate(context.Background(), "count please", cfg, func(token string) bool {
		tokens = append(tokens, token)
		return true
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if resp.Text != "one two three" {
		t.Errorf("got text %q", resp.Text)
	}
	if resp.NPast != 7+2+3 || resp.TokensIngested != 2 || resp.TokensGenerated != 3 {
		t.Errorf("unexpected counts: %+v", resp)
	}
	if len(tokens) != 3 || tokens[1] != " two" {
		t.Errorf("got tokens %q", tokens)
	}

	calls := backend.Calls()
	if len(calls) != 1 {
		t.Fatalf("got %d backend calls, want 1", len(calls))
	}
	got := calls[0].Config
	if got.NPast != 7 || got.TopK != cfg.TopK || got.Temperature != cfg.Temperature || got.PromptTemplate != "%1" {
		t.Errorf("config did not survive the wire: %+v", got)
	}
}

func TestGenerate_FakeReply(t *testing.T) {
	backend := mock.NewEngine()
	client := serve(t, backend)

	cfg := engine.DefaultOptions().Config(0).WithFakeReply("known answer")
	resp, err := client.Generate(context.Background(), "question", cfg, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if resp.Text != "known answer" || resp.TokensGenerated != 0 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if call := backend.Calls()[0]; !call.Ingestion() || *call.Config.FakeReply != "known answer" {
		t.Errorf("fake reply did not survive the wire: %+v", call)
	}
}

func TestGenerate_CallbackDeclines(t *testing.T) {
	client := serve(t, mock.NewEngine(mock.WithReplies("a b c d")))

	calls := 0
	resp, err := client.Generate(context.Background(), "go", engine.DefaultOptions().Config(0), func(string) bool {
		calls++
		return false
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("callback invoked %d times after declining, want 1", calls)
	}
	if resp == nil {
		t.Fatal("expected the final response")
	}
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"invalid config", engine.ErrInvalidConfig, engine.ErrInvalidConfig},
		{"engine failure", errors.New("gpu on fire"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := serve(t, mock.NewEngine(mock.WithError(0, tt.err)))

			_, err := client.Generate(context.Background(), "hi", engine.DefaultOptions().Config(0), nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
