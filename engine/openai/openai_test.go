package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/tailored-agentic-units/chat/engine"
	"github.com/tailored-agentic-units/chat/engine/openai"
)

type recordedRequest struct {
	Model    string `json:"model"`
	Stream   bool   `json:"stream"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	MaxTokens int `json:"max_tokens"`
}

type apiServer struct {
	mu       sync.Mutex
	requests []recordedRequest
	auth     []string
	deltas   []string
	status   int
}

func (s *apiServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req recordedRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.auth = append(s.auth, r.Header.Get("Authorization"))
	status, deltas := s.status, s.deltas
	s.mu.Unlock()

	if r.URL.Path != "/v1/chat/completions" {
		http.NotFound(w, r)
		return
	}
	if status != 0 {
		w.WriteHeader(status)
		fmt.Fprint(w, `{"error":{"message":"nope"}}`)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	fmt.Fprint(w, ": keep-alive\n\n")
	fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n")
	for _, d := range deltas {
		chunk, _ := json.Marshal(map[string]any{
			"choices": []any{map[string]any{"delta": map[string]string{"content": d}}},
		})
		fmt.Fprintf(w, "data: %s\n\n", chunk)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func newEngine(t *testing.T, srv *apiServer) *openai.Engine {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	cfg := openai.DefaultConfig()
	cfg.BaseURL = ts.URL + "/v1/"
	cfg.APIKey = "sk-test"
	cfg.Model = "test-model"

	e, err := openai.New(&cfg, openai.WithHTTPClient(ts.Client()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return e
}

func config(nPast int) engine.Config {
	return engine.DefaultOptions().Config(nPast)
}

func TestGenerate_Streams(t *testing.T) {
	srv := &apiServer{deltas: []string{"Hel", "lo", "!"}}
	e := newEngine(t, srv)

	var tokens []string
	resp, err := e.Generate(context.Background(), "hi", config(0), func(token string) bool {
		tokens = append(tokens, token)
		return true
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if resp.Text != "Hello!" {
		t.Errorf("got text %q, want Hello!", resp.Text)
	}
	if resp.TokensGenerated != 3 || len(tokens) != 3 {
		t.Errorf("got %d generated, %d callbacks, want 3", resp.TokensGenerated, len(tokens))
	}
	if resp.NPast != 2 || e.Position() != 2 {
		t.Errorf("got nPast %d, want 2", resp.NPast)
	}

	req := srv.requests[0]
	if req.Model != "test-model" || !req.Stream {
		t.Errorf("unexpected request: %+v", req)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" || req.Messages[0].Content != "hi" {
		t.Errorf("unexpected messages: %+v", req.Messages)
	}
	if req.MaxTokens != 4096 {
		t.Errorf("got max_tokens %d, want 4096", req.MaxTokens)
	}
	if srv.auth[0] != "Bearer sk-test" {
		t.Errorf("got auth %q", srv.auth[0])
	}
}

func TestGenerate_TranscriptFollowsPosition(t *testing.T) {
	srv := &apiServer{deltas: []string{"ok"}}
	e := newEngine(t, srv)
	ctx := context.Background()

	prime := config(0)
	prime.NPredict = 0
	prime.Special = true
	resp, err := e.Generate(ctx, "be brief", prime, nil)
	if err != nil {
		t.Fatalf("prime failed: %v", err)
	}
	if resp.NPast != 1 || len(srv.requests) != 0 {
		t.Fatalf("priming should not call the API, got nPast %d requests %d", resp.NPast, len(srv.requests))
	}

	replay := config(resp.NPast).WithFakeReply("hello")
	resp, err = e.Generate(ctx, "hi", replay, nil)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if resp.NPast != 3 || resp.Text != "hello" || len(srv.requests) != 0 {
		t.Fatalf("replay should not call the API, got %+v", resp)
	}

	if _, err := e.Generate(ctx, "next", config(resp.NPast), nil); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	roles := []string{"system", "user", "assistant", "user"}
	got := srv.requests[0].Messages
	if len(got) != len(roles) {
		t.Fatalf("got %d messages, want %d", len(got), len(roles))
	}
	for i, role := range roles {
		if got[i].Role != role {
			t.Errorf("message %d: got role %s, want %s", i, got[i].Role, role)
		}
	}

	// Rewinding to the primed position drops the replayed turn.
	if _, err := e.Generate(ctx, "again", config(1), nil); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if n := len(srv.requests[1].Messages); n != 2 {
		t.Errorf("rewound request should carry 2 messages, got %d", n)
	}
}

func TestGenerate_ZeroPredictUserTurn(t *testing.T) {
	srv := &apiServer{deltas: []string{"ok"}}
	e := newEngine(t, srv)
	ctx := context.Background()

	cfg := config(0)
	cfg.NPredict = 0
	cfg.PromptTemplate = "Q: %1"
	resp, err := e.Generate(ctx, "quiet", cfg, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp.NPast != 1 || resp.Text != "" || len(srv.requests) != 0 {
		t.Fatalf("zero-predict call should not reach the API, got %+v requests %d", resp, len(srv.requests))
	}

	if _, err := e.Generate(ctx, "next", config(resp.NPast), nil); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	first := srv.requests[0].Messages[0]
	if first.Role != "user" || first.Content != "Q: quiet" {
		t.Errorf("non-special prompt should be kept as a user turn, got %+v", first)
	}
}

func TestGenerate_CallbackStops(t *testing.T) {
	srv := &apiServer{deltas: []string{"a", "b", "c"}}
	e := newEngine(t, srv)

	resp, err := e.Generate(context.Background(), "hi", config(0), func(string) bool { return false })
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp.Text != "a" || resp.TokensGenerated != 1 {
		t.Errorf("got %q / %d, want a / 1", resp.Text, resp.TokensGenerated)
	}
}

func TestGenerate_Template(t *testing.T) {
	srv := &apiServer{deltas: []string{"ok"}}
	e := newEngine(t, srv)

	cfg := config(0)
	cfg.PromptTemplate = "Q: %1"
	if _, err := e.Generate(context.Background(), "why", cfg, nil); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got := srv.requests[0].Messages[0].Content; got != "Q: why" {
		t.Errorf("got content %q, want templated prompt", got)
	}
}

func TestGenerate_InvalidBatch(t *testing.T) {
	e := newEngine(t, &apiServer{})

	cfg := config(0)
	cfg.NBatch = 0
	if _, err := e.Generate(context.Background(), "hi", cfg, nil); !errors.Is(err, engine.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestGenerate_HTTPErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, openai.ErrAuth},
		{http.StatusTooManyRequests, openai.ErrRateLimit},
		{http.StatusBadGateway, openai.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			e := newEngine(t, &apiServer{status: tt.status})

			_, err := e.Generate(context.Background(), "hi", config(0), nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if e.Position() != 0 {
				t.Error("failed call must not extend the transcript")
			}
		})
	}
}

func TestNew_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  openai.Config
	}{
		{"missing base url", openai.Config{Model: "m"}},
		{"missing model", openai.Config{BaseURL: "http://x"}},
		{"bad timeout", openai.Config{BaseURL: "http://x", Model: "m", Timeout: "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := openai.New(&tt.cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestConfig_Merge(t *testing.T) {
	cfg := openai.DefaultConfig()
	cfg.Merge(&openai.Config{Model: "local", BaseURL: "http://localhost:4891/v1"})

	if cfg.Model != "local" || cfg.BaseURL != "http://localhost:4891/v1" {
		t.Errorf("unexpected merged config: %+v", cfg)
	}
	if cfg.Timeout != "30s" {
		t.Errorf("unset fields should keep defaults, got timeout %q", cfg.Timeout)
	}
}
