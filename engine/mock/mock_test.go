package mock_test

import (
	"context"
	"errors"
	"testing"

	"github.com/tailored-agentic-units/chat/engine"
	"github.com/tailored-agentic-units/chat/engine/mock"
)

func TestMockEngine_Priming(t *testing.T) {
	e := mock.NewEngine()
	cfg := engine.Config{NPredict: 0, NBatch: 8, Special: true}

	resp, err := e.Generate(context.Background(), "you are helpful", cfg, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if resp.Text != "" {
		t.Errorf("got text %q, want empty", resp.Text)
	}
	if resp.TokensIngested != 3 || resp.NPast != 3 {
		t.Errorf("got ingested %d nPast %d, want 3 and 3", resp.TokensIngested, resp.NPast)
	}
	if !e.Calls()[0].Priming() {
		t.Error("call should be recorded as priming")
	}
}

func TestMockEngine_FakeReply(t *testing.T) {
	e := mock.NewEngine()
	cfg := engine.Config{NPast: 10, NPredict: 100}.WithFakeReply("two words")

	resp, err := e.Generate(context.Background(), "question here", cfg, func(string) bool {
		t.Error("callback must not run for fake replies")
		return true
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if resp.NPast != 14 {
		t.Errorf("got NPast %d, want 14", resp.NPast)
	}
	if resp.TokensGenerated != 0 {
		t.Errorf("got generated %d, want 0", resp.TokensGenerated)
	}
	if !e.Calls()[0].Ingestion() {
		t.Error("call should be recorded as ingestion")
	}
}

func TestMockEngine_GenerateStreamsTokens(t *testing.T) {
	e := mock.NewEngine(mock.WithReplies("hello there friend"))

	var tokens []string
	resp, err := e.Generate(context.Background(), "hi", engine.Config{NPredict: 10}, func(tok string) bool {
		tokens = append(tokens, tok)
		return true
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	want := []string{"hello", " there", " friend"}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(want))
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("token %d: got %q, want %q", i, tokens[i], want[i])
		}
	}
	if resp.Text != "hello there friend" {
		t.Errorf("got text %q", resp.Text)
	}
	if resp.TokensGenerated != 3 || resp.NPast != 4 {
		t.Errorf("got generated %d nPast %d, want 3 and 4", resp.TokensGenerated, resp.NPast)
	}
}

func TestMockEngine_CallbackStops(t *testing.T) {
	e := mock.NewEngine(mock.WithReplies("a b c d"))

	resp, err := e.Generate(context.Background(), "go", engine.Config{NPredict: 10}, func(string) bool {
		return false
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if resp.Text != "a" || resp.TokensGenerated != 1 {
		t.Errorf("got text %q generated %d, want %q and 1", resp.Text, resp.TokensGenerated, "a")
	}
}

func TestMockEngine_PredictLimit(t *testing.T) {
	e := mock.NewEngine(mock.WithReplies("a b c d"))

	resp, err := e.Generate(context.Background(), "go", engine.Config{NPredict: 2}, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp.Text != "a b" {
		t.Errorf("got text %q, want %q", resp.Text, "a b")
	}
}

func TestMockEngine_Errors(t *testing.T) {
	boom := errors.New("boom")
	e := mock.NewEngine(mock.WithError(1, boom))

	if _, err := e.Generate(context.Background(), "first", engine.Config{}, nil); err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if _, err := e.Generate(context.Background(), "second", engine.Config{}, nil); !errors.Is(err, boom) {
		t.Errorf("got error %v, want %v", err, boom)
	}
	if e.CallCount() != 2 {
		t.Errorf("got %d calls, want 2", e.CallCount())
	}
}

func TestMockEngine_FixedPosition(t *testing.T) {
	e := mock.NewEngine(mock.WithPosition(7))

	resp, err := e.Generate(context.Background(), "a b c", engine.Config{NPast: 100}, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp.NPast != 7 {
		t.Errorf("got NPast %d, want 7", resp.NPast)
	}
}

func TestMockEngine_CancelledContext(t *testing.T) {
	e := mock.NewEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.Generate(ctx, "hi", engine.Config{NPredict: 1}, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("got error %v, want context.Canceled", err)
	}
}
