// Package mock provides a deterministic in-process Engine for tests.
//
// The engine counts whitespace-separated words as tokens, advances the
// context position by everything it ingests or generates, and records every
// call so tests can assert on prompts, configurations and ordering.
package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/tailored-agentic-units/chat/engine"
)

// Call records a single Generate invocation.
type Call struct {
	Prompt string
	Config engine.Config
}

// Ingestion reports whether the call replayed a known reply.
func (c Call) Ingestion() bool {
	return c.Config.FakeReply != nil
}

// Priming reports whether the call ingested without generating.
func (c Call) Priming() bool {
	return c.Config.FakeReply == nil && c.Config.NPredict == 0
}

// Option configures a MockEngine.
type Option func(*MockEngine)

// WithReplies queues replies returned by successive generating calls.
// Once the queue is drained the reply function is used.
func WithReplies(replies ...string) Option {
	return func(e *MockEngine) { e.replies = append(e.replies, replies...) }
}

// WithReplyFunc sets the reply used when no queued reply remains.
func WithReplyFunc(fn func(prompt string) string) Option {
	return func(e *MockEngine) { e.replyFunc = fn }
}

// WithError fails the call with the given zero-based index.
func WithError(call int, err error) Option {
	return func(e *MockEngine) { e.errors[call] = err }
}

// WithPosition makes every response report a fixed NPast regardless of
// what was ingested.
func WithPosition(nPast int) Option {
	return func(e *MockEngine) { e.fixedPast = &nPast }
}

// MockEngine implements engine.Engine. Safe for concurrent use.
type MockEngine struct {
	mu        sync.Mutex
	calls     []Call
	replies   []string
	replyFunc func(string) string
	errors    map[int]error
	fixedPast *int
}

// NewEngine creates a MockEngine that echoes prompts unless configured
// otherwise.
func NewEngine(opts ...Option) *MockEngine {
	e := &MockEngine{
		replyFunc: func(prompt string) string { return "echo: " + prompt },
		errors:    make(map[int]error),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *MockEngine) Generate(ctx context.Context, prompt string, cfg engine.Config, cb engine.TokenCallback) (*engine.Response, error) {
	e.mu.Lock()
	index := len(e.calls)
	e.calls = append(e.calls, Call{Prompt: prompt, Config: cfg})
	err := e.errors[index]
	e.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp := &engine.Response{TokensIngested: CountTokens(prompt)}

	switch {
	case cfg.FakeReply != nil:
		resp.Text = *cfg.FakeReply
		resp.TokensIngested += CountTokens(*cfg.FakeReply)
	case cfg.NPredict == 0:
	default:
		resp.Text, resp.TokensGenerated = e.generate(prompt, cfg.NPredict, cb)
	}

	resp.NPast = cfg.NPast + resp.TokensIngested + resp.TokensGenerated
	if e.fixedPast != nil {
		resp.NPast = *e.fixedPast
	}
	return resp, nil
}

func (e *MockEngine) generate(prompt string, limit int, cb engine.TokenCallback) (string, int) {
	e.mu.Lock()
	var reply string
	if len(e.replies) > 0 {
		reply, e.replies = e.replies[0], e.replies[1:]
	} else {
		reply = e.replyFunc(prompt)
	}
	e.mu.Unlock()

	var (
		out       strings.Builder
		generated int
	)
	for i, word := range strings.Fields(reply) {
		if generated >= limit {
			break
		}
		token := word
		if i > 0 {
			token = " " + word
		}
		out.WriteString(token)
		generated++
		if cb != nil && !cb(token) {
			break
		}
	}
	return out.String(), generated
}

// Calls returns a copy of the recorded calls in invocation order.
func (e *MockEngine) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()

	copied := make([]Call, len(e.calls))
	copy(copied, e.calls)
	return copied
}

// CallCount returns the number of recorded calls.
func (e *MockEngine) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

// Reset clears recorded calls. Queued replies and errors are kept.
func (e *MockEngine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = nil
}

// CountTokens is the mock tokenizer: whitespace-separated words.
func CountTokens(s string) int {
	return len(strings.Fields(s))
}
