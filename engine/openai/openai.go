// Package openai adapts an OpenAI-compatible chat completions API to the
// engine.Engine interface.
//
// The remote API is stateless, so the Engine keeps the transcript it has
// been fed and resends it with every generating call. Its context position
// is the transcript length in messages: a call positioned at NPast first
// truncates the transcript to NPast messages, which lets a session rewind
// or re-prime the engine exactly as it would a local model. Token counts
// are reported in the same unit, except TokensGenerated, which counts
// streamed content deltas.
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/tailored-agentic-units/chat/engine"
)

const (
	// maxErrorBody bounds the bytes read from a failed response.
	maxErrorBody = 1 << 20
	// scannerBufferSize is the max SSE line length.
	scannerBufferSize = 1 << 20
)

// Option configures an Engine.
type Option func(*Engine)

// WithHTTPClient overrides the HTTP client built from the configuration.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) { e.client = c }
}

// Engine implements engine.Engine over the chat completions endpoint.
// Calls are serialized; the transcript is shared state.
type Engine struct {
	config Config
	client *http.Client

	mu         sync.Mutex
	transcript []chatMessage
}

// New creates an Engine from cfg.
func New(cfg *Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout, _ := cfg.timeout()

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout

	e := &Engine{
		config: *cfg,
		client: &http.Client{Transport: transport},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Position returns the current transcript length.
func (e *Engine) Position() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.transcript)
}

func (e *Engine) Generate(ctx context.Context, prompt string, cfg engine.Config, cb engine.TokenCallback) (*engine.Response, error) {
	if cfg.NBatch <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d", engine.ErrInvalidConfig, cfg.NBatch)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if cfg.NPast < len(e.transcript) {
		e.transcript = e.transcript[:max(cfg.NPast, 0)]
	}

	switch {
	case cfg.FakeReply != nil:
		e.transcript = append(e.transcript,
			chatMessage{Role: "user", Content: prompt},
			chatMessage{Role: "assistant", Content: *cfg.FakeReply},
		)
		return &engine.Response{
			Text:           *cfg.FakeReply,
			NPast:          len(e.transcript),
			TokensIngested: 2,
		}, nil

	case cfg.NPredict == 0:
		// Special prompts are raw priming text; anything else is a user turn
		// that asked for no reply.
		msg := chatMessage{Role: "system", Content: prompt}
		if !cfg.Special {
			msg = chatMessage{Role: "user", Content: applyTemplate(cfg.PromptTemplate, prompt)}
		}
		e.transcript = append(e.transcript, msg)
		return &engine.Response{
			NPast:          len(e.transcript),
			TokensIngested: 1,
		}, nil
	}

	user := chatMessage{Role: "user", Content: applyTemplate(cfg.PromptTemplate, prompt)}
	req := chatRequest{
		Model:       e.config.Model,
		Messages:    append(append([]chatMessage(nil), e.transcript...), user),
		Stream:      true,
		MaxTokens:   cfg.NPredict,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
	}

	text, generated, err := e.stream(ctx, req, cb)
	if err != nil {
		return nil, err
	}

	e.transcript = append(e.transcript, user, chatMessage{Role: "assistant", Content: text})
	return &engine.Response{
		Text:            text,
		NPast:           len(e.transcript),
		TokensIngested:  1,
		TokensGenerated: generated,
	}, nil
}

// stream posts req and reads content deltas until [DONE], the end of the
// body, or the callback declines further tokens.
func (e *Engine) stream(ctx context.Context, req chatRequest, cb engine.TokenCallback) (string, int, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", 0, fmt.Errorf("openai: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(e.config.BaseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("openai: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if e.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.config.APIKey)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return "", 0, mapConnectionError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", 0, mapHTTPError(resp.StatusCode, data)
	}

	var (
		out       strings.Builder
		generated int
	)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), scannerBufferSize)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			break
		}

		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return "", 0, fmt.Errorf("openai: decode stream chunk: %w", err)
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}

		token := chunk.Choices[0].Delta.Content
		out.WriteString(token)
		generated++
		if cb != nil && !cb(token) {
			return out.String(), generated, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	if err := scanner.Err(); err != nil {
		return "", 0, mapConnectionError(err)
	}

	return out.String(), generated, nil
}

// applyTemplate substitutes prompt for %1. An empty template or one without
// a placeholder passes the prompt through.
func applyTemplate(template, prompt string) string {
	if !strings.Contains(template, "%1") {
		return prompt
	}
	return strings.ReplaceAll(template, "%1", prompt)
}
