// Package session implements a chat session: the stateful protocol that
// turns a conversation into an ordered sequence of single-turn engine calls.
//
// A Session primes the engine with its system prompt, replays any prior
// history as user/assistant turns with known replies, and then generates
// new turns while threading the engine's context position through every
// call. Only the session holding its model's active slot may generate.
//
//	s := session.New(m, session.WithMessages(history...))
//	_, err := s.Initialize(ctx)
//	resp, err := s.Generate(ctx, "What's next?", nil, nil)
//
// A Session is driven by one logical caller. Its methods serialize on an
// internal mutex, so token callbacks must not call back into the session.
package session

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tailored-agentic-units/chat/core/protocol"
	"github.com/tailored-agentic-units/chat/engine"
	"github.com/tailored-agentic-units/chat/model"
	"github.com/tailored-agentic-units/chat/observability"
	"github.com/tailored-agentic-units/chat/turns"
)

const tracerName = "github.com/tailored-agentic-units/chat/session"

// State is the initialization state of a Session.
type State int

const (
	StateCreated State = iota
	StateInitialized
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInitialized:
		return "initialized"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Option configures a Session at construction.
type Option func(*Session)

// WithMessages seeds the session with prior history. The messages are
// replayed into the engine on initialization.
func WithMessages(msgs ...protocol.Message) Option {
	return func(s *Session) { s.messages = append(s.messages, msgs...) }
}

// WithSystemPrompt overrides the model's system prompt. An empty prompt
// disables priming.
func WithSystemPrompt(prompt string) Option {
	return func(s *Session) { s.systemPrompt = prompt }
}

// WithOptions sets session-layer tunables, layered over the model defaults.
// Repeated calls merge.
func WithOptions(opts engine.Options) Option {
	return func(s *Session) { s.options.Merge(&opts) }
}

// WithObserver overrides the default NoOpObserver.
func WithObserver(o observability.Observer) Option {
	return func(s *Session) { s.observer = o }
}

// WithID overrides the generated session ID. Used when resuming a stored
// transcript under its original identity.
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// Session is a conversation bound to a model handle.
type Session struct {
	id           string
	model        *model.Model
	systemPrompt string
	options      engine.Options
	observer     observability.Observer
	tracer       trace.Tracer

	mu       sync.Mutex
	messages []protocol.Message
	prompt   engine.PromptContext
	state    State
}

// New creates a Session bound to m. The session does not claim the model's
// active slot until it is initialized.
func New(m *model.Model, opts ...Option) *Session {
	s := &Session{
		id:           uuid.Must(uuid.NewV7()).String(),
		model:        m,
		systemPrompt: m.SystemPrompt(),
		observer:     observability.NoOpObserver{},
		tracer:       otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(s)
	}

	defaults := m.Defaults()
	s.messages = slices.Clone(s.messages)
	s.prompt = engine.NewPromptContext(engine.Resolve(&defaults, &s.options, nil))
	return s
}

// ID returns the session identifier, which is also its active-slot token.
func (s *Session) ID() string {
	return s.id
}

// Model returns the model handle the session is bound to.
func (s *Session) Model() *model.Model {
	return s.model
}

// SystemPrompt returns the prompt used to prime the engine, possibly empty.
func (s *Session) SystemPrompt() string {
	return s.systemPrompt
}

// State returns the initialization state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Initialized reports whether the session has been initialized at least once.
func (s *Session) Initialized() bool {
	return s.State() == StateInitialized
}

// Active reports whether the session holds its model's active slot.
func (s *Session) Active() bool {
	return s.model.Holds(s.id)
}

// NPast returns the current context position.
func (s *Session) NPast() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompt.NPast
}

// Messages returns a copy of the conversation history.
func (s *Session) Messages() []protocol.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// Initialize claims the model's active slot, primes the engine with the
// system prompt, and replays the session's history. It returns the tokens
// ingested. Calling it again re-runs the whole sequence, which is how a
// session whose slot was taken by another session reclaims it.
func (s *Session) Initialize(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := s.tracer.Start(ctx, "session.Initialize", s.spanAttributes())
	defer span.End()

	n, err := s.initialize(ctx)
	if err != nil {
		return n, s.fail(ctx, span, "session.Initialize", err)
	}
	return n, nil
}

// IngestMessages replays msgs into the engine as user/assistant turns with
// known replies and returns the tokens ingested. History is not modified.
//
// Turns are sent strictly in order. If a call fails partway, the context
// position keeps the turns already applied; nothing is rolled back.
func (s *Session) IngestMessages(ctx context.Context, msgs []protocol.Message) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := s.tracer.Start(ctx, "session.IngestMessages", s.spanAttributes(
		attribute.Int("messages", len(msgs)),
	))
	defer span.End()

	n, err := s.ingest(ctx, msgs)
	if err != nil {
		return n, s.fail(ctx, span, "session.IngestMessages", err)
	}
	return n, nil
}

// Generate sends prompt to the engine and appends the user prompt and the
// generated reply to history. call overrides session tunables for this
// call only; cb, when non-nil, receives tokens as they are produced.
//
// It fails with *InactiveSessionError unless the session holds the model's
// slot. A session whose Initialize failed after claiming the slot finishes
// initializing here first.
func (s *Session) Generate(ctx context.Context, prompt string, call *engine.Options, cb engine.TokenCallback) (*engine.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := s.tracer.Start(ctx, "session.Generate", s.spanAttributes())
	defer span.End()

	tally, err := s.begin(ctx)
	if err != nil {
		return nil, s.fail(ctx, span, "session.Generate", err)
	}

	resp, err := s.generate(ctx, prompt, call, cb, tally)
	if err != nil {
		return nil, s.fail(ctx, span, "session.Generate", err)
	}
	return resp, nil
}

// GenerateMessages treats msgs as an incremental update to the
// conversation. When the last message is a non-empty user message it
// becomes the prompt and the rest is replayed first; otherwise the whole
// slice is replayed and an empty response is returned without generating.
// Replayed messages are appended to history once their replay succeeds.
func (s *Session) GenerateMessages(ctx context.Context, msgs []protocol.Message, call *engine.Options, cb engine.TokenCallback) (*engine.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := s.tracer.Start(ctx, "session.GenerateMessages", s.spanAttributes(
		attribute.Int("messages", len(msgs)),
	))
	defer span.End()

	tally, err := s.begin(ctx)
	if err != nil {
		return nil, s.fail(ctx, span, "session.GenerateMessages", err)
	}

	replay, prompt, ok := splitTailingPrompt(msgs)

	if len(replay) > 0 {
		n, err := s.ingest(ctx, replay)
		tally.AddIngested(n)
		if err != nil {
			return nil, s.fail(ctx, span, "session.GenerateMessages", err)
		}
		s.messages = append(s.messages, replay...)
	}

	if !ok {
		return &engine.Response{
			NPast:          s.prompt.NPast,
			TokensIngested: tally.Ingested,
		}, nil
	}

	resp, err := s.generate(ctx, prompt, call, cb, tally)
	if err != nil {
		return nil, s.fail(ctx, span, "session.GenerateMessages", err)
	}
	return resp, nil
}

// Close releases the model's active slot if this session still holds it.
// The session may be initialized again afterwards.
func (s *Session) Close(ctx context.Context) bool {
	return s.model.Release(ctx, s.id)
}

// begin enforces the active-slot precondition and finishes an initialization
// that previously failed after claiming the slot.
func (s *Session) begin(ctx context.Context) (engine.Tally, error) {
	var tally engine.Tally

	if active := s.model.Active(); active != s.id {
		return tally, &InactiveSessionError{SessionID: s.id, ActiveID: active}
	}

	switch s.state {
	case StateCreated:
		n, err := s.initialize(ctx)
		tally.AddIngested(n)
		if err != nil {
			return tally, err
		}
	case StateInitialized:
	}

	return tally, nil
}

func (s *Session) initialize(ctx context.Context) (int, error) {
	if evicted := s.model.Claim(ctx, s.id); evicted != "" {
		s.emit(ctx, EventSlotEvict, observability.LevelInfo, "session.Initialize", map[string]any{
			"evicted": evicted,
		})
	}

	s.emit(ctx, EventInitializeStart, observability.LevelVerbose, "session.Initialize", map[string]any{
		"system_prompt": s.systemPrompt != "",
		"messages":      len(s.messages),
	})

	var tally engine.Tally

	if s.systemPrompt != "" {
		defaults := s.model.Defaults()
		priming := engine.Options{
			PromptTemplate: engine.Ptr("%1"),
			NPredict:       engine.Ptr(0),
			Special:        engine.Ptr(true),
			NBatch:         engine.Ptr(s.prompt.BatchSize()),
		}
		cfg := engine.Resolve(&defaults, nil, &priming).Config(0)

		resp, err := s.model.Engine().Generate(ctx, s.systemPrompt, cfg, nil)
		if err != nil {
			return tally.Ingested, fmt.Errorf("failed to prime system prompt: %w", err)
		}
		tally.Add(resp)
		s.prompt.Advance(resp)

		s.emit(ctx, EventPrime, observability.LevelVerbose, "session.Initialize", map[string]any{
			observability.KeyTokensIngested: resp.TokensIngested,
			observability.KeyNPast:          resp.NPast,
		})
	}

	if len(s.messages) > 0 {
		n, err := s.ingest(ctx, s.messages)
		tally.AddIngested(n)
		if err != nil {
			return tally.Ingested, err
		}
	}

	s.state = StateInitialized

	s.emit(ctx, EventInitializeComplete, observability.LevelInfo, "session.Initialize", map[string]any{
		"total_ingested":       tally.Ingested,
		observability.KeyNPast: s.prompt.NPast,
	})

	return tally.Ingested, nil
}

func (s *Session) ingest(ctx context.Context, msgs []protocol.Message) (int, error) {
	pairs, err := turns.Normalize(msgs)
	if err != nil {
		return 0, err
	}

	var tally engine.Tally
	for i, turn := range pairs {
		cfg := s.resolve(nil).WithFakeReply(turn.Assistant)

		resp, err := s.model.Engine().Generate(ctx, turn.User, cfg, nil)
		if err != nil {
			return tally.Ingested, fmt.Errorf("failed to ingest turn %d of %d: %w", i+1, len(pairs), err)
		}
		s.prompt.Advance(resp)
		tally.Add(resp)

		s.emit(ctx, EventIngestTurn, observability.LevelVerbose, "session.ingest", map[string]any{
			"turn":                          i + 1,
			"turns":                         len(pairs),
			observability.KeyTokensIngested: resp.TokensIngested,
			observability.KeyNPast:          resp.NPast,
		})
	}

	return tally.Ingested, nil
}

func (s *Session) generate(ctx context.Context, prompt string, call *engine.Options, cb engine.TokenCallback, tally engine.Tally) (*engine.Response, error) {
	s.emit(ctx, EventGenerateStart, observability.LevelVerbose, "session.generate", map[string]any{
		"prompt_length":        len(prompt),
		observability.KeyNPast: s.prompt.NPast,
	})

	resp, err := s.model.Engine().Generate(ctx, prompt, s.resolve(call), cb)
	if err != nil {
		return nil, fmt.Errorf("engine call failed: %w", err)
	}

	s.prompt.Advance(resp)

	s.emit(ctx, EventGenerateComplete, observability.LevelInfo, "session.generate", map[string]any{
		observability.KeyTokensIngested:  resp.TokensIngested,
		observability.KeyTokensGenerated: resp.TokensGenerated,
		observability.KeyNPast:           resp.NPast,
		"response_length":                len(resp.Text),
	})

	resp.TokensIngested += tally.Ingested

	s.messages = append(s.messages,
		protocol.NewMessage(protocol.RoleUser, prompt),
		protocol.NewMessage(protocol.RoleAssistant, resp.Text),
	)

	return resp, nil
}

// resolve builds the engine configuration for the next call:
// model defaults < session options < call options, at the current position.
func (s *Session) resolve(call *engine.Options) engine.Config {
	defaults := s.model.Defaults()
	return engine.Resolve(&defaults, &s.options, call).Config(s.prompt.NPast)
}

// splitTailingPrompt separates a trailing non-empty user message from the
// messages to replay before it.
func splitTailingPrompt(msgs []protocol.Message) ([]protocol.Message, string, bool) {
	if len(msgs) == 0 {
		return nil, "", false
	}

	last := msgs[len(msgs)-1]
	if last.Role != protocol.RoleUser {
		return slices.Clone(msgs), "", false
	}

	return slices.Clone(msgs[:len(msgs)-1]), last.Content, last.Content != ""
}

func (s *Session) emit(ctx context.Context, typ observability.EventType, level observability.Level, source string, data map[string]any) {
	if observability.Discards(s.observer) {
		return
	}
	data[observability.KeyModel] = s.model.Name()
	data[observability.KeySession] = s.id

	s.observer.OnEvent(ctx, observability.Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    source,
		Data:      data,
	})
}

func (s *Session) fail(ctx context.Context, span trace.Span, source string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	s.emit(ctx, EventError, observability.LevelError, source, map[string]any{
		"error":                err.Error(),
		observability.KeyNPast: s.prompt.NPast,
	})
	return err
}

func (s *Session) spanAttributes(extra ...attribute.KeyValue) trace.SpanStartEventOption {
	attrs := append([]attribute.KeyValue{
		attribute.String("chat.session_id", s.id),
		attribute.String("chat.model", s.model.Name()),
	}, extra...)
	return trace.WithAttributes(attrs...)
}
