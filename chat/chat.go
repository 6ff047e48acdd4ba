// Package chat composes an engine, a model handle, transcript storage and
// observability into a runtime that creates, resumes and saves chat
// sessions.
//
// The runtime initializes from configuration via New, creating all
// subsystems internally. Functional options replace any subsystem, which is
// how tests substitute a mock engine.
//
//	rt, err := chat.New(ctx, &cfg)
//	s, err := rt.NewSession(ctx)
//	resp, err := s.Generate(ctx, "Hello!", nil, nil)
//	err = rt.Save(ctx, s)
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tailored-agentic-units/chat/engine"
	"github.com/tailored-agentic-units/chat/engine/mock"
	"github.com/tailored-agentic-units/chat/engine/openai"
	"github.com/tailored-agentic-units/chat/engine/remote"
	"github.com/tailored-agentic-units/chat/history"
	"github.com/tailored-agentic-units/chat/model"
	"github.com/tailored-agentic-units/chat/observability"
	"github.com/tailored-agentic-units/chat/session"
)

// Option configures a Runtime. Overrides take the place of the subsystem
// New would otherwise build from configuration.
type Option func(*Runtime)

// WithEngine overrides the config-created engine.
func WithEngine(e engine.Engine) Option {
	return func(r *Runtime) { r.engine = e }
}

// WithStore overrides the config-created transcript store.
func WithStore(s history.Store) Option {
	return func(r *Runtime) {
		r.store = s
		r.storeSet = true
	}
}

// WithObserver overrides the config-selected observer.
func WithObserver(o observability.Observer) Option {
	return func(r *Runtime) { r.observer = o }
}

// WithRegisterer sets where the metrics observer registers its collectors.
// Defaults to the Prometheus default registerer.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(r *Runtime) { r.registerer = reg }
}

// Runtime owns one model handle and the store its sessions persist to.
type Runtime struct {
	engine     engine.Engine
	model      *model.Model
	store      history.Store
	storeSet   bool
	observer   observability.Observer
	registerer prometheus.Registerer
	session    session.Config
}

// New creates a Runtime from configuration.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Runtime, error) {
	r := &Runtime{
		registerer: prometheus.DefaultRegisterer,
		session:    cfg.Session,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.engine == nil {
		e, err := newEngine(&cfg.Engine)
		if err != nil {
			return nil, fmt.Errorf("failed to create engine: %w", err)
		}
		r.engine = e
	}

	if r.observer == nil {
		o, err := newObserver(&cfg.Observability, r.registerer)
		if err != nil {
			return nil, fmt.Errorf("failed to create observer: %w", err)
		}
		r.observer = o
	}

	m, err := model.New(r.engine, &cfg.Model, model.WithObserver(r.observer))
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}
	r.model = m

	if !r.storeSet {
		store, err := history.NewStore(ctx, &cfg.History)
		if err != nil {
			return nil, fmt.Errorf("failed to create history store: %w", err)
		}
		r.store = store
	}

	return r, nil
}

func newEngine(cfg *EngineConfig) (engine.Engine, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		e, err := openai.New(&cfg.OpenAI)
		if err != nil {
			return nil, err
		}
		return e, nil
	case ProviderRemote:
		if cfg.Remote.URL == "" {
			return nil, fmt.Errorf("remote provider requires a url")
		}
		return remote.NewClient(nil, cfg.Remote.URL), nil
	case ProviderEcho:
		return mock.NewEngine(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

func newObserver(cfg *observability.Config, reg prometheus.Registerer) (observability.Observer, error) {
	name := cfg.Observer
	if name == "" {
		name = "noop"
	}
	o, err := observability.GetObserver(name)
	if err != nil {
		return nil, err
	}
	if !cfg.Metrics {
		return o, nil
	}

	metrics, err := observability.NewMetricsObserver(reg)
	if err != nil {
		return nil, err
	}
	return observability.NewMultiObserver(o, metrics), nil
}

// Model returns the runtime's model handle.
func (r *Runtime) Model() *model.Model {
	return r.model
}

// Engine returns the engine behind the model.
func (r *Runtime) Engine() engine.Engine {
	return r.engine
}

// Store returns the transcript store, nil when history is disabled.
func (r *Runtime) Store() history.Store {
	return r.store
}

// NewSession creates a session with the configured session settings and
// initializes it, claiming the model's active slot. opts are applied after
// the configured ones.
func (r *Runtime) NewSession(ctx context.Context, opts ...session.Option) (*session.Session, error) {
	s := session.New(r.model, r.sessionOptions(opts)...)

	n, err := s.Initialize(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}

	r.emit(ctx, EventSessionCreate, observability.LevelInfo, "chat.NewSession", map[string]any{
		observability.KeySession: s.ID(),
		"total_ingested":         n,
	})
	return s, nil
}

// Resume loads a stored transcript and returns an initialized session that
// carries its ID, system prompt and messages. The messages are replayed
// into the engine during initialization.
func (r *Runtime) Resume(ctx context.Context, id string, opts ...session.Option) (*session.Session, error) {
	if r.store == nil {
		return nil, ErrNoStore
	}

	t, err := r.store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}

	if t.Model != "" && t.Model != r.model.Name() {
		r.emit(ctx, EventModelMismatch, observability.LevelWarning, "chat.Resume", map[string]any{
			observability.KeySession: t.ID,
			"stored_model":           t.Model,
		})
	}

	base := []session.Option{
		session.WithID(t.ID),
		session.WithSystemPrompt(t.SystemPrompt),
		session.WithMessages(t.Messages...),
	}
	s := session.New(r.model, r.sessionOptions(append(base, opts...))...)

	n, err := s.Initialize(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to replay transcript: %w", err)
	}

	r.emit(ctx, EventSessionResume, observability.LevelInfo, "chat.Resume", map[string]any{
		observability.KeySession: s.ID(),
		"messages":               len(t.Messages),
		"total_ingested":         n,
	})
	return s, nil
}

// Save persists the session's transcript under its ID.
func (r *Runtime) Save(ctx context.Context, s *session.Session) error {
	if r.store == nil {
		return ErrNoStore
	}

	t := &history.Transcript{
		ID:           s.ID(),
		Model:        s.Model().Name(),
		SystemPrompt: s.SystemPrompt(),
		Messages:     s.Messages(),
	}
	if err := r.store.Save(ctx, t); err != nil {
		return err
	}

	r.emit(ctx, EventSessionSave, observability.LevelVerbose, "chat.Save", map[string]any{
		observability.KeySession: t.ID,
		"messages":               len(t.Messages),
	})
	return nil
}

// Close releases resources held by the transcript store.
func (r *Runtime) Close() error {
	return history.Close(r.store)
}

func (r *Runtime) sessionOptions(extra []session.Option) []session.Option {
	opts := r.session.SessionOptions()
	opts = append(opts, session.WithObserver(r.observer))
	return append(opts, extra...)
}

func (r *Runtime) emit(ctx context.Context, typ observability.EventType, level observability.Level, source string, data map[string]any) {
	if observability.Discards(r.observer) {
		return
	}
	data[observability.KeyModel] = r.model.Name()
	r.observer.OnEvent(ctx, observability.Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    source,
		Data:      data,
	})
}
