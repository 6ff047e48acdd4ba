package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// Data keys read by MetricsObserver. Emitters use the same keys so that
// the slog output and the metrics agree.
const (
	KeyModel           = "model"
	KeySession         = "session_id"
	KeyNPast           = "n_past"
	KeyTokensIngested  = "tokens_ingested"
	KeyTokensGenerated = "tokens_generated"
)

// MetricsObserver translates events into Prometheus metrics: an event
// counter by type and level, token counters by model, and the last
// reported context position by model.
type MetricsObserver struct {
	events    *prometheus.CounterVec
	ingested  *prometheus.CounterVec
	generated *prometheus.CounterVec
	position  *prometheus.GaugeVec
}

// NewMetricsObserver creates a MetricsObserver and registers its
// collectors with reg.
func NewMetricsObserver(reg prometheus.Registerer) (*MetricsObserver, error) {
	m := &MetricsObserver{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "events_total",
			Help:      "Observability events by type and level.",
		}, []string{"type", "level"}),
		ingested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "tokens_ingested_total",
			Help:      "Tokens ingested by the engine, by model.",
		}, []string{KeyModel}),
		generated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "tokens_generated_total",
			Help:      "Tokens generated by the engine, by model.",
		}, []string{KeyModel}),
		position: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "chat",
			Name:      "context_position",
			Help:      "Last context position reported by the engine, by model.",
		}, []string{KeyModel}),
	}

	for _, c := range []prometheus.Collector{m.events, m.ingested, m.generated, m.position} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *MetricsObserver) OnEvent(ctx context.Context, event Event) {
	m.events.WithLabelValues(string(event.Type), event.Level.String()).Inc()

	model, _ := event.Data[KeyModel].(string)
	if model == "" {
		return
	}

	if n, ok := intValue(event.Data[KeyTokensIngested]); ok && n > 0 {
		m.ingested.WithLabelValues(model).Add(float64(n))
	}
	if n, ok := intValue(event.Data[KeyTokensGenerated]); ok && n > 0 {
		m.generated.WithLabelValues(model).Add(float64(n))
	}
	if n, ok := intValue(event.Data[KeyNPast]); ok {
		m.position.WithLabelValues(model).Set(float64(n))
	}
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	default:
		return 0, false
	}
}
