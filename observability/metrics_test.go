package observability_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/tailored-agentic-units/chat/observability"
)

func TestMetricsObserver_CountsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := observability.NewMetricsObserver(reg)
	if err != nil {
		t.Fatalf("NewMetricsObserver failed: %v", err)
	}

	for range 3 {
		obs.OnEvent(context.Background(), observability.Event{
			Type:  "session.generate.complete",
			Level: observability.LevelInfo,
		})
	}

	count, err := testutil.GatherAndCount(reg, "chat_events_total")
	if err != nil {
		t.Fatalf("GatherAndCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("got %d series, want 1", count)
	}
}

func TestMetricsObserver_Tokens(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := observability.NewMetricsObserver(reg)
	if err != nil {
		t.Fatalf("NewMetricsObserver failed: %v", err)
	}

	obs.OnEvent(context.Background(), observability.Event{
		Type:  "session.generate.complete",
		Level: observability.LevelInfo,
		Data: map[string]any{
			observability.KeyModel:           "tiny",
			observability.KeyTokensIngested:  10,
			observability.KeyTokensGenerated: 4,
			observability.KeyNPast:           14,
		},
	})
	obs.OnEvent(context.Background(), observability.Event{
		Type:  "session.ingest.turn",
		Level: observability.LevelVerbose,
		Data: map[string]any{
			observability.KeyModel:          "tiny",
			observability.KeyTokensIngested: 5,
			observability.KeyNPast:          19,
		},
	})

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	values := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				values[mf.GetName()] += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[mf.GetName()] = m.GetGauge().GetValue()
			}
		}
	}

	if values["chat_tokens_ingested_total"] != 15 {
		t.Errorf("got ingested %v, want 15", values["chat_tokens_ingested_total"])
	}
	if values["chat_tokens_generated_total"] != 4 {
		t.Errorf("got generated %v, want 4", values["chat_tokens_generated_total"])
	}
	if values["chat_context_position"] != 19 {
		t.Errorf("got position %v, want 19", values["chat_context_position"])
	}
	if values["chat_events_total"] != 2 {
		t.Errorf("got events %v, want 2", values["chat_events_total"])
	}
}

func TestMetricsObserver_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := observability.NewMetricsObserver(reg); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if _, err := observability.NewMetricsObserver(reg); err == nil {
		t.Error("expected error registering collectors twice")
	}
}
