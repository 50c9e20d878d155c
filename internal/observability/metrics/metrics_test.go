package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveTurn(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChatMetrics(reg)

	m.ObserveTurn("propose", "llm")
	m.ObserveTurn("propose", "llm")
	m.ObserveTurn("chat", "naive")

	got := testutil.ToFloat64(m.turns.WithLabelValues("propose", "llm"))
	if got != 2 {
		t.Fatalf("propose/llm turns = %f, want 2", got)
	}
	got = testutil.ToFloat64(m.turns.WithLabelValues("chat", "naive"))
	if got != 1 {
		t.Fatalf("chat/naive turns = %f, want 1", got)
	}
}

func TestObserveFallback(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChatMetrics(reg)

	m.ObserveFallback()
	if got := testutil.ToFloat64(m.llmFallback); got != 1 {
		t.Fatalf("fallbacks = %f, want 1", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *ChatMetrics
	m.ObserveTurn("chat", "llm")
	m.ObserveLLM("ok", time.Second)
	m.ObserveFallback()
}
