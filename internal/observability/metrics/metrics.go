// Package metrics exposes Prometheus instrumentation for the chat service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ChatMetrics tracks chat turn outcomes and LLM behavior. A nil *ChatMetrics
// is safe to use; every method no-ops, which keeps tests quiet.
type ChatMetrics struct {
	turns       *prometheus.CounterVec
	llmLatency  *prometheus.HistogramVec
	llmFallback prometheus.Counter
}

// NewChatMetrics registers the chat collectors on the given registerer.
func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	factory := promauto.With(reg)
	return &ChatMetrics{
		turns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Chat turns processed, by resolved intent and resolution mode.",
		}, []string{"intent", "mode"}),
		llmLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dental",
			Subsystem: "chat",
			Name:      "llm_duration_seconds",
			Help:      "LLM generation latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"outcome"}),
		llmFallback: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "chat",
			Name:      "llm_fallbacks_total",
			Help:      "Turns where LLM failure fell back to naive parsing.",
		}),
	}
}

// ObserveTurn records a completed chat turn.
func (m *ChatMetrics) ObserveTurn(intent, mode string) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(intent, mode).Inc()
}

// ObserveLLM records a generation attempt and its latency.
func (m *ChatMetrics) ObserveLLM(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.llmLatency.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveFallback records an LLM failure handled by the naive path.
func (m *ChatMetrics) ObserveFallback() {
	if m == nil {
		return
	}
	m.llmFallback.Inc()
}
