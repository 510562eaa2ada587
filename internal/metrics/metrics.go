// Package metrics exposes Prometheus collectors for the generation pipeline.
package metrics

import (
	"time"

	"stockgen/internal/pricing"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "stockgen"

// Metrics implements scheduler.Observer and stream.ClientGauge.
type Metrics struct {
	SymbolOutcomes *prometheus.CounterVec
	Ticks          prometheus.Counter
	TickDuration   prometheus.Histogram
	StreamClients  prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SymbolOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "symbol_outcomes_total",
			Help:      "Per-symbol results of generation ticks.",
		}, []string{"outcome"}),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Completed generation ticks.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Wall time of one generation tick.",
			Buckets:   prometheus.DefBuckets,
		}),
		StreamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_clients",
			Help:      "Connected websocket feed clients.",
		}),
	}

	// pre-create label values so every outcome shows up at zero
	for _, k := range []pricing.OutcomeKind{pricing.Published, pricing.StoreFailed, pricing.PublishFailed} {
		m.SymbolOutcomes.WithLabelValues(k.String())
	}

	if reg != nil {
		reg.MustRegister(m.SymbolOutcomes, m.Ticks, m.TickDuration, m.StreamClients)
	}
	return m
}

func (m *Metrics) ObserveOutcome(out pricing.Outcome) {
	m.SymbolOutcomes.WithLabelValues(out.Kind.String()).Inc()
}

func (m *Metrics) ObserveTick(duration time.Duration, _ int) {
	m.Ticks.Inc()
	m.TickDuration.Observe(duration.Seconds())
}

func (m *Metrics) SetClients(n int) {
	m.StreamClients.Set(float64(n))
}
