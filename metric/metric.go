package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "automation"

// Metrics holds the engine's collectors on a registry of its own. A nil
// *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	JobsCreated    *prometheus.CounterVec
	JobsFinished   *prometheus.CounterVec
	JobRetries     prometheus.Counter
	RunDuration    *prometheus.HistogramVec
	BlocksExecuted *prometheus.CounterVec
	TriggerErrors  prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		JobsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "jobs",
				Name:      "created_total",
				Help:      "Jobs created by the trigger evaluator",
			},
			[]string{"object"},
		),
		JobsFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "jobs",
				Name:      "finished_total",
				Help:      "Jobs that reached a terminal status",
			},
			[]string{"status"},
		),
		JobRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "jobs",
				Name:      "retries_total",
				Help:      "Failed attempts scheduled for another try",
			},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "runs",
				Name:      "duration_seconds",
				Help:      "Flow run duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"type", "status"},
		),
		BlocksExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "blocks",
				Name:      "executed_total",
				Help:      "Blocks executed by kind and outcome",
			},
			[]string{"kind", "status"},
		),
		TriggerErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "trigger",
				Name:      "errors_total",
				Help:      "Flows whose trigger evaluation failed",
			},
		),
	}
	m.registry.MustRegister(m.JobsCreated, m.JobsFinished, m.JobRetries, m.RunDuration, m.BlocksExecuted, m.TriggerErrors)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordJobCreated(object string) {
	if m == nil {
		return
	}
	m.JobsCreated.WithLabelValues(object).Inc()
}

func (m *Metrics) RecordJobFinished(status string) {
	if m == nil {
		return
	}
	m.JobsFinished.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordJobRetry() {
	if m == nil {
		return
	}
	m.JobRetries.Inc()
}

func (m *Metrics) RecordRun(executionType string, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RunDuration.WithLabelValues(executionType, status).Observe(duration.Seconds())
}

func (m *Metrics) RecordBlock(kind string, status string) {
	if m == nil {
		return
	}
	m.BlocksExecuted.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) RecordTriggerError() {
	if m == nil {
		return
	}
	m.TriggerErrors.Inc()
}
