// Package metrics counts analysis activity on a private Prometheus registry.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const defaultNamespace = "demostats"

// Demo outcomes.
const (
	ResultOK          = "ok"
	ResultInputError  = "input_error"
	ResultDecodeError = "decode_error"
	ResultCached      = "cached"
	ResultFailed      = "failed"
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRegistry sets the registry metrics are registered on and gathered from.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// Manager owns the analysis counters. It implements aggregate.Observer.
type Manager struct {
	namespace string
	registry  *prometheus.Registry

	eventsApplied *prometheus.CounterVec
	eventsDropped *prometheus.CounterVec
	linesWritten  *prometheus.CounterVec
	demos         *prometheus.CounterVec
	duration      prometheus.Histogram
}

// NewManager registers every metric and returns the manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{namespace: defaultNamespace}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	m.eventsApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "events_applied_total",
		Help:      "Telemetry events folded into a match, by kind.",
	}, []string{"kind"})
	m.eventsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "events_dropped_total",
		Help:      "Telemetry events ignored or only partly applied, by reason.",
	}, []string{"reason"})
	m.linesWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "report_lines_total",
		Help:      "Report lines written, by category.",
	}, []string{"category"})
	m.demos = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "demos_total",
		Help:      "Recordings processed, by result.",
	}, []string{"result"})
	m.duration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "demo_duration_seconds",
		Help:      "Wall time spent analysing one recording.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
	})

	m.registry.MustRegister(m.eventsApplied, m.eventsDropped, m.linesWritten, m.demos, m.duration)
	return m
}

// EventApplied counts an applied event.
func (m *Manager) EventApplied(kind string) {
	m.eventsApplied.WithLabelValues(kind).Inc()
}

// EventDropped counts an ignored event.
func (m *Manager) EventDropped(reason string) {
	m.eventsDropped.WithLabelValues(reason).Inc()
}

// LineWritten counts a report line.
func (m *Manager) LineWritten(category string) {
	m.linesWritten.WithLabelValues(category).Inc()
}

// DemoProcessed counts a recording and its analysis time.
func (m *Manager) DemoProcessed(result string, elapsed time.Duration) {
	m.demos.WithLabelValues(result).Inc()
	if result == ResultOK {
		m.duration.Observe(elapsed.Seconds())
	}
}

// Registry exposes the underlying registry.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile dumps every metric in the text exposition format, for the
// node exporter textfile collector.
func (m *Manager) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
