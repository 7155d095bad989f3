package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "mql"

// Publisher record outcomes.
const (
	OutcomeEmitted    = "emitted"
	OutcomeSuppressed = "suppressed"
	OutcomeFailed     = "failed"
)

// Control command results.
const (
	ControlApplied   = "applied"
	ControlMalformed = "malformed"
	ControlRejected  = "rejected"
)

// Listener record outcomes.
const (
	ListenRendered  = "rendered"
	ListenFiltered  = "filtered"
	ListenMalformed = "malformed"
	ListenIgnored   = "ignored"
)

// Metrics holds the mql collectors and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	publisherRecords *prometheus.CounterVec // unit, outcome
	controlCommands  *prometheus.CounterVec // unit, kind, result
	publisherLevel   *prometheus.GaugeVec   // unit
	listenerRecords  *prometheus.CounterVec // outcome
	sinkErrors       *prometheus.CounterVec // sink
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		publisherRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publisher",
			Name:      "records_total",
			Help:      "Log records offered to the publisher, by outcome",
		}, []string{"unit", "outcome"}), // outcome: emitted, suppressed, failed

		controlCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publisher",
			Name:      "control_commands_total",
			Help:      "Control commands received by the publisher, by result",
		}, []string{"unit", "kind", "result"}), // result: applied, malformed, rejected

		publisherLevel: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "publisher",
			Name:      "level",
			Help:      "Threshold the next publisher decision will use",
		}, []string{"unit"}),

		listenerRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "records_total",
			Help:      "Messages seen by the listener, by outcome",
		}, []string{"outcome"}), // outcome: rendered, filtered, malformed, ignored

		sinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "sink_errors_total",
			Help:      "Records a listener sink failed to accept",
		}, []string{"sink"}),
	}

	m.registry.MustRegister(
		m.publisherRecords,
		m.controlCommands,
		m.publisherLevel,
		m.listenerRecords,
		m.sinkErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordDecision counts a publisher filter decision. Emitted records are
// counted once the transport accepted them.
func (m *Metrics) RecordDecision(unit string, emitted bool) {
	if m == nil {
		return
	}
	outcome := OutcomeSuppressed
	if emitted {
		outcome = OutcomeEmitted
	}
	m.publisherRecords.WithLabelValues(unit, outcome).Inc()
}

// RecordPublishError counts a record that passed the filter but could not
// be handed to the transport.
func (m *Metrics) RecordPublishError(unit string) {
	if m == nil {
		return
	}
	m.publisherRecords.WithLabelValues(unit, OutcomeFailed).Inc()
}

// RecordControl counts a control command. kind is empty for payloads that
// could not be parsed.
func (m *Metrics) RecordControl(unit, kind, result string) {
	if m == nil {
		return
	}
	m.controlCommands.WithLabelValues(unit, kind, result).Inc()
}

// SetLevel publishes the current threshold of a publisher.
func (m *Metrics) SetLevel(unit string, level uint8) {
	if m == nil {
		return
	}
	m.publisherLevel.WithLabelValues(unit).Set(float64(level))
}

// RecordListened counts a message seen by a listener.
func (m *Metrics) RecordListened(outcome string) {
	if m == nil {
		return
	}
	m.listenerRecords.WithLabelValues(outcome).Inc()
}

// RecordSinkError counts a sink failure.
func (m *Metrics) RecordSinkError(sink string) {
	if m == nil {
		return
	}
	m.sinkErrors.WithLabelValues(sink).Inc()
}
