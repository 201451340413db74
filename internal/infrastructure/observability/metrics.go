package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"screencast/internal/domain"
)

type Metrics struct {
	registry          *prometheus.Registry
	ActiveSessions    prometheus.Gauge
	FramesTotal       *prometheus.CounterVec
	CommandsTotal     *prometheus.CounterVec
	ProtocolErrors    prometheus.Counter
	SessionConflicts  *prometheus.CounterVec
	CaptureDropsTotal prometheus.Counter
}

func NewMetrics() *Metrics {
	r := prometheus.NewRegistry()
	m := &Metrics{
		registry: r,
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "screencast",
			Name:      "active_sessions",
			Help:      "Number of active viewer sessions (0 or 1)",
		}),
		FramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "screencast",
			Name:      "frames_total",
			Help:      "Capture ticks by outcome",
		}, []string{"result"}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "screencast",
			Name:      "commands_total",
			Help:      "Control commands by kind and outcome",
		}, []string{"kind", "result"}),
		ProtocolErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "screencast",
			Name:      "protocol_errors_total",
			Help:      "Inbound messages dropped as malformed",
		}),
		SessionConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "screencast",
			Name:      "session_conflicts_total",
			Help:      "Connections that arrived while a session was active",
		}, []string{"policy"}),
		CaptureDropsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "screencast",
			Name:      "capture_drops_total",
			Help:      "Captured frames overwritten before a tick consumed them",
		}),
	}
	r.MustRegister(m.ActiveSessions, m.FramesTotal, m.CommandsTotal, m.ProtocolErrors, m.SessionConflicts, m.CaptureDropsTotal)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// FrameResult, CommandResult and ProtocolError make Metrics a usecase.Recorder.

func (m *Metrics) FrameResult(result string) {
	m.FramesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) CommandResult(kind domain.CommandKind, result string) {
	m.CommandsTotal.WithLabelValues(string(kind), result).Inc()
}

func (m *Metrics) ProtocolError() { m.ProtocolErrors.Inc() }
