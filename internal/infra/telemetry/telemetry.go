package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arklim/social-platform-trust/internal/core/port"
)

const namespace = "trust"

// Metrics holds the domain counters for the trust engine and moderation actions.
type Metrics struct {
	decisions         *prometheus.CounterVec
	moderationActions *prometheus.CounterVec
}

// NewMetrics registers domain collectors with reg. A nil reg uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "context",
			Name:      "decisions_total",
			Help:      "Login context trust decisions partitioned by decision and reason.",
		}, []string{"decision", "reason"}),
		moderationActions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "moderation",
			Name:      "actions_total",
			Help:      "Moderation actions partitioned by action.",
		}, []string{"action"}),
	}
}

// ObserveDecision implements port.TrustObserver.
func (m *Metrics) ObserveDecision(kind, reason string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(kind, reason).Inc()
}

// ObserveModerationAction implements port.ModerationObserver.
func (m *Metrics) ObserveModerationAction(action string) {
	if m == nil {
		return
	}
	m.moderationActions.WithLabelValues(action).Inc()
}

var (
	_ port.TrustObserver      = (*Metrics)(nil)
	_ port.ModerationObserver = (*Metrics)(nil)
)
