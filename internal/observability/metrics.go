package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors shared by the issuer and the agent.
type Metrics struct {
	registry *prometheus.Registry

	CredentialsIssued *prometheus.CounterVec
	CredentialsFailed prometheus.Counter

	SessionsActive  prometheus.Gauge
	SessionsStarted *prometheus.CounterVec
	SessionsFailed  prometheus.Counter
	PersonaSelected *prometheus.CounterVec
	AvatarFailures  prometheus.Counter
	TranscriptItems *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance on its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "practerview"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CredentialsIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credentials_issued_total",
			Help:      "Room credentials issued, by interview type",
		}, []string{"type"}),
		CredentialsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credentials_failed_total",
			Help:      "Credential requests that failed to sign",
		}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Interview sessions currently running",
		}),
		SessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Interview sessions that reached the greeting",
		}, []string{"type"}),
		SessionsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_failed_total",
			Help:      "Interview sessions whose conversation could not start",
		}),
		PersonaSelected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persona_selected_total",
			Help:      "Persona bound at conversation start, by interview type",
		}, []string{"type"}),
		AvatarFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "avatar_attach_failures_total",
			Help:      "Avatar attach attempts that failed",
		}),
		TranscriptItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcript_items_total",
			Help:      "Conversation items added, by author",
		}, []string{"author"}),
	}

	m.registry.MustRegister(
		m.CredentialsIssued,
		m.CredentialsFailed,
		m.SessionsActive,
		m.SessionsStarted,
		m.SessionsFailed,
		m.PersonaSelected,
		m.AvatarFailures,
		m.TranscriptItems,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
