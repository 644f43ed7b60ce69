// Package metrics registers the Prometheus instruments shared across services.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus instruments for the portal.
type Metrics struct {
	SessionsCreated    prometheus.Counter
	CitizensRegistered prometheus.Counter
	CitizenLogins      prometheus.Counter
	ConsentsRecorded   prometheus.Counter
	Submissions        prometheus.Counter
	SubmitConflicts    prometheus.Counter
	StatusTransitions  *prometheus.CounterVec
	OnboardingRedirect *prometheus.CounterVec
	AuditDropped       prometheus.Counter
	RequestLatency     *prometheus.HistogramVec
}

// New creates and registers all instruments on the default registry.
func New() *Metrics {
	return &Metrics{
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sevasetu_sessions_created_total",
			Help: "Total number of citizen sessions created.",
		}),
		CitizensRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sevasetu_citizens_registered_total",
			Help: "Total number of new citizens registered.",
		}),
		CitizenLogins: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sevasetu_citizen_logins_total",
			Help: "Total number of returning-citizen logins.",
		}),
		ConsentsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sevasetu_consents_recorded_total",
			Help: "Total number of consent events appended.",
		}),
		Submissions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sevasetu_applications_submitted_total",
			Help: "Total number of applications submitted.",
		}),
		SubmitConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sevasetu_submit_conflicts_total",
			Help: "Submit attempts rejected because the application was not in draft.",
		}),
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sevasetu_status_transitions_total",
			Help: "Application status transitions by target status.",
		}, []string{"new_status"}),
		OnboardingRedirect: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sevasetu_onboarding_redirects_total",
			Help: "Onboarding gate redirects by outstanding step.",
		}, []string{"step"}),
		AuditDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sevasetu_audit_events_dropped_total",
			Help: "Audit events dropped because the pipeline was full or failed.",
		}),
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sevasetu_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and status class.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// ObserveRequest records one request latency sample.
func (m *Metrics) ObserveRequest(route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestLatency.WithLabelValues(route, status).Observe(d.Seconds())
}
