package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service. A single struct keeps
// registration in one place; handlers and services receive it by pointer and
// may be constructed with nil metrics in tests.
type Metrics struct {
	AssessmentsTotal       prometheus.Counter
	AssessmentDuration     prometheus.Histogram
	SchemesUpserted        prometheus.Counter
	VersionConflicts       prometheus.Counter
	InconsistencyFlags     prometheus.Counter
	SessionsCreated        prometheus.Counter
	SessionsEnded          prometheus.Counter
	SessionsSwept          prometheus.Counter
	ConfirmationRejections prometheus.Counter
	CatalogueReadFailures  prometheus.Counter
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		AssessmentsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sahaya_assessments_total",
			Help: "Total number of eligibility assessments performed",
		}),
		AssessmentDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sahaya_assessment_duration_seconds",
			Help:    "Wall-clock duration of eligibility assessments",
			Buckets: prometheus.DefBuckets,
		}),
		SchemesUpserted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sahaya_schemes_upserted_total",
			Help: "Total number of scheme versions written",
		}),
		VersionConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sahaya_scheme_version_conflicts_total",
			Help: "Total number of scheme writes rejected by the version race",
		}),
		InconsistencyFlags: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sahaya_scheme_inconsistency_flags_total",
			Help: "Total number of administrative-review flags appended",
		}),
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sahaya_sessions_created_total",
			Help: "Total number of citizen sessions created",
		}),
		SessionsEnded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sahaya_sessions_ended_total",
			Help: "Total number of sessions ended explicitly",
		}),
		SessionsSwept: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sahaya_sessions_swept_total",
			Help: "Total number of idle sessions erased by the sweeper",
		}),
		ConfirmationRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sahaya_confirmation_rejections_total",
			Help: "Total number of sensitive attribute writes rejected pending confirmation",
		}),
		CatalogueReadFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sahaya_catalogue_read_failures_total",
			Help: "Total number of assessments aborted because the catalogue was unreadable",
		}),
	}
}

// safe increments tolerate a nil receiver so unit tests can skip metrics wiring.

func (m *Metrics) IncAssessments() {
	if m != nil {
		m.AssessmentsTotal.Inc()
	}
}

func (m *Metrics) ObserveAssessment(seconds float64) {
	if m != nil {
		m.AssessmentDuration.Observe(seconds)
	}
}

func (m *Metrics) IncSchemesUpserted() {
	if m != nil {
		m.SchemesUpserted.Inc()
	}
}

func (m *Metrics) IncVersionConflicts() {
	if m != nil {
		m.VersionConflicts.Inc()
	}
}

func (m *Metrics) IncInconsistencyFlags() {
	if m != nil {
		m.InconsistencyFlags.Inc()
	}
}

func (m *Metrics) IncSessionsCreated() {
	if m != nil {
		m.SessionsCreated.Inc()
	}
}

func (m *Metrics) IncSessionsEnded() {
	if m != nil {
		m.SessionsEnded.Inc()
	}
}

func (m *Metrics) AddSessionsSwept(n int) {
	if m != nil && n > 0 {
		m.SessionsSwept.Add(float64(n))
	}
}

func (m *Metrics) IncConfirmationRejections() {
	if m != nil {
		m.ConfirmationRejections.Inc()
	}
}

func (m *Metrics) IncCatalogueReadFailures() {
	if m != nil {
		m.CatalogueReadFailures.Inc()
	}
}
