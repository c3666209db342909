package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ExperimentMetrics records assignment, sync and webhook activity.
type ExperimentMetrics struct {
	assignments    *prometheus.CounterVec
	syncSuccess    *prometheus.CounterVec
	syncFailure    *prometheus.CounterVec
	webhookEvents  *prometheus.CounterVec
	remoteDuration *prometheus.HistogramVec
}

// NewExperimentMetrics registers the experiment metrics on the provided registerer.
func NewExperimentMetrics(reg prometheus.Registerer) *ExperimentMetrics {
	if reg == nil {
		return &ExperimentMetrics{}
	}
	assignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "experiment_assignments_total",
		Help: "Variant assignments served, labeled by resolution source.",
	}, []string{"experiment", "source"})
	syncSuccess := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "experiment_sync_success_total",
		Help: "Successful remote-store assignment syncs.",
	}, []string{"experiment"})
	syncFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "experiment_sync_failure_total",
		Help: "Failed remote-store assignment syncs.",
	}, []string{"experiment"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_events_total",
		Help: "Payment webhook deliveries, labeled by handling outcome.",
	}, []string{"outcome"})
	remoteDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "experiment_remote_lookup_seconds",
		Help:    "Duration of remote assignment-store lookups in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(assignments, syncSuccess, syncFailure, webhookEvents, remoteDuration)
	return &ExperimentMetrics{
		assignments:    assignments,
		syncSuccess:    syncSuccess,
		syncFailure:    syncFailure,
		webhookEvents:  webhookEvents,
		remoteDuration: remoteDuration,
	}
}

// IncAssignment increments the assignment counter for the experiment/source pair.
func (m *ExperimentMetrics) IncAssignment(experiment, source string) {
	if m == nil || m.assignments == nil {
		return
	}
	m.assignments.WithLabelValues(normalizeLabel(experiment), normalizeLabel(source)).Inc()
}

// IncSyncSuccess increments the successful sync counter for the experiment.
func (m *ExperimentMetrics) IncSyncSuccess(experiment string) {
	if m == nil || m.syncSuccess == nil {
		return
	}
	m.syncSuccess.WithLabelValues(normalizeLabel(experiment)).Inc()
}

// IncSyncFailure increments the failed sync counter for the experiment.
func (m *ExperimentMetrics) IncSyncFailure(experiment string) {
	if m == nil || m.syncFailure == nil {
		return
	}
	m.syncFailure.WithLabelValues(normalizeLabel(experiment)).Inc()
}

// IncWebhookEvent increments the webhook counter for the given outcome
// (accepted, duplicate, invalid_signature, rejected).
func (m *ExperimentMetrics) IncWebhookEvent(outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveRemoteLookup records the duration of a remote store operation.
func (m *ExperimentMetrics) ObserveRemoteLookup(operation string, duration time.Duration) {
	if m == nil || m.remoteDuration == nil {
		return
	}
	m.remoteDuration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
