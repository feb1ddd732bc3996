// Package observability exposes Prometheus metrics for the scheduler.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics aggregates the counters and histograms the service records. All
// methods are nil-safe so callers can run without metrics in tests.
type Metrics struct {
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	sessionsCreated  prometheus.Counter
	sessionsUpdated  prometheus.Counter
	sessionsDeleted  prometheus.Counter
	conflictsFound   prometheus.Counter
	emailsEnqueued   *prometheus.CounterVec
	emailsDelivered  prometheus.Counter
	emailsFailed     prometheus.Counter
	inviteResponses  *prometheus.CounterVec
	outboxQueueDepth prometheus.Gauge
}

// NewMetrics registers the scheduler's metric set against the given
// registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_http_requests_total",
			Help: "HTTP requests handled, by method, route, and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scheduler_http_request_duration_seconds",
			Help:    "HTTP request latency, by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		sessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_sessions_created_total",
			Help: "Sessions committed through the create endpoint.",
		}),
		sessionsUpdated: factory.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_sessions_updated_total",
			Help: "Sessions committed through the update endpoint.",
		}),
		sessionsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_sessions_deleted_total",
			Help: "Sessions removed through the delete endpoint.",
		}),
		conflictsFound: factory.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_conflicts_detected_total",
			Help: "Double-booking conflicts reported by the detector.",
		}),
		emailsEnqueued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_emails_enqueued_total",
			Help: "Emails accepted by the outbox, by kind.",
		}, []string{"kind"}),
		emailsDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_emails_delivered_total",
			Help: "Emails handed to the SMTP relay.",
		}),
		emailsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_emails_failed_total",
			Help: "Emails that could not be enqueued or delivered.",
		}),
		inviteResponses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_invite_responses_total",
			Help: "Faculty invitation responses, by outcome.",
		}, []string{"outcome"}),
		outboxQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_outbox_queue_depth",
			Help: "Emails waiting in the outbox queue.",
		}),
	}
}

func (m *Metrics) ObserveRequest(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(seconds)
}

func (m *Metrics) SessionCreated() {
	if m == nil {
		return
	}
	m.sessionsCreated.Inc()
}

func (m *Metrics) SessionUpdated() {
	if m == nil {
		return
	}
	m.sessionsUpdated.Inc()
}

func (m *Metrics) SessionDeleted() {
	if m == nil {
		return
	}
	m.sessionsDeleted.Inc()
}

func (m *Metrics) ConflictsDetected(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.conflictsFound.Add(float64(count))
}

func (m *Metrics) EmailEnqueued(kind string) {
	if m == nil {
		return
	}
	m.emailsEnqueued.WithLabelValues(kind).Inc()
}

func (m *Metrics) EmailDelivered() {
	if m == nil {
		return
	}
	m.emailsDelivered.Inc()
}

func (m *Metrics) EmailFailed() {
	if m == nil {
		return
	}
	m.emailsFailed.Inc()
}

func (m *Metrics) InviteResponse(outcome string) {
	if m == nil {
		return
	}
	m.inviteResponses.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetOutboxDepth(depth int) {
	if m == nil {
		return
	}
	m.outboxQueueDepth.Set(float64(depth))
}
