// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector gathers the API's Prometheus metrics.
type Collector struct {
	httpRequests    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	recordOps       *prometheus.CounterVec
	logins          *prometheus.CounterVec
	remindersSent   prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lexdesk_http_requests_total",
			Help: "HTTP requests by method, route, and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lexdesk_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		recordOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lexdesk_record_operations_total",
			Help: "Record operations by entity and operation.",
		}, []string{"entity", "op"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lexdesk_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		remindersSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lexdesk_court_reminders_sent_total",
			Help: "Court date reminder emails sent.",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.requestDuration,
		c.recordOps,
		c.logins,
		c.remindersSent,
	)

	return c
}

// RecordHTTPRequest records one served request.
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordOp records one create/update/delete on a record collection.
func (c *Collector) RecordOp(entity, op string) {
	c.recordOps.WithLabelValues(entity, op).Inc()
}

// RecordLogin records a login attempt outcome ("ok" or "denied").
func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

// RecordReminderSent records a court reminder email.
func (c *Collector) RecordReminderSent() {
	c.remindersSent.Inc()
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
