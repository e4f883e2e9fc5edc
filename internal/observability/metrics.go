// Package observability carries the service's Prometheus instruments and the
// OTLP tracer provider, plus the gin middleware that feeds them.
package observability

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/subsync/internal/config"
)

// Metrics exposes the reconciliation and HTTP instruments.
type Metrics struct {
	eventsReceived    *prometheus.CounterVec
	eventsApplied     *prometheus.CounterVec
	eventsDropped     *prometheus.CounterVec
	signatureFailures *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewMetrics registers the instruments on the given registerer. Passing nil
// uses the default registerer.
func NewMetrics(registerer prometheus.Registerer, cfg config.Config) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "subsync"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	eventsReceived := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "subsync_webhook_events_received_total",
		Help:        "Webhook deliveries received after signature verification.",
		ConstLabels: constLabels,
	}, []string{"provider", "event_type"})
	eventsApplied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "subsync_webhook_events_applied_total",
		Help:        "Webhook events that changed subscriber state.",
		ConstLabels: constLabels,
	}, []string{"provider", "event_type"})
	eventsDropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "subsync_webhook_events_dropped_total",
		Help:        "Webhook events acknowledged without a state change, by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"provider", "event_type", "reason"})
	signatureFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "subsync_webhook_signature_failures_total",
		Help:        "Webhook deliveries rejected for a bad signature.",
		ConstLabels: constLabels,
	}, []string{"provider"})

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "subsync_http_requests_total",
		Help:        "Inbound HTTP requests by route and status.",
		ConstLabels: constLabels,
	}, []string{"method", "route", "status"})
	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "subsync_http_request_duration_seconds",
		Help:        "Inbound HTTP request latency.",
		Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		ConstLabels: constLabels,
	}, []string{"method", "route"})

	registerer.MustRegister(
		eventsReceived,
		eventsApplied,
		eventsDropped,
		signatureFailures,
		httpRequests,
		httpDuration,
	)

	return &Metrics{
		eventsReceived:    eventsReceived,
		eventsApplied:     eventsApplied,
		eventsDropped:     eventsDropped,
		signatureFailures: signatureFailures,
		httpRequests:      httpRequests,
		httpDuration:      httpDuration,
	}
}

// RecordEventReceived increments received webhook counts.
func (m *Metrics) RecordEventReceived(provider, eventType string) {
	if m == nil {
		return
	}
	m.eventsReceived.WithLabelValues(provider, eventType).Inc()
}

// RecordEventApplied increments applied webhook counts.
func (m *Metrics) RecordEventApplied(provider, eventType string) {
	if m == nil {
		return
	}
	m.eventsApplied.WithLabelValues(provider, eventType).Inc()
}

// RecordEventDropped increments dropped webhook counts.
func (m *Metrics) RecordEventDropped(provider, eventType, reason string) {
	if m == nil {
		return
	}
	m.eventsDropped.WithLabelValues(provider, eventType, reason).Inc()
}

// RecordSignatureFailure increments signature rejection counts.
func (m *Metrics) RecordSignatureFailure(provider string) {
	if m == nil {
		return
	}
	m.signatureFailures.WithLabelValues(provider).Inc()
}

// HTTPMiddleware instruments inbound requests.
func (m *Metrics) HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := statusLabel(c.Writer.Status())
		m.httpRequests.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func statusLabel(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
