// Package metrics provides Prometheus instrumentation for the entitlement engine.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "entitlements",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// GateDecisionsTotal counts request gate decisions by step and outcome.
	GateDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "entitlements",
			Name:      "gate_decisions_total",
			Help:      "Request gate decisions by deciding step and outcome (allow, deny, fail_open).",
		},
		[]string{"step", "outcome"},
	)

	// ReconcileEventsTotal counts provider events by kind and outcome.
	ReconcileEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "entitlements",
			Name:      "reconcile_events_total",
			Help:      "Billing provider events by kind and reconcile outcome.",
		},
		[]string{"kind", "outcome"},
	)

	// GatewayCallsTotal counts billing gateway calls by operation and result.
	GatewayCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "entitlements",
			Name:      "gateway_calls_total",
			Help:      "Billing gateway calls by operation and result.",
		},
		[]string{"op", "result"},
	)

	// GatewayCallDuration observes billing gateway latency by operation.
	GatewayCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "entitlements",
			Name:      "gateway_call_duration_seconds",
			Help:      "Billing gateway call duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	// SubscriptionTransitionsTotal counts first-party lifecycle transitions.
	SubscriptionTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "entitlements",
			Name:      "subscription_transitions_total",
			Help:      "Lifecycle transitions by operation and result.",
		},
		[]string{"op", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		GateDecisionsTotal,
		ReconcileEventsTotal,
		GatewayCallsTotal,
		GatewayCallDuration,
		SubscriptionTransitionsTotal,
	)
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// Result maps an error to the "ok"/"error" label.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
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
