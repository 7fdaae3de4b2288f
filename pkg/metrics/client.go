package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ClientMetrics records calls made to the remote storefront API.
type ClientMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	breaker  *prometheus.GaugeVec
}

// NewClientMetrics registers the API client metrics on the provided registerer.
func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	if reg == nil {
		return &ClientMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "api_client_requests_total",
		Help: "Remote API requests by endpoint and status.",
	}, []string{"endpoint", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "api_client_request_duration_seconds",
		Help:    "Duration of remote API requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
	breaker := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "api_client_breaker_open",
		Help: "1 while the circuit breaker for the remote API is open.",
	}, []string{"breaker"})
	reg.MustRegister(requests, duration, breaker)
	return &ClientMetrics{requests: requests, duration: duration, breaker: breaker}
}

// ObserveRequest records one request. A status of 0 means no response was received.
func (c *ClientMetrics) ObserveRequest(endpoint string, status int, duration time.Duration) {
	if c == nil || c.requests == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	endpoint = normalizeLabel(endpoint)
	c.requests.WithLabelValues(endpoint, label).Inc()
	c.duration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// SetBreakerOpen flips the breaker gauge.
func (c *ClientMetrics) SetBreakerOpen(name string, open bool) {
	if c == nil || c.breaker == nil {
		return
	}
	value := 0.0
	if open {
		value = 1
	}
	c.breaker.WithLabelValues(normalizeLabel(name)).Set(value)
}
