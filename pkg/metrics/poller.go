package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PollerMetrics records outcomes of recurring background refreshes.
type PollerMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	gauge    *prometheus.GaugeVec
}

// NewPollerMetrics registers the poller metrics on the provided registerer.
func NewPollerMetrics(reg prometheus.Registerer) *PollerMetrics {
	if reg == nil {
		return &PollerMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "poll_duration_seconds",
		Help:    "Duration of background polls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"poller"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_success_total",
		Help: "Successful background polls.",
	}, []string{"poller"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_failure_total",
		Help: "Failed background polls.",
	}, []string{"poller"})
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "poll_last_value",
		Help: "Last value observed by a background poll.",
	}, []string{"poller"})
	reg.MustRegister(duration, success, failure, gauge)
	return &PollerMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		gauge:    gauge,
	}
}

// ObserveDuration records the duration for the named poller.
func (p *PollerMetrics) ObserveDuration(poller string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(poller)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named poller.
func (p *PollerMetrics) IncSuccess(poller string) {
	if p == nil || p.success == nil {
		return
	}
	p.success.WithLabelValues(normalizeLabel(poller)).Inc()
}

// IncFailure increments the failure counter for the named poller.
func (p *PollerMetrics) IncFailure(poller string) {
	if p == nil || p.failure == nil {
		return
	}
	p.failure.WithLabelValues(normalizeLabel(poller)).Inc()
}

// SetValue stores the most recent value the poller observed.
func (p *PollerMetrics) SetValue(poller string, value float64) {
	if p == nil || p.gauge == nil {
		return
	}
	p.gauge.WithLabelValues(normalizeLabel(poller)).Set(value)
}

func normalizeLabel(poller string) string {
	if poller == "" {
		return "unknown"
	}
	return poller
}
