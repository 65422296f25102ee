package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RefundMetrics records refund attempt outcomes per channel.
type RefundMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewRefundMetrics registers the refund metrics on the provided registerer.
func NewRefundMetrics(reg prometheus.Registerer) *RefundMetrics {
	if reg == nil {
		return &RefundMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "refund_duration_seconds",
		Help:    "Duration of refund attempts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refund_success",
		Help: "Successful refund attempts.",
	}, []string{"method"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refund_failure",
		Help: "Failed refund attempts.",
	}, []string{"method"})
	reg.MustRegister(duration, success, failure)
	return &RefundMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records how long a refund attempt took.
func (r *RefundMetrics) ObserveDuration(method string, duration time.Duration) {
	if r == nil || r.duration == nil {
		return
	}
	r.duration.WithLabelValues(normalizeLabel(method)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the refund channel.
func (r *RefundMetrics) IncSuccess(method string) {
	if r == nil || r.success == nil {
		return
	}
	r.success.WithLabelValues(normalizeLabel(method)).Inc()
}

// IncFailure increments the failure counter for the refund channel.
func (r *RefundMetrics) IncFailure(method string) {
	if r == nil || r.failure == nil {
		return
	}
	r.failure.WithLabelValues(normalizeLabel(method)).Inc()
}
