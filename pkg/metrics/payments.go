package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics tracks the verification funnel.
type PaymentMetrics struct {
	initiated *prometheus.CounterVec
	verified  prometheus.Counter
	failed    *prometheus.CounterVec
	expired   prometheus.Counter
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	initiated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_initiated_total",
		Help: "Payment verification sessions started, labeled by method.",
	}, []string{"method"})
	verified := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payments_verified_total",
		Help: "Payments that completed verification.",
	})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_failed_total",
		Help: "Payment verification failures, labeled by reason.",
	}, []string{"reason"})
	expired := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payments_expired_total",
		Help: "Payment sessions that expired before verification.",
	})
	reg.MustRegister(initiated, verified, failed, expired)
	return &PaymentMetrics{
		initiated: initiated,
		verified:  verified,
		failed:    failed,
		expired:   expired,
	}
}

// IncInitiated increments the initiated counter for the payment method.
func (m *PaymentMetrics) IncInitiated(method string) {
	if m == nil || m.initiated == nil {
		return
	}
	m.initiated.WithLabelValues(method).Inc()
}

// IncVerified increments the verified counter.
func (m *PaymentMetrics) IncVerified() {
	if m == nil || m.verified == nil {
		return
	}
	m.verified.Inc()
}

// IncFailed increments the failed counter with a reason label.
func (m *PaymentMetrics) IncFailed(reason string) {
	if m == nil || m.failed == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.failed.WithLabelValues(reason).Inc()
}

// IncExpired increments the expired counter.
func (m *PaymentMetrics) IncExpired() {
	if m == nil || m.expired == nil {
		return
	}
	m.expired.Inc()
}
