package utils

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PaymentMetrics holds the prometheus instruments of the payment saga
type PaymentMetrics struct {
	PaymentsCreatedTotal       prometheus.CounterVec
	PaymentsCreatedAmountTotal prometheus.Counter
	PaymentTransitionsTotal    prometheus.CounterVec
	ProviderErrorsTotal        prometheus.CounterVec
	WebhooksTotal              prometheus.CounterVec
	CRMErrorsTotal             prometheus.Counter
	RequestDuration            prometheus.HistogramVec
}

// NewPaymentMetrics registers and returns the saga metrics
func NewPaymentMetrics() *PaymentMetrics {
	return &PaymentMetrics{
		PaymentsCreatedTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payments_created_total",
				Help: "Total number of payments created",
			},
			[]string{"provider_called"},
		),
		PaymentsCreatedAmountTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "payments_created_amount_total",
				Help: "Total amount of created payments",
			},
		),
		PaymentTransitionsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_transitions_total",
				Help: "Payment status transitions applied by the reconciler",
			},
			[]string{"from", "to"},
		),
		ProviderErrorsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provider_errors_total",
				Help: "Payment provider call failures",
			},
			[]string{"kind"},
		),
		WebhooksTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhooks_total",
				Help: "Inbound provider callbacks by outcome",
			},
			[]string{"outcome"},
		),
		CRMErrorsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crm_errors_total",
				Help: "CRM side effect failures (downgraded to warnings)",
			},
		),
		RequestDuration: *promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
			},
			[]string{"method", "path", "status"},
		),
	}
}

// RecordPaymentCreated records a persisted payment
func (m *PaymentMetrics) RecordPaymentCreated(providerCalled bool, amount float64) {
	m.PaymentsCreatedTotal.WithLabelValues(strconv.FormatBool(providerCalled)).Inc()
	m.PaymentsCreatedAmountTotal.Add(amount)
}

// RecordTransition records an applied status transition
func (m *PaymentMetrics) RecordTransition(from, to string) {
	m.PaymentTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordProviderError records a failed provider call
func (m *PaymentMetrics) RecordProviderError(kind string) {
	m.ProviderErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordWebhook records an inbound callback outcome
func (m *PaymentMetrics) RecordWebhook(outcome string) {
	m.WebhooksTotal.WithLabelValues(outcome).Inc()
}

// RecordCRMError records a swallowed CRM failure
func (m *PaymentMetrics) RecordCRMError() {
	m.CRMErrorsTotal.Inc()
}

// MetricsMiddleware observes request durations
func (m *PaymentMetrics) MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RequestDuration.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}
