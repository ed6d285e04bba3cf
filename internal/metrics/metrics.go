package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	probeDays = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mentorhub",
			Name:      "probe_days_total",
			Help:      "Count of probed calendar days by result.",
		},
		[]string{"result"},
	)

	rescheduleSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mentorhub",
			Name:      "reschedule_submitted_total",
			Help:      "Count of reschedule submissions by outcome.",
		},
		[]string{"outcome"},
	)

	rescheduleResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mentorhub",
			Name:      "reschedule_resolved_total",
			Help:      "Count of reschedule requests reaching a terminal state.",
		},
		[]string{"status"},
	)

	refundEvaluated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mentorhub",
			Name:      "refund_evaluated_total",
			Help:      "Count of refund policy evaluations by outcome.",
		},
		[]string{"outcome"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mentorhub",
			Name:      "http_requests_total",
			Help:      "Count of API requests by handler.",
		},
		[]string{"handler"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(probeDays, rescheduleSubmitted, rescheduleResolved, refundEvaluated, httpRequests)
	})
}

func IncProbeDay(result string) {
	probeDays.WithLabelValues(result).Inc()
}

func IncRescheduleSubmitted(outcome string) {
	rescheduleSubmitted.WithLabelValues(outcome).Inc()
}

func IncRescheduleResolved(status string) {
	rescheduleResolved.WithLabelValues(status).Inc()
}

func IncRefundEvaluated(outcome string) {
	refundEvaluated.WithLabelValues(outcome).Inc()
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}
