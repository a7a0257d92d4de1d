// Package metrics holds the Prometheus collectors for invocations and boots.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Invocation outcomes.
const (
	OutcomePreflight = "preflight"
	OutcomeCompleted = "completed"
	OutcomeAppError  = "app_error"
	OutcomeNotFound  = "not_found"
	OutcomeFailed    = "failed"
)

var (
	// Registry holds the collectors of this process.
	Registry = prometheus.NewRegistry()

	invocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cms_lambda",
			Subsystem: "adapter",
			Name:      "invocations_total",
			Help:      "Total number of invocations by outcome.",
		},
		[]string{"outcome"},
	)

	invocationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cms_lambda",
			Subsystem: "adapter",
			Name:      "invocation_duration_seconds",
			Help:      "Time from invocation start until the response is finished.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"outcome"},
	)

	bootAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cms_lambda",
			Subsystem: "bootstrap",
			Name:      "attempts_total",
			Help:      "Total number of application boot attempts by result.",
		},
		[]string{"result"},
	)

	bootDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "cms_lambda",
			Subsystem: "bootstrap",
			Name:      "duration_seconds",
			Help:      "Duration of application boot sequences.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
	)
)

func init() {
	Registry.MustRegister(invocations, invocationDuration, bootAttempts, bootDuration)
}

// RecordInvocation records one finished invocation.
func RecordInvocation(outcome string, d time.Duration) {
	invocations.WithLabelValues(outcome).Inc()
	invocationDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordBoot records one boot attempt.
func RecordBoot(err error, d time.Duration) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	bootAttempts.WithLabelValues(result).Inc()
	bootDuration.Observe(d.Seconds())
}

// Handler exposes the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
