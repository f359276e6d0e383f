// Package metrics exposes the worker pool's Prometheus instrumentation:
// pool-level counters and histograms for claims, outcomes, and latency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry groups every metric a JobWorker or Supervisor touches.
type Registry struct {
	JobsClaimed      prometheus.Counter
	JobsCompleted    prometheus.Counter
	JobsFailed       prometheus.Counter
	JobsDeadLettered prometheus.Counter
	ClaimLatency     prometheus.Histogram
	ExecutionLatency prometheus.Histogram
}

// New registers a fresh set of metrics against reg.
func New(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)
	return &Registry{
		JobsClaimed: factory.NewCounter(prometheus.CounterOpts{
			Name: "queuectl_jobs_claimed_total",
			Help: "Total number of jobs claimed by any worker.",
		}),
		JobsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "queuectl_jobs_completed_total",
			Help: "Total number of jobs that completed successfully.",
		}),
		JobsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "queuectl_jobs_failed_total",
			Help: "Total number of job attempts that failed but were rescheduled.",
		}),
		JobsDeadLettered: factory.NewCounter(prometheus.CounterOpts{
			Name: "queuectl_jobs_dead_lettered_total",
			Help: "Total number of jobs moved to the dead-letter queue.",
		}),
		ClaimLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "queuectl_claim_latency_seconds",
			Help:    "Time spent in the claim transaction, including lock contention.",
			Buckets: prometheus.DefBuckets,
		}),
		ExecutionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "queuectl_execution_latency_seconds",
			Help:    "Time spent running a job's command.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}
}

// Handler returns the HTTP handler to serve reg's metrics on
// QUEUECTL_METRICS_ADDR.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
