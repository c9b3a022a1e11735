package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "coachsync"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status code.",
		},
		[]string{"endpoint", "code"},
	)

	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Scheduled job executions by job and outcome.",
		},
		[]string{"job", "outcome"},
	)

	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Scheduled job execution time.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		},
		[]string{"job"},
	)

	calendarCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calendar_calls_total",
			Help:      "Remote calendar API calls by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	resyncSessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resync_sessions_total",
			Help:      "Sessions processed by bulk resync.",
		},
		[]string{"result"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, jobRuns, jobDuration, calendarCalls, resyncSessions)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string, status int) {
	httpRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
}

// ObserveJobRun records one job execution.
func ObserveJobRun(job string, elapsed time.Duration, err error) {
	jobRuns.WithLabelValues(job, outcome(err)).Inc()
	jobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}

func IncCalendarCall(operation, result string) {
	calendarCalls.WithLabelValues(operation, result).Inc()
}

// AddResync counts the per-session results of one trainer resync.
func AddResync(synced, failed int) {
	if synced > 0 {
		resyncSessions.WithLabelValues("synced").Add(float64(synced))
	}
	if failed > 0 {
		resyncSessions.WithLabelValues("failed").Add(float64(failed))
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
