package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymflow_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gymflow_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ParticipationTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymflow_participation_transitions_total",
			Help: "Participation state machine transitions by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	CheckInsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymflow_check_ins_total",
			Help: "Check-in attempts by outcome",
		},
		[]string{"outcome"},
	)

	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymflow_cache_requests_total",
			Help: "Cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	CacheInvalidatedKeysTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gymflow_cache_invalidated_keys_total",
			Help: "Number of cache keys deleted by invalidation",
		},
	)

	SessionsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymflow_sessions_created_total",
			Help: "Class sessions created, by kind (single, recurring)",
		},
		[]string{"kind"},
	)

	NoticeQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gymflow_notice_queue_length",
			Help: "Current length of the notice queue",
		},
	)

	NoticesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymflow_notices_sent_total",
			Help: "Notices delivered by type and status",
		},
		[]string{"type", "status"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordTransition(operation, outcome string) {
	ParticipationTransitionsTotal.WithLabelValues(operation, outcome).Inc()
}

func RecordCheckIn(outcome string) {
	CheckInsTotal.WithLabelValues(outcome).Inc()
}

func RecordCacheHit() {
	CacheRequestsTotal.WithLabelValues("hit").Inc()
}

func RecordCacheMiss() {
	CacheRequestsTotal.WithLabelValues("miss").Inc()
}

func RecordCacheError() {
	CacheRequestsTotal.WithLabelValues("error").Inc()
}

func RecordInvalidatedKeys(n int) {
	CacheInvalidatedKeysTotal.Add(float64(n))
}

func RecordSessionsCreated(kind string, n int) {
	SessionsCreatedTotal.WithLabelValues(kind).Add(float64(n))
}

func RecordNotice(noticeType, status string) {
	NoticesSentTotal.WithLabelValues(noticeType, status).Inc()
}
