package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quickads_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quickads_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	UpstreamCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quickads_upstream_calls_total",
			Help: "Calls to the marketplace API by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quickads_cache_lookups_total",
			Help: "Resource cache lookups by result",
		},
		[]string{"result"},
	)

	ModerationActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quickads_moderation_actions_total",
			Help: "Admin moderation actions",
		},
		[]string{"action", "outcome"},
	)

	ChatConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quickads_chat_ws_connections",
		Help: "Active chat websocket connections",
	})
)
