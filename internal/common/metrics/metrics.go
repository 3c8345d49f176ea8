// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_dispatched_total",
			Help: "Total number of notifications dispatched by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	NotificationDeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "notification_delivery_duration_seconds",
			Help: "Duration of a single delivery attempt in seconds",
		},
		[]string{"strategy"},
	)

	NotificationRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_retries_total",
			Help: "Total number of delivery retries scheduled by the worker",
		},
		[]string{"kind"},
	)

	NotificationQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_queue_depth",
			Help: "Number of notification tasks waiting in the queue",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
