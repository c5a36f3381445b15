package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "portal_http_request_duration_seconds",
			Help: "Duration of HTTP request handling in seconds",
		},
		[]string{"route"},
	)

	QueryTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_query_transitions_total",
			Help: "Total number of query state transitions by action",
		},
		[]string{"action"},
	)

	ClaimTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_claim_transitions_total",
			Help: "Total number of claim status transitions",
		},
		[]string{"to_status"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_notifications_sent_total",
			Help: "Total number of notifications sent by channel and status",
		},
		[]string{"channel", "status"},
	)
)
