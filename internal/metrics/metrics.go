// Package metrics defines the Prometheus collectors for notification
// dispatch outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NotificationsSent counts successfully delivered notifications.
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Total number of notifications delivered successfully.",
	}, []string{"provider"})

	// NotificationFailures counts failed dispatches by failure kind.
	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_failures_total",
		Help: "Total number of failed notification dispatches.",
	}, []string{"provider", "kind"})
)
