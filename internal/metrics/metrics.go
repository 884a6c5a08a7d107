// Package metrics exposes Prometheus instrumentation for the lifecycle and
// messaging operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peerconnect_connection_requests_sent_total",
		Help: "Connection requests created.",
	})
	RequestsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peerconnect_connection_requests_accepted_total",
		Help: "Connection requests accepted.",
	})
	RequestsDeclined = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peerconnect_connection_requests_declined_total",
		Help: "Connection requests declined.",
	})
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peerconnect_messages_sent_total",
		Help: "Chat messages appended.",
	})
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "peerconnect_ws_connections",
		Help: "Currently connected WebSocket clients.",
	})
)
