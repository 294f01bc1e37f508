package metric

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request handling time in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	wsActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	roomsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rooms_created_total",
			Help: "Rooms created, by room type",
		},
		[]string{"type"},
	)

	roomsRemovedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rooms_removed_total",
			Help: "Rooms removed",
		},
	)

	messagesRoutedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_routed_total",
			Help: "Inbound messages, by room type and routing outcome",
		},
		[]string{"type", "outcome"},
	)

	broadcastDeliveriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcast_deliveries_total",
			Help: "Individual event deliveries attempted by the broadcaster",
		},
	)
)

// RecordHTTPMetrics records one HTTP request observation.
func RecordHTTPMetrics(method, endpoint string, status int, duration time.Duration) {
	strStatus := strconv.Itoa(status)

	httpRequestsTotal.WithLabelValues(method, endpoint, strStatus).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, strStatus).Observe(duration.Seconds())
}

func IncrementWSActiveConnections() {
	wsActiveConnections.Inc()
}

func DecrementWSActiveConnections() {
	wsActiveConnections.Dec()
}

func RoomCreated(roomType string) {
	roomsCreatedTotal.WithLabelValues(roomType).Inc()
}

func RoomRemoved() {
	roomsRemovedTotal.Inc()
}

// MessageRouted records a routing decision: delivered, dropped (type
// mismatch), or failed (store or room lookup).
func MessageRouted(roomType, outcome string) {
	messagesRoutedTotal.WithLabelValues(roomType, outcome).Inc()
}

func BroadcastDeliveries(n int) {
	broadcastDeliveriesTotal.Add(float64(n))
}
