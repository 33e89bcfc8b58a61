package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
		[]string{"service"},
	)

	// Relay metrics
	WebSocketConnectionsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Current number of active WebSocket connections",
		},
	)

	WebSocketConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_connections_total",
			Help: "Total number of accepted WebSocket connections",
		},
	)

	InboundEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracking_inbound_events_total",
			Help: "Inbound tracking events by name and outcome",
		},
		[]string{"event", "outcome"},
	)

	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracking_broadcasts_total",
			Help: "Broadcasts issued to booking topics",
		},
		[]string{"event"},
	)

	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracking_deliveries_total",
			Help: "Per-connection deliveries by result",
		},
		[]string{"result"},
	)

	ActiveSessionsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tracking_sessions_active",
			Help: "Current number of registered sessions by role",
		},
		[]string{"role"},
	)

	SimulatorTicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracking_simulator_ticks_total",
			Help: "Motion simulator ticks",
		},
	)

	SimulatedUpdatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracking_simulated_updates_total",
			Help: "Synthetic location updates emitted by the motion simulator",
		},
	)

	RabbitMQMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rabbitmq_messages_published_total",
			Help: "Total number of messages published to RabbitMQ",
		},
		[]string{"exchange", "status"},
	)

	RabbitMQMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rabbitmq_messages_consumed_total",
			Help: "Total number of messages consumed from RabbitMQ",
		},
		[]string{"queue", "status"},
	)
)

// RecordHTTPMetrics records HTTP request metrics
func RecordHTTPMetrics(service, method, path string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	HttpRequestsTotal.WithLabelValues(service, method, path, status).Inc()
	HttpRequestDuration.WithLabelValues(service, method, path, status).Observe(duration.Seconds())
}

// RecordInboundEvent counts an inbound event; outcome is "dispatched" or "dropped".
func RecordInboundEvent(event, outcome string) {
	InboundEventsTotal.WithLabelValues(event, outcome).Inc()
}

// RecordBroadcast counts one broadcast and its per-connection results
func RecordBroadcast(event string, delivered, dropped int) {
	BroadcastsTotal.WithLabelValues(event).Inc()
	DeliveriesTotal.WithLabelValues("delivered").Add(float64(delivered))
	DeliveriesTotal.WithLabelValues("dropped").Add(float64(dropped))
}

// SetActiveSessions sets the session gauges
func SetActiveSessions(drivers, customers int) {
	ActiveSessionsGauge.WithLabelValues("driver").Set(float64(drivers))
	ActiveSessionsGauge.WithLabelValues("customer").Set(float64(customers))
}

// RecordRabbitMQPublish records RabbitMQ publish metrics
func RecordRabbitMQPublish(exchange string, err error) {
	RabbitMQMessagesPublished.WithLabelValues(exchange, status(err)).Inc()
}

// RecordRabbitMQConsume records RabbitMQ consume metrics
func RecordRabbitMQConsume(queue string, err error) {
	RabbitMQMessagesConsumed.WithLabelValues(queue, status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
