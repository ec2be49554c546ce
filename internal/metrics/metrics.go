package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/taskhub/task-management/internal/broker"
	"github.com/taskhub/task-management/internal/domain"
	"github.com/taskhub/task-management/internal/hub"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	EventsPublished    *prometheus.CounterVec
	EventsUnroutable   prometheus.Counter
	EventsProcessed    *prometheus.CounterVec
	SocketConnections  prometheus.Gauge
	SocketDelivered    prometheus.Counter
	SocketDroppedPush  prometheus.Counter
	HTTPRequests       *prometheus.CounterVec
	HTTPRequestLatency *prometheus.HistogramVec
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "task_events_published_total",
			Help: "Total number of task events published to the broker.",
		}, []string{"event_type"}),

		EventsUnroutable: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "task_events_unroutable_total",
			Help: "Total number of published events returned as unroutable.",
		}),

		EventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "task_events_processed_total",
			Help: "Total number of consumed deliveries by final outcome (acked, dropped, retried, dead_lettered).",
		}, []string{"event_type", "outcome"}),

		SocketConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "socket_connections",
			Help: "Current number of live WebSocket connections.",
		}),

		SocketDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "socket_notifications_delivered_total",
			Help: "Total number of notifications pushed to a live connection.",
		}),

		SocketDroppedPush: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "socket_notifications_dropped_total",
			Help: "Total number of pushes with no live connection for the target user.",
		}),

		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),

		HTTPRequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		m.EventsPublished,
		m.EventsUnroutable,
		m.EventsProcessed,
		m.SocketConnections,
		m.SocketDelivered,
		m.SocketDroppedPush,
		m.HTTPRequests,
		m.HTTPRequestLatency,
	)

	return m
}

// ProducerHooks returns the metric callbacks expected by broker.NewProducer.
// Centralises the prometheus observation calls so producer.go stays import-free.
func (m *Metrics) ProducerHooks() broker.ProducerHooks {
	return broker.ProducerHooks{
		OnPublished: func(t domain.EventType) {
			m.EventsPublished.WithLabelValues(string(t)).Inc()
		},
		OnUnroutable: func() {
			m.EventsUnroutable.Inc()
		},
	}
}

// ConsumerHooks returns the metric callbacks expected by broker.NewConsumer.
func (m *Metrics) ConsumerHooks() broker.ConsumerHooks {
	return broker.ConsumerHooks{
		OnProcessed: func(t domain.EventType, outcome string) {
			m.EventsProcessed.WithLabelValues(string(t), outcome).Inc()
		},
	}
}

// HTTPHook returns the observation callback expected by the request
// metrics middleware.
func (m *Metrics) HTTPHook() func(method, route string, status int, seconds float64) {
	return func(method, route string, status int, seconds float64) {
		m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		m.HTTPRequestLatency.WithLabelValues(method, route).Observe(seconds)
	}
}

// HubHooks returns the metric callbacks expected by hub.New.
func (m *Metrics) HubHooks() hub.HubHooks {
	return hub.HubHooks{
		OnConnect:    m.SocketConnections.Inc,
		OnDisconnect: m.SocketConnections.Dec,
		OnDelivered:  m.SocketDelivered.Inc,
		OnDropped:    m.SocketDroppedPush.Inc,
	}
}
