package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	MessagesCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_created_total",
			Help: "Total number of messages persisted, by source",
		},
		[]string{"source"},
	)

	MessagesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_rejected_total",
			Help: "Total number of create payloads that failed validation, by source",
		},
		[]string{"source"},
	)

	WorkerActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_active_goroutines",
			Help: "Number of active ingest worker goroutines per queue",
		},
		[]string{"queue"},
	)

	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_depth",
			Help: "Current RabbitMQ queue depth",
		},
		[]string{"queue"},
	)
)

var once sync.Once

// Init registers metrics with Prometheus. Safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(HTTPRequests)
		prometheus.MustRegister(HTTPDuration)
		prometheus.MustRegister(MessagesCreated)
		prometheus.MustRegister(MessagesRejected)
		prometheus.MustRegister(WorkerActive)
		prometheus.MustRegister(QueueDepth)
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
