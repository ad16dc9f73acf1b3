package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barterhub_http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "barterhub_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "barterhub_ws_active_connections",
			Help: "Number of open websocket connections on this instance.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barterhub_ws_events_total",
			Help: "Inbound websocket events by name.",
		},
		[]string{"event"},
	)
	chatMessagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barterhub_chat_messages_sent_total",
			Help: "Messages persisted by type.",
		},
		[]string{"type"},
	)
	chatRateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "barterhub_chat_rate_limited_total",
			Help: "Messages rejected by the per-sender rate limit.",
		},
	)
	storageOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barterhub_storage_operations_total",
			Help: "Media storage operations by backend, operation and result.",
		},
		[]string{"backend", "op", "result"},
	)
	amqpPublishErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "barterhub_amqp_publish_errors_total",
			Help: "Domain events that failed to publish.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		chatMessagesSent,
		chatRateLimited,
		storageOperations,
		amqpPublishErrors,
	)
}

// HTTPMiddleware records request counts and latency per route template.
func HTTPMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			httpRequestsTotal.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the default registry.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func IncMessageSent(messageType string) {
	chatMessagesSent.WithLabelValues(messageType).Inc()
}

func IncRateLimited() {
	chatRateLimited.Inc()
}

func ObserveStorage(backend, op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	storageOperations.WithLabelValues(backend, op, result).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrors.Inc()
}
