package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	remindersDispatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_dispatched_total",
			Help: "Total number of reminder dispatch attempts",
		},
		[]string{"reminder_type", "channel", "result"},
	)

	webhookUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_updates_total",
			Help: "Total number of gateway status updates processed",
		},
		[]string{"status"},
	)

	paymentsTerminalTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_terminal_total",
			Help: "Total number of payments reaching a terminal state",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(remindersDispatchedTotal)
	prometheus.MustRegister(webhookUpdatesTotal)
	prometheus.MustRegister(paymentsTerminalTotal)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start).Seconds()

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func RecordReminderDispatch(reminderType, channel string, delivered bool) {
	result := "delivered"
	if !delivered {
		result = "failed"
	}
	remindersDispatchedTotal.WithLabelValues(reminderType, channel, result).Inc()
}

func RecordWebhookUpdate(status string) {
	webhookUpdatesTotal.WithLabelValues(status).Inc()
}

func RecordTerminalPayment(status string) {
	paymentsTerminalTotal.WithLabelValues(status).Inc()
}
