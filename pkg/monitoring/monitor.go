package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// 模拟测试会话指标
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mock_test_active_sessions",
			Help: "Number of in-progress mock test sessions",
		},
	)

	AutoSubmits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mock_test_auto_submits_total",
			Help: "Mock test submissions forced by deadline expiry",
		},
	)

	CommitFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mock_test_commit_failures_total",
			Help: "Attempt commits that failed and were queued to the outbox",
		},
	)

	OutboxDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mock_test_outbox_depth",
			Help: "Attempts waiting in the durable outbox",
		},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(ActiveSessions)
	prometheus.MustRegister(AutoSubmits)
	prometheus.MustRegister(CommitFailures)
	prometheus.MustRegister(OutboxDepth)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
