package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics holds all Prometheus metrics
type PrometheusMetrics struct {
	// HTTP request metrics
	HttpRequestsTotal   *prometheus.CounterVec
	HttpRequestDuration *prometheus.HistogramVec
	HttpResponseSize    *prometheus.HistogramVec

	// Table query metrics
	QueryTotal    *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
	QueryRowsRead *prometheus.CounterVec
	QueryErrors   *prometheus.CounterVec

	// Schema introspection metrics
	IntrospectionTotal    *prometheus.CounterVec
	IntrospectionDuration *prometheus.HistogramVec
}

var (
	metrics     *PrometheusMetrics
	metricsOnce sync.Once
)

// InitMetrics registers all metrics with the default registry. Safe to call
// more than once.
func InitMetrics() {
	metricsOnce.Do(func() {
		metrics = &PrometheusMetrics{
			HttpRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "query_gateway_http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "endpoint", "status"},
			),
			HttpRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "query_gateway_http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method", "endpoint"},
			),
			HttpResponseSize: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "query_gateway_http_response_size_bytes",
					Help:    "HTTP response size in bytes",
					Buckets: []float64{100, 1000, 10000, 100000, 1000000},
				},
				[]string{"method", "endpoint"},
			),

			QueryTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "query_gateway_query_total",
					Help: "Total number of table queries",
				},
				[]string{"database_type", "status"},
			),
			QueryDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "query_gateway_query_duration_seconds",
					Help:    "Table query time including count and data statements",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"database_type"},
			),
			QueryRowsRead: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "query_gateway_query_rows_read_total",
					Help: "Total number of rows returned by table queries",
				},
				[]string{"database_type"},
			),
			QueryErrors: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "query_gateway_query_errors_total",
					Help: "Total number of failed table queries",
				},
				[]string{"database_type", "error_code"},
			),

			IntrospectionTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "query_gateway_introspection_total",
					Help: "Schema listings served, by source",
				},
				[]string{"database_type", "source"},
			),
			IntrospectionDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "query_gateway_introspection_duration_seconds",
					Help:    "Time spent introspecting a live schema",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"database_type"},
			),
		}
	})
}

// GetMetrics returns the initialized metrics
func GetMetrics() *PrometheusMetrics {
	return metrics
}

// PrometheusMiddleware is a Gin middleware that records HTTP metrics
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		metrics.HttpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
		metrics.HttpRequestDuration.WithLabelValues(method, endpoint).Observe(duration)

		if c.Writer.Size() > 0 {
			metrics.HttpResponseSize.WithLabelValues(method, endpoint).Observe(float64(c.Writer.Size()))
		}
	}
}

// RecordQueryMetrics records a finished table query
func RecordQueryMetrics(databaseType, status string, duration time.Duration, rowsRead int) {
	if metrics == nil {
		return
	}

	metrics.QueryTotal.WithLabelValues(databaseType, status).Inc()
	metrics.QueryDuration.WithLabelValues(databaseType).Observe(duration.Seconds())

	if status == "success" && rowsRead > 0 {
		metrics.QueryRowsRead.WithLabelValues(databaseType).Add(float64(rowsRead))
	}
}

// RecordQueryError records a query error
func RecordQueryError(databaseType, errorCode string) {
	if metrics == nil {
		return
	}

	metrics.QueryErrors.WithLabelValues(databaseType, errorCode).Inc()
}

// RecordIntrospection records a schema listing served from source ("cache"
// or "live"). duration is only observed for live listings.
func RecordIntrospection(databaseType, source string, duration time.Duration) {
	if metrics == nil {
		return
	}

	metrics.IntrospectionTotal.WithLabelValues(databaseType, source).Inc()
	if source == "live" {
		metrics.IntrospectionDuration.WithLabelValues(databaseType).Observe(duration.Seconds())
	}
}
