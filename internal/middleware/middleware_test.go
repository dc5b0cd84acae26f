package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCorrelationID(t *testing.T) {
	router := gin.New()
	router.Use(CorrelationID())
	router.GET("/", func(c *gin.Context) {
		assert.Equal(t, GetCorrelationID(c), CorrelationIDFromContext(c.Request.Context()))
		c.String(http.StatusOK, GetCorrelationID(c))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationIDHeader, "given-id")
	router.ServeHTTP(w, req)
	assert.Equal(t, "given-id", w.Body.String())
	assert.Equal(t, "given-id", w.Header().Get(CorrelationIDHeader))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Header().Get(CorrelationIDHeader), 36)
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterConfig{RPM: 1, Burst: 2, CleanupInterval: time.Hour})
	defer limiter.Stop()

	router := gin.New()
	router.Use(CorrelationID(), limiter.RateLimit())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, 2, limiter.GetStats().ActiveClients)
}

func TestPrometheusMiddleware(t *testing.T) {
	InitMetrics()
	InitMetrics()
	require.NotNil(t, GetMetrics())

	router := gin.New()
	router.Use(PrometheusMiddleware())
	router.GET("/items/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	counter := GetMetrics().HttpRequestsTotal.WithLabelValues(http.MethodGet, "/items/:id", "200")
	before := testutil.ToFloat64(counter)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/42", nil))
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestRecordQueryMetrics(t *testing.T) {
	InitMetrics()

	total := GetMetrics().QueryTotal.WithLabelValues("mysql", "success")
	rows := GetMetrics().QueryRowsRead.WithLabelValues("mysql")
	beforeTotal, beforeRows := testutil.ToFloat64(total), testutil.ToFloat64(rows)

	RecordQueryMetrics("mysql", "success", 5*time.Millisecond, 10)
	assert.Equal(t, beforeTotal+1, testutil.ToFloat64(total))
	assert.Equal(t, beforeRows+10, testutil.ToFloat64(rows))

	errs := GetMetrics().QueryErrors.WithLabelValues("mssql", "CONNECTION_FAILED")
	beforeErrs := testutil.ToFloat64(errs)
	RecordQueryError("mssql", "CONNECTION_FAILED")
	assert.Equal(t, beforeErrs+1, testutil.ToFloat64(errs))
}
