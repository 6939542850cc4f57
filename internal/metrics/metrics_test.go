package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Recommendation(t *testing.T) {
	m := New()
	m.Recommendation("api", "ok", "rice", 2*time.Millisecond)
	m.Recommendation("api", "ok", "rice", 0)
	m.Recommendation("batch", "invalid_input", "", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.recommendations.WithLabelValues("api", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recommendations.WithLabelValues("batch", "invalid_input")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.topCrops.WithLabelValues("rice")))
}

func TestMetrics_CacheAndModel(t *testing.T) {
	m := New()
	m.CacheHit()
	m.CacheMiss()
	m.CacheMiss()
	m.ModelLoaded(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheHits))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheMisses))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.modelLoaded))

	m.ModelLoaded(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.modelLoaded))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Recommendation("api", "ok", "rice", time.Millisecond)
		m.CacheHit()
		m.CacheMiss()
		m.ModelLoaded(true)
		m.IngestMessage("ok")
		m.EventPublishFailed()
	})
}

func TestMetrics_GinMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	router := gin.New()
	router.Use(m.GinMiddleware())
	router.GET("/api/v1/crops", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/crops", nil))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/api/v1/crops", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("unmatched", "404")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "cropadvisor_http_requests_total")
	assert.Contains(t, string(body), "go_goroutines")
}
