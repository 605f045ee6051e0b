package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveTransition("deposit", "completed")
	m.ObserveTransition("deposit", "completed")
	m.ObserveCompleted("deposit", "USD", 1500)
	m.ObserveOperation("deposit", time.Now(), nil)
	m.EventDropped()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.transitions.WithLabelValues("deposit", "completed")))
	assert.Equal(t, float64(1500), testutil.ToFloat64(m.volume.WithLabelValues("deposit", "USD")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.eventsDropped))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveTransition("deposit", "failed")
		m.ObserveOperation("deposit", time.Now(), nil)
		m.EventDeliveryFailed()
	})
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	New(reg).ObserveRetry("completed")

	router := gin.New()
	router.GET("/metrics", Handler(reg))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "wallet_ledger_retries_total")
}
