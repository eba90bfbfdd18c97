package monitoring

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

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordHTTPRequest("GET", "/health", "200", time.Millisecond)
		m.SetTasksActive(3)
		m.RecordTaskFinished("success", time.Second)
		m.RecordExecution("timeout", time.Second)
		m.RecordSafetyViolation("denylist")
		m.SetTerminalsActive(1)
		m.AddTerminalBytes(10)
		m.RecordEventDropped("task-output")
		m.Close()
	})
	assert.Equal(t, Snapshot{}, m.GetSnapshot())
}

func TestIndependentRegistries(t *testing.T) {
	a := NewMetrics()
	defer a.Close()
	b := NewMetrics()
	defer b.Close()

	a.RecordSafetyViolation("denylist")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.SafetyViolations.WithLabelValues("denylist")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.SafetyViolations.WithLabelValues("denylist")))
}

func TestSnapshot(t *testing.T) {
	m := NewMetrics()
	defer m.Close()

	m.RecordHTTPRequest("GET", "/health", "200", 10*time.Millisecond)
	m.RecordHTTPRequest("POST", "/services/execute", "404", 30*time.Millisecond)
	m.SetTasksActive(2)
	m.SetTerminalsActive(1)

	s := m.GetSnapshot()
	assert.Equal(t, int64(2), s.TotalRequests)
	assert.Equal(t, int64(1), s.TotalErrors)
	assert.Equal(t, int64(2), s.ActiveTasks)
	assert.Equal(t, int64(1), s.ActiveSessions)
	assert.InDelta(t, 20.0, s.AvgLatencyMS, 0.5)
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()
	defer m.Close()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/tasks/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tasks/t1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/tasks/:id", "200")))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "shellcore_http_requests_total")
}
