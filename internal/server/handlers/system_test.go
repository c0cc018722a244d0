package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/streamhub/internal/apiroutes"
	"github.com/mantonx/streamhub/internal/modules/modulemanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(h *SystemHandler, path string) *httptest.ResponseRecorder {
	r := gin.New()
	r.GET("/api", h.APIRoot)
	r.GET("/api/health", h.Health)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func healthy(context.Context) error { return nil }

func TestHealthOK(t *testing.T) {
	h := NewSystemHandler(time.Now().Add(-time.Minute), healthy, func(context.Context) map[string]modulemanager.HealthStatus {
		return map[string]modulemanager.HealthStatus{"system.catalog": {Status: modulemanager.HealthStateHealthy}}
	})

	w := serve(h, "/api/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status    string        `json:"status"`
		Uptime    int64         `json:"uptime_seconds"`
		Resources ResourceUsage `json:"resources"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.GreaterOrEqual(t, body.Uptime, int64(59))
	assert.Positive(t, body.Resources.Goroutines)
}

func TestHealthReportsDatabaseFailure(t *testing.T) {
	h := NewSystemHandler(time.Now(), func(context.Context) error { return errors.New("connection refused") }, nil)

	w := serve(h, "/api/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"unavailable"`)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestHealthReportsUnhealthyModule(t *testing.T) {
	h := NewSystemHandler(time.Now(), healthy, func(context.Context) map[string]modulemanager.HealthStatus {
		return map[string]modulemanager.HealthStatus{
			"system.catalog": {Status: modulemanager.HealthStateHealthy},
			"system.assets":  {Status: modulemanager.HealthStateUnhealthy, Message: "media root missing"},
		}
	})

	w := serve(h, "/api/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
	assert.Contains(t, w.Body.String(), "media root missing")
}

func TestAPIRootListsRoutes(t *testing.T) {
	apiroutes.ClearForTesting()
	apiroutes.RegisterFor("system.catalog", "/api/shows", http.MethodGet, "List shows")

	w := serve(NewSystemHandler(time.Now(), healthy, nil), "/api")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"/api/shows"`)
	assert.Contains(t, w.Body.String(), `"count":1`)
}
