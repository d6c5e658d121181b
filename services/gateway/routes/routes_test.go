// Copyright (C) 2025 FireDeck Analytics (engineering@firedeck.io)
// Tests for route registration

package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firedeckhq/firedeck/services/gateway/engine"
	"github.com/firedeckhq/firedeck/services/gateway/ingest"
	"github.com/firedeckhq/firedeck/services/gateway/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type noopInvoker struct{}

func (noopInvoker) Invoke(context.Context, string, ...string) (engine.Result, error) {
	return engine.Result{JSON: []byte(`{}`)}, nil
}

func (noopInvoker) InvokeWithInput(context.Context, []byte, string, ...string) (engine.Result, error) {
	return engine.Result{JSON: []byte(`{}`)}, nil
}

func (n noopInvoker) WithOutput(engine.OutputMode) engine.Invoker { return n }

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	dir := t.TempDir()
	router := gin.New()
	SetupRoutes(router, noopInvoker{}, session.NewStore(dir, 0), ingest.NewRegistry(), dir, dir)
	return router
}

func TestSetupRoutes_RegistersAPISurface(t *testing.T) {
	router := testRouter(t)

	get := []string{
		"/api/health",
		"/api/dashboard/kpis",
		"/api/analytics/incidents-by-type",
		"/api/analytics/incidents-by-severity",
		"/api/analytics/by-state",
		"/api/analytics/monthly-trends",
		"/api/analytics/response-time",
		"/api/analytics/geographic",
		"/api/analytics/top-causes",
		"/api/vendors/performance",
		"/metrics",
	}
	for _, path := range get {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.NotEqual(t, http.StatusNotFound, w.Code, "GET %s should be routed", path)
	}
}

func TestSetupRoutes_SmartAndAIAliases(t *testing.T) {
	router := testRouter(t)

	for _, path := range []string{
		"/api/smart/analyze", "/api/ai/analyze",
		"/api/smart/prepare-viz", "/api/ai/prepare-viz",
		"/api/smart/generate-report", "/api/ai/generate-report",
	} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
		// Empty bodies draw a 400, not a 404: the route exists.
		require.NotEqual(t, http.StatusNotFound, w.Code, "POST %s should be routed", path)
	}
}

func TestSetupRoutes_HealthPayload(t *testing.T) {
	router := testRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "operational")
}
