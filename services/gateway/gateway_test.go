// Copyright (C) 2025 FireDeck Analytics (engineering@firedeck.io)
// Tests for gateway service assembly

package gateway

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		GinMode:    gin.TestMode,
		UploadsDir: filepath.Join(dir, "uploads"),
		ReportsDir: filepath.Join(dir, "reports"),
	}
}

func TestApplyConfigDefaults(t *testing.T) {
	cfg := applyConfigDefaults(Config{})

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "python3", cfg.Python)
	assert.Equal(t, 4, cfg.MaxProcs)
	assert.Equal(t, 2*time.Minute, cfg.EngineTimeout)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, filepath.Dir(cfg.Script), cfg.EngineDir)
}

func TestApplyConfigDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := applyConfigDefaults(Config{
		Port:      9000,
		Script:    "/opt/engine/bridge.py",
		EngineDir: "/opt/engine",
		MaxProcs:  1,
	})

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "/opt/engine/bridge.py", cfg.Script)
	assert.Equal(t, 1, cfg.MaxProcs)
}

func TestNew_BuildsWorkingRouter(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	svc.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "operational")
}

func TestNew_CreatesDirectories(t *testing.T) {
	cfg := testConfig(t)
	_, err := New(cfg)
	require.NoError(t, err)

	assert.DirExists(t, cfg.UploadsDir)
	assert.DirExists(t, cfg.ReportsDir)
}

func TestNew_LoadsTemplateOverrides(t *testing.T) {
	cfg := testConfig(t)
	cfg.TemplatesPath = filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(cfg.TemplatesPath,
		[]byte("- name: delivery\n  required: [delivery_id]\n"), 0o644))

	svc, err := New(cfg)
	require.NoError(t, err)

	s := svc.(*service)
	defer s.cleanup()
	_, ok := s.templates.Get("delivery")
	assert.True(t, ok)
}

func TestNew_BadTemplatesPathFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.TemplatesPath = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := New(cfg)
	assert.Error(t, err)
}
