// Copyright (C) 2025 FireDeck Analytics (engineering@firedeck.io)
// Tests for the structured logging package

package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, LevelError, ParseLevel(" error "))
	assert.Equal(t, LevelInfo, ParseLevel("info"))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestNew_FileLogging(t *testing.T) {
	dir := t.TempDir()

	logger := New(Config{
		Level:   LevelInfo,
		LogDir:  dir,
		Service: "gateway",
		Quiet:   true,
	})
	logger.Info("engine invoked", "op", "get_kpis", "status", "ok")
	require.NoError(t, logger.Close())

	expected := filepath.Join(dir,
		fmt.Sprintf("gateway_%s.log", time.Now().Format("2006-01-02")))
	data, err := os.ReadFile(expected)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
	assert.Equal(t, "engine invoked", entry["msg"])
	assert.Equal(t, "get_kpis", entry["op"])
	assert.Equal(t, "gateway", entry["service"])
}

func TestNew_LevelFilter(t *testing.T) {
	dir := t.TempDir()

	logger := New(Config{
		Level:   LevelWarn,
		LogDir:  dir,
		Service: "gateway",
		Quiet:   true,
	})
	logger.Info("should be filtered")
	logger.Warn("should appear")
	require.NoError(t, logger.Close())

	path := filepath.Join(dir,
		fmt.Sprintf("gateway_%s.log", time.Now().Format("2006-01-02")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "should be filtered")
	assert.Contains(t, string(data), "should appear")
}

func TestWith_ChildIncludesAttrs(t *testing.T) {
	dir := t.TempDir()

	logger := New(Config{
		LogDir:  dir,
		Service: "gateway",
		Quiet:   true,
	})
	child := logger.With("upload_id", "abc-123")
	child.Info("prepared viz")
	require.NoError(t, logger.Close())

	path := filepath.Join(dir,
		fmt.Sprintf("gateway_%s.log", time.Now().Format("2006-01-02")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "abc-123")
}

func TestClose_Idempotent(t *testing.T) {
	logger := New(Config{LogDir: t.TempDir(), Quiet: true})
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())
}

func TestDefault_DoesNotPanic(t *testing.T) {
	logger := Default()
	logger.Info("hello")
	assert.NoError(t, logger.Close())
}
