// Copyright (C) 2025 FireDeck Analytics (engineering@firedeck.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command gateway starts the FireDeck analytics gateway HTTP server.
//
// The gateway fronts the fire-department incident dashboard: it serves
// the REST API the browser calls and shells out to the Python analytics
// engine for every computation.
//
// # Environment Variables
//
//   - GATEWAY_PORT: HTTP server port (default: 8080)
//   - ENGINE_PYTHON: Python interpreter for the engine (default: python3)
//   - ENGINE_SCRIPT: engine bridge script path (default: ./engine/api_bridge.py)
//   - ENGINE_DIR: working directory for engine subprocesses (default: script dir)
//   - ENGINE_MAX_PROCS: max concurrent engine subprocesses (default: 4)
//   - ENGINE_TIMEOUT_SECONDS: per-invocation timeout (default: 120)
//   - UPLOADS_DIR: uploaded dataset directory (default: ./uploads)
//   - REPORTS_DIR: generated report directory (default: ./reports)
//   - SESSION_TTL_MINUTES: upload session lifetime (default: 120)
//   - TEMPLATES_PATH: YAML ingestion template overrides (optional)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: firedeck-otel-collector:4317)
//   - GIN_MODE: debug, release or test
//   - LOG_LEVEL: debug, info, warn or error (default: info)
//   - LOG_DIR: if set, JSON logs are also written to {LOG_DIR}/gateway_{date}.log
//
// # Usage
//
//	go build -o gateway ./cmd/gateway
//	./gateway
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/firedeckhq/firedeck/pkg/logging"
	"github.com/firedeckhq/firedeck/services/gateway"
)

func main() {
	// Local development reads .env; in containers the variables come
	// from the runtime, so a missing file is fine.
	envLoaded := godotenv.Load() == nil

	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(getEnvString("LOG_LEVEL", "info")),
		LogDir:  os.Getenv("LOG_DIR"),
		Service: "gateway",
		JSON:    true,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	if envLoaded {
		slog.Info("loaded configuration from .env")
	}

	cfg := gateway.Config{
		Port:          getEnvInt("GATEWAY_PORT", 8080),
		Python:        getEnvString("ENGINE_PYTHON", "python3"),
		Script:        getEnvString("ENGINE_SCRIPT", "./engine/api_bridge.py"),
		EngineDir:     os.Getenv("ENGINE_DIR"),
		UploadsDir:    getEnvString("UPLOADS_DIR", "./uploads"),
		ReportsDir:    getEnvString("REPORTS_DIR", "./reports"),
		MaxProcs:      getEnvInt("ENGINE_MAX_PROCS", 4),
		EngineTimeout: time.Duration(getEnvInt("ENGINE_TIMEOUT_SECONDS", 120)) * time.Second,
		SessionTTL:    time.Duration(getEnvInt("SESSION_TTL_MINUTES", 120)) * time.Minute,
		TemplatesPath: os.Getenv("TEMPLATES_PATH"),
		OTelEndpoint:  getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", "firedeck-otel-collector:4317"),
		GinMode:       os.Getenv("GIN_MODE"),
	}

	slog.Info("starting gateway",
		"port", cfg.Port,
		"engine_script", cfg.Script,
		"uploads_dir", cfg.UploadsDir,
	)

	svc, err := gateway.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create gateway: %v", err)
	}

	if err := svc.Run(); err != nil {
		log.Fatalf("Gateway error: %v", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
