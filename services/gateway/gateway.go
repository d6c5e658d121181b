// Copyright (C) 2025 FireDeck Analytics (engineering@firedeck.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package gateway assembles the fire-department analytics gateway: a
// thin HTTP layer that shells out to the Python analytics engine for
// every computation and keeps only upload bookkeeping in-process.
//
// # Description
//
// The gateway owns four pieces of state: the engine invoker (bounded
// subprocess pool), the upload session store (TTL-evicted), the
// ingestion template registry (optionally hot-reloaded from YAML), and
// the Gin router. Everything analytical lives on the other side of the
// subprocess boundary.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/firedeckhq/firedeck/services/gateway/engine"
	"github.com/firedeckhq/firedeck/services/gateway/ingest"
	"github.com/firedeckhq/firedeck/services/gateway/middleware"
	"github.com/firedeckhq/firedeck/services/gateway/observability"
	"github.com/firedeckhq/firedeck/services/gateway/routes"
	"github.com/firedeckhq/firedeck/services/gateway/session"
)

// Service is the gateway lifecycle contract. Run blocks; Router exposes
// the configured engine for integration tests.
type Service interface {
	Run() error
	Router() *gin.Engine
}

// Config carries the gateway's deployment knobs. Zero values get
// defaults from applyConfigDefaults.
type Config struct {
	// Port is the HTTP server port. Default: 8080.
	Port int

	// Python is the interpreter used to run the engine bridge script.
	// Default: "python3".
	Python string

	// Script is the path to the engine bridge script.
	// Default: "./engine/api_bridge.py".
	Script string

	// EngineDir is the working directory for engine subprocesses.
	// Default: the script's directory.
	EngineDir string

	// UploadsDir holds uploaded datasets and is the session store's
	// fallback root. Default: "./uploads".
	UploadsDir string

	// ReportsDir is where the engine writes generated documents; served
	// read-only under /reports. Default: "./reports".
	ReportsDir string

	// MaxProcs caps concurrent engine subprocesses. Default: 4.
	MaxProcs int

	// EngineTimeout is the per-invocation wall clock limit before the
	// subprocess is killed. Default: 2 minutes.
	EngineTimeout time.Duration

	// SessionTTL is how long upload sessions stay resolvable.
	// Default: 2 hours.
	SessionTTL time.Duration

	// TemplatesPath optionally points at a YAML file of ingestion
	// template overrides, hot-reloaded on change. Empty disables it.
	TemplatesPath string

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "firedeck-otel-collector:4317".
	OTelEndpoint string

	// GinMode sets the Gin framework mode ("debug", "release", "test").
	// Empty defers to the GIN_MODE env var.
	GinMode string
}

type service struct {
	config    Config
	router    *gin.Engine
	invoker   *engine.PythonEngine
	store     *session.Store
	sweeper   *session.Sweeper
	templates *ingest.Registry

	templateWatcher *ingest.Watcher
	watcherCancel   context.CancelFunc
	tracerCleanup   func(context.Context)
}

// New builds a gateway Service from the configuration.
func New(cfg Config) (Service, error) {
	s := &service{config: applyConfigDefaults(cfg)}

	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}

	for _, dir := range []string{s.config.UploadsDir, s.config.ReportsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	cleanup, err := s.initTracer()
	if err != nil {
		return nil, fmt.Errorf("initializing tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	observability.InitMetrics()

	s.invoker = engine.New(engine.Config{
		Python:   s.config.Python,
		Script:   s.config.Script,
		Dir:      s.config.EngineDir,
		MaxProcs: s.config.MaxProcs,
		Timeout:  s.config.EngineTimeout,
	})

	s.store = session.NewStore(s.config.UploadsDir, s.config.SessionTTL)
	s.sweeper = session.NewSweeper(s.store, s.config.SessionTTL/4)

	if err := s.initTemplates(); err != nil {
		s.cleanup()
		return nil, err
	}

	s.initRouter()
	return s, nil
}

// Run starts the sweeper and the HTTP server, blocking until the server
// stops. Resources are released on return.
func (s *service) Run() error {
	defer s.cleanup()

	s.sweeper.Start()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("starting analytics gateway",
		"port", s.config.Port,
		"engine_script", s.config.Script,
		"max_procs", s.config.MaxProcs)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.Python == "" {
		cfg.Python = "python3"
	}
	if cfg.Script == "" {
		cfg.Script = "./engine/api_bridge.py"
	}
	if cfg.EngineDir == "" {
		cfg.EngineDir = filepath.Dir(cfg.Script)
	}
	if cfg.UploadsDir == "" {
		cfg.UploadsDir = "./uploads"
	}
	if cfg.ReportsDir == "" {
		cfg.ReportsDir = "./reports"
	}
	if cfg.MaxProcs == 0 {
		cfg.MaxProcs = 4
	}
	if cfg.EngineTimeout == 0 {
		cfg.EngineTimeout = 2 * time.Minute
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 2 * time.Hour
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "firedeck-otel-collector:4317"
	}
	return cfg
}

// initTracer wires the OTLP trace exporter. The gRPC connection is
// lazy, so an unreachable collector degrades to dropped spans rather
// than a startup failure.
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("creating gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("firedeck-gateway")))
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(traceExporter)))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// initTemplates seeds the registry and, when a TemplatesPath is set,
// attaches the hot-reload watcher.
func (s *service) initTemplates() error {
	s.templates = ingest.NewRegistry()
	if s.config.TemplatesPath == "" {
		return nil
	}

	watcher, err := ingest.NewWatcher(s.templates, s.config.TemplatesPath)
	if err != nil {
		return fmt.Errorf("loading ingestion templates: %w", err)
	}
	s.templateWatcher = watcher

	ctx, cancel := context.WithCancel(context.Background())
	s.watcherCancel = cancel
	watcher.Start(ctx)
	return nil
}

func (s *service) initRouter() {
	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(otelgin.Middleware("firedeck-gateway"))
	s.router.Use(middleware.RequestLogger(), middleware.Metrics())

	routes.SetupRoutes(s.router, s.invoker, s.store, s.templates,
		s.config.UploadsDir, s.config.ReportsDir)
}

// cleanup releases background resources. Safe on a partially built
// service.
func (s *service) cleanup() {
	if s.sweeper != nil {
		s.sweeper.Stop()
	}
	if s.watcherCancel != nil {
		s.watcherCancel()
	}
	if s.templateWatcher != nil {
		if err := s.templateWatcher.Stop(); err != nil {
			slog.Warn("template watcher stop error", "error", err)
		}
	}
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}
