// Copyright (C) 2025 FireDeck Analytics (engineering@firedeck.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides metrics and instrumentation for the gateway.
//
// # Description
//
// This package implements Prometheus metrics for monitoring the gateway's
// two resource hot spots:
//   - HTTP traffic (request counters and latency histograms per route)
//   - Analytics-engine subprocesses (invocation counters, duration
//     histograms, in-flight gauge, queue-wait histogram)
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all gateway metrics.
const metricsNamespace = "firedeck"

// Subsystems split HTTP-facing metrics from engine-facing ones.
const (
	httpSubsystem   = "gateway"
	engineSubsystem = "engine"
)

// Metrics holds all Prometheus metrics for the gateway.
//
// Initialize once at startup via InitMetrics(). All fields are safe for
// concurrent use.
type Metrics struct {
	// RequestsTotal counts HTTP requests by route and status class.
	// Labels: route, status
	RequestsTotal *prometheus.CounterVec

	// RequestDurationSeconds measures HTTP request latency per route.
	// Labels: route
	RequestDurationSeconds *prometheus.HistogramVec

	// InvocationsTotal counts engine subprocess invocations.
	// Labels: op, status (ok, engine_error, timeout, spawn_error)
	InvocationsTotal *prometheus.CounterVec

	// InvocationDurationSeconds measures engine subprocess wall time.
	// Labels: op
	InvocationDurationSeconds *prometheus.HistogramVec

	// InvocationQueueSeconds measures time spent waiting for a process
	// slot before the subprocess is spawned.
	InvocationQueueSeconds prometheus.Histogram

	// ActiveProcesses tracks currently running engine subprocesses.
	ActiveProcesses prometheus.Gauge

	// SessionEntries tracks live entries in the upload session store.
	SessionEntries prometheus.Gauge

	// SessionEvictionsTotal counts entries removed by the TTL sweeper.
	SessionEvictionsTotal prometheus.Counter
}

// DefaultMetrics is the singleton instance used across the gateway.
// Initialized by InitMetrics(); nil until then, and every call site
// treats nil as "metrics disabled".
var DefaultMetrics *Metrics

// InitMetrics initializes and registers the default metrics instance.
// Call once at application startup. Returns the instance for convenience.
func InitMetrics() *Metrics {
	if DefaultMetrics != nil {
		return DefaultMetrics
	}
	DefaultMetrics = NewMetrics(nil)
	return DefaultMetrics
}

// NewMetrics creates a Metrics set registered on the given registerer.
// A nil registerer uses the default Prometheus registry. Tests pass their
// own registry to avoid duplicate-registration panics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: httpSubsystem,
				Name:      "requests_total",
				Help:      "HTTP requests handled, by route and status class.",
			},
			[]string{"route", "status"},
		),
		RequestDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: httpSubsystem,
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency by route.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		InvocationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: engineSubsystem,
				Name:      "invocations_total",
				Help:      "Engine subprocess invocations, by op and outcome.",
			},
			[]string{"op", "status"},
		),
		InvocationDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: engineSubsystem,
				Name:      "invocation_duration_seconds",
				Help:      "Engine subprocess wall time by op.",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"op"},
		),
		InvocationQueueSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: engineSubsystem,
				Name:      "invocation_queue_seconds",
				Help:      "Time spent waiting for a process slot.",
				Buckets:   []float64{.001, .01, .1, .5, 1, 5, 15, 60},
			},
		),
		ActiveProcesses: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: engineSubsystem,
				Name:      "active_processes",
				Help:      "Engine subprocesses currently running.",
			},
		),
		SessionEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: httpSubsystem,
				Name:      "session_entries",
				Help:      "Live entries in the upload session store.",
			},
		),
		SessionEvictionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: httpSubsystem,
				Name:      "session_evictions_total",
				Help:      "Upload session entries evicted by the TTL sweeper.",
			},
		),
	}
}
