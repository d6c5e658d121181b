// Copyright (C) 2025 FireDeck Analytics (engineering@firedeck.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package engine invokes the external Python analytics engine as a
// subprocess and maps its stdio streams onto a Go result.
//
// # Process Contract
//
// The engine is spawned as
//
//	<python> <script> <op> [args...]
//
// in a fixed working directory. On success it writes a single JSON value
// to stdout and exits 0. Any non-zero exit is a hard failure with
// diagnostics expected on stderr. Structured configuration (visualization
// configs) is delivered on the child's standard input, never through
// side-channel files.
//
// # Resource Model
//
// A weighted semaphore caps concurrent subprocesses, and every invocation
// runs under a deadline: a hung engine process is killed rather than held
// open. Both limits come from Config.
//
// # Output Modes
//
// Two output contracts exist and are preserved as configuration:
//
//   - OutputStrict: stdout must parse as JSON; anything else is an error.
//   - OutputLenient: JSON when possible, raw text otherwise.
//
// Most call sites are strict; lenient exists for pass-through endpoints
// whose payloads the gateway never inspects.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/firedeckhq/firedeck/services/gateway/observability"
)

// Engine operation names, matching the bridge script's dispatch table.
const (
	OpGetKPIs             = "get_kpis"
	OpIncidentsByType     = "get_incidents_by_type"
	OpIncidentsBySeverity = "get_incidents_by_severity"
	OpStateAnalysis       = "get_state_analysis"
	OpMonthlyTrends       = "get_monthly_trends"
	OpResponseTime        = "get_response_time"
	OpVendorPerformance   = "get_vendor_performance"
	OpGeographicData      = "get_geographic_data"
	OpTopCauses           = "get_top_causes"
	OpSearchIncidents     = "search_incidents"
	OpGeneratePDFReport   = "generate_pdf_report"
	OpGenerateExcelReport = "generate_excel_report"
	OpAnalyzeDataset      = "analyze_dataset"
	OpPrepareChartData    = "prepare_chart_data"
	OpGenerateAIReport    = "generate_ai_report"
)

// ErrEngineFailure marks failures reported by the engine process itself:
// non-zero exit, or unparseable output under OutputStrict. Callers branch
// on it with errors.Is to pick the HTTP status.
var ErrEngineFailure = errors.New("engine failure")

// ErrTimeout marks invocations killed by the per-invocation deadline.
var ErrTimeout = errors.New("engine timed out")

// EngineError is the concrete error for engine-reported failures. Its
// message is the engine's own diagnostic text, verbatim: stderr when
// non-empty, else stdout, else a generic exit-code message.
type EngineError struct {
	Op      string
	Code    int
	Message string
}

func (e *EngineError) Error() string { return e.Message }

// Is lets errors.Is(err, ErrEngineFailure) match without losing the
// verbatim message.
func (e *EngineError) Is(target error) bool { return target == ErrEngineFailure }

// OutputMode selects the stdout-parsing contract.
type OutputMode int

const (
	// OutputStrict requires stdout to be valid JSON.
	OutputStrict OutputMode = iota

	// OutputLenient returns raw text when stdout is not valid JSON.
	OutputLenient
)

// Result is a completed engine invocation. JSON is non-nil when stdout
// parsed as a JSON value; Raw always holds the trimmed stdout text.
type Result struct {
	JSON json.RawMessage
	Raw  string
}

// Decode unmarshals the JSON result into v.
func (r Result) Decode(v any) error {
	if r.JSON == nil {
		return fmt.Errorf("engine result is not JSON")
	}
	return json.Unmarshal(r.JSON, v)
}

// Invoker is the handler-facing contract. Handlers depend on this
// interface; tests substitute fakes.
type Invoker interface {
	// Invoke runs one engine operation and waits for it to finish.
	Invoke(ctx context.Context, op string, args ...string) (Result, error)

	// InvokeWithInput additionally writes input to the child's stdin.
	InvokeWithInput(ctx context.Context, input []byte, op string, args ...string) (Result, error)

	// WithOutput returns a view of the same invoker using the given
	// output mode. The underlying process limits are shared.
	WithOutput(mode OutputMode) Invoker
}

// Config configures the Python engine subprocess runner.
type Config struct {
	// Python is the interpreter binary. Default: "python3".
	Python string

	// Script is the bridge script path, relative to Dir or absolute.
	Script string

	// Dir is the working directory for every subprocess.
	Dir string

	// MaxProcs caps concurrent subprocesses. Default: 4.
	MaxProcs int

	// Timeout is the per-invocation deadline after a slot is acquired.
	// Default: 2 minutes.
	Timeout time.Duration

	// Output is the default stdout contract. Default: OutputStrict.
	Output OutputMode
}

// PythonEngine runs the analytics engine with bounded concurrency.
// Safe for concurrent use; construct once with New and share.
type PythonEngine struct {
	cfg Config
	sem *semaphore.Weighted
	log *slog.Logger
}

var _ Invoker = (*PythonEngine)(nil)

// New creates a PythonEngine, applying defaults for zero-value fields.
func New(cfg Config) *PythonEngine {
	if cfg.Python == "" {
		cfg.Python = "python3"
	}
	if cfg.MaxProcs <= 0 {
		cfg.MaxProcs = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &PythonEngine{
		cfg: cfg,
		sem: semaphore.NewWeighted(int64(cfg.MaxProcs)),
		log: slog.Default().With("component", "engine"),
	}
}

// WithOutput returns a shallow view sharing the semaphore but using the
// given output mode.
func (e *PythonEngine) WithOutput(mode OutputMode) Invoker {
	view := *e
	view.cfg.Output = mode
	return &view
}

// Invoke runs one engine operation and waits for it to finish.
func (e *PythonEngine) Invoke(ctx context.Context, op string, args ...string) (Result, error) {
	return e.run(ctx, nil, op, args)
}

// InvokeWithInput runs one engine operation with input on stdin.
func (e *PythonEngine) InvokeWithInput(ctx context.Context, input []byte, op string, args ...string) (Result, error) {
	return e.run(ctx, input, op, args)
}

func (e *PythonEngine) run(ctx context.Context, input []byte, op string, args []string) (Result, error) {
	queued := time.Now()
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return Result{}, fmt.Errorf("waiting for engine slot: %w", err)
	}
	defer e.sem.Release(1)

	if m := observability.DefaultMetrics; m != nil {
		m.InvocationQueueSeconds.Observe(time.Since(queued).Seconds())
		m.ActiveProcesses.Inc()
		defer m.ActiveProcesses.Dec()
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	argv := append([]string{e.cfg.Script, op}, args...)
	cmd := exec.CommandContext(ctx, e.cfg.Python, argv...)
	cmd.Dir = e.cfg.Dir

	// After the deadline kill, don't wait on stdio pipes held open by
	// engine grandchildren.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if input != nil {
		cmd.Stdin = bytes.NewReader(input)
	}

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	status := "ok"
	defer func() {
		if m := observability.DefaultMetrics; m != nil {
			m.InvocationsTotal.WithLabelValues(op, status).Inc()
			m.InvocationDurationSeconds.WithLabelValues(op).Observe(elapsed.Seconds())
		}
	}()

	if runErr != nil {
		// A killed child surfaces as exit code -1; the context error
		// tells deadline and caller-cancellation apart from real exits.
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				status = "timeout"
				e.log.Error("engine invocation timed out", "op", op, "timeout", e.cfg.Timeout)
				return Result{}, fmt.Errorf("%w: op %s exceeded %s", ErrTimeout, op, e.cfg.Timeout)
			}
			status = "canceled"
			e.log.Warn("engine invocation canceled", "op", op)
			return Result{}, fmt.Errorf("op %s canceled: %w", op, ctxErr)
		}

		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			status = "engine_error"
			e.log.Error("engine exited non-zero", "op", op, "code", exitErr.ExitCode(), "stderr", strings.TrimSpace(stderr.String()))
			return Result{}, &EngineError{
				Op:      op,
				Code:    exitErr.ExitCode(),
				Message: diagnostic(stderr.String(), stdout.String(), exitErr.ExitCode()),
			}
		}

		status = "spawn_error"
		e.log.Error("engine failed to start", "op", op, "error", runErr)
		return Result{}, fmt.Errorf("starting engine process: %w", runErr)
	}

	out := strings.TrimSpace(stdout.String())
	res := Result{Raw: out}
	if json.Valid([]byte(out)) {
		res.JSON = json.RawMessage(out)
	} else if e.cfg.Output == OutputStrict {
		status = "engine_error"
		e.log.Error("engine produced non-JSON output", "op", op, "bytes", len(out))
		return Result{}, &EngineError{
			Op:      op,
			Message: fmt.Sprintf("op %s produced non-JSON output", op),
		}
	}

	e.log.Debug("engine invocation complete", "op", op, "duration", elapsed)
	return res, nil
}

// diagnostic picks the most useful failure text: stderr, then stdout,
// then a generic exit-code message.
func diagnostic(stderr, stdout string, code int) string {
	if s := strings.TrimSpace(stderr); s != "" {
		return s
	}
	if s := strings.TrimSpace(stdout); s != "" {
		return s
	}
	return fmt.Sprintf("engine exited with code %d", code)
}
