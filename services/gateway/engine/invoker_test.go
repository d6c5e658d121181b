// Copyright (C) 2025 FireDeck Analytics (engineering@firedeck.io)
// Tests for the engine subprocess invoker. A shell script stands in for
// the Python bridge so the process contract is exercised end to end.

package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScript writes a stand-in engine script and returns its path.
// The invoker runs it as: sh <script> <op> [args...]
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func newTestEngine(t *testing.T, body string) *PythonEngine {
	t.Helper()
	return New(Config{
		Python:  "/bin/sh",
		Script:  writeScript(t, body),
		Timeout: 10 * time.Second,
	})
}

func TestInvoke_JSONRoundTrip(t *testing.T) {
	eng := newTestEngine(t, `echo '{"total_incidents": 500, "avg_response_time": 22.4}'`)

	res, err := eng.Invoke(context.Background(), OpGetKPIs)
	require.NoError(t, err)
	require.NotNil(t, res.JSON)
	assert.JSONEq(t, `{"total_incidents": 500, "avg_response_time": 22.4}`, string(res.JSON))
}

func TestInvoke_PassesOpAndArgs(t *testing.T) {
	eng := newTestEngine(t, `printf '{"op": "%s", "arg": %s}' "$1" "$2"`)

	res, err := eng.Invoke(context.Background(), OpSearchIncidents, `{"state": "Delhi"}`)
	require.NoError(t, err)

	var got struct {
		Op  string         `json:"op"`
		Arg map[string]any `json:"arg"`
	}
	require.NoError(t, res.Decode(&got))
	assert.Equal(t, OpSearchIncidents, got.Op)
	assert.Equal(t, "Delhi", got.Arg["state"])
}

func TestInvoke_NonZeroExit_StderrVerbatim(t *testing.T) {
	eng := newTestEngine(t, `echo "FileNotFoundError: incidents.json" 1>&2; exit 3`)

	_, err := eng.Invoke(context.Background(), OpGetKPIs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEngineFailure))
	assert.Equal(t, "FileNotFoundError: incidents.json", err.Error())

	var ee *EngineError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 3, ee.Code)
	assert.Equal(t, OpGetKPIs, ee.Op)
}

func TestInvoke_NonZeroExit_StdoutFallback(t *testing.T) {
	eng := newTestEngine(t, `echo "partial diagnostics"; exit 1`)

	_, err := eng.Invoke(context.Background(), OpMonthlyTrends)
	require.Error(t, err)
	assert.Equal(t, "partial diagnostics", err.Error())
}

func TestInvoke_NonZeroExit_NoOutput(t *testing.T) {
	eng := newTestEngine(t, `exit 2`)

	_, err := eng.Invoke(context.Background(), OpTopCauses)
	require.Error(t, err)
	assert.Equal(t, "engine exited with code 2", err.Error())
}

func TestInvoke_StrictRejectsNonJSON(t *testing.T) {
	eng := newTestEngine(t, `echo "Loaded 500 rows"`)

	_, err := eng.Invoke(context.Background(), OpGetKPIs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEngineFailure))
}

func TestInvoke_LenientKeepsRawText(t *testing.T) {
	eng := newTestEngine(t, `echo "Loaded 500 rows"`)

	res, err := eng.WithOutput(OutputLenient).Invoke(context.Background(), OpGetKPIs)
	require.NoError(t, err)
	assert.Nil(t, res.JSON)
	assert.Equal(t, "Loaded 500 rows", res.Raw)
}

func TestInvokeWithInput_DeliversStdin(t *testing.T) {
	eng := newTestEngine(t, `cat -`)

	cfg := []byte(`{"type": "pie", "category": "severity"}`)
	res, err := eng.InvokeWithInput(context.Background(), cfg, OpPrepareChartData, "incidents.csv")
	require.NoError(t, err)
	assert.JSONEq(t, string(cfg), string(res.JSON))
}

func TestInvoke_TimeoutKillsProcess(t *testing.T) {
	eng := New(Config{
		Python:  "/bin/sh",
		Script:  writeScript(t, `sleep 30; echo '{}'`),
		Timeout: 100 * time.Millisecond,
	})

	start := time.Now()
	_, err := eng.Invoke(context.Background(), OpAnalyzeDataset, "big.csv")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestInvoke_CancellationIsNotEngineFailure(t *testing.T) {
	eng := New(Config{
		Python:  "/bin/sh",
		Script:  writeScript(t, `sleep 30; echo '{}'`),
		Timeout: 10 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := eng.Invoke(ctx, OpGetKPIs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, ErrEngineFailure))
	assert.False(t, errors.Is(err, ErrTimeout))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestInvoke_BoundedConcurrency(t *testing.T) {
	eng := New(Config{
		Python:   "/bin/sh",
		Script:   writeScript(t, `sleep 2; echo '{}'`),
		MaxProcs: 1,
		Timeout:  10 * time.Second,
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = eng.Invoke(context.Background(), OpGetKPIs)
	}()

	// Let the first invocation claim the only slot.
	time.Sleep(200 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := eng.Invoke(ctx, OpGetKPIs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	<-done
}

func TestInvoke_ScalarJSONAccepted(t *testing.T) {
	eng := newTestEngine(t, `echo '42'`)

	res, err := eng.Invoke(context.Background(), OpGetKPIs)
	require.NoError(t, err)
	assert.Equal(t, "42", string(res.JSON))
}
