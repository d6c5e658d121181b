// Copyright (C) 2025 FireDeck Analytics (engineering@firedeck.io)
// Tests for ingestion templates and row validation

package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// incidentRow builds a minimally valid incident record.
func incidentRow(overrides map[string]string) map[string]string {
	row := map[string]string{
		"incident_id":           "inc-001",
		"timestamp":             "2025-03-14T09:30:00",
		"state":                 "Maharashtra",
		"city":                  "Mumbai",
		"incident_type":         "Building Fire",
		"severity":              "High",
		"response_time_minutes": "12",
	}
	for k, v := range overrides {
		row[k] = v
	}
	return row
}

func TestValidate_AllValid(t *testing.T) {
	tpl, ok := NewRegistry().Get("incident")
	require.True(t, ok)

	out := tpl.Validate([]map[string]string{
		incidentRow(nil),
		incidentRow(map[string]string{"severity": "Low"}),
	})

	assert.Equal(t, 2, out.Processed)
	assert.Equal(t, 0, out.Invalid)
	assert.Len(t, out.Valid, 2)
	assert.Empty(t, out.Errors)
}

func TestValidate_MissingSeverity(t *testing.T) {
	tpl, ok := NewRegistry().Get("incident")
	require.True(t, ok)

	// 10 rows, 2 without a severity value.
	rows := make([]map[string]string, 0, 10)
	for i := 0; i < 10; i++ {
		row := incidentRow(map[string]string{
			"incident_id": fmt.Sprintf("inc-%03d", i),
		})
		if i == 3 || i == 7 {
			row["severity"] = ""
		}
		rows = append(rows, row)
	}

	out := tpl.Validate(rows)

	assert.Equal(t, 10, out.Processed)
	assert.Equal(t, 2, out.Invalid)
	assert.Len(t, out.Valid, 8)
	require.Len(t, out.Errors, 2)
	for _, e := range out.Errors {
		assert.Equal(t, "severity", e.Field)
	}
}

func TestValidate_RowNumbersOffsetByHeader(t *testing.T) {
	tpl, ok := NewRegistry().Get("incident")
	require.True(t, ok)

	out := tpl.Validate([]map[string]string{
		incidentRow(nil),
		incidentRow(map[string]string{"city": ""}),
	})

	// Data row index 1 is spreadsheet row 3.
	require.Len(t, out.Errors, 1)
	assert.Equal(t, 3, out.Errors[0].Row)
	assert.Equal(t, "city", out.Errors[0].Field)
}

func TestValidate_EnumViolation(t *testing.T) {
	tpl, ok := NewRegistry().Get("incident")
	require.True(t, ok)

	out := tpl.Validate([]map[string]string{
		incidentRow(map[string]string{"severity": "Catastrophic"}),
	})

	assert.Equal(t, 1, out.Invalid)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "severity", out.Errors[0].Field)
	assert.Contains(t, out.Errors[0].Message, "Catastrophic")
	assert.Contains(t, out.Errors[0].Message, "Critical")
}

func TestValidate_MultipleViolationsOneRow(t *testing.T) {
	tpl, ok := NewRegistry().Get("incident")
	require.True(t, ok)

	out := tpl.Validate([]map[string]string{
		incidentRow(map[string]string{
			"state":         "",
			"incident_type": "Dragon Attack",
		}),
	})

	// One invalid row, one error per violation.
	assert.Equal(t, 1, out.Invalid)
	assert.Len(t, out.Errors, 2)
}

func TestValidate_OptionalFieldsMayBeAbsent(t *testing.T) {
	tpl, ok := NewRegistry().Get("station")
	require.True(t, ok)

	out := tpl.Validate([]map[string]string{
		{
			"station_id":   "FS-MAH-001",
			"station_name": "Mumbai Fire Station 1",
			"state":        "Maharashtra",
			"city":         "Mumbai",
		},
	})

	assert.Equal(t, 0, out.Invalid)
	assert.Len(t, out.Valid, 1)
}

func TestRegistry_BuiltinKinds(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"incident", "station", "vendor"}, r.Names())

	tpl, ok := r.Get("vendor")
	require.True(t, ok)
	assert.Contains(t, tpl.Required, "vendor_type")
	assert.Contains(t, tpl.Allowed["vendor_type"], "Equipment Supplier")

	_, ok = r.Get("delivery")
	assert.False(t, ok)
}

const overridesYAML = `
- name: incident
  required: [incident_id, severity]
  allowed:
    severity: [Low, High]
- name: delivery
  required: [delivery_id, vendor_id]
`

func TestRegistry_LoadFileOverridesAndAdds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(overridesYAML), 0o644))

	r := NewRegistry()
	require.NoError(t, r.LoadFile(path))

	tpl, ok := r.Get("incident")
	require.True(t, ok)
	assert.Equal(t, []string{"incident_id", "severity"}, tpl.Required)
	assert.Equal(t, []string{"Low", "High"}, tpl.Allowed["severity"])

	_, ok = r.Get("delivery")
	assert.True(t, ok)

	// Untouched built-ins survive the merge.
	_, ok = r.Get("station")
	assert.True(t, ok)
}

func TestRegistry_LoadFileRejectsBadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- required: [x]\n"), 0o644))

	r := NewRegistry()
	assert.Error(t, r.LoadFile(path))

	// Failed load leaves the built-ins active.
	_, ok := r.Get("incident")
	assert.True(t, ok)
}

func TestWatcher_HotReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- name: custom\n  required: [id]\n"), 0o644))

	r := NewRegistry()
	w, err := NewWatcher(r, path)
	require.NoError(t, err)
	defer w.Stop()

	_, ok := r.Get("custom")
	require.True(t, ok, "initial load")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	require.NoError(t, os.WriteFile(path, []byte("- name: renamed\n  required: [id]\n"), 0o644))

	assert.Eventually(t, func() bool {
		_, ok := r.Get("renamed")
		return ok
	}, 3*time.Second, 20*time.Millisecond)
}
