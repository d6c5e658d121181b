// Copyright (C) 2025 FireDeck Analytics (engineering@firedeck.io)
// Tests for upload file name validation

package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFilename_Valid(t *testing.T) {
	valid := []string{
		"incidents.csv",
		"vendor report 2025.xlsx",
		"fire_stations (final).xls",
		"Q1-summary.CSV",
		"1.csv",
	}

	for _, name := range valid {
		assert.NoError(t, ValidateFilename(name), "expected %q to be valid", name)
	}
}

func TestValidateFilename_Invalid(t *testing.T) {
	invalid := []string{
		"",
		"../../etc/passwd",
		"dir/incidents.csv",
		`dir\incidents.csv`,
		".hidden",
		"noextension",
		"data..csv",
		"-leading-dash.csv",
		strings.Repeat("a", 250) + ".csv",
	}

	for _, name := range invalid {
		assert.Error(t, ValidateFilename(name), "expected %q to be rejected", name)
	}
}

func TestSanitizeFilename_StripsClientPaths(t *testing.T) {
	got, err := SanitizeFilename(`C:\Users\chief\Desktop\incidents.csv`)
	require.NoError(t, err)
	assert.Equal(t, "incidents.csv", got)

	got, err = SanitizeFilename("/tmp/uploads/data.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "data.xlsx", got)

	got, err = SanitizeFilename("  padded.csv  ")
	require.NoError(t, err)
	assert.Equal(t, "padded.csv", got)
}

func TestSanitizeFilename_RejectsTraversal(t *testing.T) {
	_, err := SanitizeFilename("..")
	assert.Error(t, err)

	_, err = SanitizeFilename("....csv")
	assert.Error(t, err)
}

func TestHasExtension(t *testing.T) {
	assert.True(t, HasExtension("data.csv", ".csv", ".xlsx"))
	assert.True(t, HasExtension("DATA.XLSX", ".csv", ".xlsx"))
	assert.False(t, HasExtension("data.pdf", ".csv", ".xlsx"))
	assert.False(t, HasExtension("data", ".csv"))
}
