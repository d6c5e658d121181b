// Copyright (C) 2025 FireDeck Analytics (engineering@firedeck.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that are used in
// file paths or subprocess calls. Using these validators prevents injection
// attacks (command injection, path traversal).
package validation

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// maxFilenameLength bounds client-supplied file names. Most filesystems cap
// names at 255 bytes; we stay well under that.
const maxFilenameLength = 200

// filenamePattern matches safe upload file names: a base name of letters,
// digits, spaces, dots, underscores, parentheses and hyphens, with an
// extension. Path separators are rejected outright.
var filenamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 ._()\-]*\.[A-Za-z0-9]{1,8}$`)

// ValidateFilename validates a client-supplied file name before it is used
// to build an on-disk path or passed to the analytics engine as an argument.
//
// Valid names:
//   - 1-200 characters
//   - start with a letter or digit
//   - contain only letters, digits, spaces, dots, underscores, parentheses, hyphens
//   - carry an extension (e.g. ".csv", ".xlsx")
//   - contain no path separators and no ".." segments
//
// Returns an error describing the first violation found.
//
// Example:
//
//	if err := validation.ValidateFilename(name); err != nil {
//	    return fmt.Errorf("invalid upload name: %w", err)
//	}
//	path := filepath.Join(uploadsDir, name) // safe to join
func ValidateFilename(name string) error {
	if name == "" {
		return fmt.Errorf("file name cannot be empty")
	}

	if len(name) > maxFilenameLength {
		return fmt.Errorf("file name exceeds %d characters", maxFilenameLength)
	}

	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("file name must not contain path separators: %q", name)
	}

	if strings.Contains(name, "..") {
		return fmt.Errorf("file name must not contain '..': %q", name)
	}

	if !filenamePattern.MatchString(name) {
		return fmt.Errorf("invalid file name: %q", name)
	}

	return nil
}

// SanitizeFilename normalizes and validates a client-supplied file name.
// The base name is extracted first, so browser-supplied paths like
// "C:\Users\x\data.csv" reduce to "data.csv" before validation.
//
// Returns the cleaned name if valid, or an error if invalid.
func SanitizeFilename(name string) (string, error) {
	name = strings.TrimSpace(name)

	// Browsers occasionally send a full client-side path.
	if idx := strings.LastIndexAny(name, `/\`); idx != -1 {
		name = name[idx+1:]
	}
	name = filepath.Base(name)

	if err := ValidateFilename(name); err != nil {
		return "", err
	}
	return name, nil
}

// HasExtension reports whether the file name carries one of the given
// extensions (case-insensitive, leading dot included, e.g. ".csv").
func HasExtension(name string, exts ...string) bool {
	got := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if got == strings.ToLower(e) {
			return true
		}
	}
	return false
}
