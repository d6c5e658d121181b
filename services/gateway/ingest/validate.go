// Copyright (C) 2025 FireDeck Analytics (engineering@firedeck.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ingest

import (
	"fmt"
	"strings"

	"github.com/firedeckhq/firedeck/services/gateway/datatypes"
)

// Outcome is the result of validating a batch of rows against one
// template. Valid and the rows counted by Invalid never overlap;
// Processed = len(Valid) + Invalid.
type Outcome struct {
	Processed int
	Valid     []map[string]string
	Invalid   int
	Errors    []datatypes.ValidationError
}

// Validate checks every row against the template and partitions the
// batch into valid rows and per-field errors.
//
// Reported row numbers are spreadsheet coordinates: data row i maps to
// row i+2 (one for the header, one for 1-based counting). A row is
// invalid if any required field is missing or empty, or any constrained
// field carries a value outside its allowed set; each violation yields
// exactly one error.
func (t Template) Validate(rows []map[string]string) Outcome {
	out := Outcome{Processed: len(rows)}

	for i, row := range rows {
		rowNum := i + 2
		bad := false

		for _, field := range t.Required {
			if strings.TrimSpace(row[field]) == "" {
				out.Errors = append(out.Errors, datatypes.ValidationError{
					Row:     rowNum,
					Field:   field,
					Message: fmt.Sprintf("required field %q is missing or empty", field),
				})
				bad = true
			}
		}

		for field, allowed := range t.Allowed {
			value := strings.TrimSpace(row[field])
			if value == "" {
				continue // emptiness is the required-field check's concern
			}
			if !contains(allowed, value) {
				out.Errors = append(out.Errors, datatypes.ValidationError{
					Row:   rowNum,
					Field: field,
					Message: fmt.Sprintf("value %q is not one of: %s",
						value, strings.Join(allowed, ", ")),
				})
				bad = true
			}
		}

		if bad {
			out.Invalid++
		} else {
			out.Valid = append(out.Valid, row)
		}
	}
	return out
}

func contains(set []string, value string) bool {
	for _, s := range set {
		if s == value {
			return true
		}
	}
	return false
}
