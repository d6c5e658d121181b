// Copyright (C) 2025 FireDeck Analytics (engineering@firedeck.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// UploadResponse summarizes a raw (non-templated) tabular upload.
// Sample holds at most the first 5 decoded rows.
type UploadResponse struct {
	Success      bool                `json:"success"`
	UploadID     string              `json:"upload_id,omitempty"`
	Filename     string              `json:"filename"`
	RecordsCount int                 `json:"recordsCount"`
	Columns      []string            `json:"columns"`
	Sample       []map[string]string `json:"sample"`
}

// ValidationError describes one failed check on one uploaded row.
// Row is the spreadsheet row number as the user sees it: data rows are
// 1-based and offset by the header row, so data row index i reports i+2.
type ValidationError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// IngestResponse summarizes a templated ingestion run. ValidationErrors
// is capped at 50 entries; Preview holds at most 5 valid rows.
type IngestResponse struct {
	Success          bool                `json:"success"`
	Template         string              `json:"template"`
	RecordsProcessed int                 `json:"recordsProcessed"`
	ValidRecords     int                 `json:"validRecords"`
	InvalidRecords   int                 `json:"invalidRecords"`
	ValidationErrors []ValidationError   `json:"validationErrors"`
	Preview          []map[string]string `json:"preview"`
}
