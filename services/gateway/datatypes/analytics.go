// Copyright (C) 2025 FireDeck Analytics (engineering@firedeck.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the request and response shapes exchanged
// between the dashboard front end and the gateway.
package datatypes

// HealthResponse is the fixed payload returned by GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SearchRequest carries an arbitrary filter object for incident search.
// The filters are serialized as a single JSON argument to the analytics
// engine, which owns their interpretation.
type SearchRequest map[string]any

// ReportResult is what the engine prints after rendering a report
// artifact. Path must point at a file inside the reports directory.
type ReportResult struct {
	Success  bool   `json:"success"`
	FilePath string `json:"file_path"`
	Filename string `json:"filename,omitempty"`
	Path     string `json:"path,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ArtifactPath returns the on-disk path of the generated artifact.
// Older engine scripts report "file_path", newer ones "path".
func (r ReportResult) ArtifactPath() string {
	if r.FilePath != "" {
		return r.FilePath
	}
	return r.Path
}
