// Copyright (C) 2025 FireDeck Analytics (engineering@firedeck.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Enrichment status values attached to each visualization entry after the
// gateway has tried to prepare its chart data.
const (
	VizStatusReady  = "ready"
	VizStatusFailed = "failed"
)

// Visualization is one chart suggested by the engine's analyze pass.
// The engine decides the key set per chart type (x, y, category, metrics,
// ...), so entries stay schemaless. The gateway adds "data", "status" and,
// on preparation failure, "error".
type Visualization map[string]any

// ChartType returns the visualization's chart-type tag, or "" if absent.
func (v Visualization) ChartType() string {
	t, _ := v["type"].(string)
	return t
}

// SetData merges prepared chart data into the entry and marks it ready.
func (v Visualization) SetData(data json.RawMessage) {
	v["data"] = data
	v["status"] = VizStatusReady
	delete(v, "error")
}

// SetFailed marks the entry as failed with a diagnostic message. The
// caller still returns the entry so the front end can distinguish
// "no data" from "preparation failed".
func (v Visualization) SetFailed(msg string) {
	v["status"] = VizStatusFailed
	v["error"] = msg
	delete(v, "data")
}

// AnalyzeResult is the engine's holistic analysis of an uploaded dataset,
// enriched by the gateway with per-visualization chart data.
type AnalyzeResult struct {
	Success        bool             `json:"success"`
	Error          string           `json:"error,omitempty"`
	UploadID       string           `json:"upload_id,omitempty"`
	Filename       string           `json:"filename,omitempty"`
	Visualizations []Visualization  `json:"visualizations"`
	Toggles        []map[string]any `json:"toggles,omitempty"`
	Insights       []string         `json:"insights,omitempty"`
	Metadata       map[string]any   `json:"metadata,omitempty"`
	Summary        map[string]any   `json:"summary,omitempty"`
}

// PrepareVizRequest asks the gateway to compute chart-ready data for one
// visualization configuration. UploadID is the token issued at upload
// time; Filename is kept as a fallback for the browser flow.
type PrepareVizRequest struct {
	UploadID  string         `json:"upload_id"`
	Filename  string         `json:"filename"`
	VizConfig map[string]any `json:"viz_config" validate:"required"`
}

// GenerateReportRequest asks for an AI-generated PDF report over a
// previously uploaded file.
type GenerateReportRequest struct {
	UploadID string `json:"upload_id"`
	Filename string `json:"filename"`
}

// ChartDataResult is the engine's response to a chart-data preparation
// request. Data is passed through to the front end verbatim.
type ChartDataResult struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error,omitempty"`
}

// validate is the shared validator instance for request structs.
var validate = validator.New()

// ValidatePrepareViz checks a prepare-viz request beyond what JSON binding
// enforces: the config must be present, must carry a chart-type tag, and
// at least one of UploadID/Filename must identify the target file.
func ValidatePrepareViz(req PrepareVizRequest) error {
	if err := validate.Struct(req); err != nil {
		return err
	}
	if req.UploadID == "" && req.Filename == "" {
		return fmt.Errorf("either upload_id or filename is required")
	}
	if t, _ := req.VizConfig["type"].(string); t == "" {
		return fmt.Errorf("viz_config.type is required")
	}
	return nil
}
