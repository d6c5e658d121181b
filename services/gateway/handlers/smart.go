// Copyright (C) 2025 FireDeck Analytics (engineering@firedeck.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/firedeckhq/firedeck/services/gateway/datatypes"
	"github.com/firedeckhq/firedeck/services/gateway/engine"
	"github.com/firedeckhq/firedeck/services/gateway/session"
)

// maxEnrichedVisualizations bounds how many suggested charts get their
// data prepared inline during analyze. The rest stay un-enriched; the
// front end requests them lazily through prepare-viz.
const maxEnrichedVisualizations = 10

// enrichConcurrency bounds the enrichment fan-out per request. The
// invoker's own semaphore is the process-wide cap; this keeps one
// analyze request from monopolizing it.
const enrichConcurrency = 4

// HandleAnalyze accepts a dataset upload, registers it with the session
// store, asks the engine for a holistic analysis, then prepares chart
// data for the leading suggested visualizations.
//
// Enrichment failures are per-item: a visualization whose data
// preparation fails is returned with status "failed" and a diagnostic,
// never dropped, and never aborts the analysis as a whole.
func HandleAnalyze(inv engine.Invoker, store *session.Store, uploadsDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "HandleAnalyze")
		defer span.End()

		tmpPath, name, ok := receiveTabular(c, uploadsDir)
		if !ok {
			return
		}

		// Promote the spooled upload to its durable name. The file must
		// outlive this request: prepare-viz and report generation
		// resolve it later through the store.
		path := filepath.Join(uploadsDir, name)
		if err := os.Rename(tmpPath, path); err != nil {
			os.Remove(tmpPath)
			slog.Error("promoting upload failed", "filename", name, "error", err)
			fail(c, http.StatusInternalServerError, KindInternal, "could not store the upload")
			return
		}
		token := store.Put(name, path)
		span.SetAttributes(attribute.String("upload.token", token))

		result, err := inv.Invoke(ctx, engine.OpAnalyzeDataset, path)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("dataset analysis failed", "filename", name, "error", err)
			failFromEngine(c, err)
			return
		}

		var analysis datatypes.AnalyzeResult
		if err := result.Decode(&analysis); err != nil {
			fail(c, http.StatusInternalServerError, KindEngineFailure, "engine returned an unreadable analysis")
			return
		}
		if !analysis.Success {
			fail(c, http.StatusInternalServerError, KindEngineFailure, analysis.Error)
			return
		}

		analysis.UploadID = token
		analysis.Filename = name
		enrichVisualizations(ctx, inv, path, analysis.Visualizations)

		c.JSON(http.StatusOK, analysis)
	}
}

// enrichVisualizations computes chart data for the first
// maxEnrichedVisualizations entries, a few at a time. Each entry ends
// up with status "ready" plus data, or status "failed" plus an error.
func enrichVisualizations(ctx context.Context, inv engine.Invoker, path string, vizzes []datatypes.Visualization) {
	n := len(vizzes)
	if n > maxEnrichedVisualizations {
		n = maxEnrichedVisualizations
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)

	for i, viz := range vizzes[:n] {
		if viz == nil {
			// A JSON null in the engine's array decodes to a nil map,
			// which cannot carry status or data. Substitute a failed
			// placeholder so the entry is reported, not dropped.
			placeholder := datatypes.Visualization{}
			placeholder.SetFailed("engine returned an empty visualization")
			vizzes[i] = placeholder
			continue
		}
		viz := viz
		g.Go(func() error {
			if err := prepareOne(ctx, inv, path, viz); err != nil {
				slog.Warn("visualization preparation failed",
					"chart_type", viz.ChartType(), "error", err)
				viz.SetFailed(err.Error())
			}
			return nil // per-item failures never cancel the batch
		})
	}
	g.Wait()
}

// prepareOne asks the engine for chart-ready data for a single
// visualization. The configuration travels over the subprocess's stdin,
// so there is no transient config file to clean up.
func prepareOne(ctx context.Context, inv engine.Invoker, path string, viz datatypes.Visualization) error {
	cfg, err := json.Marshal(viz)
	if err != nil {
		return fmt.Errorf("encoding viz config: %w", err)
	}

	result, err := inv.InvokeWithInput(ctx, cfg, engine.OpPrepareChartData, path)
	if err != nil {
		return err
	}

	var chart datatypes.ChartDataResult
	if err := result.Decode(&chart); err != nil {
		return fmt.Errorf("decoding chart data: %w", err)
	}
	if !chart.Success {
		return fmt.Errorf("%s", chart.Error)
	}
	viz.SetData(chart.Data)
	return nil
}

// HandlePrepareViz computes chart data for one front-end-supplied
// visualization configuration against a previously uploaded file.
func HandlePrepareViz(inv engine.Invoker, store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "HandlePrepareViz")
		defer span.End()

		var req datatypes.PrepareVizRequest
		if err := c.BindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, KindBadRequest, "invalid request body")
			return
		}
		if err := datatypes.ValidatePrepareViz(req); err != nil {
			fail(c, http.StatusBadRequest, KindBadRequest, err.Error())
			return
		}

		path, err := store.Resolve(req.UploadID, req.Filename)
		if err != nil {
			failFromResolve(c, err)
			return
		}

		cfg, err := json.Marshal(req.VizConfig)
		if err != nil {
			fail(c, http.StatusBadRequest, KindBadRequest, err.Error())
			return
		}

		result, err := inv.InvokeWithInput(ctx, cfg, engine.OpPrepareChartData, path)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("chart data preparation failed", "path", path, "error", err)
			failFromEngine(c, err)
			return
		}

		var chart datatypes.ChartDataResult
		if err := result.Decode(&chart); err != nil {
			fail(c, http.StatusInternalServerError, KindEngineFailure, "engine returned unreadable chart data")
			return
		}
		if !chart.Success {
			fail(c, http.StatusInternalServerError, KindEngineFailure, chart.Error)
			return
		}
		c.JSON(http.StatusOK, chart)
	}
}
