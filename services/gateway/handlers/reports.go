// Copyright (C) 2025 FireDeck Analytics (engineering@firedeck.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/firedeckhq/firedeck/services/gateway/datatypes"
	"github.com/firedeckhq/firedeck/services/gateway/engine"
	"github.com/firedeckhq/firedeck/services/gateway/session"
)

// HandleGenerateReport runs a document-producing engine operation
// (PDF or Excel) and streams the artifact back as a download.
//
// The engine reporting success but referencing a path that is not on
// disk is a not-found, not a server error: the generation step worked,
// the artifact is gone (cleanup raced us, or the engine wrote to a
// stale directory).
func HandleGenerateReport(inv engine.Invoker, op string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "HandleGenerateReport")
		defer span.End()
		span.SetAttributes(attribute.String("engine.op", op))

		result, err := inv.Invoke(ctx, op)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("report generation failed", "op", op, "error", err)
			failFromEngine(c, err)
			return
		}
		streamReport(c, result)
	}
}

// HandleAIReport generates the narrative PDF report for a previously
// uploaded dataset and streams it back.
func HandleAIReport(inv engine.Invoker, store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "HandleAIReport")
		defer span.End()

		var req datatypes.GenerateReportRequest
		if err := c.BindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, KindBadRequest, "invalid request body")
			return
		}

		path, err := store.Resolve(req.UploadID, req.Filename)
		if err != nil {
			failFromResolve(c, err)
			return
		}

		result, err := inv.Invoke(ctx, engine.OpGenerateAIReport, path)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("ai report generation failed", "path", path, "error", err)
			failFromEngine(c, err)
			return
		}
		streamReport(c, result)
	}
}

// streamReport decodes an engine report result and serves the artifact.
func streamReport(c *gin.Context, result engine.Result) {
	var report datatypes.ReportResult
	if err := result.Decode(&report); err != nil {
		fail(c, http.StatusInternalServerError, KindEngineFailure, "engine returned an unreadable report result")
		return
	}
	if !report.Success {
		fail(c, http.StatusInternalServerError, KindEngineFailure, report.Error)
		return
	}

	path := report.ArtifactPath()
	if path == "" {
		fail(c, http.StatusInternalServerError, KindEngineFailure, "engine reported success but no artifact path")
		return
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		fail(c, http.StatusNotFound, KindNotFound, "generated report is not on disk: "+filepath.Base(path))
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}
