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
	"github.com/google/uuid"

	"github.com/firedeckhq/firedeck/pkg/validation"
	"github.com/firedeckhq/firedeck/services/gateway/datatypes"
	"github.com/firedeckhq/firedeck/services/gateway/ingest"
	"github.com/firedeckhq/firedeck/services/gateway/tabular"
)

// Response bounds for upload previews and validation error lists.
const (
	maxSampleRows   = 5
	maxErrorsListed = 50
)

// receiveTabular validates and spools the request's multipart file.
// Returns the saved path and the sanitized original name; the caller
// owns deleting the file.
func receiveTabular(c *gin.Context, uploadsDir string) (path, name string, ok bool) {
	header, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, KindBadRequest, "no file provided")
		return "", "", false
	}

	name, err = validation.SanitizeFilename(header.Filename)
	if err != nil {
		fail(c, http.StatusBadRequest, KindBadRequest, err.Error())
		return "", "", false
	}
	if !tabular.Supported(name, header.Header.Get("Content-Type")) {
		fail(c, http.StatusBadRequest, KindBadRequest,
			"unsupported file type; upload a CSV or Excel spreadsheet")
		return "", "", false
	}

	// Unique temp name: two concurrent uploads of data.csv must not
	// clobber each other's bytes mid-parse.
	path = filepath.Join(uploadsDir, "tmp-"+uuid.NewString()+"-"+name)
	if err := c.SaveUploadedFile(header, path); err != nil {
		slog.Error("saving upload failed", "filename", name, "error", err)
		fail(c, http.StatusInternalServerError, KindInternal, "could not store the upload")
		return "", "", false
	}
	return path, name, true
}

// HandleUpload is the raw (non-templated) upload: decode the sheet
// in-process, respond with a row count and a bounded preview, and
// delete the temp file no matter what.
func HandleUpload(uploadsDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := tracer.Start(c.Request.Context(), "HandleUpload")
		defer span.End()

		path, name, ok := receiveTabular(c, uploadsDir)
		if !ok {
			return
		}
		defer os.Remove(path)

		table, err := tabular.Decode(path)
		if err != nil {
			slog.Warn("upload decode failed", "filename", name, "error", err)
			fail(c, http.StatusBadRequest, KindBadRequest, err.Error())
			return
		}

		c.JSON(http.StatusOK, datatypes.UploadResponse{
			Success:      true,
			Filename:     name,
			RecordsCount: len(table.Rows),
			Columns:      table.Columns,
			Sample:       table.Sample(maxSampleRows),
		})
	}
}

// HandleIngest is the templated upload: decode, validate every row
// against the selected template, and report the valid/invalid split.
// The temp file is deleted unconditionally; accepted data is handed to
// the engine out of band, not persisted here.
func HandleIngest(registry *ingest.Registry, uploadsDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := tracer.Start(c.Request.Context(), "HandleIngest")
		defer span.End()

		kind := c.DefaultPostForm("template", "incident")
		tpl, found := registry.Get(kind)
		if !found {
			fail(c, http.StatusBadRequest, KindBadRequest, "unknown template: "+kind)
			return
		}

		path, name, ok := receiveTabular(c, uploadsDir)
		if !ok {
			return
		}
		defer os.Remove(path)

		table, err := tabular.Decode(path)
		if err != nil {
			slog.Warn("ingest decode failed", "filename", name, "error", err)
			fail(c, http.StatusBadRequest, KindBadRequest, err.Error())
			return
		}

		outcome := tpl.Validate(table.Rows)

		// Empty slices, not nulls, in the JSON.
		errs := outcome.Errors
		if len(errs) > maxErrorsListed {
			errs = errs[:maxErrorsListed]
		} else if errs == nil {
			errs = []datatypes.ValidationError{}
		}
		preview := outcome.Valid
		if len(preview) > maxSampleRows {
			preview = preview[:maxSampleRows]
		} else if preview == nil {
			preview = []map[string]string{}
		}

		c.JSON(http.StatusOK, datatypes.IngestResponse{
			Success:          true,
			Template:         kind,
			RecordsProcessed: outcome.Processed,
			ValidRecords:     len(outcome.Valid),
			InvalidRecords:   outcome.Invalid,
			ValidationErrors: errs,
			Preview:          preview,
		})
	}
}
