// Copyright (C) 2025 FireDeck Analytics (engineering@firedeck.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/firedeckhq/firedeck/services/gateway/datatypes"
	"github.com/firedeckhq/firedeck/services/gateway/engine"
)

var tracer = otel.Tracer("firedeck.gateway.handlers")

// HandleAnalytics returns a handler that runs one fixed, argument-free
// engine operation and relays its JSON verbatim. All the dashboard's
// read-only analytics endpoints (KPIs, by-type, by-severity, by-state,
// trends, response time, geographic, top causes, vendor performance)
// are instances of this.
func HandleAnalytics(inv engine.Invoker, op string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "HandleAnalytics")
		defer span.End()
		span.SetAttributes(attribute.String("engine.op", op))

		result, err := inv.Invoke(ctx, op)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("analytics operation failed", "op", op, "error", err)
			failFromEngine(c, err)
			return
		}
		c.Data(http.StatusOK, "application/json", result.JSON)
	}
}

// HandleSearch relays an arbitrary filter object to the engine's
// incident search. The filter is serialized into a single positional
// argument; the engine owns its schema, so the gateway only insists on
// it being a JSON object.
//
// Search runs in lenient output mode: some engine builds emit plain
// text for empty result sets, and the dashboard renders either.
func HandleSearch(inv engine.Invoker) gin.HandlerFunc {
	lenient := inv.WithOutput(engine.OutputLenient)
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "HandleSearch")
		defer span.End()

		var filters datatypes.SearchRequest
		if err := c.BindJSON(&filters); err != nil {
			fail(c, http.StatusBadRequest, KindBadRequest, "request body must be a JSON filter object")
			return
		}
		arg, err := json.Marshal(filters)
		if err != nil {
			fail(c, http.StatusBadRequest, KindBadRequest, err.Error())
			return
		}

		result, err := lenient.Invoke(ctx, engine.OpSearchIncidents, string(arg))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("incident search failed", "error", err)
			failFromEngine(c, err)
			return
		}

		if result.JSON != nil {
			c.Data(http.StatusOK, "application/json", result.JSON)
			return
		}
		c.String(http.StatusOK, result.Raw)
	}
}
