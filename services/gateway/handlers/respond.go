// Copyright (C) 2025 FireDeck Analytics (engineering@firedeck.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers maps the dashboard's HTTP surface onto the session
// store, the spreadsheet decoder and the analytics engine. Handlers are
// thin: validate the request shape, resolve a file path, delegate,
// translate the outcome.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/firedeckhq/firedeck/services/gateway/engine"
	"github.com/firedeckhq/firedeck/services/gateway/session"
)

// Error kinds used in the unified error envelope. Every failing response
// is {success:false, error:{kind, message}} regardless of which handler
// produced it.
const (
	KindBadRequest    = "bad_request"
	KindNotFound      = "not_found"
	KindEngineFailure = "engine_failure"
	KindEngineTimeout = "engine_timeout"
	KindInternal      = "internal"
)

// errorBody is the error half of the envelope.
type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// fail writes the unified error envelope and aborts the chain.
func fail(c *gin.Context, status int, kind, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   errorBody{Kind: kind, Message: message},
	})
}

// failFromEngine maps an invoker error onto a status and kind. The
// message is the engine's diagnostic text untouched.
func failFromEngine(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrTimeout):
		fail(c, http.StatusGatewayTimeout, KindEngineTimeout, err.Error())
	case errors.Is(err, engine.ErrEngineFailure):
		fail(c, http.StatusInternalServerError, KindEngineFailure, err.Error())
	default:
		fail(c, http.StatusInternalServerError, KindInternal, err.Error())
	}
}

// failFromResolve maps a session-store resolution error.
func failFromResolve(c *gin.Context, err error) {
	if errors.Is(err, session.ErrNotFound) {
		fail(c, http.StatusNotFound, KindNotFound, "uploaded file not found; upload it again")
		return
	}
	fail(c, http.StatusInternalServerError, KindInternal, err.Error())
}
