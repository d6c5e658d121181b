// Copyright (C) 2025 FireDeck Analytics (engineering@firedeck.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/firedeckhq/firedeck/services/gateway/datatypes"
)

// HandleHealth returns the fixed liveness payload. Deliberately does
// not probe the engine: the dashboard polls this, and a slow analytics
// run must not flap the health indicator.
func HandleHealth() gin.HandlerFunc {
	payload := datatypes.HealthResponse{
		Status:  "operational",
		Message: "Fire Department Analytics API is running",
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, payload)
	}
}
