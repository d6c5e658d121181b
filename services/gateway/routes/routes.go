// Copyright (C) 2025 FireDeck Analytics (engineering@firedeck.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/firedeckhq/firedeck/services/gateway/engine"
	"github.com/firedeckhq/firedeck/services/gateway/handlers"
	"github.com/firedeckhq/firedeck/services/gateway/ingest"
	"github.com/firedeckhq/firedeck/services/gateway/session"
)

// SetupRoutes registers the dashboard API on the router.
//
// The /api/ai group mirrors /api/smart endpoint-for-endpoint: older
// dashboard builds call the ai paths, current ones call smart, and both
// must keep working.
func SetupRoutes(router *gin.Engine, inv engine.Invoker, store *session.Store,
	templates *ingest.Registry, uploadsDir, reportsDir string) {

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Generated reports are served read-only for dashboard download links.
	router.Static("/reports", reportsDir)

	api := router.Group("/api")
	{
		api.GET("/health", handlers.HandleHealth())
		api.GET("/dashboard/kpis", handlers.HandleAnalytics(inv, engine.OpGetKPIs))

		analytics := api.Group("/analytics")
		{
			analytics.GET("/incidents-by-type", handlers.HandleAnalytics(inv, engine.OpIncidentsByType))
			analytics.GET("/incidents-by-severity", handlers.HandleAnalytics(inv, engine.OpIncidentsBySeverity))
			analytics.GET("/by-state", handlers.HandleAnalytics(inv, engine.OpStateAnalysis))
			analytics.GET("/monthly-trends", handlers.HandleAnalytics(inv, engine.OpMonthlyTrends))
			analytics.GET("/response-time", handlers.HandleAnalytics(inv, engine.OpResponseTime))
			analytics.GET("/geographic", handlers.HandleAnalytics(inv, engine.OpGeographicData))
			analytics.GET("/top-causes", handlers.HandleAnalytics(inv, engine.OpTopCauses))
		}

		api.GET("/vendors/performance", handlers.HandleAnalytics(inv, engine.OpVendorPerformance))
		api.POST("/incidents/search", handlers.HandleSearch(inv))

		reports := api.Group("/reports")
		{
			reports.POST("/generate-pdf", handlers.HandleGenerateReport(inv, engine.OpGeneratePDFReport))
			reports.POST("/generate-excel", handlers.HandleGenerateReport(inv, engine.OpGenerateExcelReport))
		}

		data := api.Group("/data")
		{
			data.POST("/upload", handlers.HandleUpload(uploadsDir))
			data.POST("/ingest", handlers.HandleIngest(templates, uploadsDir))
		}

		for _, prefix := range []string{"/smart", "/ai"} {
			g := api.Group(prefix)
			g.POST("/analyze", handlers.HandleAnalyze(inv, store, uploadsDir))
			g.POST("/prepare-viz", handlers.HandlePrepareViz(inv, store))
			g.POST("/generate-report", handlers.HandleAIReport(inv, store))
		}
	}
}
