// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RegisterRoutes registers the /v1/graph endpoints on rg.
//
// Endpoints:
//
//	POST /v1/graph/build      - Build a graph from entities
//	GET  /v1/graph/snapshot   - Latest stored snapshot of a workspace
//	GET  /v1/graph/diff       - Difference between the last two snapshots
//	GET  /v1/graph/workspaces - Workspaces with stored snapshots
//	GET  /v1/graph/health     - Health check
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	g := rg.Group("/graph")
	{
		g.POST("/build", handlers.HandleBuild)
		g.GET("/snapshot", handlers.HandleSnapshot)
		g.GET("/diff", handlers.HandleDiff)
		g.GET("/workspaces", handlers.HandleWorkspaces)
		g.GET("/health", handlers.HandleHealth)
	}
}

// NewRouter returns an engine with recovery, tracing middleware, the graph
// routes and, when metrics is non-nil, a /metrics endpoint.
func NewRouter(service string, handlers *Handlers, metrics http.Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(service))

	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	v1 := router.Group("/v1")
	RegisterRoutes(v1, handlers)
	return router
}
