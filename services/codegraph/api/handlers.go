// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package api exposes the graph builder and snapshot store over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/AleutianGraph/services/codegraph/graph"
	"github.com/AleutianAI/AleutianGraph/services/codegraph/storage/badger"
	"github.com/AleutianAI/AleutianGraph/services/codegraph/telemetry"
)

// SnapshotStore persists build outputs per workspace.
type SnapshotStore interface {
	Save(ctx context.Context, out *graph.Output) error
	Latest(ctx context.Context, workspace string) (*graph.Output, error)
	Diff(ctx context.Context, workspace string) (graph.GraphDiff, error)
	Workspaces(ctx context.Context) ([]string, error)
}

// Handlers contains the HTTP handlers for the graph service.
type Handlers struct {
	builder *graph.Builder
	store   SnapshotStore
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewHandlers creates handlers around builder. store may be nil, in which
// case snapshot endpoints answer 503.
func NewHandlers(builder *graph.Builder, store SnapshotStore) *Handlers {
	return &Handlers{
		builder: builder,
		store:   store,
		logger:  slog.Default(),
	}
}

// WithBuildLimit bounds build requests to perSecond with the given burst.
// A non-positive perSecond disables the limit.
func (h *Handlers) WithBuildLimit(perSecond float64, burst int) *Handlers {
	if perSecond <= 0 {
		h.limiter = nil
		return h
	}
	if burst < 1 {
		burst = 1
	}
	h.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	return h
}

// WithLogger sets the logger used by the handlers.
func (h *Handlers) WithLogger(l *slog.Logger) *Handlers {
	if l != nil {
		h.logger = l
	}
	return h
}

// HandleBuild handles POST /v1/graph/build.
//
// Response:
//
//	200 OK: BuildResponse
//	400 Bad Request: invalid body or missing workspace
//	429 Too Many Requests: build limit exceeded
//	500 Internal Server Error: build or storage failure
func (h *Handlers) HandleBuild(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	ctx := c.Request.Context()
	logger := telemetry.LoggerWithTrace(ctx, h.logger).With("request_id", requestID, "handler", "HandleBuild")

	if h.limiter != nil && !h.limiter.Allow() {
		logger.Warn("Build rate limit exceeded")
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error: "Too many build requests",
			Code:  "RATE_LIMITED",
		})
		return
	}

	var req BuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	if req.Save && !h.requireStore(c) {
		return
	}

	logger.Info("Building graph",
		"workspace", req.WorkspacePath,
		"entities", len(req.Entities),
	)

	result, err := h.builder.Build(ctx, req.Input())
	if err != nil {
		status, code := http.StatusInternalServerError, "BUILD_FAILED"
		switch {
		case errors.Is(err, graph.ErrNoWorkspace):
			status, code = http.StatusBadRequest, "INVALID_WORKSPACE"
		case errors.Is(err, graph.ErrBuildCancelled):
			status, code = http.StatusServiceUnavailable, "BUILD_CANCELLED"
		}
		logger.Error("Build failed", "error", err)
		c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
		return
	}

	resp := BuildResponse{
		Graph: result.Output,
		Stats: newBuildStats(result.Stats),
	}
	for _, s := range result.Skipped {
		resp.Skipped = append(resp.Skipped, SkippedEntity{
			Index:    s.Index,
			FilePath: s.FilePath,
			Name:     s.Name,
			Reason:   s.Err.Error(),
		})
	}

	if req.Save {
		if err := h.store.Save(ctx, result.Output); err != nil {
			logger.Error("Failed to save snapshot", "error", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error: "Failed to save snapshot",
				Code:  "SAVE_FAILED",
			})
			return
		}
		resp.Saved = true
	}

	logger.Info("Graph built",
		"nodes", len(result.Output.Nodes),
		"edges", len(result.Output.Edges),
		"communities", len(result.Output.Communities),
		"skipped", len(result.Skipped),
	)
	c.JSON(http.StatusOK, resp)
}

// HandleSnapshot handles GET /v1/graph/snapshot?workspace=<path>.
func (h *Handlers) HandleSnapshot(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleSnapshot")

	workspace, ok := h.workspaceParam(c)
	if !ok {
		return
	}
	out, err := h.store.Latest(c.Request.Context(), workspace)
	if err != nil {
		h.storeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// HandleDiff handles GET /v1/graph/diff?workspace=<path>.
func (h *Handlers) HandleDiff(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleDiff")

	workspace, ok := h.workspaceParam(c)
	if !ok {
		return
	}
	diff, err := h.store.Diff(c.Request.Context(), workspace)
	if err != nil {
		h.storeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, DiffResponse{WorkspacePath: workspace, Diff: diff})
}

// HandleWorkspaces handles GET /v1/graph/workspaces.
func (h *Handlers) HandleWorkspaces(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleWorkspaces")

	if !h.requireStore(c) {
		return
	}
	workspaces, err := h.store.Workspaces(c.Request.Context())
	if err != nil {
		h.storeError(c, logger, err)
		return
	}
	if workspaces == nil {
		workspaces = []string{}
	}
	c.JSON(http.StatusOK, WorkspacesResponse{Workspaces: workspaces})
}

// HandleHealth handles GET /v1/graph/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
		Storage: h.store != nil,
	})
}

func (h *Handlers) requireStore(c *gin.Context) bool {
	if h.store != nil {
		return true
	}
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{
		Error: "Snapshot storage is not configured",
		Code:  "STORAGE_UNAVAILABLE",
	})
	return false
}

// workspaceParam reads the workspace query parameter and normalizes it the
// way the builder does, so it matches stored snapshot keys.
func (h *Handlers) workspaceParam(c *gin.Context) (string, bool) {
	if !h.requireStore(c) {
		return "", false
	}
	workspace := strings.TrimSpace(c.Query("workspace"))
	if workspace == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "workspace query parameter is required",
			Code:  "INVALID_WORKSPACE",
		})
		return "", false
	}
	workspace = filepath.Clean(workspace)
	if abs, err := filepath.Abs(workspace); err == nil {
		workspace = abs
	}
	return workspace, true
}

func (h *Handlers) storeError(c *gin.Context, logger *slog.Logger, err error) {
	if errors.Is(err, badger.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "No snapshot stored for workspace",
			Code:  "NOT_FOUND",
		})
		return
	}
	logger.Error("Snapshot storage failed", "error", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error: "Snapshot storage failed",
		Code:  "STORAGE_FAILED",
	})
}

// getOrCreateRequestID returns the X-Request-ID header or a new UUID, and
// echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
