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
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianGraph/services/codegraph/entity"
	"github.com/AleutianAI/AleutianGraph/services/codegraph/graph"
	"github.com/AleutianAI/AleutianGraph/services/codegraph/storage/badger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testBuilder() *graph.Builder {
	return graph.NewBuilder(
		graph.WithClock(func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }),
		graph.WithBuildIDFunc(func() string { return "test-build" }),
		graph.WithProbeWorkers(2),
	)
}

func testStore(t *testing.T) *badger.SnapshotStore {
	t.Helper()
	db, err := badger.OpenInMemory()
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return badger.NewSnapshotStore(db)
}

func setupTestRouter(h *Handlers) *gin.Engine {
	router := gin.New()
	v1 := router.Group("/v1")
	RegisterRoutes(v1, h)
	return router
}

func testWorkspace(t *testing.T) string {
	t.Helper()
	ws := t.TempDir()
	if err := os.MkdirAll(filepath.Join(ws, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(ws, "src", "a.ts"), []byte("function foo() {\n  bar()\n}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return ws
}

var snippets = map[string]string{
	"foo": "function foo() {\n  bar()\n}",
	"bar": "function bar() {}",
	"baz": "function baz() {}",
}

func buildBody(t *testing.T, ws string, save bool, names ...string) *bytes.Buffer {
	t.Helper()
	req := BuildRequest{WorkspacePath: ws, Save: save}
	for i, name := range names {
		req.Entities = append(req.Entities, entity.Entity{
			FilePath:    "src/a.ts",
			FileName:    "a.ts",
			Name:        name,
			ElementType: "function",
			StartLine:   i*10 + 1,
			EndLine:     i*10 + 3,
			Language:    "typescript",
			CodeSnippet: snippets[name],
		})
	}
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewBuffer(data)
}

func doRequest(router *gin.Engine, method, target string, body *bytes.Buffer) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req, _ = http.NewRequest(method, target, body)
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandlers_HandleHealth(t *testing.T) {
	router := setupTestRouter(NewHandlers(testBuilder(), nil))

	w := doRequest(router, "GET", "/v1/graph/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("expected status 'healthy', got %q", resp.Status)
	}
	if resp.Version != ServiceVersion {
		t.Errorf("expected version %q, got %q", ServiceVersion, resp.Version)
	}
	if resp.Storage {
		t.Error("expected Storage=false without a store")
	}
}

func TestHandlers_HandleBuild(t *testing.T) {
	ws := testWorkspace(t)
	store := testStore(t)
	router := setupTestRouter(NewHandlers(testBuilder(), store))

	w := doRequest(router, "POST", "/v1/graph/build", buildBody(t, ws, true, "foo", "bar"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}

	var resp BuildResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if !resp.Saved {
		t.Error("expected Saved=true")
	}
	if resp.Stats.EntitiesProcessed != 2 {
		t.Errorf("expected 2 entities processed, got %d", resp.Stats.EntitiesProcessed)
	}
	if resp.Stats.EdgesByRelation["CALLS"] != 1 {
		t.Errorf("expected 1 CALLS edge, got %d", resp.Stats.EdgesByRelation["CALLS"])
	}
	if resp.Graph == nil || resp.Graph.Metadata.BuildID != "test-build" {
		t.Fatalf("expected graph with build id test-build, got %+v", resp.Graph)
	}
	// project + src + file + 2 functions
	if len(resp.Graph.Nodes) != 5 {
		t.Errorf("expected 5 nodes, got %d", len(resp.Graph.Nodes))
	}

	snap := doRequest(router, "GET", "/v1/graph/snapshot?workspace="+url.QueryEscape(ws), nil)
	if snap.Code != http.StatusOK {
		t.Fatalf("snapshot: expected status %d, got %d", http.StatusOK, snap.Code)
	}
	var out graph.Output
	if err := json.Unmarshal(snap.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to unmarshal snapshot: %v", err)
	}
	if len(out.Nodes) != len(resp.Graph.Nodes) {
		t.Errorf("snapshot has %d nodes, build returned %d", len(out.Nodes), len(resp.Graph.Nodes))
	}
}

func TestHandlers_HandleBuild_Errors(t *testing.T) {
	t.Run("invalid body", func(t *testing.T) {
		router := setupTestRouter(NewHandlers(testBuilder(), nil))
		w := doRequest(router, "POST", "/v1/graph/build", bytes.NewBufferString("{"))
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("missing workspace", func(t *testing.T) {
		router := setupTestRouter(NewHandlers(testBuilder(), nil))
		w := doRequest(router, "POST", "/v1/graph/build", bytes.NewBufferString(`{"entities":[]}`))
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
		var resp ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if resp.Code != "INVALID_REQUEST" {
			t.Errorf("expected code INVALID_REQUEST, got %q", resp.Code)
		}
	})

	t.Run("save without store", func(t *testing.T) {
		router := setupTestRouter(NewHandlers(testBuilder(), nil))
		w := doRequest(router, "POST", "/v1/graph/build", buildBody(t, testWorkspace(t), true, "foo"))
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
		}
	})

	t.Run("rate limited", func(t *testing.T) {
		h := NewHandlers(testBuilder(), nil).WithBuildLimit(0.001, 1)
		router := setupTestRouter(h)
		ws := testWorkspace(t)

		first := doRequest(router, "POST", "/v1/graph/build", buildBody(t, ws, false, "foo"))
		if first.Code != http.StatusOK {
			t.Fatalf("expected first build to succeed, got %d", first.Code)
		}
		second := doRequest(router, "POST", "/v1/graph/build", buildBody(t, ws, false, "foo"))
		if second.Code != http.StatusTooManyRequests {
			t.Errorf("expected status %d, got %d", http.StatusTooManyRequests, second.Code)
		}
	})
}

func TestHandlers_HandleDiff(t *testing.T) {
	ws := testWorkspace(t)
	router := setupTestRouter(NewHandlers(testBuilder(), testStore(t)))

	missing := doRequest(router, "GET", "/v1/graph/diff?workspace="+url.QueryEscape(ws), nil)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected status %d before any build, got %d", http.StatusNotFound, missing.Code)
	}

	for _, names := range [][]string{{"foo"}, {"foo", "baz"}} {
		w := doRequest(router, "POST", "/v1/graph/build", buildBody(t, ws, true, names...))
		if w.Code != http.StatusOK {
			t.Fatalf("build failed: %d %s", w.Code, w.Body.String())
		}
	}

	w := doRequest(router, "GET", "/v1/graph/diff?workspace="+url.QueryEscape(ws), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	var resp DiffResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	want := "code:src/a.ts:function:baz:11"
	if len(resp.Diff.AddedNodes) != 1 || resp.Diff.AddedNodes[0] != want {
		t.Errorf("expected added node %s, got %v", want, resp.Diff.AddedNodes)
	}
	if len(resp.Diff.RemovedNodes) != 0 {
		t.Errorf("expected no removed nodes, got %v", resp.Diff.RemovedNodes)
	}
}

func TestHandlers_Snapshot_Errors(t *testing.T) {
	t.Run("no store", func(t *testing.T) {
		router := setupTestRouter(NewHandlers(testBuilder(), nil))
		w := doRequest(router, "GET", "/v1/graph/snapshot?workspace=/tmp", nil)
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
		}
	})

	t.Run("missing workspace param", func(t *testing.T) {
		router := setupTestRouter(NewHandlers(testBuilder(), testStore(t)))
		w := doRequest(router, "GET", "/v1/graph/snapshot", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})
}

func TestHandlers_HandleWorkspaces(t *testing.T) {
	ws := testWorkspace(t)
	router := setupTestRouter(NewHandlers(testBuilder(), testStore(t)))

	empty := doRequest(router, "GET", "/v1/graph/workspaces", nil)
	if empty.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, empty.Code)
	}
	if got := empty.Body.String(); got != `{"workspaces":[]}` {
		t.Errorf("expected empty list, got %s", got)
	}

	doRequest(router, "POST", "/v1/graph/build", buildBody(t, ws, true, "foo"))

	w := doRequest(router, "GET", "/v1/graph/workspaces", nil)
	var resp WorkspacesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(resp.Workspaces) != 1 {
		t.Errorf("expected 1 workspace, got %v", resp.Workspaces)
	}
}

func TestNewRouter_Metrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("codegraph_builds_total 1\n"))
	})
	router := NewRouter("codegraph-test", NewHandlers(testBuilder(), nil), metrics)

	w := doRequest(router, "GET", "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if w.Body.String() != "codegraph_builds_total 1\n" {
		t.Errorf("unexpected metrics body %q", w.Body.String())
	}

	health := doRequest(router, "GET", "/v1/graph/health", nil)
	if health.Code != http.StatusOK {
		t.Errorf("expected health status %d, got %d", http.StatusOK, health.Code)
	}
}
