// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianGraph/services/codegraph/graph"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "modgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "connectivity", cfg.Build.Strategy)
	assert.Equal(t, 0.3, cfg.Build.Relations.MinRelationWeight)
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce)
}

func TestLoad(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig().Server.Addr, cfg.Server.Addr)
	})

	t.Run("overrides merge with defaults", func(t *testing.T) {
		path := writeConfig(t, `
build:
  strategy: directory
  relations:
    enable_calls: false
    min_relation_weight: 1.5
  exclude: ["**/*.spec.ts"]
storage:
  path: /var/lib/modgraph
logging:
  level: debug
watch:
  debounce: 1s
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "directory", cfg.Build.Strategy)
		assert.False(t, cfg.Build.Relations.EnableCalls)
		assert.True(t, cfg.Build.Relations.EnableImportsExports)
		assert.Equal(t, 1.5, cfg.Build.Relations.MinRelationWeight)
		assert.Equal(t, []string{"**/*.spec.ts"}, cfg.Build.Exclude)
		assert.Equal(t, "/var/lib/modgraph", cfg.Storage.Path)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, time.Second, cfg.Watch.Debounce)
		assert.Equal(t, 0.5, cfg.Storage.GCDiscardRatio)
	})

	t.Run("home expansion", func(t *testing.T) {
		home, err := os.UserHomeDir()
		require.NoError(t, err)
		cfg, err := Load(writeConfig(t, "storage:\n  path: ~/graphs\n"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, "graphs"), cfg.Storage.Path)
	})

	cases := map[string]string{
		"bad yaml":          "build: [",
		"unknown strategy":  "build:\n  strategy: louvain\n",
		"bad log level":     "logging:\n  level: loud\n",
		"bad addr":          "server:\n  addr: nowhere\n",
		"negative workers":  "build:\n  probe_workers: -1\n",
		"bad exporter":      "telemetry:\n  trace_exporter: zipkin\n",
		"missing path":      "storage:\n  path: \"\"\n",
		"bad discard ratio": "storage:\n  gc_discard_ratio: 1.5\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	t.Run("in-memory storage needs no path", func(t *testing.T) {
		_, err := Load(writeConfig(t, "storage:\n  path: \"\"\n  in_memory: true\n"))
		assert.NoError(t, err)
	})
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "modgraph.yaml")
	require.NoError(t, WriteDefault(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Build.Exclude, cfg.Build.Exclude)
	assert.Equal(t, DefaultConfig().Server.ShutdownTimeout, cfg.Server.ShutdownTimeout)
}

func TestDefaultPath_Env(t *testing.T) {
	t.Setenv(EnvConfigPath, "/etc/modgraph.yaml")
	p, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "/etc/modgraph.yaml", p)
}

func TestBuildConfig_BuilderOptions(t *testing.T) {
	b := DefaultConfig().Build
	b.Strategy = "both"
	b.ProbeWorkers = 3
	b.MaxCrossFileRelated = 7

	opts, err := b.BuilderOptions(nil)
	require.NoError(t, err)
	got := graph.NewBuilder(opts...).Options()
	assert.Equal(t, graph.StrategyBoth, got.Strategy)
	assert.Equal(t, 3, got.ProbeWorkers)
	assert.Equal(t, 7, got.MaxCrossFileRelated)
	assert.Equal(t, graph.DefaultMaxCrossFileComparisons, got.MaxCrossFileComparisons)
	require.NotNil(t, got.Exclude)
	assert.True(t, got.Exclude.Excluded("node_modules/x/index.js"))

	b.Strategy = "nope"
	_, err = b.BuilderOptions(nil)
	assert.Error(t, err)
}
