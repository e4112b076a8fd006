// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the modgraph YAML configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianGraph/services/codegraph/entity"
	"github.com/AleutianAI/AleutianGraph/services/codegraph/graph"
	"github.com/AleutianAI/AleutianGraph/services/codegraph/telemetry"
)

// EnvConfigPath overrides the default config location.
const EnvConfigPath = "MODGRAPH_CONFIG"

var validate = validator.New()

// Config is the complete modgraph configuration.
type Config struct {
	Build     BuildConfig      `yaml:"build"`
	Storage   StorageConfig    `yaml:"storage"`
	Logging   LoggingConfig    `yaml:"logging"`
	Server    ServerConfig     `yaml:"server"`
	Watch     WatchConfig      `yaml:"watch"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// BuildConfig controls graph construction.
type BuildConfig struct {
	// Strategy is the community detector.
	Strategy string `yaml:"strategy" validate:"omitempty,oneof=connectivity directory both none"`

	// Relations selects relations and the weight floor. The floor is not
	// range-checked.
	Relations graph.RelationshipFilters `yaml:"relations"`

	// ProbeWorkers bounds concurrent file probes. Zero means one per CPU.
	ProbeWorkers int `yaml:"probe_workers" validate:"gte=0"`

	// Cross-file RELATED_TO limits. Zero keeps the builder default.
	MaxCrossFileRelated     int `yaml:"max_cross_file_related" validate:"gte=0"`
	MaxCrossFileComparisons int `yaml:"max_cross_file_comparisons" validate:"gte=0"`

	// Exclude holds slash-separated glob patterns matched against
	// workspace-relative file paths.
	Exclude []string `yaml:"exclude"`
}

// StorageConfig locates the snapshot database.
type StorageConfig struct {
	// Path is the BadgerDB directory. Supports a leading ~.
	Path string `yaml:"path" validate:"required_without=InMemory"`

	InMemory       bool          `yaml:"in_memory"`
	GCInterval     time.Duration `yaml:"gc_interval" validate:"gte=0"`
	GCDiscardRatio float64       `yaml:"gc_discard_ratio" validate:"gt=0,lt=1"`
}

// LoggingConfig controls the logger.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required,hostname_port"`

	// BuildRate limits build requests per second. Zero disables the limit.
	BuildRate  float64 `yaml:"build_rate" validate:"gte=0"`
	BuildBurst int     `yaml:"build_burst" validate:"gte=0"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

// WatchConfig controls the file watcher.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" validate:"gte=0"`
	Ignore   []string      `yaml:"ignore"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Build: BuildConfig{
			Strategy:                string(graph.StrategyConnectivity),
			Relations:               graph.DefaultRelationshipFilters(),
			MaxCrossFileRelated:     graph.DefaultMaxCrossFileRelated,
			MaxCrossFileComparisons: graph.DefaultMaxCrossFileComparisons,
			Exclude:                 []string{"node_modules/**", "dist/**", ".git/**"},
		},
		Storage: StorageConfig{
			Path:           "~/.aleutian/graph",
			GCInterval:     5 * time.Minute,
			GCDiscardRatio: 0.5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:12230",
			BuildRate:       2,
			BuildBurst:      4,
			ShutdownTimeout: 10 * time.Second,
		},
		Watch: WatchConfig{
			Debounce: 250 * time.Millisecond,
			Ignore:   []string{".git", "node_modules", "*.swp", "*.tmp", "*~"},
		},
		Telemetry: telemetry.DefaultConfig(),
	}
}

// DefaultPath returns ~/.aleutian/modgraph.yaml, or the value of
// MODGRAPH_CONFIG when set.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".aleutian", "modgraph.yaml"), nil
}

// Load reads the config at path over the defaults. A missing file yields
// the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return cfg, nil
	case err != nil:
		return Config{}, fmt.Errorf("failed to read the config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	cfg.Storage.Path = expandHome(cfg.Storage.Path)
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, err := graph.ParseCommunityStrategy(c.Build.Strategy); err != nil {
		return err
	}
	return nil
}

// BuilderOptions converts the build section into graph builder options.
func (b BuildConfig) BuilderOptions(logger *slog.Logger) ([]graph.BuilderOption, error) {
	strategy, err := graph.ParseCommunityStrategy(b.Strategy)
	if err != nil {
		return nil, err
	}
	exclude, err := entity.NewExcludeFilter(b.Exclude)
	if err != nil {
		return nil, err
	}
	opts := []graph.BuilderOption{
		graph.WithFilters(b.Relations),
		graph.WithCommunityStrategy(strategy),
		graph.WithExcludeFilter(exclude),
	}
	if b.ProbeWorkers > 0 {
		opts = append(opts, graph.WithProbeWorkers(b.ProbeWorkers))
	}
	if b.MaxCrossFileRelated > 0 {
		opts = append(opts, graph.WithMaxCrossFileRelated(b.MaxCrossFileRelated))
	}
	if b.MaxCrossFileComparisons > 0 {
		opts = append(opts, graph.WithMaxCrossFileComparisons(b.MaxCrossFileComparisons))
	}
	if logger != nil {
		opts = append(opts, graph.WithLogger(logger))
	}
	return opts, nil
}

// WriteDefault writes the default config to path, creating parent
// directories.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
