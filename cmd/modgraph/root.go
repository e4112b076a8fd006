// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianGraph/cmd/modgraph/config"
	"github.com/AleutianAI/AleutianGraph/pkg/logging"
	"github.com/AleutianAI/AleutianGraph/pkg/ux"
	"github.com/AleutianAI/AleutianGraph/services/codegraph/graph"
	"github.com/AleutianAI/AleutianGraph/services/codegraph/storage/badger"
)

// app holds the state shared by every subcommand after config load.
type app struct {
	cfg     config.Config
	logger  *logging.Logger
	printer *ux.Printer

	// flags
	configPath string
	logLevel   string
	outputMode string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "modgraph",
		Short: "Build and query module graphs of parsed code",
		Long: `modgraph turns parsed code entities into a typed, weighted module graph
(CONTAINS, DEFINED_IN, IMPORTS, CALLS, RELATED_TO) and detects communities.

Examples:
  modgraph build entities.json --out graph.json
  modgraph build entities.json --save
  modgraph diff /path/to/workspace
  modgraph watch entities.json
  modgraph serve`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.aleutian/modgraph.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")
	root.PersistentFlags().StringVar(&a.outputMode, "output", "", "output style: styled, plain or machine (default: detected)")

	root.AddCommand(
		newBuildCmd(a),
		newDiffCmd(a),
		newSnapshotCmd(a),
		newWorkspacesCmd(a),
		newWatchCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
	)
	return root
}

// setup loads config and creates the logger and printer.
func (a *app) setup(cmd *cobra.Command) error {
	path := a.configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	a.cfg = cfg

	levelName := cfg.Logging.Level
	if a.logLevel != "" {
		levelName = a.logLevel
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return err
	}
	a.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: "modgraph",
		JSON:    cfg.Logging.JSON,
		Output:  cmd.ErrOrStderr(),
	})
	slog.SetDefault(a.logger.Slog())

	out := cmd.OutOrStdout()
	mode := ux.ModeMachine
	if a.outputMode != "" {
		mode = ux.ParseMode(a.outputMode)
	} else if f, ok := out.(*os.File); ok {
		mode = ux.DetectMode(f)
	}
	a.printer = ux.NewPrinter(out, mode)
	return nil
}

// newBuilder creates a builder from the build section of the config.
func (a *app) newBuilder(strategy string) (*graph.Builder, error) {
	build := a.cfg.Build
	if strategy != "" {
		build.Strategy = strings.ToLower(strategy)
	}
	opts, err := build.BuilderOptions(a.logger.Slog())
	if err != nil {
		return nil, err
	}
	return graph.NewBuilder(opts...), nil
}

// openStore opens the snapshot database from the storage section.
func (a *app) openStore() (*badger.DB, *badger.SnapshotStore, error) {
	db, err := badger.Open(badger.Config{
		Path:           a.cfg.Storage.Path,
		InMemory:       a.cfg.Storage.InMemory,
		SyncWrites:     true,
		Logger:         a.logger.Slog(),
		GCInterval:     a.cfg.Storage.GCInterval,
		GCDiscardRatio: a.cfg.Storage.GCDiscardRatio,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open snapshot store: %w", err)
	}
	return db, badger.NewSnapshotStore(db), nil
}
