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
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianGraph/services/codegraph/graph"
	"github.com/AleutianAI/AleutianGraph/services/codegraph/storage/badger"
	"github.com/AleutianAI/AleutianGraph/services/codegraph/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	var flags buildFlags

	cmd := &cobra.Command{
		Use:   "watch INPUT",
		Short: "Rebuild and store the graph whenever the entity file changes",
		Long: `Build the graph once, then rebuild it each time INPUT is rewritten by the
upstream parser. Every rebuild is stored as the latest snapshot and the
difference to the previous graph is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, a, args[0], flags)
		},
	}
	cmd.Flags().StringVarP(&flags.out, "out", "o", "", "also write each graph to this file")
	cmd.Flags().StringVar(&flags.workspace, "workspace", "", "override the input's workspace_path")
	cmd.Flags().StringVar(&flags.strategy, "strategy", "", "community strategy: connectivity, directory, both or none")
	return cmd
}

func runWatch(ctx context.Context, a *app, inputPath string, flags buildFlags) error {
	db, store, err := a.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	logger := a.logger.With("input", inputPath)
	rebuild := func(ctx context.Context) {
		result, err := buildFromFile(ctx, a, inputPath, flags.workspace, flags.strategy)
		if err != nil {
			logger.Error("Rebuild failed", "error", err)
			a.printer.Error(err.Error())
			return
		}
		diff, err := saveAndDiff(ctx, store, result.Output)
		if err != nil {
			logger.Error("Failed to store snapshot", "error", err)
			a.printer.Error(err.Error())
			return
		}
		if flags.out != "" {
			if err := writeJSONFile(flags.out, result.Output, a.printer); err != nil {
				logger.Error("Failed to write graph", "error", err)
			}
		}
		logger.Info("Graph rebuilt",
			"nodes", len(result.Output.Nodes),
			"edges", len(result.Output.Edges),
			"added_nodes", len(diff.AddedNodes),
			"removed_nodes", len(diff.RemovedNodes),
		)
		printDiff(a.printer, diff)
	}

	rebuild(ctx)

	opts := watch.DefaultOptions()
	if a.cfg.Watch.Debounce > 0 {
		opts.Debounce = a.cfg.Watch.Debounce
	}
	if len(a.cfg.Watch.Ignore) > 0 {
		opts.Ignore = a.cfg.Watch.Ignore
	}
	opts.Logger = a.logger.Slog()

	w, err := watch.New([]string{inputPath}, func(ctx context.Context, changes []watch.Change) {
		for _, c := range changes {
			if c.Op == watch.OpRemove || c.Op == watch.OpRename {
				logger.Warn("Input file went away; waiting for it to return", "op", c.Op.String())
				return
			}
		}
		rebuild(ctx)
	}, opts)
	if err != nil {
		return fmt.Errorf("watch %s: %w", inputPath, err)
	}

	a.printer.Success(fmt.Sprintf("watching %s", inputPath))
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// saveAndDiff stores out as the latest snapshot and returns the difference
// to the snapshot it replaced.
func saveAndDiff(ctx context.Context, store *badger.SnapshotStore, out *graph.Output) (graph.GraphDiff, error) {
	if err := store.Save(ctx, out); err != nil {
		return graph.GraphDiff{}, err
	}
	return store.Diff(ctx, out.Metadata.WorkspacePath)
}
