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
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianGraph/pkg/ux"
	"github.com/AleutianAI/AleutianGraph/services/codegraph/graph"
)

func newDiffCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "diff WORKSPACE",
		Short: "Show what changed between the last two stored snapshots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, store, err := a.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			diff, err := store.Diff(cmd.Context(), workspaceKey(args[0]))
			if err != nil {
				return fmt.Errorf("diff %s: %w", args[0], err)
			}
			if asJSON {
				return writeJSONFile("-", diff, a.printer)
			}
			printDiff(a.printer, diff)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the diff as JSON")
	return cmd
}

func newSnapshotCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "snapshot WORKSPACE",
		Short: "Export the latest stored snapshot of a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, store, err := a.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			snap, err := store.Latest(cmd.Context(), workspaceKey(args[0]))
			if err != nil {
				return fmt.Errorf("load snapshot %s: %w", args[0], err)
			}
			return writeJSONFile(out, snap, a.printer)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file, or - for stdout")
	return cmd
}

func newWorkspacesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "workspaces",
		Short: "List workspaces with stored snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, store, err := a.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			workspaces, err := store.Workspaces(cmd.Context())
			if err != nil {
				return err
			}
			a.printer.List(workspaces)
			return nil
		},
	}
}

// workspaceKey normalizes a workspace argument the way the builder does.
func workspaceKey(ws string) string {
	ws = filepath.Clean(ws)
	if abs, err := filepath.Abs(ws); err == nil {
		return abs
	}
	return ws
}

func printDiff(p *ux.Printer, d graph.GraphDiff) {
	if d.Empty() {
		p.Success("no changes")
		return
	}
	p.Table("Changes", []ux.KeyValue{
		{Key: "nodes added", Value: fmt.Sprint(len(d.AddedNodes))},
		{Key: "nodes removed", Value: fmt.Sprint(len(d.RemovedNodes))},
		{Key: "edges added", Value: fmt.Sprint(len(d.AddedEdges))},
		{Key: "edges removed", Value: fmt.Sprint(len(d.RemovedEdges))},
	})
	if len(d.AddedNodes) > 0 {
		p.Title("Added nodes")
		p.List(d.AddedNodes)
	}
	if len(d.RemovedNodes) > 0 {
		p.Title("Removed nodes")
		p.List(d.RemovedNodes)
	}
}
