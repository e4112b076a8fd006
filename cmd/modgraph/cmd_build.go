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
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianGraph/pkg/ux"
	"github.com/AleutianAI/AleutianGraph/services/codegraph/entity"
	"github.com/AleutianAI/AleutianGraph/services/codegraph/graph"
)

const maxListedSkips = 10

type buildFlags struct {
	out       string
	docs      string
	workspace string
	strategy  string
	save      bool
}

func newBuildCmd(a *app) *cobra.Command {
	var flags buildFlags

	cmd := &cobra.Command{
		Use:   "build INPUT",
		Short: "Build a module graph from an entity file",
		Long: `Build a module graph from a JSON entity file containing workspace_path,
entities, file_imports and file_exports.

The graph is written to --out ("-" for stdout). With --save it also becomes
the workspace's latest stored snapshot.

Examples:
  modgraph build entities.json --out graph.json
  modgraph build entities.json --strategy directory --save
  modgraph build entities.json --docs documents.jsonl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), a, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.out, "out", "o", "graph.json", "graph output file, or - for stdout")
	cmd.Flags().StringVar(&flags.docs, "docs", "", "also write one embedding document per code element as JSON lines")
	cmd.Flags().StringVar(&flags.workspace, "workspace", "", "override the input's workspace_path")
	cmd.Flags().StringVar(&flags.strategy, "strategy", "", "community strategy: connectivity, directory, both or none")
	cmd.Flags().BoolVar(&flags.save, "save", false, "store the result as the workspace's latest snapshot")
	return cmd
}

func runBuild(ctx context.Context, a *app, inputPath string, flags buildFlags) error {
	result, err := buildFromFile(ctx, a, inputPath, flags.workspace, flags.strategy)
	if err != nil {
		a.printer.Error(err.Error())
		return err
	}

	if err := writeJSONFile(flags.out, result.Output, a.printer); err != nil {
		return err
	}
	if flags.docs != "" {
		if err := writeDocuments(flags.docs, result.Output.EmbeddingDocuments()); err != nil {
			return err
		}
	}

	if flags.save {
		db, store, err := a.openStore()
		if err != nil {
			return err
		}
		defer db.Close()
		if err := store.Save(ctx, result.Output); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
	}

	if flags.out != "-" {
		printBuildSummary(a.printer, result)
		if flags.save {
			a.printer.Success("snapshot saved")
		}
	}
	return nil
}

// buildFromFile loads an entity file and builds its graph.
func buildFromFile(ctx context.Context, a *app, inputPath, workspace, strategy string) (*graph.BuildResult, error) {
	in, err := entity.LoadInputFile(inputPath)
	if err != nil {
		return nil, err
	}
	if workspace != "" {
		in.WorkspacePath = workspace
	}
	builder, err := a.newBuilder(strategy)
	if err != nil {
		return nil, err
	}
	return builder.Build(ctx, in)
}

func writeJSONFile(path string, v any, p *ux.Printer) (err error) {
	var w io.Writer
	if path == "-" {
		w = p.Writer()
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		f, cerr := os.Create(path)
		if cerr != nil {
			return fmt.Errorf("create %s: %w", path, cerr)
		}
		defer closeOutput(f, path, &err)
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}

func writeDocuments(path string, docs []graph.EmbeddingDocument) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer closeOutput(f, path, &err)

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, d := range docs {
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("encode document %s: %w", d.NodeID, err)
		}
	}
	return w.Flush()
}

// closeOutput closes f and reports its error through errp unless an
// earlier error is already set.
func closeOutput(f io.Closer, path string, errp *error) {
	if cerr := f.Close(); cerr != nil && *errp == nil {
		*errp = fmt.Errorf("close %s: %w", path, cerr)
	}
}

func printBuildSummary(p *ux.Printer, result *graph.BuildResult) {
	out := result.Output
	p.Success(fmt.Sprintf("built graph for %s", out.Metadata.WorkspacePath))
	p.Table("Nodes", ux.CountRows(out.NodeCounts()))
	p.Table("Edges", ux.CountRows(out.RelationCounts()))

	if len(out.Communities) > 0 {
		rows := make([]ux.KeyValue, 0, len(out.Communities))
		for _, c := range out.Communities {
			rows = append(rows, ux.KeyValue{
				Key:   c.ID,
				Value: fmt.Sprintf("%s (%d members, score %.2f)", c.Label, c.Size, c.Score),
			})
		}
		p.Table("Communities", rows)
	}

	if result.HasSkipped() {
		p.Warning(fmt.Sprintf("%d entities skipped", len(result.Skipped)))
		reasons := make([]string, 0, maxListedSkips)
		for i, s := range result.Skipped {
			if i == maxListedSkips {
				reasons = append(reasons, fmt.Sprintf("... and %d more", len(result.Skipped)-maxListedSkips))
				break
			}
			reasons = append(reasons, s.Error())
		}
		p.List(reasons)
	}
}
