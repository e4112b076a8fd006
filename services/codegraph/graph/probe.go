// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"bytes"
	"context"
	"os"

	"golang.org/x/sync/errgroup"
)

// fileStat is the best-effort metadata of a file on disk.
type fileStat struct {
	size  int64
	lines int
}

// defaultFileStat is used when a file cannot be read.
var defaultFileStat = fileStat{size: 0, lines: 1}

// probeFiles stats and reads each path on a bounded worker pool.
//
// Each worker writes only its own slot of the result slice, so no node or
// edge state is touched concurrently. I/O failures yield defaultFileStat.
func probeFiles(ctx context.Context, paths []string, workers int) []fileStat {
	results := make([]fileStat, len(paths))
	if workers <= 0 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range paths {
		g.Go(func() error {
			if gctx.Err() != nil {
				results[i] = defaultFileStat
				return nil
			}
			results[i] = probeFile(p)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func probeFile(path string) fileStat {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return defaultFileStat
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return defaultFileStat
	}
	return fileStat{
		size:  info.Size(),
		lines: bytes.Count(data, []byte{'\n'}) + 1,
	}
}
