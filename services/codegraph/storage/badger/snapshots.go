// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianGraph/services/codegraph/graph"
)

// ErrNotFound is returned when a workspace has no stored snapshot.
var ErrNotFound = errors.New("snapshot not found")

// Key layout:
//
//	graph/latest/<workspace>   JSON graph.Output of the newest build
//	graph/previous/<workspace> JSON graph.Output of the build before it
const (
	latestPrefix   = "graph/latest/"
	previousPrefix = "graph/previous/"
)

func latestKey(workspace string) []byte   { return []byte(latestPrefix + workspace) }
func previousKey(workspace string) []byte { return []byte(previousPrefix + workspace) }

// SnapshotStore keeps the two most recent build outputs per workspace.
type SnapshotStore struct {
	db *DB
}

// NewSnapshotStore wraps an open database.
func NewSnapshotStore(db *DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Save stores out as the latest snapshot of its workspace, shifting the
// current latest to previous. Both writes commit atomically.
func (s *SnapshotStore) Save(ctx context.Context, out *graph.Output) error {
	if out == nil || out.Metadata.WorkspacePath == "" {
		return errors.New("snapshot requires an output with a workspace path")
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	ws := out.Metadata.WorkspacePath

	return s.db.update(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(latestKey(ws))
		switch {
		case err == nil:
			prev, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read latest snapshot: %w", err)
			}
			if err := txn.Set(previousKey(ws), prev); err != nil {
				return fmt.Errorf("write previous snapshot: %w", err)
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return fmt.Errorf("read latest snapshot: %w", err)
		}
		if err := txn.Set(latestKey(ws), data); err != nil {
			return fmt.Errorf("write latest snapshot: %w", err)
		}
		return nil
	})
}

// Latest returns the newest snapshot of workspace.
func (s *SnapshotStore) Latest(ctx context.Context, workspace string) (*graph.Output, error) {
	return s.load(ctx, latestKey(workspace))
}

// Previous returns the snapshot saved before the latest one.
func (s *SnapshotStore) Previous(ctx context.Context, workspace string) (*graph.Output, error) {
	return s.load(ctx, previousKey(workspace))
}

// Diff compares the previous and latest snapshots of workspace. With only
// one snapshot stored, every id counts as added.
func (s *SnapshotStore) Diff(ctx context.Context, workspace string) (graph.GraphDiff, error) {
	next, err := s.Latest(ctx, workspace)
	if err != nil {
		return graph.GraphDiff{}, err
	}
	prev, err := s.Previous(ctx, workspace)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return graph.GraphDiff{}, err
	}
	return graph.Diff(prev, next), nil
}

// Delete removes both snapshots of workspace. Missing keys are not an error.
func (s *SnapshotStore) Delete(ctx context.Context, workspace string) error {
	return s.db.update(ctx, func(txn *badger.Txn) error {
		if err := txn.Delete(latestKey(workspace)); err != nil {
			return fmt.Errorf("delete latest snapshot: %w", err)
		}
		if err := txn.Delete(previousKey(workspace)); err != nil {
			return fmt.Errorf("delete previous snapshot: %w", err)
		}
		return nil
	})
}

// Workspaces returns the sorted workspace paths with a latest snapshot.
func (s *SnapshotStore) Workspaces(ctx context.Context) ([]string, error) {
	var out []string
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(latestPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			out = append(out, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func (s *SnapshotStore) load(ctx context.Context, key []byte) (*graph.Output, error) {
	var out graph.Output
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("read snapshot: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
