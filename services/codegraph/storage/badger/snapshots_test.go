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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianGraph/services/codegraph/graph"
)

func newTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSnapshotStore(db)
}

func testOutput(workspace, buildID string, nodeIDs ...string) *graph.Output {
	out := &graph.Output{
		Edges:       []*graph.Edge{},
		Communities: []graph.Community{},
		Metadata:    graph.Metadata{Version: graph.OutputVersion, WorkspacePath: workspace, BuildID: buildID},
	}
	for _, id := range nodeIDs {
		out.Nodes = append(out.Nodes, &graph.Node{ID: id, Type: graph.NodeTypeFile, SemanticTags: graph.NewTagSet()})
	}
	return out
}

func TestSnapshotStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Latest(ctx, "/ws")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, testOutput("/ws", "b1", "file:a.ts")))
	latest, err := store.Latest(ctx, "/ws")
	require.NoError(t, err)
	assert.Equal(t, "b1", latest.Metadata.BuildID)
	require.Len(t, latest.Nodes, 1)
	assert.Equal(t, "file:a.ts", latest.Nodes[0].ID)

	_, err = store.Previous(ctx, "/ws")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, testOutput("/ws", "b2", "file:a.ts", "file:b.ts")))
	latest, err = store.Latest(ctx, "/ws")
	require.NoError(t, err)
	assert.Equal(t, "b2", latest.Metadata.BuildID)
	prev, err := store.Previous(ctx, "/ws")
	require.NoError(t, err)
	assert.Equal(t, "b1", prev.Metadata.BuildID)
}

func TestSnapshotStore_Diff(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Diff(ctx, "/ws")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, testOutput("/ws", "b1", "file:a.ts")))
	d, err := store.Diff(ctx, "/ws")
	require.NoError(t, err)
	assert.Equal(t, []string{"file:a.ts"}, d.AddedNodes)

	require.NoError(t, store.Save(ctx, testOutput("/ws", "b2", "file:b.ts")))
	d, err = store.Diff(ctx, "/ws")
	require.NoError(t, err)
	assert.Equal(t, []string{"file:b.ts"}, d.AddedNodes)
	assert.Equal(t, []string{"file:a.ts"}, d.RemovedNodes)
}

func TestSnapshotStore_WorkspacesAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Save(ctx, testOutput("/b", "1")))
	require.NoError(t, store.Save(ctx, testOutput("/a", "1")))
	require.NoError(t, store.Save(ctx, testOutput("/a", "2")))

	ws, err := store.Workspaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "/b"}, ws)

	require.NoError(t, store.Delete(ctx, "/a"))
	_, err = store.Latest(ctx, "/a")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Previous(ctx, "/a")
	assert.ErrorIs(t, err, ErrNotFound)

	ws, err = store.Workspaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/b"}, ws)

	require.NoError(t, store.Delete(ctx, "/missing"))
}

func TestSnapshotStore_Errors(t *testing.T) {
	store := newTestStore(t)

	assert.Error(t, store.Save(context.Background(), nil))
	assert.Error(t, store.Save(context.Background(), testOutput("", "x")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, store.Save(ctx, testOutput("/ws", "x")))
	_, err := store.Latest(ctx, "/ws")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	t.Run("persistent requires path", func(t *testing.T) {
		_, err := Open(Config{})
		assert.Error(t, err)
	})

	t.Run("invalid ratio", func(t *testing.T) {
		_, err := Open(Config{InMemory: true, GCDiscardRatio: 2})
		assert.Error(t, err)
	})

	t.Run("persistent survives reopen", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Path = t.TempDir()
		db, err := Open(cfg)
		require.NoError(t, err)
		assert.False(t, db.InMemory())
		require.NoError(t, NewSnapshotStore(db).Save(context.Background(), testOutput("/ws", "kept")))
		require.NoError(t, db.Close())

		db, err = Open(cfg)
		require.NoError(t, err)
		defer db.Close()
		out, err := NewSnapshotStore(db).Latest(context.Background(), "/ws")
		require.NoError(t, err)
		assert.Equal(t, "kept", out.Metadata.BuildID)
	})
}
