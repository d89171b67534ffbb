package qdrant

import (
	"context"
	"os"
	"strconv"
	"testing"

	"ai-docqa-be/pkg/vectorstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Needs a running Qdrant; set QDRANT_HOST (and QDRANT_PORT for a non-default gRPC port).
func TestIndexIntegration(t *testing.T) {
	host := os.Getenv("QDRANT_HOST")
	if host == "" {
		t.Skip("Skipping integration test: QDRANT_HOST not set")
	}
	port := 6334
	if p, err := strconv.Atoi(os.Getenv("QDRANT_PORT")); err == nil {
		port = p
	}

	f, err := NewFactory(Config{Host: host, Port: port, CollectionPrefix: "docqa_it"})
	require.NoError(t, err)
	defer f.Close()

	ctx := context.Background()
	idx, err := f.Create(ctx, uuid.NewString(), 3)
	require.NoError(t, err)
	released := false
	t.Cleanup(func() {
		if !released {
			_ = idx.Release(ctx)
		}
	})

	require.NoError(t, idx.Add(ctx,
		[][]float32{{1, 0, 0}, {0, 1, 0}},
		[]vectorstore.Record{
			{ChunkID: "a.txt#0", SourceID: "a.txt", ChunkIndex: 0, Text: "alpha"},
			{ChunkID: "b.txt#0", SourceID: "b.txt", ChunkIndex: 0, Text: "beta"},
		},
	))

	got, err := idx.Search(ctx, []float32{0.9, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a.txt", got[0].SourceID)
	assert.Equal(t, "alpha", got[0].Text)
	assert.Greater(t, got[0].Similarity, got[1].Similarity)

	require.NoError(t, idx.Release(ctx))
	released = true
}

func TestPruneExceptIntegration(t *testing.T) {
	host := os.Getenv("QDRANT_HOST")
	if host == "" {
		t.Skip("Skipping integration test: QDRANT_HOST not set")
	}
	port := 6334
	if p, err := strconv.Atoi(os.Getenv("QDRANT_PORT")); err == nil {
		port = p
	}

	f, err := NewFactory(Config{Host: host, Port: port, CollectionPrefix: "docqa_prune"})
	require.NoError(t, err)
	defer f.Close()

	ctx := context.Background()
	oldVersion, keepVersion := uuid.NewString(), uuid.NewString()
	_, err = f.Create(ctx, oldVersion, 3)
	require.NoError(t, err)
	keep, err := f.Create(ctx, keepVersion, 3)
	require.NoError(t, err)
	t.Cleanup(func() { _ = keep.Release(ctx) })

	n, err := f.PruneExcept(ctx, keepVersion)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)

	names, err := f.client.ListCollections(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, f.collectionName(keepVersion))
	assert.NotContains(t, names, f.collectionName(oldVersion))
}

func TestStaleCollectionsKeepsActiveAndForeign(t *testing.T) {
	names := []string{"docqa_a", "docqa_b", "docqa_c", "other_a", "docqa"}
	got := staleCollections(names, "docqa", "docqa_b")
	assert.Equal(t, []string{"docqa_a", "docqa_c"}, got)

	assert.Empty(t, staleCollections([]string{"docqa_b"}, "docqa", "docqa_b"))
}

func TestCreateRejectsInvalidDimension(t *testing.T) {
	f := &Factory{prefix: "docqa"}
	_, err := f.Create(context.Background(), "v1", 0)
	assert.Error(t, err)
}

func TestAddRejectsMismatchedLengths(t *testing.T) {
	idx := &Index{collection: "docqa_v1"}
	err := idx.Add(context.Background(), [][]float32{{1}}, nil)
	assert.ErrorContains(t, err, "length mismatch")
	assert.NoError(t, idx.Add(context.Background(), nil, nil))
}
