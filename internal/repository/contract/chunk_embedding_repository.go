package contract

import (
	"context"

	"ai-docqa-be/internal/model"
)

// ScoredChunkEmbedding wraps ChunkEmbedding with its cosine similarity to the query
type ScoredChunkEmbedding struct {
	Embedding  *model.ChunkEmbedding
	Similarity float64
}

type ChunkEmbeddingRepository interface {
	CreateBulk(ctx context.Context, embeddings []*model.ChunkEmbedding) error
	DeleteBySnapshotVersion(ctx context.Context, version string) error
	// DeleteExceptSnapshotVersion removes rows of every version other than keep
	DeleteExceptSnapshotVersion(ctx context.Context, keep string) (int64, error)
	CountBySnapshotVersion(ctx context.Context, version string) (int64, error)
	SearchSimilarWithScore(ctx context.Context, version string, embedding []float32, limit int) ([]*ScoredChunkEmbedding, error)
}
