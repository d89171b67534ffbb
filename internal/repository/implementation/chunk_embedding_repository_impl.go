package implementation

import (
	"context"

	"ai-docqa-be/internal/model"
	"ai-docqa-be/internal/repository/contract"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type ChunkEmbeddingRepositoryImpl struct {
	db *gorm.DB
}

func NewChunkEmbeddingRepository(db *gorm.DB) contract.ChunkEmbeddingRepository {
	return &ChunkEmbeddingRepositoryImpl{db: db}
}

func (r *ChunkEmbeddingRepositoryImpl) CreateBulk(ctx context.Context, embeddings []*model.ChunkEmbedding) error {
	if len(embeddings) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(embeddings, 500).Error
}

func (r *ChunkEmbeddingRepositoryImpl) DeleteBySnapshotVersion(ctx context.Context, version string) error {
	return r.db.WithContext(ctx).Where("snapshot_version = ?", version).Delete(&model.ChunkEmbedding{}).Error
}

func (r *ChunkEmbeddingRepositoryImpl) DeleteExceptSnapshotVersion(ctx context.Context, keep string) (int64, error) {
	res := r.db.WithContext(ctx).Where("snapshot_version <> ?", keep).Delete(&model.ChunkEmbedding{})
	return res.RowsAffected, res.Error
}

func (r *ChunkEmbeddingRepositoryImpl) CountBySnapshotVersion(ctx context.Context, version string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ChunkEmbedding{}).Where("snapshot_version = ?", version).Count(&count).Error
	return count, err
}

// SearchSimilarWithScore returns the closest chunks of one snapshot, best first.
// Cosine distance in pgvector is 1 - cosine_similarity.
func (r *ChunkEmbeddingRepositoryImpl) SearchSimilarWithScore(ctx context.Context, version string, embedding []float32, limit int) ([]*contract.ScoredChunkEmbedding, error) {
	if limit <= 0 {
		return nil, nil
	}

	type result struct {
		model.ChunkEmbedding
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("chunk_embeddings").
		Select("chunk_embeddings.*, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Where("snapshot_version = ?", version).
		Order("similarity DESC, seq ASC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredChunkEmbedding, len(results))
	for i := range results {
		emb := results[i].ChunkEmbedding
		scored[i] = &contract.ScoredChunkEmbedding{
			Embedding:  &emb,
			Similarity: results[i].Similarity,
		}
	}
	return scored, nil
}
