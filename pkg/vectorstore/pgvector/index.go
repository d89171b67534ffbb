package pgvector

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"ai-docqa-be/internal/model"
	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/pkg/vectorstore"

	"github.com/google/uuid"
	pgv "github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// Factory creates snapshot-scoped views over the chunk_embeddings table
type Factory struct {
	repo contract.ChunkEmbeddingRepository
}

func NewFactory(repo contract.ChunkEmbeddingRepository) *Factory {
	return &Factory{repo: repo}
}

func (f *Factory) Create(ctx context.Context, version string, dimension int) (vectorstore.Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dimension)
	}
	// a rebuilt version must not inherit rows of a failed earlier attempt
	if err := f.repo.DeleteBySnapshotVersion(ctx, version); err != nil {
		return nil, fmt.Errorf("clear snapshot %s: %w", version, err)
	}
	return &Index{repo: f.repo, version: version, dimension: dimension}, nil
}

// PruneExcept deletes rows left behind by snapshots other than keep, typically by an
// earlier process. The count is the number of rows removed.
func (f *Factory) PruneExcept(ctx context.Context, keep string) (int, error) {
	n, err := f.repo.DeleteExceptSnapshotVersion(ctx, keep)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots except %s: %w", keep, err)
	}
	return int(n), nil
}

// Index stores chunk vectors as rows tagged with the snapshot version
type Index struct {
	repo      contract.ChunkEmbeddingRepository
	version   string
	dimension int

	mu  sync.Mutex
	seq int64
}

var (
	_ vectorstore.Index  = &Index{}
	_ vectorstore.Pruner = &Factory{}
)

func (i *Index) Add(ctx context.Context, vectors [][]float32, records []vectorstore.Record) error {
	if len(vectors) != len(records) {
		return fmt.Errorf("vectors and records length mismatch: %d != %d", len(vectors), len(records))
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	rows := make([]*model.ChunkEmbedding, len(vectors))
	for n := range vectors {
		if len(vectors[n]) != i.dimension {
			return fmt.Errorf("vector %d has dimension %d, index expects %d", n, len(vectors[n]), i.dimension)
		}
		meta, err := json.Marshal(map[string]interface{}{
			"source_id":   records[n].SourceID,
			"chunk_index": records[n].ChunkIndex,
			"length":      len(records[n].Text),
		})
		if err != nil {
			return err
		}
		rows[n] = &model.ChunkEmbedding{
			Id:              uuid.New(),
			SnapshotVersion: i.version,
			Seq:             i.seq + int64(n),
			SourceId:        records[n].SourceID,
			ChunkId:         records[n].ChunkID,
			ChunkIndex:      records[n].ChunkIndex,
			Document:        records[n].Text,
			EmbeddingValue:  pgv.NewVector(vectors[n]),
			Metadata:        datatypes.JSON(meta),
		}
	}

	if err := i.repo.CreateBulk(ctx, rows); err != nil {
		return fmt.Errorf("insert %d chunk embeddings: %w", len(rows), err)
	}
	i.seq += int64(len(rows))
	return nil
}

func (i *Index) Search(ctx context.Context, vector []float32, k int) ([]vectorstore.Candidate, error) {
	scored, err := i.repo.SearchSimilarWithScore(ctx, i.version, vector, k)
	if err != nil {
		return nil, fmt.Errorf("pgvector search: %w", err)
	}
	out := make([]vectorstore.Candidate, len(scored))
	for n, s := range scored {
		out[n] = vectorstore.Candidate{
			Record: vectorstore.Record{
				ChunkID:    s.Embedding.ChunkId,
				SourceID:   s.Embedding.SourceId,
				ChunkIndex: s.Embedding.ChunkIndex,
				Text:       s.Embedding.Document,
			},
			Similarity: s.Similarity,
		}
	}
	return out, nil
}

func (i *Index) Release(ctx context.Context) error {
	return i.repo.DeleteBySnapshotVersion(ctx, i.version)
}
