package retrieval

import (
	"context"
	"fmt"
	"sort"

	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/pkg/embedding"
	"ai-docqa-be/pkg/rag/ragerr"
	"ai-docqa-be/pkg/rerank"
	"ai-docqa-be/pkg/vectorstore"
)

const module = "RETRIEVAL"

// Chunk is a reranked retrieval hit. Score comes from the reranker and is only
// meaningful for ordering and threshold comparison.
type Chunk struct {
	Text     string  `json:"text"`
	SourceID string  `json:"source_id"`
	Score    float64 `json:"score"`
	// Rank is the 0-based position from the similarity search
	Rank int `json:"rank"`
}

// Gateway runs the two-stage retrieval: similarity recall followed by rerank
type Gateway struct {
	reranker rerank.Reranker
	logger   logger.ILogger
}

func NewGateway(reranker rerank.Reranker, log logger.ILogger) *Gateway {
	return &Gateway{reranker: reranker, logger: log}
}

// Retrieve returns at most rerankK chunks sorted by score descending; equal scores keep
// their similarity order. An empty index yields an empty result, not an error.
func (g *Gateway) Retrieve(ctx context.Context, emb embedding.Embedder, index vectorstore.Index, query string, candidateK, rerankK int) ([]Chunk, error) {
	const op = "retrieve"
	if candidateK <= 0 || rerankK <= 0 {
		return []Chunk{}, nil
	}

	vectors, err := emb.Encode(ctx, []string{query})
	if err != nil {
		return nil, ragerr.Wrap(ragerr.KindRetrievalUnavailable, op, fmt.Errorf("embed query: %w", err))
	}
	if len(vectors) != 1 {
		return nil, ragerr.Wrap(ragerr.KindRetrievalUnavailable, op, fmt.Errorf("embedder returned %d vectors for 1 query", len(vectors)))
	}

	candidates, err := index.Search(ctx, vectors[0], candidateK)
	if err != nil {
		return nil, ragerr.Wrap(ragerr.KindRetrievalUnavailable, op, fmt.Errorf("vector search: %w", err))
	}
	if len(candidates) == 0 {
		g.logger.Debug(module, "No candidates", map[string]interface{}{"candidate_k": candidateK})
		return []Chunk{}, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}
	scores, err := g.reranker.Score(ctx, query, texts)
	if err != nil {
		return nil, ragerr.Wrap(ragerr.KindRetrievalUnavailable, op, fmt.Errorf("rerank: %w", err))
	}
	if len(scores) != len(candidates) {
		return nil, ragerr.Wrap(ragerr.KindRetrievalUnavailable, op, fmt.Errorf("reranker returned %d scores for %d candidates", len(scores), len(candidates)))
	}

	chunks := make([]Chunk, len(candidates))
	for i, c := range candidates {
		chunks[i] = Chunk{Text: c.Text, SourceID: c.SourceID, Score: scores[i], Rank: i}
	}
	sort.SliceStable(chunks, func(a, b int) bool {
		return chunks[a].Score > chunks[b].Score
	})
	if len(chunks) > rerankK {
		chunks = chunks[:rerankK]
	}

	g.logger.Debug(module, "Retrieved", map[string]interface{}{
		"candidates": len(candidates),
		"returned":   len(chunks),
		"top_score":  chunks[0].Score,
	})
	return chunks, nil
}
