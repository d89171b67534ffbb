package embedding

import (
	"context"
	"math"
)

// Embedder turns texts into fixed-length vectors. Implementations must be safe for concurrent use.
type Embedder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Factory produces the embedder of a new snapshot. Corpus-fitted embedders (tfidf)
// build their vocabulary here; model-backed ones ignore the corpus.
type Factory interface {
	Fit(ctx context.Context, corpus []string) (Embedder, error)
}

// StaticFactory hands out the same pre-built embedder for every snapshot
type StaticFactory struct {
	Embedder Embedder
}

func (f StaticFactory) Fit(ctx context.Context, corpus []string) (Embedder, error) {
	return f.Embedder, nil
}

// normalizeVector normalizes a vector to unit length (magnitude = 1)
func normalizeVector(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)

	// Avoid division by zero
	if magnitude == 0 {
		return vec
	}

	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}
