package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"ai-docqa-be/pkg/vectorstore"
)

// FlatIndex is an exact cosine-similarity index held in process memory
type FlatIndex struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
	records   []vectorstore.Record
}

var _ vectorstore.Index = &FlatIndex{}

func NewFlatIndex(dimension int) *FlatIndex {
	return &FlatIndex{dimension: dimension}
}

func (f *FlatIndex) Add(ctx context.Context, vectors [][]float32, records []vectorstore.Record) error {
	if len(vectors) != len(records) {
		return fmt.Errorf("vectors and records length mismatch: %d != %d", len(vectors), len(records))
	}
	for i, v := range vectors {
		if len(v) != f.dimension {
			return fmt.Errorf("vector %d has dimension %d, index expects %d", i, len(v), f.dimension)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range vectors {
		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		f.vectors = append(f.vectors, vec)
		f.records = append(f.records, records[i])
	}
	return nil
}

func (f *FlatIndex) Search(ctx context.Context, vector []float32, k int) ([]vectorstore.Candidate, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(vector) != f.dimension {
		return nil, fmt.Errorf("query has dimension %d, index expects %d", len(vector), f.dimension)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	hits := make([]vectorstore.Candidate, len(f.vectors))
	for i, v := range f.vectors {
		hits[i] = vectorstore.Candidate{Record: f.records[i], Similarity: cosine(vector, v)}
	}
	// stable: equal similarity keeps insertion order
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func (f *FlatIndex) Release(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors = nil
	f.records = nil
	return nil
}

func (f *FlatIndex) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Factory creates flat indexes
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (Factory) Create(ctx context.Context, version string, dimension int) (vectorstore.Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dimension)
	}
	return NewFlatIndex(dimension), nil
}
