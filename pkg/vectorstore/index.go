package vectorstore

import "context"

// Record is the metadata stored alongside each chunk vector
type Record struct {
	ChunkID    string `json:"chunk_id"`
	SourceID   string `json:"source_id"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
}

// Candidate is a nearest-neighbour hit. Similarity is higher for closer vectors.
type Candidate struct {
	Record
	Similarity float64
}

// Index is a vector index scoped to one pipeline snapshot
type Index interface {
	// Add appends vectors with their records, in order
	Add(ctx context.Context, vectors [][]float32, records []Record) error

	// Search returns at most k candidates, closest first
	Search(ctx context.Context, vector []float32, k int) ([]Candidate, error)

	// Release frees the index's resources. It is called once, after the last reader is done.
	Release(ctx context.Context) error
}

// Factory creates empty indexes for new snapshots
type Factory interface {
	Create(ctx context.Context, version string, dimension int) (Index, error)
}

// Pruner is implemented by factories whose indexes outlive the process. PruneExcept drops
// every index the factory owns except the one for keep, and reports how many it removed.
type Pruner interface {
	PruneExcept(ctx context.Context, keep string) (int, error)
}
