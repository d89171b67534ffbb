package pipeline

import (
	"sync/atomic"
	"time"

	"ai-docqa-be/pkg/embedding"
	"ai-docqa-be/pkg/vectorstore"
)

// Snapshot pairs an embedder with the index built by it. A request uses one snapshot
// from start to finish; reindex replaces it wholesale.
type Snapshot struct {
	Version   string
	Embedder  embedding.Embedder
	Index     vectorstore.Index
	CreatedAt time.Time

	chunks   atomic.Int64
	refs     atomic.Int64
	retired  atomic.Bool
	released atomic.Bool
}

func newSnapshot(version string, emb embedding.Embedder, index vectorstore.Index, chunks int) *Snapshot {
	s := &Snapshot{
		Version:   version,
		Embedder:  emb,
		Index:     index,
		CreatedAt: time.Now(),
	}
	s.chunks.Store(int64(chunks))
	return s
}

// Chunks is the number of chunks indexed so far, including incremental adds
func (s *Snapshot) Chunks() int {
	return int(s.chunks.Load())
}

// InUse is the number of requests currently holding the snapshot
func (s *Snapshot) InUse() int {
	return int(s.refs.Load())
}

func (s *Snapshot) Released() bool {
	return s.released.Load()
}
