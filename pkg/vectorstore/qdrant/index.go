package qdrant

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"ai-docqa-be/pkg/vectorstore"

	"github.com/qdrant/go-client/qdrant"
)

// Config contains connection details for a Qdrant server (gRPC port)
type Config struct {
	Host             string
	Port             int
	APIKey           string
	UseTLS           bool
	CollectionPrefix string
}

// Factory creates one Qdrant collection per snapshot version
type Factory struct {
	client *qdrant.Client
	prefix string
}

func NewFactory(cfg Config) (*Factory, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connect qdrant: %w", err)
	}
	prefix := cfg.CollectionPrefix
	if prefix == "" {
		prefix = "docqa"
	}
	return &Factory{client: client, prefix: prefix}, nil
}

func (f *Factory) Create(ctx context.Context, version string, dimension int) (vectorstore.Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dimension)
	}
	name := f.collectionName(version)
	err := f.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("create collection %s: %w", name, err)
	}
	return &Index{client: f.client, collection: name}, nil
}

func (f *Factory) collectionName(version string) string {
	return fmt.Sprintf("%s_%s", f.prefix, version)
}

// PruneExcept drops every collection under the factory prefix except the one of keep
func (f *Factory) PruneExcept(ctx context.Context, keep string) (int, error) {
	names, err := f.client.ListCollections(ctx)
	if err != nil {
		return 0, fmt.Errorf("list collections: %w", err)
	}
	dropped := 0
	for _, name := range staleCollections(names, f.prefix, f.collectionName(keep)) {
		if err := f.client.DeleteCollection(ctx, name); err != nil {
			return dropped, fmt.Errorf("drop collection %s: %w", name, err)
		}
		dropped++
	}
	return dropped, nil
}

func staleCollections(names []string, prefix, keep string) []string {
	var stale []string
	for _, name := range names {
		if name != keep && strings.HasPrefix(name, prefix+"_") {
			stale = append(stale, name)
		}
	}
	return stale
}

func (f *Factory) Close() error {
	return f.client.Close()
}

// Index stores a snapshot's chunks in a dedicated collection
type Index struct {
	client     *qdrant.Client
	collection string
	nextID     atomic.Uint64
}

var (
	_ vectorstore.Index  = &Index{}
	_ vectorstore.Pruner = &Factory{}
)

func (i *Index) Add(ctx context.Context, vectors [][]float32, records []vectorstore.Record) error {
	if len(vectors) != len(records) {
		return fmt.Errorf("vectors and records length mismatch: %d != %d", len(vectors), len(records))
	}
	if len(vectors) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(vectors))
	for n := range vectors {
		points[n] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(i.nextID.Add(1)),
			Vectors: qdrant.NewVectors(vectors[n]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"chunk_id":    records[n].ChunkID,
				"source_id":   records[n].SourceID,
				"chunk_index": int64(records[n].ChunkIndex),
				"text":        records[n].Text,
			}),
		}
	}

	_, err := i.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: i.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upsert %d points into %s: %w", len(points), i.collection, err)
	}
	return nil
}

func (i *Index) Search(ctx context.Context, vector []float32, k int) ([]vectorstore.Candidate, error) {
	if k <= 0 {
		return nil, nil
	}
	points, err := i.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: i.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", i.collection, err)
	}

	out := make([]vectorstore.Candidate, 0, len(points))
	for _, p := range points {
		payload := p.GetPayload()
		out = append(out, vectorstore.Candidate{
			Record: vectorstore.Record{
				ChunkID:    payload["chunk_id"].GetStringValue(),
				SourceID:   payload["source_id"].GetStringValue(),
				ChunkIndex: int(payload["chunk_index"].GetIntegerValue()),
				Text:       payload["text"].GetStringValue(),
			},
			Similarity: float64(p.GetScore()),
		})
	}
	return out, nil
}

func (i *Index) Release(ctx context.Context) error {
	if err := i.client.DeleteCollection(ctx, i.collection); err != nil {
		return fmt.Errorf("drop collection %s: %w", i.collection, err)
	}
	return nil
}
