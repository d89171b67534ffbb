package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbeddingsClient struct {
	vectors map[string][]float64
	err     error
	prompts []string
}

func (f *fakeEmbeddingsClient) Embeddings(ctx context.Context, req *api.EmbeddingRequest) (*api.EmbeddingResponse, error) {
	f.prompts = append(f.prompts, req.Prompt)
	if f.err != nil {
		return nil, f.err
	}
	return &api.EmbeddingResponse{Embedding: f.vectors[req.Prompt]}, nil
}

func TestOllamaEncodeNormalizes(t *testing.T) {
	fake := &fakeEmbeddingsClient{vectors: map[string][]float64{
		"a": {3, 4},
		"b": {0, 2},
	}}
	p := &OllamaProvider{client: fake, model: "nomic-embed-text"}

	assert.Equal(t, 0, p.Dimension())

	vecs, err := p.Encode(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.InDelta(t, 0.6, vecs[0][0], 1e-6)
	assert.InDelta(t, 0.8, vecs[0][1], 1e-6)
	assert.InDelta(t, 1.0, vecs[1][1], 1e-6)
	assert.Equal(t, 2, p.Dimension())
	assert.Equal(t, []string{"a", "b"}, fake.prompts)
}

func TestOllamaEncodeError(t *testing.T) {
	p := &OllamaProvider{client: &fakeEmbeddingsClient{err: errors.New("connection refused")}, model: "m"}

	_, err := p.Encode(context.Background(), []string{"a"})
	assert.ErrorContains(t, err, "connection refused")
}

func TestOllamaEncodeEmptyEmbedding(t *testing.T) {
	p := &OllamaProvider{client: &fakeEmbeddingsClient{vectors: map[string][]float64{}}, model: "m"}

	_, err := p.Encode(context.Background(), []string{"a"})
	assert.Error(t, err)
}

func TestNormalizeVectorZero(t *testing.T) {
	v := normalizeVector([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, v)

	u := normalizeVector([]float32{1, 1})
	var mag float64
	for _, x := range u {
		mag += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(mag), 1e-6)
}
