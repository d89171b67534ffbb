package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/ollama/ollama/api"
)

type embeddingsClient interface {
	Embeddings(ctx context.Context, req *api.EmbeddingRequest) (*api.EmbeddingResponse, error)
}

// OllamaProvider implements Embedder for local Ollama models (e.g., nomic-embed-text)
type OllamaProvider struct {
	client    embeddingsClient
	model     string
	dimension atomic.Int64
}

func NewOllamaProvider(baseURL string, model string) (*OllamaProvider, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", baseURL, err)
	}
	httpClient := &http.Client{
		Timeout: 60 * time.Second,
	}
	return &OllamaProvider{
		client: api.NewClient(u, httpClient),
		model:  model,
	}, nil
}

// Dimension is zero until the first successful Encode.
func (p *OllamaProvider) Dimension() int {
	return int(p.dimension.Load())
}

func (p *OllamaProvider) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		resp, err := p.client.Embeddings(ctx, &api.EmbeddingRequest{
			Model:  p.model,
			Prompt: text,
		})
		if err != nil {
			return nil, fmt.Errorf("ollama embedding %d/%d: %w", i+1, len(texts), err)
		}
		if len(resp.Embedding) == 0 {
			return nil, fmt.Errorf("ollama returned empty embedding for text %d", i)
		}

		values := make([]float32, len(resp.Embedding))
		for j, v := range resp.Embedding {
			values[j] = float32(v)
		}
		// cosine search in pgvector and qdrant expects unit vectors
		out[i] = normalizeVector(values)
	}
	if len(out) > 0 {
		p.dimension.Store(int64(len(out[0])))
	}
	return out, nil
}
