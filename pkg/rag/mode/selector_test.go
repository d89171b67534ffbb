package mode

import (
	"math"
	"testing"

	"ai-docqa-be/pkg/rag/retrieval"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		scores    []float64
		threshold float64
		want      Mode
	}{
		{"empty", nil, 0.3, General},
		{"empty with negative threshold", nil, math.Inf(-1), General},
		{"above", []float64{0.9}, 0.3, Document},
		{"equal is document", []float64{0.3}, 0.3, Document},
		{"below", []float64{0.05}, 0.3, General},
		{"only first counts", []float64{0.1, 0.99}, 0.3, General},
		{"negative logits", []float64{-2.5}, -3, Document},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := make([]retrieval.Chunk, len(tt.scores))
			for i, s := range tt.scores {
				chunks[i] = retrieval.Chunk{Score: s}
			}
			d := Decide(chunks, tt.threshold)
			assert.Equal(t, tt.want, d.Mode)
			if len(tt.scores) == 0 {
				assert.Nil(t, d.TopScore)
			} else {
				require.NotNil(t, d.TopScore)
				assert.Equal(t, tt.scores[0], *d.TopScore)
			}
		})
	}
}

func TestDecideThresholdProperty(t *testing.T) {
	for s := -1.0; s <= 1.0; s += 0.125 {
		for th := -1.0; th <= 1.0; th += 0.125 {
			d := Decide([]retrieval.Chunk{{Score: s}}, th)
			if s >= th {
				assert.Equal(t, Document, d.Mode, "s=%v t=%v", s, th)
			} else {
				assert.Equal(t, General, d.Mode, "s=%v t=%v", s, th)
			}
		}
	}
}
