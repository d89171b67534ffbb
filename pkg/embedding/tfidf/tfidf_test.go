package tfidf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestFitEmptyCorpus(t *testing.T) {
	_, err := Fit(nil)
	assert.Error(t, err)

	_, err = Fit([]string{"the and of"})
	assert.Error(t, err, "stopwords only")
}

func TestEncodeRanksRelevantDocumentHigher(t *testing.T) {
	corpus := []string{
		"Paris is the capital of France.",
		"Go channels synchronize goroutines.",
	}
	e, err := Fit(corpus)
	require.NoError(t, err)

	ctx := context.Background()
	docs, err := e.Encode(ctx, corpus)
	require.NoError(t, err)
	q, err := e.Encode(ctx, []string{"What is the capital of France?"})
	require.NoError(t, err)

	assert.Greater(t, dot(q[0], docs[0]), dot(q[0], docs[1]))
	assert.InDelta(t, 1.0, dot(docs[0], docs[0]), 1e-5)
}

func TestEncodeUnknownTermsIsZeroVector(t *testing.T) {
	e, err := Fit([]string{"alpha beta"})
	require.NoError(t, err)

	vecs, err := e.Encode(context.Background(), []string{"gamma"})
	require.NoError(t, err)
	require.Len(t, vecs[0], e.Dimension())
	for _, v := range vecs[0] {
		assert.Zero(t, v)
	}
}

func TestDimensionIsVocabularySize(t *testing.T) {
	e, err := Fit([]string{"alpha beta", "beta gamma"})
	require.NoError(t, err)
	assert.Equal(t, 3, e.Dimension())
}

func TestFactoryFitsPerCorpus(t *testing.T) {
	f := NewFactory()
	a, err := f.Fit(context.Background(), []string{"one two"})
	require.NoError(t, err)
	b, err := f.Fit(context.Background(), []string{"one two three four"})
	require.NoError(t, err)
	assert.NotEqual(t, a.Dimension(), b.Dimension())
}
