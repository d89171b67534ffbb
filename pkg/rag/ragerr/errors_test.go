package ragerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := Wrap(KindRetrievalUnavailable, "retrieve", errors.New("connection refused"))

	assert.True(t, errors.Is(err, ErrRetrievalUnavailable))
	assert.False(t, errors.Is(err, ErrGenerationFailed))
	assert.Equal(t, "retrieve: retrieval_unavailable: connection refused", err.Error())
}

func TestErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("outer: %w", Wrap(KindGenerationFailed, "generate", cause))

	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrGenerationFailed))
	assert.Equal(t, KindGenerationFailed, KindOf(err))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, KindEmptyCorpus, KindOf(ErrEmptyCorpus))
}
