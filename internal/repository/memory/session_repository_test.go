package memory

import (
	"sync"
	"testing"

	"ai-docqa-be/pkg/rag/conversation"

	"github.com/stretchr/testify/assert"
)

func TestLoadOrStoreKeepsFirstState(t *testing.T) {
	repo := NewSessionRepository()
	first := conversation.NewState()

	got, loaded := repo.LoadOrStore("s1", first)
	assert.False(t, loaded)
	assert.Same(t, first, got)

	got, loaded = repo.LoadOrStore("s1", conversation.NewState())
	assert.True(t, loaded)
	assert.Same(t, first, got)
	assert.Equal(t, 1, repo.Count())
}

func TestLoadOrStoreConcurrentSameKey(t *testing.T) {
	repo := NewSessionRepository()

	var wg sync.WaitGroup
	results := make([]*conversation.State, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = repo.LoadOrStore("shared", conversation.NewState())
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Same(t, results[0], r)
	}
	assert.Equal(t, 1, repo.Count())
}

func TestGetMissing(t *testing.T) {
	repo := NewSessionRepository()
	_, ok := repo.Get("nope")
	assert.False(t, ok)
}
