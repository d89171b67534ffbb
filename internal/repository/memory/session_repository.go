package memory

import (
	"ai-docqa-be/pkg/rag/conversation"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps conversation state in process memory.
// Entries never expire: no eviction policy has been decided for sessions.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository() *SessionRepository {
	c := cache.New(cache.NoExpiration, 0)
	return &SessionRepository{
		cache: c,
	}
}

// LoadOrStore returns the state stored under sessionID, storing state first if none exists.
// The boolean reports whether the state was already present.
func (r *SessionRepository) LoadOrStore(sessionID string, state *conversation.State) (*conversation.State, bool) {
	for {
		if err := r.cache.Add(sessionID, state, cache.NoExpiration); err == nil {
			return state, false
		}
		if x, found := r.cache.Get(sessionID); found {
			return x.(*conversation.State), true
		}
	}
}

func (r *SessionRepository) Get(sessionID string) (*conversation.State, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*conversation.State), true
	}
	return nil, false
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}
