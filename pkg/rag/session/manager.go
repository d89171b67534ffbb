package session

import (
	"ai-docqa-be/pkg/rag/conversation"
)

// Repository stores one conversation state per session id
type Repository interface {
	LoadOrStore(sessionID string, state *conversation.State) (*conversation.State, bool)
	Get(sessionID string) (*conversation.State, bool)
	Count() int
}

// Manager is the conversation store used by the pipeline. It never removes sessions.
type Manager struct {
	repo Repository
}

func NewManager(repo Repository) *Manager {
	return &Manager{repo: repo}
}

// GetOrCreate returns the session's state, creating an empty one on first contact
func (m *Manager) GetOrCreate(sessionID string) *conversation.State {
	state, _ := m.repo.LoadOrStore(sessionID, conversation.NewState())
	return state
}

// Peek returns the session's state without creating it
func (m *Manager) Peek(sessionID string) (*conversation.State, bool) {
	return m.repo.Get(sessionID)
}

// Append records a completed exchange
func (m *Manager) Append(state *conversation.State, user, assistant conversation.Turn) {
	state.Append(user, assistant)
}

// Count is the number of sessions held
func (m *Manager) Count() int {
	return m.repo.Count()
}
