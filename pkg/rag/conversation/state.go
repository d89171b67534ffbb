package conversation

import (
	"context"
	"fmt"
	"sync"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single immutable conversation message
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SummarizeFunc folds turns into a prior running summary
type SummarizeFunc func(ctx context.Context, priorSummary string, turns []Turn) (string, error)

// State is the bounded memory of one session: recent turns plus a running summary
// covering every turn no longer held in Messages.
type State struct {
	mu       sync.Mutex
	messages []Turn
	summary  string
	// number of leading messages already reflected in summary
	covered int
}

func NewState() *State {
	return &State{}
}

// Snapshot returns a copy of the summary and messages
func (s *State) Snapshot() (string, []Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Turn, len(s.messages))
	copy(out, s.messages)
	return s.summary, out
}

// Window returns the summary and at most n trailing messages
func (s *State) Window(n int) (string, []Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := len(s.messages) - n
	if start < 0 {
		start = 0
	}
	out := make([]Turn, len(s.messages)-start)
	copy(out, s.messages[start:])
	return s.summary, out
}

func (s *State) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Append adds turns in order
func (s *State) Append(turns ...Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, turns...)
}

// Compact replaces older messages with an updated summary once more than trigger messages are held.
// The summarizer receives at least the trailing window messages, extended back to the first turn the
// summary does not yet cover. On success only the trailing keep messages remain. On failure the state
// is left untouched.
func (s *State) Compact(ctx context.Context, trigger, window, keep int, summarize SummarizeFunc) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.messages)
	if n <= trigger {
		return false, nil
	}

	from := n - window
	if from < 0 {
		from = 0
	}
	if s.covered < from {
		from = s.covered
	}
	turns := make([]Turn, n-from)
	copy(turns, s.messages[from:])

	newSummary, err := summarize(ctx, s.summary, turns)
	if err != nil {
		return false, fmt.Errorf("summarize %d turns: %w", len(turns), err)
	}

	kept := make([]Turn, keep)
	copy(kept, s.messages[n-keep:])
	s.messages = kept
	s.summary = newSummary
	s.covered = keep
	return true, nil
}
