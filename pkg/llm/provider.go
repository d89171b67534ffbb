package llm

import (
	"context"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn handed to a generator
type Message struct {
	Role    string
	Content string
}

// Options tune a single call. Each provider starts from its own defaults; the pipeline
// only overrides Temperature (summaries run at 0) and the cache keys on Model.
type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string
}

type Option func(*Options)

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// Resolve applies opts on top of defaults
func Resolve(defaults Options, opts ...Option) Options {
	for _, o := range opts {
		o(&defaults)
	}
	return defaults
}

// LLMProvider is the text generator behind answers and conversation summaries
type LLMProvider interface {
	// Chat answers the last message of history
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate answers a single user prompt
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}
