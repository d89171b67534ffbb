package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveOverridesDefaults(t *testing.T) {
	defaults := Options{Temperature: 0.7, MaxTokens: 512, Model: "llama3.2"}

	got := Resolve(defaults, WithTemperature(0), WithModel("mistral"))
	assert.Equal(t, Options{Temperature: 0, MaxTokens: 512, Model: "mistral"}, got)

	assert.Equal(t, defaults, Resolve(defaults))
	assert.Equal(t, 64, Resolve(defaults, WithMaxTokens(64)).MaxTokens)
}
