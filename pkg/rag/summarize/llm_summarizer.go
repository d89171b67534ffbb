package summarize

import (
	"context"
	"fmt"
	"strings"

	"ai-docqa-be/pkg/llm"
	"ai-docqa-be/pkg/rag/conversation"
)

// LLMSummarizer asks a language model to extend the running summary
type LLMSummarizer struct {
	provider llm.LLMProvider
}

func NewLLMSummarizer(provider llm.LLMProvider) *LLMSummarizer {
	return &LLMSummarizer{provider: provider}
}

func (s *LLMSummarizer) Summarize(ctx context.Context, priorSummary string, turns []conversation.Turn) (string, error) {
	out, err := s.provider.Generate(ctx, buildPrompt(priorSummary, turns), llm.WithTemperature(0))
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("summarizer returned empty text")
	}
	return out, nil
}

func buildPrompt(priorSummary string, turns []conversation.Turn) string {
	var prompt strings.Builder

	prompt.WriteString("<task>\n")
	prompt.WriteString("Update the running summary of a conversation between a user and an assistant.\n")
	prompt.WriteString("Keep names, numbers, decisions and open questions. Write at most 5 sentences.\n")
	prompt.WriteString("</task>\n\n")

	prompt.WriteString("<previous_summary>\n")
	if priorSummary != "" {
		prompt.WriteString(priorSummary)
		prompt.WriteString("\n")
	}
	prompt.WriteString("</previous_summary>\n\n")

	prompt.WriteString("<new_messages>\n")
	for _, t := range turns {
		prompt.WriteString(string(t.Role))
		prompt.WriteString(": ")
		prompt.WriteString(t.Content)
		prompt.WriteString("\n")
	}
	prompt.WriteString("</new_messages>\n\n")

	prompt.WriteString("Updated summary:")
	return prompt.String()
}
