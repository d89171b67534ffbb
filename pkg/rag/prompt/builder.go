package prompt

import (
	"strings"

	"ai-docqa-be/pkg/rag/conversation"
	"ai-docqa-be/pkg/rag/mode"
	"ai-docqa-be/pkg/rag/retrieval"
)

// RecentTurns is the number of trailing turns rendered into a prompt
const RecentTurns = 4

// Builder assembles the generation prompt. Output depends only on the inputs.
type Builder struct {
	mode    mode.Mode
	chunks  []retrieval.Chunk
	summary string
	recent  []conversation.Turn
	query   string
}

func NewBuilder(m mode.Mode, chunks []retrieval.Chunk, summary string, recent []conversation.Turn, query string) *Builder {
	if len(recent) > RecentTurns {
		recent = recent[len(recent)-RecentTurns:]
	}
	return &Builder{
		mode:    m,
		chunks:  chunks,
		summary: summary,
		recent:  recent,
		query:   query,
	}
}

// Build is shorthand for NewBuilder(...).Build()
func Build(m mode.Mode, chunks []retrieval.Chunk, summary string, recent []conversation.Turn, query string) string {
	return NewBuilder(m, chunks, summary, recent, query).Build()
}

func (b *Builder) Build() string {
	var prompt strings.Builder

	b.writeInstructions(&prompt)
	b.writeSummary(&prompt)
	b.writeRecentConversation(&prompt)
	b.writeContext(&prompt)
	b.writeUserQuery(&prompt)

	return prompt.String()
}

func (b *Builder) writeInstructions(prompt *strings.Builder) {
	prompt.WriteString("<instructions>\n")
	if b.mode == mode.Document {
		prompt.WriteString("Answer the question using only the information in <context>.\n")
		prompt.WriteString("If the context does not contain the answer, say that you do not know.\n")
		prompt.WriteString("Do not add facts that are not in the context.\n")
	} else {
		prompt.WriteString("The indexed documents are unrelated to this question.\n")
		prompt.WriteString("Answer from your general knowledge and keep the answer concise.\n")
	}
	prompt.WriteString("</instructions>\n\n")
}

func (b *Builder) writeSummary(prompt *strings.Builder) {
	prompt.WriteString("<conversation_summary>\n")
	if b.summary != "" {
		prompt.WriteString(b.summary)
		prompt.WriteString("\n")
	}
	prompt.WriteString("</conversation_summary>\n\n")
}

func (b *Builder) writeRecentConversation(prompt *strings.Builder) {
	prompt.WriteString("<recent_conversation>\n")
	for _, turn := range b.recent {
		prompt.WriteString(string(turn.Role))
		prompt.WriteString(": ")
		prompt.WriteString(turn.Content)
		prompt.WriteString("\n")
	}
	prompt.WriteString("</recent_conversation>\n\n")
}

// writeContext is a no-op in General mode
func (b *Builder) writeContext(prompt *strings.Builder) {
	if b.mode != mode.Document {
		return
	}
	texts := make([]string, len(b.chunks))
	for i, c := range b.chunks {
		texts[i] = c.Text
	}
	prompt.WriteString("<context>\n")
	prompt.WriteString(strings.Join(texts, "\n\n"))
	prompt.WriteString("\n</context>\n\n")
}

func (b *Builder) writeUserQuery(prompt *strings.Builder) {
	prompt.WriteString("<user_question>\n")
	prompt.WriteString(b.query)
	prompt.WriteString("\n</user_question>\n\n")
	prompt.WriteString("Answer:")
}
