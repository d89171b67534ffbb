package rerank

import (
	"context"
	"math"
	"regexp"
	"strings"
)

// Reranker scores (query, text) pairs. The returned slice has one score per text, in input order.
type Reranker interface {
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
}

var wordPattern = regexp.MustCompile(`\p{L}+|\p{N}+`)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {}, "on": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "for": {}, "with": {}, "what": {}, "which": {},
	"who": {}, "how": {}, "do": {}, "does": {}, "it": {}, "this": {}, "that": {}, "by": {}, "at": {},
}

// LexicalReranker scores by Ochiai overlap of distinct content words:
// |Q ∩ T| / sqrt(|Q| * |T|), in [0,1]. Used when no cross-encoder is configured.
type LexicalReranker struct{}

func NewLexicalReranker() *LexicalReranker {
	return &LexicalReranker{}
}

func (r *LexicalReranker) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	q := terms(query)
	scores := make([]float64, len(texts))
	if len(q) == 0 {
		return scores, nil
	}
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t := terms(text)
		if len(t) == 0 {
			continue
		}
		shared := 0
		for w := range q {
			if _, ok := t[w]; ok {
				shared++
			}
		}
		scores[i] = float64(shared) / math.Sqrt(float64(len(q))*float64(len(t)))
	}
	return scores, nil
}

func terms(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if _, stop := stopwords[w]; stop {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}
