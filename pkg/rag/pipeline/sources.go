package pipeline

import "ai-docqa-be/pkg/rag/retrieval"

// Source is one grounding passage returned with an answer
type Source struct {
	SourceID string  `json:"source_id"`
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
}

type sourceKey struct {
	sourceID string
	text     string
}

// dedupeSources collapses chunks sharing (SourceID, Text), keeping first-seen order
func dedupeSources(chunks []retrieval.Chunk) []Source {
	out := make([]Source, 0, len(chunks))
	seen := make(map[sourceKey]struct{}, len(chunks))
	for _, c := range chunks {
		k := sourceKey{c.SourceID, c.Text}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, Source{SourceID: c.SourceID, Text: c.Text, Score: c.Score})
	}
	return out
}
