package mode

import "ai-docqa-be/pkg/rag/retrieval"

type Mode string

const (
	Document Mode = "document"
	General  Mode = "general"
)

// Decision records the chosen mode and the top rerank score it was based on
type Decision struct {
	Mode     Mode     `json:"mode"`
	TopScore *float64 `json:"top_score,omitempty"`
}

// Decide grounds the answer in documents when the best chunk scores at least threshold.
// Only the first chunk is considered; chunks must already be sorted best first.
func Decide(chunks []retrieval.Chunk, threshold float64) Decision {
	if len(chunks) == 0 {
		return Decision{Mode: General}
	}
	top := chunks[0].Score
	if top >= threshold {
		return Decision{Mode: Document, TopScore: &top}
	}
	return Decision{Mode: General, TopScore: &top}
}
