package eval

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"ai-docqa-be/pkg/rag/mode"
	"ai-docqa-be/pkg/rag/retrieval"
)

const (
	// MinDocCases is the number of document cases below which metrics are reported as unstable
	MinDocCases = 30
	// MinSourceSupport is the per-source case count below which a source is flagged
	MinSourceSupport = 3
)

// Case is one line of a JSONL evaluation file
type Case struct {
	ID              string   `json:"id"`
	Question        string   `json:"question"`
	ExpectedSources []string `json:"expected_sources"`
	ExpectedMode    string   `json:"expected_mode"`
	Tags            []string `json:"tags"`
}

type Metrics struct {
	Count     int     `json:"count"`
	RecallAt1 float64 `json:"recall@1"`
	RecallAt3 float64 `json:"recall@3"`
	RecallAt5 float64 `json:"recall@5"`
	MRR       float64 `json:"mrr"`
}

type Miss struct {
	ID        string   `json:"id"`
	Question  string   `json:"question"`
	Expected  []string `json:"expected"`
	GotTop5   []string `json:"got_top5"`
	BestScore *float64 `json:"best_score"`
	Tags      []string `json:"tags"`
}

type Warnings struct {
	LowDocCaseCount   bool     `json:"low_doc_case_count"`
	LowSupportSources []string `json:"low_support_sources"`
}

type Report struct {
	Overall      Metrics            `json:"overall"`
	BySource     map[string]Metrics `json:"by_source"`
	ByTag        map[string]Metrics `json:"by_tag"`
	ModeAccuracy float64            `json:"mode_accuracy"`
	TotalCases   int                `json:"total_cases"`
	DocCases     int                `json:"doc_cases"`
	Misses       []Miss             `json:"misses"`
	Warnings     Warnings           `json:"warnings"`
}

// RetrieveFunc returns reranked chunks for a question, best first
type RetrieveFunc func(ctx context.Context, question string) ([]retrieval.Chunk, error)

// LoadCases reads JSONL cases, skipping blank lines. A case without expected_mode expects document mode.
func LoadCases(r io.Reader) ([]Case, error) {
	var cases []Case
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var c Case
		if err := json.Unmarshal([]byte(text), &c); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if c.ExpectedMode == "" {
			c.ExpectedMode = string(mode.Document)
		}
		cases = append(cases, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cases, nil
}

type bucket struct {
	total  int
	hit1   int
	hit3   int
	hit5   int
	mrrSum float64
}

// add records one case and reports whether an expected source was in the top 5
func (b *bucket) add(ranked []string, expected map[string]struct{}) bool {
	b.total++
	first := -1
	for i, src := range ranked {
		if _, ok := expected[src]; ok {
			first = i
			break
		}
	}
	if first < 0 {
		return false
	}
	if first < 1 {
		b.hit1++
	}
	if first < 3 {
		b.hit3++
	}
	if first < 5 {
		b.hit5++
	}
	b.mrrSum += 1.0 / float64(first+1)
	return first < 5
}

func (b *bucket) metrics() Metrics {
	if b.total == 0 {
		return Metrics{}
	}
	n := float64(b.total)
	return Metrics{
		Count:     b.total,
		RecallAt1: float64(b.hit1) / n,
		RecallAt3: float64(b.hit3) / n,
		RecallAt5: float64(b.hit5) / n,
		MRR:       b.mrrSum / n,
	}
}

// Evaluate runs every case through retrieve. Retrieval metrics only count cases with
// expected sources; mode accuracy counts all cases.
func Evaluate(ctx context.Context, cases []Case, retrieve RetrieveFunc, threshold float64) (*Report, error) {
	overall := &bucket{}
	bySource := make(map[string]*bucket)
	byTag := make(map[string]*bucket)
	modeCorrect := 0
	misses := []Miss{}

	for _, c := range cases {
		chunks, err := retrieve(ctx, c.Question)
		if err != nil {
			return nil, fmt.Errorf("case %s: %w", c.ID, err)
		}

		ranked := make([]string, len(chunks))
		for i, ch := range chunks {
			ranked[i] = ch.SourceID
		}

		decision := mode.Decide(chunks, threshold)
		if string(decision.Mode) == c.ExpectedMode {
			modeCorrect++
		}

		if len(c.ExpectedSources) == 0 {
			continue
		}
		expected := make(map[string]struct{}, len(c.ExpectedSources))
		for _, s := range c.ExpectedSources {
			expected[s] = struct{}{}
		}

		hit5 := overall.add(ranked, expected)
		for src := range expected {
			if bySource[src] == nil {
				bySource[src] = &bucket{}
			}
			bySource[src].add(ranked, expected)
		}
		for _, tag := range c.Tags {
			if byTag[tag] == nil {
				byTag[tag] = &bucket{}
			}
			byTag[tag].add(ranked, expected)
		}

		if !hit5 {
			top := ranked
			if len(top) > 5 {
				top = top[:5]
			}
			want := append([]string(nil), c.ExpectedSources...)
			sort.Strings(want)
			misses = append(misses, Miss{
				ID:        c.ID,
				Question:  c.Question,
				Expected:  want,
				GotTop5:   top,
				BestScore: decision.TopScore,
				Tags:      c.Tags,
			})
		}
	}

	report := &Report{
		Overall:    overall.metrics(),
		BySource:   make(map[string]Metrics, len(bySource)),
		ByTag:      make(map[string]Metrics, len(byTag)),
		TotalCases: len(cases),
		DocCases:   overall.total,
		Misses:     misses,
		Warnings: Warnings{
			LowDocCaseCount:   overall.total < MinDocCases,
			LowSupportSources: []string{},
		},
	}
	if len(cases) > 0 {
		report.ModeAccuracy = float64(modeCorrect) / float64(len(cases))
	}
	for src, b := range bySource {
		report.BySource[src] = b.metrics()
		if b.total < MinSourceSupport {
			report.Warnings.LowSupportSources = append(report.Warnings.LowSupportSources, src)
		}
	}
	sort.Strings(report.Warnings.LowSupportSources)
	for tag, b := range byTag {
		report.ByTag[tag] = b.metrics()
	}
	return report, nil
}

// SortedKeys returns the keys of a metrics group in name order
func SortedKeys(m map[string]Metrics) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
