package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/pkg/embedding"
	"ai-docqa-be/pkg/embedding/tfidf"
	"ai-docqa-be/pkg/ingest"
	"ai-docqa-be/pkg/rag/eval"
	"ai-docqa-be/pkg/rag/pipeline"
	"ai-docqa-be/pkg/rag/retrieval"
	"ai-docqa-be/pkg/rerank"
	"ai-docqa-be/pkg/rerank/tei"
	vmemory "ai-docqa-be/pkg/vectorstore/memory"

	"github.com/fatih/color"
)

var (
	docsDir      = flag.String("docs_dir", "docs", "Folder of .txt/.md documents to index")
	casesPath    = flag.String("cases", "eval/eval_cases.jsonl", "JSONL evaluation cases")
	candidateK   = flag.Int("candidate_k", 20, "Nearest-neighbour candidates per question")
	rerankK      = flag.Int("rerank_k", 5, "Chunks kept after reranking")
	threshold    = flag.Float64("threshold", 0.3, "Mode threshold on the top rerank score")
	chunkSize    = flag.Int("chunk_size", 1500, "Chunk size in characters")
	chunkOverlap = flag.Int("chunk_overlap", 200, "Chunk overlap in characters")
	embedder     = flag.String("embedder", "tfidf", "Embedding provider: tfidf or ollama")
	ollamaURL    = flag.String("ollama-url", "http://localhost:11434", "Ollama base URL")
	ollamaModel  = flag.String("ollama-model", "nomic-embed-text", "Ollama embedding model")
	teiURL       = flag.String("tei-url", "", "TEI reranker URL; lexical reranking when empty")
	jsonOut      = flag.Bool("json", false, "Print the report as JSON")
	maxMisses    = flag.Int("misses", 10, "Number of misses to print")
)

func main() {
	flag.Parse()
	ctx := context.Background()

	if err := run(ctx); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "eval failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var embedders embedding.Factory = tfidf.NewFactory()
	if *embedder == "ollama" {
		emb, err := embedding.NewOllamaProvider(*ollamaURL, *ollamaModel)
		if err != nil {
			return err
		}
		embedders = embedding.StaticFactory{Embedder: emb}
	}

	var reranker rerank.Reranker = rerank.NewLexicalReranker()
	if *teiURL != "" {
		reranker = tei.NewClient(*teiURL)
	}

	log := logger.NewNopLogger()
	coord := pipeline.NewCoordinator(pipeline.Config{
		CandidateK:   *candidateK,
		RerankK:      *rerankK,
		Threshold:    *threshold,
		ChunkSize:    *chunkSize,
		ChunkOverlap: *chunkOverlap,
		LockMode:     pipeline.LockSnapshot,
	}, pipeline.Dependencies{
		Gateway:   retrieval.NewGateway(reranker, log),
		Embedders: embedders,
		Indexes:   vmemory.NewFactory(),
		Logger:    log,
	})

	indexed, err := coord.Reindex(ctx, ingest.NewFolderLoader(*docsDir))
	if err != nil {
		return fmt.Errorf("index %s: %w", *docsDir, err)
	}

	f, err := os.Open(*casesPath)
	if err != nil {
		return err
	}
	defer f.Close()
	cases, err := eval.LoadCases(f)
	if err != nil {
		return err
	}

	report, err := eval.Evaluate(ctx, cases, func(ctx context.Context, q string) ([]retrieval.Chunk, error) {
		return coord.Retrieve(ctx, q)
	}, *threshold)
	if err != nil {
		return err
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(report, indexed.Chunks)
	return nil
}

func printReport(r *eval.Report, chunks int) {
	bold := color.New(color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Println(bold("=== RAG Retrieval Eval ==="))
	fmt.Printf("Indexed chunks: %d\n", chunks)
	fmt.Printf("Total cases: %d\n", r.TotalCases)
	fmt.Printf("Doc cases:   %d\n", r.DocCases)
	fmt.Printf("Recall@1:    %s\n", green(fmt.Sprintf("%.3f", r.Overall.RecallAt1)))
	fmt.Printf("Recall@3:    %s\n", green(fmt.Sprintf("%.3f", r.Overall.RecallAt3)))
	fmt.Printf("Recall@5:    %s\n", green(fmt.Sprintf("%.3f", r.Overall.RecallAt5)))
	fmt.Printf("MRR:         %s\n", green(fmt.Sprintf("%.3f", r.Overall.MRR)))
	fmt.Printf("Mode acc:    %s\n", green(fmt.Sprintf("%.3f", r.ModeAccuracy)))

	if r.Warnings.LowDocCaseCount {
		fmt.Println(yellow(fmt.Sprintf("\n[WARN] doc_cases < %d: metrics are likely unstable.", eval.MinDocCases)))
	}
	if len(r.Warnings.LowSupportSources) > 0 {
		fmt.Println(yellow(fmt.Sprintf("[WARN] low support per source (<%d): %v", eval.MinSourceSupport, r.Warnings.LowSupportSources)))
	}

	printGroup(bold("By source"), r.BySource)
	printGroup(bold("By tag"), r.ByTag)

	if len(r.Misses) == 0 {
		fmt.Println(green("\nNo misses in top5."))
		return
	}
	fmt.Println(red("\n--- Misses (expected not in top5) ---"))
	for i, m := range r.Misses {
		if i == *maxMisses {
			break
		}
		best := "none"
		if m.BestScore != nil {
			best = fmt.Sprintf("%.3f", *m.BestScore)
		}
		fmt.Printf("- %s: %s\n", m.ID, m.Question)
		fmt.Printf("  expected: %v\n", m.Expected)
		fmt.Printf("  got_top5: %v\n", m.GotTop5)
		fmt.Printf("  best_score: %s\n", best)
		fmt.Printf("  tags: %v\n", m.Tags)
	}
}

func printGroup(title string, group map[string]eval.Metrics) {
	if len(group) == 0 {
		fmt.Printf("\n%s: (none)\n", title)
		return
	}
	fmt.Printf("\n%s:\n", title)
	for _, name := range eval.SortedKeys(group) {
		m := group[name]
		fmt.Printf("- %s: n=%d, r@1=%.3f, r@3=%.3f, r@5=%.3f, mrr=%.3f\n",
			name, m.Count, m.RecallAt1, m.RecallAt3, m.RecallAt5, m.MRR)
	}
}
