package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/internal/repository/memory"
	"ai-docqa-be/pkg/embedding"
	"ai-docqa-be/pkg/embedding/tfidf"
	"ai-docqa-be/pkg/events"
	"ai-docqa-be/pkg/ingest"
	"ai-docqa-be/pkg/llm"
	"ai-docqa-be/pkg/rag/conversation"
	"ai-docqa-be/pkg/rag/retrieval"
	"ai-docqa-be/pkg/rag/session"
	"ai-docqa-be/pkg/rag/summarize"
	"ai-docqa-be/pkg/vectorstore"
	vmemory "ai-docqa-be/pkg/vectorstore/memory"
)

type staticCorpus struct {
	docs []ingest.Document
	err  error
}

func (s staticCorpus) Load() ([]ingest.Document, error) {
	return s.docs, s.err
}

func corpus(pairs ...string) staticCorpus {
	var docs []ingest.Document
	for i := 0; i+1 < len(pairs); i += 2 {
		docs = append(docs, ingest.Document{SourceID: pairs[i], Text: pairs[i+1]})
	}
	return staticCorpus{docs: docs}
}

// stubReranker scores by substring match against a table, falling back to a default
type stubReranker struct {
	scores   map[string]float64
	fallback float64
	err      error
}

func (r *stubReranker) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]float64, len(texts))
	for i, t := range texts {
		out[i] = r.fallback
		for sub, s := range r.scores {
			if strings.Contains(t, sub) {
				out[i] = s
			}
		}
	}
	return out, nil
}

type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	err     error
	calls   atomic.Int64
}

func (g *fakeGenerator) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return g.Generate(ctx, history[len(history)-1].Content, options...)
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	n := g.calls.Add(1)
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	return fmt.Sprintf("answer-%d", n), nil
}

func (g *fakeGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

// gatedGenerator holds every Generate call until release is closed and tracks the
// highest number of calls in flight at once
type gatedGenerator struct {
	entered  chan struct{}
	release  chan struct{}
	inFlight atomic.Int64
	peak     atomic.Int64
	calls    atomic.Int64
}

func newGatedGenerator() *gatedGenerator {
	return &gatedGenerator{
		entered: make(chan struct{}, 64),
		release: make(chan struct{}),
	}
}

func (g *gatedGenerator) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return g.Generate(ctx, history[len(history)-1].Content, options...)
}

func (g *gatedGenerator) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	g.calls.Add(1)
	g.entered <- struct{}{}
	<-g.release
	// give overlapping callers a chance to show up
	time.Sleep(time.Millisecond)
	return "ok", nil
}

// pruningIndexFactory records the versions it was asked to keep
type pruningIndexFactory struct {
	taggedIndexFactory
	err    error
	keepMu sync.Mutex
	keeps  []string
}

func (f *pruningIndexFactory) PruneExcept(ctx context.Context, keep string) (int, error) {
	f.keepMu.Lock()
	defer f.keepMu.Unlock()
	f.keeps = append(f.keeps, keep)
	if f.err != nil {
		return 0, f.err
	}
	return 3, nil
}

func (f *pruningIndexFactory) kept() []string {
	f.keepMu.Lock()
	defer f.keepMu.Unlock()
	return append([]string(nil), f.keeps...)
}

type fakeSummarizer struct {
	mu    sync.Mutex
	err   error
	calls [][]conversation.Turn
}

func (s *fakeSummarizer) Summarize(ctx context.Context, prior string, turns []conversation.Turn) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, turns)
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("summary of %d turns", len(turns)), nil
}

func (s *fakeSummarizer) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingSink) Publish(ctx context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingSink) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType()
	}
	return out
}

// taggedEmbedder stamps every vector with the snapshot generation that built it
type taggedEmbedder struct {
	tag float32
}

func (e *taggedEmbedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{e.tag, 1}
	}
	return out, nil
}

func (e *taggedEmbedder) Dimension() int { return 2 }

type taggedEmbedderFactory struct {
	n atomic.Int32
}

func (f *taggedEmbedderFactory) Fit(ctx context.Context, corpus []string) (embedding.Embedder, error) {
	return &taggedEmbedder{tag: float32(f.n.Add(1))}, nil
}

// taggedIndex fails searches made with another generation's vectors or after release
type taggedIndex struct {
	mu       sync.RWMutex
	tag      float32
	records  []vectorstore.Record
	released atomic.Int32
}

func (x *taggedIndex) Add(ctx context.Context, vectors [][]float32, records []vectorstore.Record) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.tag == 0 && len(vectors) > 0 {
		x.tag = vectors[0][0]
	}
	for _, v := range vectors {
		if v[0] != x.tag {
			return errors.New("mixed generations in one index")
		}
	}
	x.records = append(x.records, records...)
	return nil
}

func (x *taggedIndex) Search(ctx context.Context, vector []float32, k int) ([]vectorstore.Candidate, error) {
	if x.released.Load() > 0 {
		return nil, errors.New("search after release")
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	if vector[0] != x.tag {
		return nil, fmt.Errorf("query from generation %v against index %v", vector[0], x.tag)
	}
	out := make([]vectorstore.Candidate, 0, k)
	for _, r := range x.records {
		if len(out) == k {
			break
		}
		out = append(out, vectorstore.Candidate{Record: r, Similarity: 1})
	}
	return out, nil
}

func (x *taggedIndex) Release(ctx context.Context) error {
	x.released.Add(1)
	return nil
}

type taggedIndexFactory struct {
	mu      sync.Mutex
	indexes []*taggedIndex
}

func (f *taggedIndexFactory) Create(ctx context.Context, version string, dimension int) (vectorstore.Index, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	x := &taggedIndex{}
	f.indexes = append(f.indexes, x)
	return x, nil
}

func (f *taggedIndexFactory) all() []*taggedIndex {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*taggedIndex, len(f.indexes))
	copy(out, f.indexes)
	return out
}

type harness struct {
	coord      *Coordinator
	generator  *fakeGenerator
	summarizer *fakeSummarizer
	reranker   *stubReranker
	sink       *recordingSink
}

type harnessOption func(*Config, *Dependencies)

func withLockMode(m LockMode) harnessOption {
	return func(c *Config, d *Dependencies) { c.LockMode = m }
}

func withTagged(ef *taggedEmbedderFactory, xf *taggedIndexFactory) harnessOption {
	return func(c *Config, d *Dependencies) {
		d.Embedders = ef
		d.Indexes = xf
	}
}

func withGenerator(g llm.LLMProvider) harnessOption {
	return func(c *Config, d *Dependencies) { d.Generator = g }
}

func withIndexes(f vectorstore.Factory) harnessOption {
	return func(c *Config, d *Dependencies) { d.Indexes = f }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	log := logger.NewNopLogger()
	h := &harness{
		generator:  &fakeGenerator{},
		summarizer: &fakeSummarizer{},
		reranker:   &stubReranker{fallback: 0.05},
		sink:       &recordingSink{},
	}
	cfg := Config{
		CandidateK:   20,
		RerankK:      5,
		Threshold:    0.3,
		ChunkSize:    500,
		ChunkOverlap: 50,
		LockMode:     LockCoarse,
	}
	deps := Dependencies{
		Sessions:  session.NewManager(memory.NewSessionRepository()),
		Gateway:   retrieval.NewGateway(h.reranker, log),
		Scheduler: summarize.NewScheduler(h.summarizer, log),
		Generator: h.generator,
		Embedders: tfidf.NewFactory(),
		Indexes:   vmemory.NewFactory(),
		Events:    h.sink,
		Logger:    log,
	}
	for _, o := range opts {
		o(&cfg, &deps)
	}
	h.coord = NewCoordinator(cfg, deps)
	return h
}
