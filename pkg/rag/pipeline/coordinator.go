package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/pkg/embedding"
	"ai-docqa-be/pkg/events"
	"ai-docqa-be/pkg/ingest"
	"ai-docqa-be/pkg/llm"
	"ai-docqa-be/pkg/rag/conversation"
	"ai-docqa-be/pkg/rag/mode"
	"ai-docqa-be/pkg/rag/prompt"
	"ai-docqa-be/pkg/rag/ragerr"
	"ai-docqa-be/pkg/rag/retrieval"
	"ai-docqa-be/pkg/rag/session"
	"ai-docqa-be/pkg/rag/summarize"
	"ai-docqa-be/pkg/vectorstore"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const module = "PIPELINE"

type LockMode string

const (
	// LockCoarse serializes ask, reindex and addDocument behind one mutex
	LockCoarse LockMode = "coarse"
	// LockSnapshot lets asks run in parallel on a ref-counted snapshot; only writers are serialized
	LockSnapshot LockMode = "snapshot"
)

type Config struct {
	CandidateK     int
	RerankK        int
	Threshold      float64
	ChunkSize      int
	ChunkOverlap   int
	LockMode       LockMode
	EmbedBatchSize int
}

// CorpusSource supplies the documents of a full reindex
type CorpusSource interface {
	Load() ([]ingest.Document, error)
}

// EventSink receives pipeline events. Publishing is best effort.
type EventSink interface {
	Publish(ctx context.Context, event events.Event) error
}

type Dependencies struct {
	Sessions  *session.Manager
	Gateway   *retrieval.Gateway
	Scheduler *summarize.Scheduler
	Generator llm.LLMProvider
	Embedders embedding.Factory
	Indexes   vectorstore.Factory
	Events    EventSink
	Logger    logger.ILogger
	// LLMTracer receives full prompts and answers; defaults to Logger
	LLMTracer logger.ILogger
}

type AskResult struct {
	Answer          string
	Sources         []Source
	Decision        mode.Decision
	SnapshotVersion string
	Compacted       bool
	// CompactionErr is a SummarizationFailed error when compaction was deferred; the answer is still valid
	CompactionErr error
}

// Indexed identifies the snapshot a reindex or addDocument wrote to
type Indexed struct {
	Version string
	Chunks  int
}

type Status struct {
	Initialized bool      `json:"initialized"`
	Version     string    `json:"snapshot_version"`
	Chunks      int       `json:"indexed_chunks"`
	PublishedAt time.Time `json:"published_at"`
	InFlight    int       `json:"in_flight"`
	Sessions    int       `json:"sessions"`
	LockMode    string    `json:"lock_mode"`
}

type Coordinator struct {
	cfg  Config
	deps Dependencies

	// held by every operation in coarse mode, by writers only in snapshot mode
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
	tracer  trace.Tracer
}

func NewCoordinator(cfg Config, deps Dependencies) *Coordinator {
	if cfg.LockMode == "" {
		cfg.LockMode = LockCoarse
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = 32
	}
	if deps.LLMTracer == nil {
		deps.LLMTracer = deps.Logger
	}
	return &Coordinator{
		cfg:    cfg,
		deps:   deps,
		tracer: otel.Tracer("ai-docqa-be/pipeline"),
	}
}

// Current returns the active snapshot without taking a reference, or nil
func (c *Coordinator) Current() *Snapshot {
	return c.current.Load()
}

func (c *Coordinator) acquire() (*Snapshot, error) {
	for {
		s := c.current.Load()
		if s == nil {
			return nil, ragerr.ErrUninitialized
		}
		s.refs.Add(1)
		if !s.retired.Load() {
			return s, nil
		}
		// swapped out between Load and Add; drop it and look again
		c.releaseRef(s)
	}
}

func (c *Coordinator) releaseRef(s *Snapshot) {
	if s.refs.Add(-1) == 0 && s.retired.Load() {
		c.free(s)
	}
}

// free runs the index release exactly once per snapshot
func (c *Coordinator) free(s *Snapshot) {
	if !s.released.CompareAndSwap(false, true) {
		return
	}
	ctx := context.Background()
	if err := s.Index.Release(ctx); err != nil {
		c.deps.Logger.Error(module, "Snapshot release failed", map[string]interface{}{"version": s.Version, "error": err.Error()})
		return
	}
	c.deps.Logger.Info(module, "Snapshot released", map[string]interface{}{"version": s.Version})
	c.publish(ctx, events.SnapshotReleased(s.Version))
}

func (c *Coordinator) publish(ctx context.Context, e events.Event) {
	if c.deps.Events == nil {
		return
	}
	if err := c.deps.Events.Publish(ctx, e); err != nil {
		c.deps.Logger.Warn(module, "Event publish failed", map[string]interface{}{"type": e.EventType(), "error": err.Error()})
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// Ask answers query within the session's conversation. The snapshot active when Ask
// starts is used for the whole request.
func (c *Coordinator) Ask(ctx context.Context, query, sessionID string) (*AskResult, error) {
	ctx, span := c.tracer.Start(ctx, "pipeline.Ask", trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return nil, fail(span, ragerr.Wrap(ragerr.KindInvalidInput, "ask", errors.New("question is empty")))
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, fail(span, ragerr.Wrap(ragerr.KindInvalidInput, "ask", errors.New("session id is empty")))
	}

	if c.cfg.LockMode == LockCoarse {
		c.mu.Lock()
		defer c.mu.Unlock()
	}

	snap, err := c.acquire()
	if err != nil {
		return nil, fail(span, err)
	}
	defer c.releaseRef(snap)
	span.SetAttributes(attribute.String("snapshot.version", snap.Version))

	state := c.deps.Sessions.GetOrCreate(sessionID)

	chunks, err := c.deps.Gateway.Retrieve(ctx, snap.Embedder, snap.Index, query, c.cfg.CandidateK, c.cfg.RerankK)
	if err != nil {
		return nil, fail(span, err)
	}

	decision := mode.Decide(chunks, c.cfg.Threshold)
	summary, recent := state.Window(prompt.RecentTurns)
	text := prompt.Build(decision.Mode, chunks, summary, recent, query)

	answer, err := c.deps.Generator.Generate(ctx, text)
	if err != nil {
		return nil, fail(span, ragerr.Wrap(ragerr.KindGenerationFailed, "generate", err))
	}
	c.deps.LLMTracer.Info(module, "Generation", map[string]interface{}{
		"session_id": sessionID,
		"mode":       string(decision.Mode),
		"prompt":     text,
		"answer":     answer,
	})

	c.deps.Sessions.Append(state,
		conversation.Turn{Role: conversation.RoleUser, Content: query},
		conversation.Turn{Role: conversation.RoleAssistant, Content: answer},
	)

	result := &AskResult{
		Answer:          answer,
		Sources:         []Source{},
		Decision:        decision,
		SnapshotVersion: snap.Version,
	}
	if decision.Mode == mode.Document {
		result.Sources = dedupeSources(chunks)
	}

	result.Compacted, result.CompactionErr = c.deps.Scheduler.MaybeCompact(ctx, sessionID, state)
	if result.CompactionErr != nil {
		span.AddEvent("compaction deferred")
		c.publish(ctx, events.CompactionFailed(sessionID, state.Len(), result.CompactionErr.Error()))
	}

	details := map[string]interface{}{
		"session_id": sessionID,
		"mode":       string(decision.Mode),
		"sources":    len(result.Sources),
		"version":    snap.Version,
	}
	if decision.TopScore != nil {
		details["top_score"] = *decision.TopScore
		span.SetAttributes(attribute.Float64("rerank.top_score", *decision.TopScore))
	}
	span.SetAttributes(attribute.String("rag.mode", string(decision.Mode)))
	c.deps.Logger.Info(module, "Ask completed", details)
	return result, nil
}

// Retrieve runs only the retrieval stage against the current snapshot. It does not touch sessions.
func (c *Coordinator) Retrieve(ctx context.Context, query string) ([]retrieval.Chunk, error) {
	if c.cfg.LockMode == LockCoarse {
		c.mu.Lock()
		defer c.mu.Unlock()
	}
	snap, err := c.acquire()
	if err != nil {
		return nil, err
	}
	defer c.releaseRef(snap)
	return c.deps.Gateway.Retrieve(ctx, snap.Embedder, snap.Index, query, c.cfg.CandidateK, c.cfg.RerankK)
}

// Reindex builds a new snapshot from corpus and publishes it. The active snapshot is left
// unchanged when any step fails.
func (c *Coordinator) Reindex(ctx context.Context, corpus CorpusSource) (Indexed, error) {
	ctx, span := c.tracer.Start(ctx, "pipeline.Reindex")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	docs, err := corpus.Load()
	if err != nil {
		return Indexed{}, fail(span, fmt.Errorf("load corpus: %w", err))
	}
	chunks := ingest.Split(docs, c.cfg.ChunkSize, c.cfg.ChunkOverlap)
	if len(chunks) == 0 {
		c.deps.Logger.Warn(module, "Reindex over empty corpus", map[string]interface{}{"documents": len(docs)})
		return Indexed{}, fail(span, ragerr.Wrap(ragerr.KindEmptyCorpus, "reindex", fmt.Errorf("%d documents produced no chunks", len(docs))))
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	emb, err := c.deps.Embedders.Fit(ctx, texts)
	if err != nil {
		return Indexed{}, fail(span, ragerr.Wrap(ragerr.KindRetrievalUnavailable, "fit embedder", err))
	}

	vectors, err := c.encode(ctx, emb, texts)
	if err != nil {
		return Indexed{}, fail(span, ragerr.Wrap(ragerr.KindRetrievalUnavailable, "embed corpus", err))
	}

	version := uuid.NewString()
	index, err := c.deps.Indexes.Create(ctx, version, len(vectors[0]))
	if err != nil {
		return Indexed{}, fail(span, ragerr.Wrap(ragerr.KindRetrievalUnavailable, "create index", err))
	}
	if err := index.Add(ctx, vectors, records(chunks)); err != nil {
		if rerr := index.Release(ctx); rerr != nil {
			c.deps.Logger.Warn(module, "Release of unpublished index failed", map[string]interface{}{"version": version, "error": rerr.Error()})
		}
		return Indexed{}, fail(span, ragerr.Wrap(ragerr.KindRetrievalUnavailable, "index corpus", err))
	}

	next := newSnapshot(version, emb, index, len(chunks))
	prev := c.current.Swap(next)

	previous := ""
	if prev != nil {
		previous = prev.Version
		prev.retired.Store(true)
		if prev.refs.Load() == 0 {
			c.free(prev)
		}
	} else {
		c.pruneStale(ctx, version)
	}

	span.SetAttributes(attribute.String("snapshot.version", version), attribute.Int("snapshot.chunks", len(chunks)))
	c.deps.Logger.Info(module, "Snapshot published", map[string]interface{}{
		"version":   version,
		"documents": len(docs),
		"chunks":    len(chunks),
		"previous":  previous,
	})
	c.publish(ctx, events.SnapshotPublished(version, len(chunks), previous))
	return Indexed{Version: version, Chunks: len(chunks)}, nil
}

// pruneStale drops indexes a previous process left in durable storage. It runs on the
// first publish only, when no other snapshot of this process can still be in use.
func (c *Coordinator) pruneStale(ctx context.Context, keep string) {
	p, ok := c.deps.Indexes.(vectorstore.Pruner)
	if !ok {
		return
	}
	n, err := p.PruneExcept(ctx, keep)
	if err != nil {
		c.deps.Logger.Warn(module, "Stale snapshot cleanup failed", map[string]interface{}{"keep": keep, "error": err.Error()})
		return
	}
	if n > 0 {
		c.deps.Logger.Info(module, "Stale snapshots removed", map[string]interface{}{"keep": keep, "removed": n})
	}
}

// AddDocument embeds doc with the current snapshot's embedder and appends it to that
// snapshot's index.
func (c *Coordinator) AddDocument(ctx context.Context, doc ingest.Document) (Indexed, error) {
	ctx, span := c.tracer.Start(ctx, "pipeline.AddDocument", trace.WithAttributes(attribute.String("source.id", doc.SourceID)))
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.Current()
	if snap == nil {
		return Indexed{}, fail(span, ragerr.ErrUninitialized)
	}

	chunks := ingest.Split([]ingest.Document{doc}, c.cfg.ChunkSize, c.cfg.ChunkOverlap)
	if len(chunks) == 0 {
		return Indexed{}, fail(span, ragerr.Wrap(ragerr.KindInvalidInput, "add document", fmt.Errorf("%s has no text", doc.SourceID)))
	}
	// ids must stay unique within the snapshot when the same file is uploaded twice
	offset := snap.Chunks()
	texts := make([]string, len(chunks))
	for i := range chunks {
		chunks[i].ID = fmt.Sprintf("%s#%d", chunks[i].SourceID, offset+i)
		texts[i] = chunks[i].Text
	}

	vectors, err := c.encode(ctx, snap.Embedder, texts)
	if err != nil {
		return Indexed{}, fail(span, ragerr.Wrap(ragerr.KindRetrievalUnavailable, "embed document", err))
	}
	if err := snap.Index.Add(ctx, vectors, records(chunks)); err != nil {
		return Indexed{}, fail(span, ragerr.Wrap(ragerr.KindRetrievalUnavailable, "index document", err))
	}
	snap.chunks.Add(int64(len(chunks)))

	c.deps.Logger.Info(module, "Document added", map[string]interface{}{
		"version":   snap.Version,
		"source_id": doc.SourceID,
		"chunks":    len(chunks),
	})
	c.publish(ctx, events.DocumentAdded(snap.Version, doc.SourceID, len(chunks)))
	return Indexed{Version: snap.Version, Chunks: len(chunks)}, nil
}

func (c *Coordinator) Status() Status {
	st := Status{LockMode: string(c.cfg.LockMode)}
	if c.deps.Sessions != nil {
		st.Sessions = c.deps.Sessions.Count()
	}
	if s := c.Current(); s != nil {
		st.Initialized = true
		st.Version = s.Version
		st.Chunks = s.Chunks()
		st.PublishedAt = s.CreatedAt
		st.InFlight = s.InUse()
	}
	return st
}

// Session returns a copy of a session's memory without creating the session
func (c *Coordinator) Session(sessionID string) (string, []conversation.Turn, bool) {
	state, ok := c.deps.Sessions.Peek(sessionID)
	if !ok {
		return "", nil, false
	}
	summary, messages := state.Snapshot()
	return summary, messages, true
}

func (c *Coordinator) encode(ctx context.Context, emb embedding.Embedder, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.cfg.EmbedBatchSize {
		end := start + c.cfg.EmbedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := emb.Encode(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(batch), end-start)
		}
		out = append(out, batch...)
	}
	return out, nil
}

func records(chunks []ingest.Chunk) []vectorstore.Record {
	out := make([]vectorstore.Record, len(chunks))
	for i, ch := range chunks {
		out[i] = vectorstore.Record{
			ChunkID:    ch.ID,
			SourceID:   ch.SourceID,
			ChunkIndex: ch.Index,
			Text:       ch.Text,
		}
	}
	return out
}
