package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"ai-docqa-be/internal/config"
	"ai-docqa-be/internal/controller"
	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/internal/repository/implementation"
	"ai-docqa-be/internal/repository/memory"
	"ai-docqa-be/internal/service"
	"ai-docqa-be/pkg/database"
	"ai-docqa-be/pkg/embedding"
	"ai-docqa-be/pkg/embedding/tfidf"
	"ai-docqa-be/pkg/llm"
	llmcache "ai-docqa-be/pkg/llm/cache"
	"ai-docqa-be/pkg/llm/factory"
	"ai-docqa-be/pkg/rag/pipeline"
	"ai-docqa-be/pkg/rag/retrieval"
	"ai-docqa-be/pkg/rag/session"
	"ai-docqa-be/pkg/rag/summarize"
	"ai-docqa-be/pkg/rerank"
	"ai-docqa-be/pkg/rerank/tei"
	"ai-docqa-be/pkg/vectorstore"
	vmemory "ai-docqa-be/pkg/vectorstore/memory"
	"ai-docqa-be/pkg/vectorstore/pgvector"
	"ai-docqa-be/pkg/vectorstore/qdrant"

	pktNats "ai-docqa-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

const eventsTopic = "rag.events"

type Container struct {
	RagController controller.IRagController

	// Exposed for main.go: startup indexing and background consumption
	RagService      service.IRagService
	ConsumerService service.IConsumerService
	Coordinator     *pipeline.Coordinator
	Logger          logger.ILogger

	closers []func() error
}

func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. Logging
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	llmLogger := logger.NewIsolatedLogger(cfg.App.LLMLogFilePath)

	c := &Container{Logger: sysLogger}

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, pubSub.Close)

	var forwarder service.Forwarder
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] NATS publisher: %v", err)
		}
		if natsPub != nil {
			forwarder = natsPub
			c.closers = append(c.closers, func() error { natsPub.Close(); return nil })
		}
	}

	publisherService := service.NewPublisherService(eventsTopic, pubSub)
	c.ConsumerService = service.NewConsumerService(pubSub, eventsTopic, forwarder, sysLogger)

	// 3. Collaborators
	generator, err := newGenerator(cfg, sysLogger)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	embedders, err := newEmbedderFactory(cfg)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] Using Embedding Provider: %s", cfg.Ai.EmbeddingProvider)

	indexes, closeIndexes, err := newIndexFactory(cfg)
	if err != nil {
		return nil, err
	}
	if closeIndexes != nil {
		c.closers = append(c.closers, closeIndexes)
	}
	log.Printf("[INFO] Using Index Backend: %s", cfg.Rag.IndexBackend)

	var reranker rerank.Reranker = rerank.NewLexicalReranker()
	if cfg.Ai.RerankerProvider == "tei" {
		reranker = tei.NewClient(cfg.Ai.RerankerURL)
	}
	log.Printf("[INFO] Using Reranker: %s", cfg.Ai.RerankerProvider)

	// 4. Domain
	c.Coordinator = pipeline.NewCoordinator(pipeline.Config{
		CandidateK:   cfg.Rag.CandidateK,
		RerankK:      cfg.Rag.RerankK,
		Threshold:    cfg.Rag.Threshold,
		ChunkSize:    cfg.Rag.ChunkSize,
		ChunkOverlap: cfg.Rag.ChunkOverlap,
		LockMode:     pipeline.LockMode(cfg.Rag.LockMode),
	}, pipeline.Dependencies{
		Sessions:  session.NewManager(memory.NewSessionRepository()),
		Gateway:   retrieval.NewGateway(reranker, sysLogger),
		Scheduler: summarize.NewScheduler(summarize.NewLLMSummarizer(generator), sysLogger),
		Generator: generator,
		Embedders: embedders,
		Indexes:   indexes,
		Events:    publisherService,
		Logger:    sysLogger,
		LLMTracer: llmLogger,
	})

	// 5. Services & Controllers
	c.RagService = service.NewRagService(c.Coordinator, cfg.Rag.DocsDir, cfg.Rag.SaveUploads, sysLogger)
	c.RagController = controller.NewRagController(c.RagService)

	return c, nil
}

// Close releases broker, bus and index connections in reverse order of creation
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			log.Printf("[WARN] close: %v", err)
		}
	}
	_ = c.Logger.Sync()
}

func newGenerator(cfg *config.Config, sysLogger logger.ILogger) (llm.LLMProvider, error) {
	baseURL := cfg.Ai.OllamaBaseURL
	apiKey := ""
	if cfg.Ai.LLMProvider == "huggingface" {
		baseURL = cfg.Ai.HFBaseURL
		apiKey = cfg.Ai.HFToken
	}

	provider, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, baseURL, apiKey)
	if err != nil {
		return nil, fmt.Errorf("initialize LLM provider: %w", err)
	}

	if cfg.App.RedisURL == "" {
		return provider, nil
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	ttl := time.Duration(cfg.Ai.LLMCacheTTLMin) * time.Minute
	return llmcache.NewRedisProvider(provider, rdb, cfg.Ai.LLMModel, ttl, sysLogger), nil
}

func newEmbedderFactory(cfg *config.Config) (embedding.Factory, error) {
	switch cfg.Ai.EmbeddingProvider {
	case "tfidf":
		return tfidf.NewFactory(), nil
	case "ollama":
		emb, err := embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
		if err != nil {
			return nil, fmt.Errorf("initialize ollama embedder: %w", err)
		}
		return embedding.StaticFactory{Embedder: emb}, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Ai.EmbeddingProvider)
	}
}

func newIndexFactory(cfg *config.Config) (vectorstore.Factory, func() error, error) {
	switch cfg.Rag.IndexBackend {
	case "memory":
		return vmemory.NewFactory(), nil, nil
	case "pgvector":
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection, !cfg.IsProduction())
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		return pgvector.NewFactory(implementation.NewChunkEmbeddingRepository(db)), sqlDB.Close, nil
	case "qdrant":
		f, err := qdrant.NewFactory(qdrant.Config{
			Host:             cfg.Qdrant.Host,
			Port:             cfg.Qdrant.Port,
			APIKey:           cfg.Qdrant.APIKey,
			UseTLS:           cfg.Qdrant.UseTLS,
			CollectionPrefix: cfg.Qdrant.CollectionPrefix,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect to qdrant: %w", err)
		}
		return f, f.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported index backend: %s", cfg.Rag.IndexBackend)
	}
}
