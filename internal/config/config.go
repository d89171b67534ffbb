package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Qdrant   QdrantConfig
	Ai       AIConfig
	Rag      RagConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	LLMLogFilePath     string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	BodyLimitMB        int
}

type DatabaseConfig struct {
	Connection string
}

type QdrantConfig struct {
	Host             string
	Port             int
	APIKey           string
	UseTLS           bool
	CollectionPrefix string
}

type AIConfig struct {
	EmbeddingProvider string // "tfidf" or "ollama"
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // "ollama" or "huggingface"
	LLMModel          string
	HFToken           string
	HFBaseURL         string
	RerankerProvider  string // "lexical" or "tei"
	RerankerURL       string
	LLMCacheTTLMin    int
}

type RagConfig struct {
	DocsDir      string
	IndexBackend string // "memory", "pgvector" or "qdrant"
	CandidateK   int
	RerankK      int
	Threshold    float64
	ChunkSize    int
	ChunkOverlap int
	LockMode     string // "coarse" or "snapshot"
	SaveUploads  bool
	TuningFile   string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	cfg := &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			LLMLogFilePath:     getEnv("LLM_LOG_FILE_PATH", "logs/llm_rag.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			BodyLimitMB:        getEnvAsInt("BODY_LIMIT_MB", 10),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Qdrant: QdrantConfig{
			Host:             getEnv("QDRANT_HOST", "localhost"),
			Port:             getEnvAsInt("QDRANT_PORT", 6334),
			APIKey:           getEnv("QDRANT_API_KEY", ""),
			UseTLS:           getEnvAsBool("QDRANT_USE_TLS", false),
			CollectionPrefix: getEnv("QDRANT_COLLECTION_PREFIX", "docqa"),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "tfidf"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3.2"),
			HFToken:           getEnv("HF_TOKEN", ""),
			HFBaseURL:         getEnv("HF_BASE_URL", ""),
			RerankerProvider:  getEnv("RERANKER_PROVIDER", "lexical"),
			RerankerURL:       getEnv("RERANKER_URL", "http://localhost:8080"),
			LLMCacheTTLMin:    getEnvAsInt("LLM_CACHE_TTL_MINUTES", 60),
		},
		Rag: RagConfig{
			DocsDir:      getEnv("DOCS_DIR", "docs"),
			IndexBackend: getEnv("INDEX_BACKEND", "memory"),
			CandidateK:   getEnvAsInt("CANDIDATE_K", 20),
			RerankK:      getEnvAsInt("RERANK_K", 5),
			Threshold:    getEnvAsFloat("MODE_THRESHOLD", 0.3),
			ChunkSize:    getEnvAsInt("CHUNK_SIZE", 1500),
			ChunkOverlap: getEnvAsInt("CHUNK_OVERLAP", 200),
			LockMode:     getEnv("LOCK_MODE", "coarse"),
			SaveUploads:  getEnvAsBool("SAVE_UPLOADS", true),
			TuningFile:   getEnv("RAG_TUNING_FILE", ""),
		},
	}

	if cfg.Rag.TuningFile != "" {
		if err := ApplyTuningFile(&cfg.Rag, cfg.Rag.TuningFile); err != nil {
			log.Printf("Warn: ignoring tuning file %s: %v", cfg.Rag.TuningFile, err)
		}
	}
	return cfg
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	var errs []error
	r := c.Rag
	if r.CandidateK <= 0 {
		errs = append(errs, fmt.Errorf("CANDIDATE_K must be positive, got %d", r.CandidateK))
	}
	if r.RerankK <= 0 {
		errs = append(errs, fmt.Errorf("RERANK_K must be positive, got %d", r.RerankK))
	}
	if r.RerankK > r.CandidateK {
		errs = append(errs, fmt.Errorf("RERANK_K (%d) must not exceed CANDIDATE_K (%d)", r.RerankK, r.CandidateK))
	}
	if r.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE must be positive, got %d", r.ChunkSize))
	}
	if r.ChunkOverlap < 0 || r.ChunkOverlap >= r.ChunkSize {
		errs = append(errs, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", r.ChunkOverlap))
	}
	if !oneOf(r.LockMode, "coarse", "snapshot") {
		errs = append(errs, fmt.Errorf("LOCK_MODE must be coarse or snapshot, got %q", r.LockMode))
	}
	if !oneOf(r.IndexBackend, "memory", "pgvector", "qdrant") {
		errs = append(errs, fmt.Errorf("INDEX_BACKEND must be memory, pgvector or qdrant, got %q", r.IndexBackend))
	}
	if r.IndexBackend == "pgvector" && c.Database.Connection == "" {
		errs = append(errs, errors.New("INDEX_BACKEND=pgvector requires DB_CONNECTION_STRING"))
	}
	if !oneOf(c.Ai.EmbeddingProvider, "tfidf", "ollama") {
		errs = append(errs, fmt.Errorf("EMBEDDING_PROVIDER must be tfidf or ollama, got %q", c.Ai.EmbeddingProvider))
	}
	if !oneOf(c.Ai.RerankerProvider, "lexical", "tei") {
		errs = append(errs, fmt.Errorf("RERANKER_PROVIDER must be lexical or tei, got %q", c.Ai.RerankerProvider))
	}
	return errors.Join(errs...)
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
