package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/pkg/llm"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "llm:generate:"

// Store is the subset of the redis client used for caching
type Store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisProvider caches Generate results of the wrapped provider.
// Prompts are built deterministically, so an identical prompt may reuse an earlier answer.
// Chat is passed through uncached.
type RedisProvider struct {
	next   llm.LLMProvider
	rdb    Store
	model  string
	ttl    time.Duration
	logger logger.ILogger
}

var _ llm.LLMProvider = &RedisProvider{}

func NewRedisProvider(next llm.LLMProvider, rdb Store, model string, ttl time.Duration, log logger.ILogger) *RedisProvider {
	return &RedisProvider{next: next, rdb: rdb, model: model, ttl: ttl, logger: log}
}

func (p *RedisProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return p.next.Chat(ctx, history, options...)
}

func (p *RedisProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	opts := llm.Resolve(llm.Options{Model: p.model}, options...)
	key := cacheKey(opts.Model, prompt)

	cached, err := p.rdb.Get(ctx, key).Result()
	if err == nil {
		p.logger.Debug("LLM_CACHE", "Cache hit", map[string]interface{}{"key": key})
		return cached, nil
	}
	if !errors.Is(err, redis.Nil) {
		// cache outage degrades to a direct call
		p.logger.Warn("LLM_CACHE", "Cache read failed", map[string]interface{}{"error": err.Error()})
	}

	answer, err := p.next.Generate(ctx, prompt, options...)
	if err != nil {
		return "", err
	}

	if err := p.rdb.Set(ctx, key, answer, p.ttl).Err(); err != nil {
		p.logger.Warn("LLM_CACHE", "Cache write failed", map[string]interface{}{"error": err.Error()})
	}
	return answer, nil
}

func cacheKey(model, prompt string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + prompt))
	return keyPrefix + hex.EncodeToString(sum[:])
}
