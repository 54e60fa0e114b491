package ocr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"nutrilabel/internal/logger"
)

const cacheKeyPrefix = "nutrilabel:ocr:"

// sharedCallTimeout bounds a provider call shared by concurrent callers. The
// call runs detached from any single caller so one cancellation does not fail
// the others.
const sharedCallTimeout = 5 * time.Minute

// TextCache stores OCR results by document content hash.
type TextCache interface {
	Get(ctx context.Context, key string) (*OCRResult, bool, error)
	Set(ctx context.Context, key string, result *OCRResult) error
}

// RedisCache is a TextCache backed by Redis.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache connects to addr and verifies the connection with a ping.
func NewRedisCache(ctx context.Context, addr string, ttl time.Duration) (*RedisCache, error) {
	const op = "NewRedisCache"

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: redis ping: %w", op, err)
	}
	return NewRedisCacheWithClient(rdb, ttl), nil
}

// NewRedisCacheWithClient wraps an existing client. A zero ttl keeps entries forever.
func NewRedisCacheWithClient(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// Get returns the stored result for key. A miss is not an error.
func (c *RedisCache) Get(ctx context.Context, key string) (*OCRResult, bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var result OCRResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, false, fmt.Errorf("decode cached OCR result: %w", err)
	}
	return &result, true, nil
}

// Set stores result under key with the cache TTL.
func (c *RedisCache) Set(ctx context.Context, key string, result *OCRResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, c.ttl).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

// CacheKey derives the cache key of a document from its content.
func CacheKey(doc *Document) string {
	sum := sha256.Sum256(doc.Data)
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

// CachedService serves repeated documents from a TextCache and collapses
// concurrent requests for the same document into one provider call. Cache
// failures are logged and never fail a request.
type CachedService struct {
	next  OCRService
	cache TextCache
	group singleflight.Group
	log   zerolog.Logger
}

// NewCachedService wraps next with cache.
func NewCachedService(next OCRService, cache TextCache) *CachedService {
	return &CachedService{
		next:  next,
		cache: cache,
		log:   logger.WithComponent("ocr-cache"),
	}
}

// ProcessDocument extracts text from an image or PDF.
func (s *CachedService) ProcessDocument(ctx context.Context, doc *Document) (string, error) {
	result, err := s.ProcessDocumentWithMetadata(ctx, doc)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// ProcessDocumentWithMetadata returns the cached result for doc or runs the
// wrapped provider and stores its result.
func (s *CachedService) ProcessDocumentWithMetadata(ctx context.Context, doc *Document) (*OCRResult, error) {
	const op = "CachedProcessDocument"
	if err := ctx.Err(); err != nil {
		return nil, classifyAPIError(op, err)
	}
	key := CacheKey(doc)

	if cached, ok, err := s.cache.Get(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("OCR cache read failed")
	} else if ok {
		s.log.Debug().Str("file", doc.Name).Msg("OCR cache hit")
		cached.Cached = true
		return cached, nil
	}

	ch := s.group.DoChan(key, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedCallTimeout)
		defer cancel()

		result, err := s.next.ProcessDocumentWithMetadata(callCtx, doc)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(callCtx, key, result); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("OCR cache write failed")
		}
		return result, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, classifyAPIError(op, ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}

	v, shared := res.Val, res.Shared
	result := *v.(*OCRResult)
	if shared {
		s.log.Debug().Str("file", doc.Name).Msg("OCR request shared with a concurrent caller")
	}
	return &result, nil
}
