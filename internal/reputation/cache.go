package reputation

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL is how long a cached reputation lookup stays fresh.
// The table is static seed data, so a long TTL is safe.
const DefaultCacheTTL = 1 * time.Hour

// cacheKeyPrefix namespaces reputation keys in Redis.
const cacheKeyPrefix = "reputation:domain:"

// missMarker is stored for negative lookups so repeated unknown domains
// do not hit the database on every analysis.
const missMarker = "__miss__"

// CachedRepository decorates a Repository with a Redis read-through cache.
// Cache failures fall back to the underlying repository (fail-open).
type CachedRepository struct {
	inner  Repository
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedRepository wraps a repository with Redis caching.
func NewCachedRepository(inner Repository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedRepository {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedRepository{inner: inner, client: client, ttl: ttl, logger: logger}
}

// GetByDomain checks Redis before the underlying store and caches both
// hits and misses.
func (r *CachedRepository) GetByDomain(ctx context.Context, domain string) (*Record, error) {
	key := cacheKeyPrefix + domain

	cached, err := r.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		if cached == missMarker {
			return nil, ErrRecordNotFound
		}
		rec := &Record{}
		if uerr := json.Unmarshal([]byte(cached), rec); uerr == nil {
			return rec, nil
		}
		// Corrupt cache entry: fall through to the store.
		r.logger.Warn("corrupt reputation cache entry", slog.String("domain", domain))
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("reputation cache read failed",
			slog.String("domain", domain),
			slog.String("error", err.Error()))
	}

	rec, err := r.inner.GetByDomain(ctx, domain)
	if errors.Is(err, ErrRecordNotFound) {
		r.setCache(ctx, key, missMarker)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	if data, merr := json.Marshal(rec); merr == nil {
		r.setCache(ctx, key, string(data))
	}
	return rec, nil
}

// Upsert writes through to the store and invalidates the cached entry.
func (r *CachedRepository) Upsert(ctx context.Context, record *Record) error {
	if err := r.inner.Upsert(ctx, record); err != nil {
		return err
	}
	if err := r.client.Del(ctx, cacheKeyPrefix+record.Domain).Err(); err != nil {
		r.logger.Warn("reputation cache invalidation failed",
			slog.String("domain", record.Domain),
			slog.String("error", err.Error()))
	}
	return nil
}

// Count delegates to the underlying store.
func (r *CachedRepository) Count(ctx context.Context) (int, error) {
	return r.inner.Count(ctx)
}

func (r *CachedRepository) setCache(ctx context.Context, key, value string) {
	if err := r.client.Set(ctx, key, value, r.ttl).Err(); err != nil {
		r.logger.Warn("reputation cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
}
