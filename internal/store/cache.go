package store

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/jim-wyatt/saas-tesa/internal/model"
)

// SummaryCache holds the most recent summary for a short time.
type SummaryCache interface {
	Get(ctx context.Context) (model.Summary, bool, error)
	Set(ctx context.Context, s model.Summary) error
	Invalidate(ctx context.Context) error
}

// CachedStore fronts another Store with a SummaryCache. Any successful
// upsert invalidates the cached summary before returning. Cache failures
// degrade to reading the underlying store.
type CachedStore struct {
	Store
	cache SummaryCache
}

func NewCachedStore(inner Store, cache SummaryCache) *CachedStore {
	return &CachedStore{Store: inner, cache: cache}
}

func (c *CachedStore) Kind() string { return c.Store.Kind() + "+redis" }

func (c *CachedStore) Close() error {
	err := c.Store.Close()
	if closer, ok := c.cache.(io.Closer); ok {
		err = errors.CombineErrors(err, closer.Close())
	}
	return err
}

func (c *CachedStore) Upsert(ctx context.Context, findings []model.SecurityFinding) error {
	if err := c.Store.Upsert(ctx, findings); err != nil {
		return err
	}
	if err := c.cache.Invalidate(ctx); err != nil {
		// The stale entry expires on its own TTL.
		otelzap.Ctx(ctx).Warn("Summary cache invalidation failed", zap.Error(err))
	}
	return nil
}

func (c *CachedStore) Summary(ctx context.Context) (model.Summary, error) {
	logger := otelzap.Ctx(ctx)
	if s, ok, err := c.cache.Get(ctx); err != nil {
		logger.Warn("Summary cache read failed", zap.Error(err))
	} else if ok {
		return s, nil
	}
	s, err := c.Store.Summary(ctx)
	if err != nil {
		return model.Summary{}, err
	}
	if err := c.cache.Set(ctx, s); err != nil {
		logger.Warn("Summary cache write failed", zap.Error(err))
	}
	return s, nil
}

const summaryCacheKey = "tesa:summary"

// RedisSummaryCache keeps the summary as a JSON string under one key.
type RedisSummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSummaryCache parses a redis:// URL.
func NewRedisSummaryCache(url string, ttl time.Duration) (*RedisSummaryCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "store: parse redis url")
	}
	return &RedisSummaryCache{client: redis.NewClient(opts), ttl: ttl}, nil
}

func (r *RedisSummaryCache) Get(ctx context.Context) (model.Summary, bool, error) {
	raw, err := r.client.Get(ctx, summaryCacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Summary{}, false, nil
	}
	if err != nil {
		return model.Summary{}, false, errors.Wrap(err, "redis get")
	}
	var s model.Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		return model.Summary{}, false, errors.Wrap(err, "decode cached summary")
	}
	return s, true, nil
}

func (r *RedisSummaryCache) Set(ctx context.Context, s model.Summary) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return errors.Wrap(r.client.Set(ctx, summaryCacheKey, raw, r.ttl).Err(), "redis set")
}

func (r *RedisSummaryCache) Invalidate(ctx context.Context) error {
	return errors.Wrap(r.client.Del(ctx, summaryCacheKey).Err(), "redis del")
}

func (r *RedisSummaryCache) Close() error {
	return r.client.Close()
}
