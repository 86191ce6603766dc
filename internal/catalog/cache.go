package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/domain"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Cache stores complete listings keyed by their credential-free query.
type Cache interface {
	Get(ctx context.Context, key string) (domain.Listing, bool, error)
	Set(ctx context.Context, key string, l domain.Listing) error
}

// MemoryCache keeps listings in process.
type MemoryCache struct {
	c *gocache.Cache
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{c: gocache.New(ttl, 2*ttl)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (domain.Listing, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return domain.Listing{}, false, nil
	}
	return v.(domain.Listing), true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, l domain.Listing) error {
	m.c.SetDefault(key, l)
	return nil
}

// RedisCache shares listings between replicas as JSON values.
type RedisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl, prefix: "discovery:listing:"}
}

func (c *RedisCache) Get(ctx context.Context, key string) (domain.Listing, bool, error) {
	var l domain.Listing
	val, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return l, false, nil
	}
	if err != nil {
		return l, false, err
	}
	if err := json.Unmarshal(val, &l); err != nil {
		return l, false, err
	}
	return l, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, l domain.Listing) error {
	b, err := json.Marshal(l)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.prefix+key, b, c.ttl).Err()
}

// Tiered reads the in-process cache first and fills it from the shared one.
type Tiered struct {
	Local  Cache
	Shared Cache
}

func (t Tiered) Get(ctx context.Context, key string) (domain.Listing, bool, error) {
	if l, ok, err := t.Local.Get(ctx, key); err == nil && ok {
		return l, true, nil
	}
	l, ok, err := t.Shared.Get(ctx, key)
	if err != nil || !ok {
		return l, ok, err
	}
	_ = t.Local.Set(ctx, key, l)
	return l, true, nil
}

func (t Tiered) Set(ctx context.Context, key string, l domain.Listing) error {
	_ = t.Local.Set(ctx, key, l)
	return t.Shared.Set(ctx, key, l)
}
