package mocks

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/godilite/staff-perf/pkg/cache"
)

// MemoryCache is an in-process stand-in for the Redis cache. Values are
// JSON round-tripped like the real one and expire against Now.
type MemoryCache struct {
	mu       sync.Mutex
	data     map[string]cacheEntry
	Now      func() time.Time
	GetCalls int
	SetCalls int
}

type cacheEntry struct {
	value  []byte
	expiry time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[string]cacheEntry), Now: time.Now}
}

func (c *MemoryCache) live(key string) (cacheEntry, bool) {
	entry, ok := c.data[key]
	if !ok {
		return cacheEntry{}, false
	}
	if !entry.expiry.IsZero() && !c.Now().Before(entry.expiry) {
		delete(c.data, key)
		return cacheEntry{}, false
	}
	return entry, true
}

func (c *MemoryCache) Get(_ context.Context, key string, dest any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.GetCalls++
	entry, ok := c.live(key)
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(entry.value, dest)
}

func (c *MemoryCache) Set(_ context.Context, key string, value any, exp time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SetCalls++
	entry := cacheEntry{value: data}
	if exp > 0 {
		entry.expiry = c.Now().Add(exp)
	}
	c.data[key] = entry
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *MemoryCache) IncrWithTTL(_ context.Context, key string, ttl time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	entry, ok := c.live(key)
	if ok {
		if err := json.Unmarshal(entry.value, &n); err != nil {
			return 0, err
		}
	} else {
		entry.expiry = c.Now().Add(ttl)
	}
	n++
	data, _ := json.Marshal(n)
	entry.value = data
	c.data[key] = entry
	return n, nil
}

func (c *MemoryCache) TTL(_ context.Context, key string) (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.live(key)
	if !ok || entry.expiry.IsZero() {
		return 0, nil
	}
	return entry.expiry.Sub(c.Now()), nil
}

// MockCacher delegates to function fields; unset functions behave like an
// empty cache.
type MockCacher struct {
	GetFunc         func(ctx context.Context, key string, dest any) error
	SetFunc         func(ctx context.Context, key string, value any, expiration time.Duration) error
	DeleteFunc      func(ctx context.Context, keys ...string) error
	IncrWithTTLFunc func(ctx context.Context, key string, ttl time.Duration) (int64, error)
	TTLFunc         func(ctx context.Context, key string) (time.Duration, error)
}

func (m *MockCacher) Get(ctx context.Context, key string, dest any) error {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key, dest)
	}
	return cache.ErrCacheMiss
}

func (m *MockCacher) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, expiration)
	}
	return nil
}

func (m *MockCacher) Delete(ctx context.Context, keys ...string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, keys...)
	}
	return nil
}

func (m *MockCacher) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if m.IncrWithTTLFunc != nil {
		return m.IncrWithTTLFunc(ctx, key, ttl)
	}
	return 1, nil
}

func (m *MockCacher) TTL(ctx context.Context, key string) (time.Duration, error) {
	if m.TTLFunc != nil {
		return m.TTLFunc(ctx, key)
	}
	return 0, nil
}
