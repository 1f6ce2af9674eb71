package redis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/splitlab/splitlab-backend/internal/platform/logger"
)

// ByteCache is a small TTL cache for packaged module archives. Entries are
// best-effort: a miss or a cache error just means the archive is rebuilt.
type ByteCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Close() error
}

type byteCache struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
}

// NewByteCache connects to REDIS_ADDR. Callers that want a process-local
// fallback should use NewLocalByteCache when this returns an error.
func NewByteCache(log *logger.Logger) (ByteCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	prefix := strings.TrimSpace(os.Getenv("REDIS_CACHE_PREFIX"))
	if prefix == "" {
		prefix = "splitlab:archive"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &byteCache{
		log:    log.With("service", "RedisByteCache"),
		rdb:    rdb,
		prefix: prefix,
	}, nil
}

func (c *byteCache) key(k string) string { return c.prefix + ":" + k }

func (c *byteCache) Get(ctx context.Context, key string) ([]byte, bool) {
	raw, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if err == goredis.Nil {
		return nil, false
	}
	if err != nil {
		c.log.Warn("cache get failed", "key", key, "error", err)
		return nil, false
	}
	return raw, true
}

func (c *byteCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.rdb.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		c.log.Warn("cache set failed", "key", key, "error", err)
	}
}

func (c *byteCache) Delete(ctx context.Context, key string) {
	if err := c.rdb.Del(ctx, c.key(key)).Err(); err != nil {
		c.log.Warn("cache delete failed", "key", key, "error", err)
	}
}

func (c *byteCache) Close() error { return c.rdb.Close() }

// localByteCache is the single-process fallback: a mutex-guarded map with
// wall-clock expiry checked on read.
type localByteCache struct {
	mu      sync.Mutex
	entries map[string]localEntry
}

type localEntry struct {
	value     []byte
	expiresAt time.Time
}

func NewLocalByteCache() ByteCache {
	return &localByteCache{entries: map[string]localEntry{}}
}

func (c *localByteCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *localByteCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = localEntry{value: value, expiresAt: time.Now().Add(ttl)}
}

func (c *localByteCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *localByteCache) Close() error { return nil }
