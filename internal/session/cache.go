// Package session caches accepted board PINs for the lifetime of a browsing
// session so re-authorization isn't required on every page view. The cache is
// a convenience, not a security boundary: PINs gate write access to the
// controller view, nothing more.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/scoreboard-live/internal/config"
)

// Cache records which sessions have presented a valid PIN for which boards.
type Cache interface {
	Authorize(ctx context.Context, sessionID, boardID string) error
	IsAuthorized(ctx context.Context, sessionID, boardID string) (bool, error)
	Revoke(ctx context.Context, boardID string) error
}

// RedisCache is a Redis-backed session cache with per-entry TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache creates a Redis-backed cache.
func NewRedisCache(cfg *config.RedisConfig, ttl time.Duration, logger *slog.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisCache{client: client, ttl: ttl, logger: logger}, nil
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// authKey returns the Redis key for one session's access to one board
func (c *RedisCache) authKey(sessionID, boardID string) string {
	return fmt.Sprintf("board:%s:auth:%s", boardID, sessionID)
}

// Authorize marks a session as having presented the correct PIN for a board.
func (c *RedisCache) Authorize(ctx context.Context, sessionID, boardID string) error {
	if err := c.client.Set(ctx, c.authKey(sessionID, boardID), "1", c.ttl).Err(); err != nil {
		return fmt.Errorf("caching authorization: %w", err)
	}
	return nil
}

// IsAuthorized reports whether a session already presented the correct PIN.
func (c *RedisCache) IsAuthorized(ctx context.Context, sessionID, boardID string) (bool, error) {
	n, err := c.client.Exists(ctx, c.authKey(sessionID, boardID)).Result()
	if err != nil {
		return false, fmt.Errorf("checking authorization: %w", err)
	}
	return n > 0, nil
}

// Revoke drops every cached authorization for a board, used when its PIN
// changes or the board is deleted.
func (c *RedisCache) Revoke(ctx context.Context, boardID string) error {
	pattern := fmt.Sprintf("board:%s:auth:*", boardID)
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Warn("deleting cached authorization", "key", iter.Val(), "error", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning authorizations: %w", err)
	}
	return nil
}

// MemoryCache is an in-process Cache for single-node deployments and tests.
// Entries expire lazily on read.
type MemoryCache struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]time.Time
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, entries: make(map[string]time.Time)}
}

func memKey(sessionID, boardID string) string {
	return boardID + "\x00" + sessionID
}

// Authorize marks a session as authorized for a board.
func (c *MemoryCache) Authorize(_ context.Context, sessionID, boardID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[memKey(sessionID, boardID)] = time.Now().Add(c.ttl)
	return nil
}

// IsAuthorized reports whether a session holds an unexpired authorization.
func (c *MemoryCache) IsAuthorized(_ context.Context, sessionID, boardID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	deadline, ok := c.entries[memKey(sessionID, boardID)]
	if !ok {
		return false, nil
	}
	if time.Now().After(deadline) {
		delete(c.entries, memKey(sessionID, boardID))
		return false, nil
	}
	return true, nil
}

// Revoke drops every authorization for a board.
func (c *MemoryCache) Revoke(_ context.Context, boardID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := boardID + "\x00"
	for key := range c.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.entries, key)
		}
	}
	return nil
}
