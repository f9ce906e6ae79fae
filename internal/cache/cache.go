/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based cache for generated sequences.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultResultTTL bounds how long a generated sequence is served from cache.
const DefaultResultTTL = 1 * time.Hour

// KeyResult prefixes cached results: + catalog_id:bundle:length:seed
const KeyResult = "grimnir:seq:result:"

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ResultTTL time.Duration

	// DisableOnError trips the breaker on the first Redis error.
	DisableOnError bool
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		ResultTTL:      DefaultResultTTL,
		DisableOnError: true,
	}
}

// Cache provides Redis-backed caching with graceful fallback. A nil or
// disabled Cache misses on every read and drops every write.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool
}

// New connects to Redis. With DisableOnError set an unreachable server
// yields a disabled cache instead of an error.
func New(cfg Config, logger zerolog.Logger) (*Cache, error) {
	logger = logger.With().Str("component", "cache").Logger()
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = DefaultResultTTL
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if !cfg.DisableOnError {
			return nil, fmt.Errorf("connect to redis %s: %w", cfg.RedisAddr, err)
		}
		logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis cache unavailable, running without caching")
		return &Cache{logger: logger, config: cfg, disabled: true}, nil
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("redis cache initialized")
	return &Cache{client: client, logger: logger, config: cfg}, nil
}

// NewDisabled returns a cache that never hits.
func NewDisabled(logger zerolog.Logger) *Cache {
	return &Cache{
		logger:   logger.With().Str("component", "cache").Logger(),
		config:   DefaultConfig(),
		disabled: true,
	}
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

// handleError trips the circuit breaker.
func (c *Cache) handleError(err error, operation string) {
	if err == nil || errors.Is(err, redis.Nil) {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to redis error")
	}
}

func (c *Cache) get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.IsAvailable() {
		return false, nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		c.handleError(err, "get")
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		return false, nil
	}
	return true, nil
}

func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.IsAvailable() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}
	return nil
}

// deletePattern removes every key matching pattern using SCAN.
func (c *Cache) deletePattern(ctx context.Context, pattern string) error {
	if !c.IsAvailable() {
		return nil
	}

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			c.handleError(err, "scan")
			return err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.handleError(err, "delete_batch")
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// ResultKey identifies one generation request. Unseeded requests share the
// "det" slot because deterministic search always yields the same sequence.
func ResultKey(catalogID, bundle string, length int, seed *int64) string {
	s := "det"
	if seed != nil {
		s = strconv.FormatInt(*seed, 10)
	}
	return fmt.Sprintf("%s%s:%s:%d:%s", KeyResult, catalogID, bundle, length, s)
}

// CachedSequence is a previously generated result.
type CachedSequence struct {
	RunID     string    `json:"run_id"`
	CatalogID string    `json:"catalog_id"`
	Bundle    string    `json:"bundle"`
	Length    int       `json:"length"`
	Seed      *int64    `json:"seed,omitempty"`
	ItemIDs   []string  `json:"item_ids"`
	Nodes     int64     `json:"nodes"`
	CachedAt  time.Time `json:"cached_at"`
}

// GetSequence looks up a cached result.
func (c *Cache) GetSequence(ctx context.Context, catalogID, bundle string, length int, seed *int64) (*CachedSequence, bool) {
	var seq CachedSequence
	found, err := c.get(ctx, ResultKey(catalogID, bundle, length, seed), &seq)
	if err != nil || !found {
		return nil, false
	}
	c.logger.Debug().Str("catalog_id", catalogID).Str("bundle", bundle).Msg("sequence cache hit")
	return &seq, true
}

// SetSequence caches a result under its request key.
func (c *Cache) SetSequence(ctx context.Context, seq *CachedSequence) error {
	if !c.IsAvailable() {
		return nil
	}
	if seq.CachedAt.IsZero() {
		seq.CachedAt = time.Now().UTC()
	}
	return c.set(ctx, ResultKey(seq.CatalogID, seq.Bundle, seq.Length, seq.Seed), seq, c.config.ResultTTL)
}

// InvalidateCatalog drops every cached result for a catalog, used after a
// re-import changes its items.
func (c *Cache) InvalidateCatalog(ctx context.Context, catalogID string) error {
	if !c.IsAvailable() {
		return nil
	}
	c.logger.Debug().Str("catalog_id", catalogID).Msg("invalidating catalog results")
	return c.deletePattern(ctx, KeyResult+catalogID+":*")
}
