// Package cache provides an optional Redis-backed read-through cache
// in front of the chunk index, for deployments where repeated reads
// of the same hot chunks would otherwise all pay the keyspace
// round-trip.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prn-tf/castore/internal/hashid"
	"github.com/prn-tf/castore/internal/kv"
)

// ErrMiss is returned by Get when the key is not cached. It is not an
// error condition for callers: a miss just means "go read the
// authoritative store".
var ErrMiss = errors.New("cache: miss")

// ChunkCache is a read-through cache of chunk bytes keyed by
// (namespace, chunk_id). It never becomes the source of truth: every
// value it serves was previously supplied by a caller that read it
// from the chunk index.
type ChunkCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// New wraps an existing Redis client. Values are stored with ttl;
// zero means no expiration.
func New(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *ChunkCache {
	return &ChunkCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "chunk-cache").Logger(),
	}
}

func cacheKey(ns kv.Namespace, id hashid.ChunkId) string {
	return fmt.Sprintf("chunk:%d:%s", ns, id)
}

// Get returns the cached bytes for (ns, id), or ErrMiss if absent.
func (c *ChunkCache) Get(ctx context.Context, ns kv.Namespace, id hashid.ChunkId) ([]byte, error) {
	data, err := c.client.Get(ctx, cacheKey(ns, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("cache get failed, falling back to store")
		return nil, ErrMiss
	}
	return data, nil
}

// Set populates the cache for (ns, id). Failures are logged, not
// returned: the cache is an optimization, not a durability guarantee,
// so a write failure here must never fail the caller's read.
func (c *ChunkCache) Set(ctx context.Context, ns kv.Namespace, id hashid.ChunkId, data []byte) {
	if err := c.client.Set(ctx, cacheKey(ns, id), data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("cache set failed")
	}
}
