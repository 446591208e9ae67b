package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/prn-tf/castore/internal/hashid"
)

func TestCacheKey_IsNamespaceAndChunkScoped(t *testing.T) {
	id := hashid.NewChunkId([]byte("payload"))
	a := cacheKey(0, id)
	b := cacheKey(1, id)
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, id.String())
}

func TestGet_UnreachableRedisIsTreatedAsMiss(t *testing.T) {
	// Point at a port nothing is listening on; go-redis fails fast
	// with a dial error rather than blocking.
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
	})
	c := New(client, time.Minute, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := c.Get(ctx, 0, hashid.NewChunkId([]byte("x")))
	assert.ErrorIs(t, err, ErrMiss, "a cache backend failure must degrade to a miss, never propagate as a hard error")
}
