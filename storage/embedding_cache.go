package storage

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"property-ingest/models"
)

const embeddingKeyPrefix = "embedding:"

// EmbeddingCache keeps embedding vectors in Redis under a hash of the
// caller's key, so arbitrarily long texts make short keys.
type EmbeddingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewEmbeddingCache connects to Redis at addr and verifies the connection.
func NewEmbeddingCache(ctx context.Context, addr string, ttl time.Duration) (*EmbeddingCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	return &EmbeddingCache{client: client, ttl: ttl}, nil
}

func (c *EmbeddingCache) Get(ctx context.Context, key string) (models.Vector, bool, error) {
	data, err := c.client.Get(ctx, cacheKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis: get: %w", err)
	}
	v, err := decodeVector(data)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (c *EmbeddingCache) Set(ctx context.Context, key string, v models.Vector) error {
	if err := c.client.Set(ctx, cacheKey(key), encodeVector(v), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set: %w", err)
	}
	return nil
}

func (c *EmbeddingCache) Close() error {
	return c.client.Close()
}

func cacheKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return embeddingKeyPrefix + hex.EncodeToString(sum[:])
}

// encodeVector packs v as little-endian float32s.
func encodeVector(v models.Vector) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) (models.Vector, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("redis: corrupt vector of %d bytes", len(data))
	}
	v := make(models.Vector, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return v, nil
}
