package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"shelterbook/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const redisIdempotencyPrefix = "shelterbook:idempotency:"

// RedisIdempotencyStore shares cached responses between service replicas.
// Redis failures degrade to a cache miss.
type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*CachedResponse, bool) {
	raw, err := s.client.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("Idempotency cache read failed", "error", err)
		}
		return nil, false
	}

	response, err := decodeCachedResponse(raw)
	if err != nil {
		s.log.Warn("Discarding unreadable idempotency entry", "error", err)
		return nil, false
	}
	return response, true
}

func (s *RedisIdempotencyStore) Set(ctx context.Context, key string, response *CachedResponse) {
	response.CreatedAt = time.Now().UTC()
	raw, err := json.Marshal(response)
	if err != nil {
		s.log.Warn("Failed to encode idempotency entry", "error", err)
		return
	}

	// SetNX keeps the first stored response when two retries race.
	if err := s.client.SetNX(ctx, redisKey(key), raw, s.ttl).Err(); err != nil {
		s.log.Warn("Idempotency cache write failed", "error", err)
	}
}

// Stop is a no-op; the client is closed with the rest of the connections.
func (s *RedisIdempotencyStore) Stop() {}

func redisKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return redisIdempotencyPrefix + hex.EncodeToString(sum[:])
}

func decodeCachedResponse(raw []byte) (*CachedResponse, error) {
	var response CachedResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, err
	}
	if response.StatusCode == 0 {
		return nil, errors.New("missing status code")
	}
	return &response, nil
}
