// Package redis caches completed chat turns so a resent request carrying the
// same Idempotency-Key gets the original response back.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reqnexa-backend/internal/store"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "reqnexa:idempotency"

var _ store.IdempotencyStore = (*IdempotencyStore)(nil)

type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewClient builds a client from a redis:// URL.
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	opts.DialTimeout = 10 * time.Second
	return redis.NewClient(opts), nil
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

func (s *IdempotencyStore) Get(ctx context.Context, userID, conversationID uuid.UUID, key string) ([]byte, bool, error) {
	value, err := s.rdb.Get(ctx, cacheKey(userID, conversationID, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get idempotency key: %w", err)
	}
	return value, true, nil
}

// Put stores value unless the key is already taken; the first response wins.
func (s *IdempotencyStore) Put(ctx context.Context, userID, conversationID uuid.UUID, key string, value []byte) error {
	if err := s.rdb.SetNX(ctx, cacheKey(userID, conversationID, key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set idempotency key: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *IdempotencyStore) Close() error {
	return s.rdb.Close()
}

func cacheKey(userID, conversationID uuid.UUID, key string) string {
	return fmt.Sprintf("%s:%s:%s:%s", keyPrefix, userID, conversationID, key)
}
