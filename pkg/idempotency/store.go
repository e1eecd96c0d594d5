package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// Key builds the dedup key for a consumed Kafka message.
func (s *Store) Key(topic string, partition int, offset int64) string {
	return fmt.Sprintf("idem:%s:%d:%d", topic, partition, offset)
}

// Seen marks the key and reports whether it was already marked.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, "1", s.ttl).Result()
	if err != nil {
		return false, err
	}

	return !ok, nil
}

// GetResponse returns a cached HTTP response for an Idempotency-Key, if any.
func (s *Store) GetResponse(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.rdb.Get(ctx, "idem:http:"+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// SaveResponse caches an HTTP response body for an Idempotency-Key.
func (s *Store) SaveResponse(ctx context.Context, key string, val []byte) error {
	return s.rdb.Set(ctx, "idem:http:"+key, val, s.ttl).Err()
}
