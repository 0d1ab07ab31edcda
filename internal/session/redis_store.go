package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by Redis. Each session's snapshot is one JSON
// value under a prefixed key, replaced atomically by SET. A non-zero TTL acts
// as the session reaper.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisStoreConfig holds Redis connection configuration.
type RedisStoreConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	Prefix   string
	TTL      time.Duration
}

// NewRedisStore creates a Redis-backed store and verifies connectivity.
func NewRedisStore(cfg RedisStoreConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "ocr:"
	}

	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    cfg.TTL,
	}, nil
}

// Put replaces the snapshot for sessionID.
func (s *RedisStore) Put(ctx context.Context, sessionID string, state ProgressState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := s.client.Set(ctx, s.prefix+sessionID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Get returns the latest snapshot for sessionID, or ok=false when the session
// is unknown.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (ProgressState, bool, error) {
	data, err := s.client.Get(ctx, s.prefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return ProgressState{}, false, nil
	}
	if err != nil {
		return ProgressState{}, false, fmt.Errorf("redis get: %w", err)
	}

	var state ProgressState
	if err := json.Unmarshal(data, &state); err != nil {
		return ProgressState{}, false, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return state, true, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
