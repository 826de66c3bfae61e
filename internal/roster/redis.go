package roster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSource reads the roster document stored under a single Redis key.
type RedisSource struct {
	client *redis.Client
	key    string
}

// OpenRedisSource connects to redisURL and verifies the connection.
func OpenRedisSource(redisURL, key string) (*RedisSource, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisSource(client, key), nil
}

// NewRedisSource wraps an existing client.
func NewRedisSource(client *redis.Client, key string) *RedisSource {
	return &RedisSource{client: client, key: key}
}

// Fetch loads and decodes the roster document.
func (s *RedisSource) Fetch(ctx context.Context) (Roster, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Roster{}, ErrNoRoster
	}
	if err != nil {
		return Roster{}, fmt.Errorf("get roster: %w", err)
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Roster{}, fmt.Errorf("decode roster: %w", err)
	}
	return doc.roster(), nil
}

// Ping checks the Redis connection.
func (s *RedisSource) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *RedisSource) Close() error {
	return s.client.Close()
}
