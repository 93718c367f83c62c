package flowstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists flows in Redis, letting multiple gateway instances
// share pending logins. Expiry is delegated to Redis TTLs.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed flow store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "login_flow:",
	}
}

func (s *RedisStore) key(handle string) string {
	return s.prefix + handle
}

// Save persists the flow under handle for at most ttl.
func (s *RedisStore) Save(ctx context.Context, handle string, flow Flow, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("flowstate: ttl must be positive")
	}

	data, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("flowstate: marshal flow: %w", err)
	}

	return s.client.Set(ctx, s.key(handle), data, ttl).Err()
}

// Take returns and removes the flow for handle.
func (s *RedisStore) Take(ctx context.Context, handle string) (Flow, error) {
	val, err := s.client.GetDel(ctx, s.key(handle)).Result()
	if errors.Is(err, redis.Nil) {
		return Flow{}, ErrNotFound
	}
	if err != nil {
		return Flow{}, fmt.Errorf("flowstate: redis get: %w", err)
	}

	var flow Flow
	if err := json.Unmarshal([]byte(val), &flow); err != nil {
		return Flow{}, fmt.Errorf("flowstate: unmarshal flow: %w", err)
	}
	return flow, nil
}
