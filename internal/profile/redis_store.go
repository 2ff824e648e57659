package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "profile:"

// RedisStore keeps mappings as JSON values in Redis. Entries have no TTL;
// they are overwritten on every billing interaction.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed profile store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get fetches the mapping for userID.
func (s *RedisStore) Get(ctx context.Context, userID string) (Mapping, bool, error) {
	data, err := s.client.Get(ctx, keyPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Mapping{}, false, nil
	}
	if err != nil {
		return Mapping{}, false, fmt.Errorf("failed to read profile: %w", err)
	}

	var m Mapping
	if err := json.Unmarshal(data, &m); err != nil {
		return Mapping{}, false, fmt.Errorf("failed to decode profile: %w", err)
	}
	return m, true, nil
}

// Put stores the mapping for userID, stamping UpdatedAt.
func (s *RedisStore) Put(ctx context.Context, userID string, m Mapping) error {
	m.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	if err := s.client.Set(ctx, keyPrefix+userID, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}
