package export

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
)

// AllocationStore persists sitename -> usrconnid between runs
type AllocationStore interface {
	Load(ctx context.Context) (map[string]int64, error)
	Save(ctx context.Context, ids map[string]int64) error
}

// RedisAllocationStore keeps allocations in one Redis hash
type RedisAllocationStore struct {
	client *redis.Client
	key    string
}

// NewRedisAllocationStore stores allocations in the hash at key
func NewRedisAllocationStore(client *redis.Client, key string) *RedisAllocationStore {
	return &RedisAllocationStore{client: client, key: key}
}

// Load reads every stored allocation
func (s *RedisAllocationStore) Load(ctx context.Context) (map[string]int64, error) {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", s.key, err)
	}
	ids := make(map[string]int64, len(values))
	for name, raw := range values {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad usrconnid %q for %s in %s: %w", raw, name, s.key, err)
		}
		ids[name] = id
	}
	return ids, nil
}

// Save writes ids into the hash, leaving other fields as they are
func (s *RedisAllocationStore) Save(ctx context.Context, ids map[string]int64) error {
	if len(ids) == 0 {
		return nil
	}
	values := make(map[string]interface{}, len(ids))
	for name, id := range ids {
		values[name] = strconv.FormatInt(id, 10)
	}
	return s.client.HSet(ctx, s.key, values).Err()
}
