package confirm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces confirmation keys in Redis.
const keyPrefix = "confirm:"

// RedisStore implements Store on Redis. TTL expiry is native, and GETDEL
// gives the atomic get-then-delete consume requires: a confirmation is
// executed at most once even under a race.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a confirmation store backed by the given client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Create stores the pending confirmation as JSON with the TTL applied by
// Redis itself.
func (s *RedisStore) Create(ctx context.Context, pending *Pending, ttl time.Duration) error {
	if err := pending.Validate(); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	data, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("marshal pending confirmation: %w", err)
	}

	if err := s.client.Set(ctx, keyPrefix+pending.ID, data, ttl).Err(); err != nil {
		return fmt.Errorf("store pending confirmation: %w", err)
	}
	return nil
}

// Consume atomically fetches and deletes the confirmation via GETDEL.
func (s *RedisStore) Consume(ctx context.Context, id string) (*Pending, error) {
	data, err := s.client.GetDel(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("consume confirmation: %w", err)
	}

	var pending Pending
	if err := json.Unmarshal(data, &pending); err != nil {
		return nil, fmt.Errorf("unmarshal pending confirmation: %w", err)
	}
	return &pending, nil
}
