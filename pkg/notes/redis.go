package notes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepository stores attempt notes in a redis hash per attempt, so
// round trips of one attempt may be served by different instances.
type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRepository creates a repository on the given client. Attempts
// expire after ttl.
func NewRedisRepository(client *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{client: client, ttl: ttl}
}

func (r *RedisRepository) key(attemptID string) string {
	return "mfa:attempt:" + attemptID
}

func (r *RedisRepository) Get(ctx context.Context, attemptID, name string) (string, error) {
	value, err := r.client.HGet(ctx, r.key(attemptID), name).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read note %q: %w", name, err)
	}
	return value, nil
}

func (r *RedisRepository) Set(ctx context.Context, attemptID, name, value string) error {
	key := r.key(attemptID)
	if err := r.client.HSet(ctx, key, name, value).Err(); err != nil {
		return fmt.Errorf("failed to write note %q: %w", name, err)
	}
	if err := r.client.Expire(ctx, key, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to refresh attempt expiry: %w", err)
	}
	return nil
}

func (r *RedisRepository) Delete(ctx context.Context, attemptID string) error {
	if err := r.client.Del(ctx, r.key(attemptID)).Err(); err != nil {
		return fmt.Errorf("failed to delete attempt notes: %w", err)
	}
	return nil
}
