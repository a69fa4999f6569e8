package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/sma-roster-api/internal/models"
)

type redisBlobClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisRosterRepository keeps the roster as one Redis string without expiry.
type RedisRosterRepository struct {
	client redisBlobClient
	key    string
}

// NewRedisRosterRepository constructs the repository.
func NewRedisRosterRepository(client redisBlobClient, key string) *RedisRosterRepository {
	if key == "" {
		key = DefaultRosterKey
	}
	return &RedisRosterRepository{client: client, key: key}
}

// Load fetches the roster blob; redis.Nil yields an empty roster.
func (r *RedisRosterRepository) Load(ctx context.Context) (*models.Roster, error) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.NewRoster(), nil
		}
		return nil, fmt.Errorf("redis get %s: %w", r.key, err)
	}
	return decodeRoster(raw)
}

// Save overwrites the roster blob.
func (r *RedisRosterRepository) Save(ctx context.Context, roster *models.Roster) error {
	payload, err := encodeRoster(roster)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	return nil
}
