package repositories

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/sbilibin2017/kologin/internal/logger"
)

// SettingsRedisRepository keeps settings as fields of a single redis hash.
type SettingsRedisRepository struct {
	client redis.UniversalClient
	key    string
}

// NewSettingsRedisRepository creates a repository storing settings in the hash named key.
func NewSettingsRedisRepository(client redis.UniversalClient, key string) *SettingsRedisRepository {
	return &SettingsRedisRepository{client: client, key: key}
}

// Get returns the value stored under field, or "" when it was never set.
func (r *SettingsRedisRepository) Get(ctx context.Context, field string) (string, error) {
	val, err := r.client.HGet(ctx, r.key, field).Result()
	if err == redis.Nil {
		return "", nil
	}

	logger.Log.Debugw("settings read",
		"key", r.key,
		"field", field,
		"result", val,
		"error", err,
	)

	return val, err
}

// Set stores value under field.
func (r *SettingsRedisRepository) Set(ctx context.Context, field, value string) error {
	err := r.client.HSet(ctx, r.key, field, value).Err()

	logger.Log.Debugw("settings written",
		"key", r.key,
		"field", field,
		"value", value,
		"error", err,
	)

	return err
}
