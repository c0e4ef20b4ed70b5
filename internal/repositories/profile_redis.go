package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sbilibin2017/kologin/internal/logger"
	"github.com/sbilibin2017/kologin/internal/models"
)

// ProfileRedisRepository caches session profiles in redis, one key per user.
type ProfileRedisRepository struct {
	client redis.UniversalClient
	prefix string
}

// NewProfileRedisRepository creates a cache storing profiles under prefix+username.
func NewProfileRedisRepository(client redis.UniversalClient, prefix string) *ProfileRedisRepository {
	return &ProfileRedisRepository{client: client, prefix: prefix}
}

// Save caches profile for ttl.
func (r *ProfileRedisRepository) Save(ctx context.Context, profile *models.Profile, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrProfileExpired
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	key := r.prefix + profile.User.Name
	err = r.client.Set(ctx, key, data, ttl).Err()

	logger.Log.Infow("profile cached",
		"key", key,
		"ttl", ttl,
		"error", err,
	)

	return err
}

// load returns the cached profile of username.
func (r *ProfileRedisRepository) load(ctx context.Context, username string) (*models.Profile, error) {
	key := r.prefix + username

	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		logger.Log.Errorw("failed to read cached profile", "key", key, "error", err)
		return nil, err
	}

	var profile models.Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", key, err)
	}
	return &profile, nil
}
