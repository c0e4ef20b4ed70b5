package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/sbilibin2017/kologin/internal/logger"
	"github.com/sbilibin2017/kologin/internal/models"
)

type cachedProfile struct {
	Profile   models.Profile `json:"profile"`
	ExpiresAt time.Time      `json:"expiresAt"`
}

// ProfileFileRepository caches session profiles in a JSON file readable by the owner only.
type ProfileFileRepository struct {
	fs   afero.Fs
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// NewProfileFileRepository creates a cache backed by the file at path.
func NewProfileFileRepository(fs afero.Fs, path string) *ProfileFileRepository {
	return &ProfileFileRepository{fs: fs, path: path, now: time.Now}
}

// Save caches profile for ttl, replacing any entry of the same user.
func (r *ProfileFileRepository) Save(ctx context.Context, profile *models.Profile, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrProfileExpired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.read()
	if err != nil {
		return err
	}

	now := r.now()
	for name, entry := range entries {
		if !entry.ExpiresAt.After(now) {
			delete(entries, name)
		}
	}
	entries[profile.User.Name] = cachedProfile{Profile: *profile, ExpiresAt: now.Add(ttl)}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode profiles: %w", err)
	}
	if err := r.fs.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return fmt.Errorf("create profile dir: %w", err)
	}
	err = afero.WriteFile(r.fs, r.path, data, 0o600)

	logger.Log.Infow("profile cached",
		"path", r.path,
		"username", profile.User.Name,
		"ttl", ttl,
		"error", err,
	)

	return err
}

// load returns the cached profile of username if it has not expired.
func (r *ProfileFileRepository) load(ctx context.Context, username string) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.read()
	if err != nil {
		return nil, err
	}

	entry, ok := entries[username]
	if !ok || !entry.ExpiresAt.After(r.now()) {
		return nil, ErrProfileNotFound
	}
	return &entry.Profile, nil
}

func (r *ProfileFileRepository) read() (map[string]cachedProfile, error) {
	entries := map[string]cachedProfile{}

	data, err := afero.ReadFile(r.fs, r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse profiles %s: %w", r.path, err)
	}
	return entries, nil
}
