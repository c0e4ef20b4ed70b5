package repositories

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"

	"github.com/sbilibin2017/kologin/internal/logger"
)

// SettingsFileRepository keeps settings as a flat YAML map in a single file.
type SettingsFileRepository struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

// NewSettingsFileRepository creates a repository backed by the file at path.
func NewSettingsFileRepository(fs afero.Fs, path string) *SettingsFileRepository {
	return &SettingsFileRepository{fs: fs, path: path}
}

// Get returns the value stored under key, or "" when it was never set.
func (r *SettingsFileRepository) Get(ctx context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	settings, err := r.read()
	if err != nil {
		return "", err
	}
	return settings[key], nil
}

// Set stores value under key, creating the file and its directory if needed.
func (r *SettingsFileRepository) Set(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	settings, err := r.read()
	if err != nil {
		return err
	}
	settings[key] = value

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := r.fs.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	err = afero.WriteFile(r.fs, r.path, data, 0o600)

	logger.Log.Debugw("settings written", "path", r.path, "key", key, "error", err)

	return err
}

func (r *SettingsFileRepository) read() (map[string]string, error) {
	settings := map[string]string{}

	data, err := afero.ReadFile(r.fs, r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return settings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", r.path, err)
	}
	return settings, nil
}
