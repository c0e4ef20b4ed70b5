package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/sbilibin2017/kologin/internal/logger"
)

// SettingsSQLRepository keeps settings in a key/value table.
// Queries are written with ? placeholders and rebound for the driver,
// so the same repository runs on sqlite and postgres.
type SettingsSQLRepository struct {
	db *sqlx.DB
}

func NewSettingsSQLRepository(db *sqlx.DB) *SettingsSQLRepository {
	return &SettingsSQLRepository{db: db}
}

// Migrate creates the settings table if it does not exist.
func (r *SettingsSQLRepository) Migrate(ctx context.Context) error {
	const query = `
		CREATE TABLE IF NOT EXISTS settings (
			name  VARCHAR(64) PRIMARY KEY,
			value TEXT NOT NULL
		)
	`
	_, err := r.db.ExecContext(ctx, query)

	logger.Log.Debugw("settings migrated",
		"query", strings.Join(strings.Fields(query), " "),
		"error", err,
	)

	return err
}

func (r *SettingsSQLRepository) Get(ctx context.Context, key string) (string, error) {
	query := r.db.Rebind(`SELECT value FROM settings WHERE name = ?`)

	var value string
	err := r.db.GetContext(ctx, &value, query, key)

	logger.Log.Debugw("settings read",
		"query", query,
		"args", []any{key},
		"result", value,
		"error", err,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (r *SettingsSQLRepository) Set(ctx context.Context, key, value string) error {
	query := r.db.Rebind(`
		INSERT INTO settings (name, value)
		VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE
		SET value = EXCLUDED.value
	`)
	args := []any{key, value}

	res, err := r.db.ExecContext(ctx, query, args...)
	var rowsAffected int64
	if res != nil {
		rowsAffected, _ = res.RowsAffected()
	}

	logger.Log.Debugw("settings written",
		"query", strings.Join(strings.Fields(query), " "),
		"args", args,
		"result", rowsAffected,
		"error", err,
	)

	return err
}
