package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"tirehub/internal/repository"
)

// SettingsRepo is the key/value store for runtime bookkeeping such as the last low-stock sweep
type SettingsRepo struct {
	db *DB
}

func NewSettingsRepo(db *DB) repository.SettingsRepository {
	return &SettingsRepo{db: db}
}

// Get returns the stored value, or "" when key has never been set
func (r *SettingsRepo) Get(ctx context.Context, key string) (string, error) {
	query, args, err := sb.Select("value").From("settings").Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build settings query: %w", err)
	}

	var value sql.NullString
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("failed to read setting %q: %w", key, err)
	}
	return value.String, nil
}

func (r *SettingsRepo) Set(ctx context.Context, key, value string) error {
	query, args, err := sb.Insert("settings").
		Columns("key", "value", "updated_at").
		Values(key, value, sq.Expr("CURRENT_TIMESTAMP")).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build settings upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to store setting %q: %w", key, err)
	}
	return nil
}
