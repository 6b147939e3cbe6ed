package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// settingsStore reads and writes JSON documents in the settings table by key
type settingsStore struct {
	db *DB
}

// get decodes the value stored under key into dest. It reports false when the key is absent.
func (s settingsStore) get(ctx context.Context, key string, dest any) (time.Time, bool, error) {
	var (
		raw       []byte
		updatedAt time.Time
	)
	err := s.db.QueryRowContext(ctx, `SELECT value, updated_at FROM settings WHERE key = $1`, key).Scan(&raw, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get setting %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return time.Time{}, false, fmt.Errorf("decode setting %s: %w", key, err)
	}
	return updatedAt, true, nil
}

// put upserts the JSON encoding of value under key
func (s settingsStore) put(ctx context.Context, key string, value any) (time.Time, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("encode setting %s: %w", key, err)
	}
	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`, key, raw, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("set setting %s: %w", key, err)
	}
	return now, nil
}
