package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azalea224/butler-service-backend/internal/models"
	"github.com/ulule/limiter/v3"
)

const ratelimitSettingKey = "ratelimit"

// RatelimitConfigRepository handles the global per-IP rate limit setting
type RatelimitConfigRepository struct {
	settings settingsStore
}

// NewRatelimitConfigRepository creates a new ratelimit config repository.
func NewRatelimitConfigRepository(db *DB) *RatelimitConfigRepository {
	return &RatelimitConfigRepository{settings: settingsStore{db: db}}
}

// Get retrieves the rate limit config, or nil when none has been stored.
func (r *RatelimitConfigRepository) Get(ctx context.Context) (*models.RatelimitConfig, error) {
	c := &models.RatelimitConfig{}
	updatedAt, ok, err := r.settings.get(ctx, ratelimitSettingKey, c)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	c.UpdatedAt = updatedAt
	return c, nil
}

// Set upserts the rate limit config. Rate format: e.g. "5-S", "100-M".
func (r *RatelimitConfigRepository) Set(ctx context.Context, c *models.RatelimitConfig) error {
	rate := strings.TrimSpace(c.Rate)
	if rate == "" {
		return fmt.Errorf("rate cannot be empty")
	}
	if _, err := limiter.NewRateFromFormatted(rate); err != nil {
		return fmt.Errorf("invalid rate %q: %w", rate, err)
	}
	c.Rate = rate
	updatedAt, err := r.settings.put(ctx, ratelimitSettingKey, c)
	if err != nil {
		return err
	}
	c.UpdatedAt = updatedAt
	return nil
}
