package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azalea224/butler-service-backend/internal/models"
)

const corsSettingKey = "cors"

// CorsConfigRepository handles the CORS setting
type CorsConfigRepository struct {
	settings settingsStore
}

// NewCorsConfigRepository creates a new CORS config repository.
func NewCorsConfigRepository(db *DB) *CorsConfigRepository {
	return &CorsConfigRepository{settings: settingsStore{db: db}}
}

// Get retrieves the CORS config, or nil when none has been stored.
func (r *CorsConfigRepository) Get(ctx context.Context) (*models.CorsConfig, error) {
	c := &models.CorsConfig{}
	updatedAt, ok, err := r.settings.get(ctx, corsSettingKey, c)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	c.UpdatedAt = updatedAt
	return c, nil
}

// Set upserts the CORS config. AllowedOrigins is comma-separated.
func (r *CorsConfigRepository) Set(ctx context.Context, c *models.CorsConfig) error {
	c.AllowedOrigins = strings.Join(AllowedOriginsSlice(c.AllowedOrigins), ",")
	if c.AllowedOrigins == "" {
		return fmt.Errorf("allowed_origins cannot be empty")
	}
	if c.MaxAge < 0 {
		return fmt.Errorf("max_age cannot be negative")
	}
	updatedAt, err := r.settings.put(ctx, corsSettingKey, c)
	if err != nil {
		return err
	}
	c.UpdatedAt = updatedAt
	return nil
}

// AllowedOriginsSlice returns allowed origins as a slice (split by comma, trimmed, deduplicated).
func AllowedOriginsSlice(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	for _, p := range strings.Split(raw, ",") {
		s := strings.TrimSpace(p)
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
