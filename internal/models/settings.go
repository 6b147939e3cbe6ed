package models

import "time"

// CorsConfig holds CORS configuration stored in the settings table
type CorsConfig struct {
	AllowedOrigins   string    `json:"allowed_origins"` // comma-separated
	AllowCredentials bool      `json:"allow_credentials"`
	MaxAge           int       `json:"max_age"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// RatelimitConfig holds a ulule formatted rate such as "5-S" or "100-M"
type RatelimitConfig struct {
	Rate      string    `json:"rate"`
	UpdatedAt time.Time `json:"updated_at"`
}
