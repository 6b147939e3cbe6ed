package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Azalea224/butler-service-backend/internal/database"
	"github.com/Azalea224/butler-service-backend/internal/models"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// CorsConfigSource reads the stored CORS settings. A nil config means none are stored.
type CorsConfigSource interface {
	Get(ctx context.Context) (*models.CorsConfig, error)
}

var _ CorsConfigSource = (*database.CorsConfigRepository)(nil)

// defaultCORSOrigin is allowed when neither the settings table nor FRONTEND_URL name an origin
const defaultCORSOrigin = "http://localhost:5173"

// CORSReloader serves CORS headers with rs/cors and swaps in new settings from the
// settings table without a restart.
type CORSReloader struct {
	repo     CorsConfigSource
	fallback string // FRONTEND_URL
	log      *zap.Logger
	interval time.Duration

	mu      sync.RWMutex
	policy  *cors.Cors
	origins []string
}

// NewCORSReloader creates a reloader that starts out allowing the fallback origin.
// Call Load to apply the stored settings.
func NewCORSReloader(repo CorsConfigSource, frontendURLFallback string, log *zap.Logger, reloadInterval time.Duration) *CORSReloader {
	r := &CORSReloader{
		repo:     repo,
		fallback: strings.TrimSpace(frontendURLFallback),
		log:      log,
		interval: reloadInterval,
	}
	r.apply(r.fallbackConfig())
	return r
}

// Middleware applies the policy in force when each request arrives
func (r *CORSReloader) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			r.mu.RLock()
			policy := r.policy
			r.mu.RUnlock()
			policy.Handler(next).ServeHTTP(w, req)
		})
	}
}

// Start reloads the stored settings every interval until ctx is cancelled
func (r *CORSReloader) Start(ctx context.Context) {
	reloadEvery(ctx, r.interval, r.Load)
}

// Load reads the stored settings, falling back to FRONTEND_URL when none are stored or
// the read fails.
func (r *CORSReloader) Load(ctx context.Context) {
	cfg, err := r.repo.Get(ctx)
	if err != nil {
		r.log.Warn("failed_to_load_cors_config_using_fallback", zap.Error(err))
	}
	if err != nil || cfg == nil {
		cfg = r.fallbackConfig()
	}
	r.apply(cfg)
}

func (r *CORSReloader) fallbackConfig() *models.CorsConfig {
	return &models.CorsConfig{AllowedOrigins: r.fallback, AllowCredentials: true, MaxAge: 86400}
}

func (r *CORSReloader) apply(cfg *models.CorsConfig) {
	origins := database.AllowedOriginsSlice(cfg.AllowedOrigins)
	if len(origins) == 0 {
		origins = []string{defaultCORSOrigin}
	}
	policy := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Retry-After", "X-Ratelimit-Limit", "X-Ratelimit-Remaining", "X-Ratelimit-Reset"},
	})

	r.mu.Lock()
	changed := strings.Join(r.origins, ",") != strings.Join(origins, ",")
	r.policy = policy
	r.origins = origins
	r.mu.Unlock()
	if changed {
		r.log.Info("cors_config_loaded", zap.Strings("origins", origins))
	}
}

// Origins returns the origins currently allowed
func (r *CORSReloader) Origins() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.origins...)
}
