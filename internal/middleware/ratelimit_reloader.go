package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/Azalea224/butler-service-backend/internal/database"
	"github.com/Azalea224/butler-service-backend/internal/models"
	"github.com/Azalea224/butler-service-backend/internal/request"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"go.uber.org/zap"
)

// DefaultIPRate is the per-IP rate applied when no rate is stored
const DefaultIPRate = "10-S"

// RatelimitConfigSource reads and seeds the stored per-IP rate
type RatelimitConfigSource interface {
	Get(ctx context.Context) (*models.RatelimitConfig, error)
	Set(ctx context.Context, c *models.RatelimitConfig) error
}

var _ RatelimitConfigSource = (*database.RatelimitConfigRepository)(nil)

// RateLimitReloader limits requests per client IP with ulule/limiter. The rate lives in
// the settings table and is re-read periodically; counters stay in the store across
// reloads.
type RateLimitReloader struct {
	store       limiter.Store
	repo        RatelimitConfigSource
	defaultRate string
	log         *zap.Logger
	interval    time.Duration

	mu      sync.RWMutex
	limiter *stdlibmw.Middleware
	rate    string
}

// NewRateLimitReloader creates a reloader enforcing defaultRate until Load reads the stored rate.
// An empty or malformed defaultRate falls back to DefaultIPRate.
func NewRateLimitReloader(store limiter.Store, repo RatelimitConfigSource, defaultRate string, log *zap.Logger, reloadInterval time.Duration) *RateLimitReloader {
	if _, err := limiter.NewRateFromFormatted(defaultRate); err != nil {
		defaultRate = DefaultIPRate
	}
	r := &RateLimitReloader{
		store:       store,
		repo:        repo,
		defaultRate: defaultRate,
		log:         log,
		interval:    reloadInterval,
	}
	r.apply(defaultRate)
	return r
}

// Middleware limits each request with the rate in force when it arrives
func (r *RateLimitReloader) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			r.mu.RLock()
			mw := r.limiter
			r.mu.RUnlock()
			mw.Handler(next).ServeHTTP(w, req)
		})
	}
}

// Start reloads the stored rate every interval until ctx is cancelled
func (r *RateLimitReloader) Start(ctx context.Context) {
	reloadEvery(ctx, r.interval, r.Load)
}

// Rate returns the formatted rate currently enforced
func (r *RateLimitReloader) Rate() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rate
}

// Load reads the stored rate. When none is stored the default is saved so operators can
// see and edit it; a read failure or malformed rate keeps the default.
func (r *RateLimitReloader) Load(ctx context.Context) {
	rateStr := r.defaultRate
	cfg, err := r.repo.Get(ctx)
	switch {
	case err != nil:
		r.log.Warn("failed_to_load_ratelimit_config_using_default",
			zap.Error(err),
			zap.String("default_rate", r.defaultRate),
		)
	case cfg != nil && cfg.Rate != "":
		rateStr = cfg.Rate
	default:
		if err := r.repo.Set(ctx, &models.RatelimitConfig{Rate: r.defaultRate}); err != nil {
			r.log.Error("failed_to_save_default_ratelimit_config",
				zap.Error(err),
				zap.String("default_rate", r.defaultRate),
			)
		}
	}

	if !r.apply(rateStr) {
		r.log.Error("failed_to_parse_rate_limit_using_default", zap.String("rate_str", rateStr))
		r.apply(r.defaultRate)
	}
}

// apply swaps in rateStr and reports whether it parsed
func (r *RateLimitReloader) apply(rateStr string) bool {
	r.mu.RLock()
	unchanged := r.limiter != nil && r.rate == rateStr
	r.mu.RUnlock()
	if unchanged {
		return true
	}

	rate, err := limiter.NewRateFromFormatted(rateStr)
	if err != nil {
		return false
	}
	mw := newLimiterMiddleware(limiter.New(r.store, rate), request.ClientIP, r.log)

	r.mu.Lock()
	r.limiter = mw
	r.rate = rateStr
	r.mu.Unlock()
	r.log.Info("ratelimit_config_loaded", zap.String("rate", rateStr))
	return true
}

// newLimiterMiddleware builds the ulule stdlib middleware with JSON error bodies
func newLimiterMiddleware(instance *limiter.Limiter, key stdlibmw.KeyGetter, log *zap.Logger) *stdlibmw.Middleware {
	return stdlibmw.NewMiddleware(instance,
		stdlibmw.WithKeyGetter(key),
		stdlibmw.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			respondErrorJSON(w, r, http.StatusTooManyRequests, "Too Many Requests", "Rate limit exceeded, please slow down", log)
		}),
		stdlibmw.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			log.Error("rate_limiter_store_error", zap.Error(err))
			respondErrorJSON(w, r, http.StatusInternalServerError, "Internal Server Error", "Rate limiter unavailable", log)
		}),
	)
}
