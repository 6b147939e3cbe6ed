package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/Azalea224/butler-service-backend/internal/request"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultActivityInterval is the minimum time between two last-active writes for one user
const DefaultActivityInterval = 5 * time.Minute

// ActivityStore records when a user last used the API
type ActivityStore interface {
	TouchLastActive(ctx context.Context, id uuid.UUID) error
}

// ActivityTracker updates users' last_active_at at most once per interval
type ActivityTracker struct {
	store    ActivityStore
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu   sync.Mutex
	seen map[uuid.UUID]time.Time
}

// NewActivityTracker creates a new activity tracker
func NewActivityTracker(store ActivityStore, interval time.Duration, logger *zap.Logger) *ActivityTracker {
	if interval <= 0 {
		interval = DefaultActivityInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityTracker{
		store:    store,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		seen:     make(map[uuid.UUID]time.Time),
	}
}

// Middleware touches the authenticated user's activity timestamp. It must run after Auth.
func (at *ActivityTracker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := request.UserFromContext(r); user != nil && at.due(user.ID) {
			// Don't fail the request if activity tracking fails
			if err := at.store.TouchLastActive(r.Context(), user.ID); err != nil {
				at.logger.Warn("failed_to_update_user_activity",
					zap.String("user_id", user.ID.String()),
					zap.Error(err),
				)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// due reports whether the user's timestamp should be written now and marks it written
func (at *ActivityTracker) due(id uuid.UUID) bool {
	now := at.now()
	at.mu.Lock()
	defer at.mu.Unlock()
	if last, ok := at.seen[id]; ok && now.Sub(last) < at.interval {
		return false
	}
	at.seen[id] = now
	return true
}

// Start prunes stale entries until ctx is cancelled
func (at *ActivityTracker) Start(ctx context.Context) {
	ticker := time.NewTicker(at.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			at.prune()
		}
	}
}

func (at *ActivityTracker) prune() {
	cutoff := at.now().Add(-at.interval)
	at.mu.Lock()
	defer at.mu.Unlock()
	for id, last := range at.seen {
		if last.Before(cutoff) {
			delete(at.seen, id)
		}
	}
}
