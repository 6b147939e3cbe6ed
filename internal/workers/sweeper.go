package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/Azalea224/butler-service-backend/internal/database"
	"github.com/Azalea224/butler-service-backend/internal/models"
	"github.com/Azalea224/butler-service-backend/internal/queue"
	"go.uber.org/zap"
)

const (
	// DefaultSweepInterval is how often the sweeper looks for stranded check-ins
	DefaultSweepInterval = 10 * time.Minute
	// sweepGrace leaves time for the original job to be processed first
	sweepGrace = 10 * time.Minute
	// sweepWindow matches the lifetime of a mood analysis job
	sweepWindow = 24 * time.Hour
	sweepBatch  = 100
)

// PendingMoodSource finds check-ins still waiting for mood analysis
type PendingMoodSource interface {
	FindPendingMoods(ctx context.Context, createdAfter, createdBefore time.Time, limit int) ([]*models.ContextLog, error)
}

var _ PendingMoodSource = (*database.ContextLogRepository)(nil)

// PendingMoodSweeper re-enqueues analysis for check-ins whose job was lost, for example
// because the queue was unreachable when the mood was logged
type PendingMoodSweeper struct {
	source   PendingMoodSource
	jobQueue queue.Enqueuer
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewPendingMoodSweeper creates a new sweeper
func NewPendingMoodSweeper(source PendingMoodSource, jobQueue queue.Enqueuer, interval time.Duration, logger *zap.Logger) *PendingMoodSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PendingMoodSweeper{
		source:   source,
		jobQueue: jobQueue,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Start runs the sweep loop until ctx is cancelled
func (s *PendingMoodSweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("pending_mood_sweep_failed", zap.Error(err))
			}
		}
	}
}

// Sweep enqueues one analysis job per stranded check-in and returns how many were enqueued.
// The stored energy is kept since the sweeper cannot tell whether the user rated it.
func (s *PendingMoodSweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	logs, err := s.source.FindPendingMoods(ctx, now.Add(-sweepWindow), now.Add(-sweepGrace), sweepBatch)
	if err != nil {
		return 0, fmt.Errorf("failed to find pending moods: %w", err)
	}

	enqueued := 0
	for _, log := range logs {
		job := queue.NewMoodAnalysisJob(log.UserID, log.ID, true)
		if err := s.jobQueue.Enqueue(ctx, job); err != nil {
			s.logger.Warn("pending_mood_enqueue_failed",
				zap.String("context_log_id", log.ID.String()),
				zap.Error(err),
			)
			continue
		}
		enqueued++
	}

	if len(logs) > 0 {
		s.logger.Info("pending_moods_swept", zap.Int("found", len(logs)), zap.Int("enqueued", enqueued))
	}
	return enqueued, nil
}
