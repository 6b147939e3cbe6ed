package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/Azalea224/butler-service-backend/internal/database"
	"github.com/Azalea224/butler-service-backend/internal/models"
	"github.com/Azalea224/butler-service-backend/internal/queue"
	"github.com/Azalea224/butler-service-backend/internal/services/ai"
	"github.com/Azalea224/butler-service-backend/internal/services/butler"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MoodLabeler labels a pending check-in. *butler.Service implements it.
type MoodLabeler interface {
	AnalyzeMood(ctx context.Context, logID uuid.UUID, keepEnergy bool) (*models.MoodEstimate, error)
}

var _ MoodLabeler = (*butler.Service)(nil)

// maxEarlyPause bounds how long an early delivery is held before it is published again,
// so a broker without the delayed exchange does not spin on it
const maxEarlyPause = 5 * time.Second

// MoodAnalyzer processes mood analysis jobs
type MoodAnalyzer struct {
	labeler    MoodLabeler
	jobQueue   queue.Enqueuer // For re-enqueueing jobs with delays
	logger     *zap.Logger
	earlyPause time.Duration
}

// NewMoodAnalyzer creates a new mood analyzer
func NewMoodAnalyzer(labeler MoodLabeler, jobQueue queue.Enqueuer, logger *zap.Logger) *MoodAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MoodAnalyzer{labeler: labeler, jobQueue: jobQueue, logger: logger, earlyPause: maxEarlyPause}
}

// ProcessJob processes a job based on its type. Every path acks or nacks msg exactly once.
func (a *MoodAnalyzer) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	if job.IsExpired() {
		a.logger.Info("job_expired", zap.String("job_id", job.ID.String()), zap.String("job_type", string(job.Type)))
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack expired job: %w", ackErr)
		}
		return nil
	}

	// The delayed exchange normally holds the job until NotBefore; a broker without
	// the plugin delivers it early, so send it around again.
	if !job.ShouldProcess() {
		return a.requeue(ctx, msg, job)
	}

	switch job.Type {
	case queue.JobTypeMoodAnalysis:
		if job.ContextLogID == nil {
			if nackErr := msg.Nack(false); nackErr != nil {
				a.logger.Warn("job_nack_failed", zap.String("job_id", job.ID.String()), zap.Error(nackErr))
			}
			return fmt.Errorf("context_log_id is required for mood analysis job %s", job.ID)
		}

		estimate, err := a.labeler.AnalyzeMood(ctx, *job.ContextLogID, job.EnergyProvided)
		if err != nil {
			return a.handleJobError(ctx, msg, job, err)
		}
		if estimate == nil {
			a.logger.Debug("mood_analysis_skipped", zap.String("context_log_id", job.ContextLogID.String()))
		} else {
			a.logger.Info("mood_analyzed",
				zap.String("context_log_id", job.ContextLogID.String()),
				zap.String("mood", estimate.Mood),
				zap.Int("energy_estimate", estimate.EnergyEstimate),
			)
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			a.logger.Warn("job_nack_failed", zap.String("job_id", job.ID.String()), zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// requeue publishes job again unchanged and acks the current delivery
func (a *MoodAnalyzer) requeue(ctx context.Context, msg queue.MessageInterface, job *queue.Job) error {
	if job.NotBefore != nil {
		if wait := min(time.Until(*job.NotBefore), a.earlyPause); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				if nackErr := msg.Nack(true); nackErr != nil {
					a.logger.Warn("job_nack_failed", zap.String("job_id", job.ID.String()), zap.Error(nackErr))
				}
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	if err := a.jobQueue.Enqueue(ctx, job); err != nil {
		if nackErr := msg.Nack(true); nackErr != nil {
			a.logger.Warn("job_nack_failed", zap.String("job_id", job.ID.String()), zap.Error(nackErr))
		}
		return fmt.Errorf("failed to re-enqueue early job: %w", err)
	}
	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack early job: %w", ackErr)
	}
	return nil
}

// handleJobError decides between dropping, delaying and dead-lettering a failed job
func (a *MoodAnalyzer) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error) error {
	fields := []zap.Field{
		zap.String("job_id", job.ID.String()),
		zap.Int("retry_count", job.RetryCount),
		zap.Error(err),
	}

	// The log was deleted with its user; nothing left to label
	if database.IsNotFound(err) {
		a.logger.Info("mood_analysis_target_gone", fields...)
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil
	}

	// Missing or rejected credentials will not fix themselves on retry
	switch ai.KindOf(err) {
	case ai.KindServiceUnconfigured, ai.KindAuth, ai.KindModelUnavailable:
		a.logger.Error("mood_analysis_failed_permanently", fields...)
		if nackErr := msg.Nack(false); nackErr != nil {
			a.logger.Warn("job_nack_failed", zap.String("job_id", job.ID.String()), zap.Error(nackErr))
		}
		return fmt.Errorf("job failed permanently: %w", err)
	}

	if !job.CanRetry() {
		a.logger.Error("mood_analysis_retries_exhausted", fields...)
		if nackErr := msg.Nack(false); nackErr != nil {
			a.logger.Warn("job_nack_failed", zap.String("job_id", job.ID.String()), zap.Error(nackErr))
		}
		return fmt.Errorf("job failed (max retries): %w", err)
	}

	// Rate limits back off from a minute, everything else from five seconds
	delay := ai.GetRetryDelay(err, job.RetryCount)
	delayed := job.RetryAfter(delay)
	if enqueueErr := a.jobQueue.Enqueue(ctx, delayed); enqueueErr != nil {
		a.logger.Error("mood_analysis_reenqueue_failed", append(fields, zap.NamedError("enqueue_error", enqueueErr))...)
		if nackErr := msg.Nack(true); nackErr != nil {
			a.logger.Warn("job_nack_failed", zap.String("job_id", job.ID.String()), zap.Error(nackErr))
		}
		return fmt.Errorf("failed to re-enqueue job: %w", enqueueErr)
	}
	if ackErr := msg.Ack(); ackErr != nil {
		a.logger.Warn("job_ack_failed", zap.String("job_id", job.ID.String()), zap.Error(ackErr))
	}

	a.logger.Warn("mood_analysis_retry_scheduled", append(fields, zap.Duration("delay", delay))...)
	return nil
}
