package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Azalea224/butler-service-backend/internal/models"
	"github.com/google/uuid"
)

const contextLogColumns = `id, user_id, kind, raw_input, mood, current_energy, ai_response, recommended_task_id, created_at`

// ContextLogRepository stores mood check-ins and recorded consultations
type ContextLogRepository struct {
	db *DB
}

// NewContextLogRepository creates a new context log repository
func NewContextLogRepository(db *DB) *ContextLogRepository {
	return &ContextLogRepository{db: db}
}

// Append inserts one log. Energy is clamped into range before storage.
func (r *ContextLogRepository) Append(ctx context.Context, log *models.ContextLog) error {
	query := `
		INSERT INTO context_logs (id, user_id, kind, raw_input, mood, current_energy, ai_response, recommended_task_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	log.Energy = models.ClampEnergy(log.Energy)

	var result []byte
	if log.Result != nil {
		b, err := json.Marshal(log.Result)
		if err != nil {
			return fmt.Errorf("failed to marshal recommendation result: %w", err)
		}
		result = b
	}

	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.UserID,
		string(log.Kind),
		log.RawInput,
		log.Mood,
		log.Energy,
		result,
		log.RecommendedTaskID,
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append context log: %w", err)
	}

	return nil
}

// GetByID retrieves a single log regardless of owner. Used by the mood analysis worker.
func (r *ContextLogRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ContextLog, error) {
	query := `SELECT ` + contextLogColumns + ` FROM context_logs WHERE id = $1`

	log, err := scanContextLog(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("context log not found: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get context log: %w", err)
	}

	return log, nil
}

// FindRecentMoods returns the user's latest mood observations, most recent first
func (r *ContextLogRepository) FindRecentMoods(ctx context.Context, userID uuid.UUID, limit int) ([]models.MoodObservation, error) {
	logs, err := r.findRecent(ctx, userID, models.ContextLogKindMood, limit)
	if err != nil {
		return nil, err
	}

	moods := make([]models.MoodObservation, 0, len(logs))
	for _, l := range logs {
		moods = append(moods, l.Observation())
	}
	return moods, nil
}

// FindRecentMoodLogs returns the user's latest mood logs, most recent first
func (r *ContextLogRepository) FindRecentMoodLogs(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ContextLog, error) {
	return r.findRecent(ctx, userID, models.ContextLogKindMood, limit)
}

// FindRecentConsultations returns the user's latest consultations, most recent first
func (r *ContextLogRepository) FindRecentConsultations(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ContextLog, error) {
	return r.findRecent(ctx, userID, models.ContextLogKindConsultation, limit)
}

// UpdateMoodAnalysis replaces the mood label and energy of a pending check-in
func (r *ContextLogRepository) UpdateMoodAnalysis(ctx context.Context, id uuid.UUID, estimate models.MoodEstimate) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE context_logs SET mood = $2, current_energy = $3 WHERE id = $1 AND kind = $4`,
		id, estimate.Mood, models.ClampEnergy(estimate.EnergyEstimate), string(models.ContextLogKindMood),
	)
	if err != nil {
		return fmt.Errorf("failed to update mood analysis: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("context log not found: %w", ErrNotFound)
	}

	return nil
}

// FindPendingMoods returns mood check-ins still waiting for analysis that were created
// between createdAfter and createdBefore, oldest first
func (r *ContextLogRepository) FindPendingMoods(ctx context.Context, createdAfter, createdBefore time.Time, limit int) ([]*models.ContextLog, error) {
	query := `SELECT ` + contextLogColumns + ` FROM context_logs
		WHERE kind = $1 AND mood = $2 AND created_at > $3 AND created_at < $4
		ORDER BY created_at ASC
		LIMIT $5`

	rows, err := r.db.QueryContext(ctx, query, string(models.ContextLogKindMood), models.MoodPending, createdAfter, createdBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending moods: %w", err)
	}
	return collectContextLogs(rows)
}

func (r *ContextLogRepository) findRecent(ctx context.Context, userID uuid.UUID, kind models.ContextLogKind, limit int) ([]*models.ContextLog, error) {
	query := `SELECT ` + contextLogColumns + ` FROM context_logs
		WHERE user_id = $1 AND kind = $2
		ORDER BY created_at DESC
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, userID, string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query context logs: %w", err)
	}
	return collectContextLogs(rows)
}

func collectContextLogs(rows *sql.Rows) ([]*models.ContextLog, error) {
	defer func() { _ = rows.Close() }()

	logs := []*models.ContextLog{}
	for rows.Next() {
		log, err := scanContextLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan context log: %w", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate context logs: %w", err)
	}

	return logs, nil
}

func scanContextLog(row rowScanner) (*models.ContextLog, error) {
	log := &models.ContextLog{}
	var (
		kind   string
		result []byte
		taskID uuid.NullUUID
	)
	err := row.Scan(
		&log.ID,
		&log.UserID,
		&kind,
		&log.RawInput,
		&log.Mood,
		&log.Energy,
		&result,
		&taskID,
		&log.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	log.Kind = models.ContextLogKind(kind)
	if len(result) > 0 {
		log.Result = &models.RecommendationResult{}
		if err := json.Unmarshal(result, log.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recommendation result: %w", err)
		}
	}
	if taskID.Valid {
		id := taskID.UUID
		log.RecommendedTaskID = &id
	}
	return log, nil
}
