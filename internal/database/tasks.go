package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Azalea224/butler-service-backend/internal/models"
	"github.com/google/uuid"
)

const taskColumns = `id, user_id, title, description, energy_cost, emotional_friction, associated_value, due_date, is_completed, completed_at, created_at, updated_at`

// TaskRepository handles task database operations. Every query is scoped to the owner.
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create creates a new task
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (id, user_id, title, description, energy_cost, emotional_friction, associated_value, due_date, is_completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, $9, $10)
		RETURNING created_at, updated_at
	`

	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	normalizeTask(task)

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		task.EnergyCost,
		string(task.EmotionalFriction),
		task.AssociatedValue,
		task.DueDate,
		now,
		now,
	).Scan(&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	task.IsCompleted = false
	task.CompletedAt = nil
	return nil
}

// GetByID retrieves one task owned by userID
func (r *TaskRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND user_id = $2`

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task not found: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// ListByOwner returns the user's tasks, newest first. Completed tasks are included on request.
func (r *TaskRepository) ListByOwner(ctx context.Context, userID uuid.UUID, includeCompleted bool) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`
	if !includeCompleted {
		query += ` AND is_completed = FALSE`
	}
	query += ` ORDER BY created_at DESC`

	return r.queryTasks(ctx, query, userID)
}

// FindOpenByOwner returns the incomplete tasks offered to the recommender.
// Tasks with a due date come first, earliest due first.
func (r *TaskRepository) FindOpenByOwner(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE user_id = $1 AND is_completed = FALSE
		ORDER BY due_date ASC NULLS LAST, created_at ASC`

	return r.queryTasks(ctx, query, userID)
}

// Update updates the editable fields of a task owned by task.UserID
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks
		SET title = $3, description = $4, energy_cost = $5, emotional_friction = $6,
			associated_value = $7, due_date = $8, is_completed = $9, completed_at = $10, updated_at = $11
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at
	`

	normalizeTask(task)
	if task.IsCompleted && task.CompletedAt == nil {
		now := time.Now()
		task.CompletedAt = &now
	}
	if !task.IsCompleted {
		task.CompletedAt = nil
	}

	err := r.db.QueryRowContext(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		task.EnergyCost,
		string(task.EmotionalFriction),
		task.AssociatedValue,
		task.DueDate,
		task.IsCompleted,
		task.CompletedAt,
		time.Now(),
	).Scan(&task.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("task not found: %w", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	return nil
}

// Complete marks a task as completed and returns the updated row
func (r *TaskRepository) Complete(ctx context.Context, userID, id uuid.UUID) (*models.Task, error) {
	query := `
		UPDATE tasks
		SET is_completed = TRUE, completed_at = COALESCE(completed_at, $3), updated_at = $3
		WHERE id = $1 AND user_id = $2
		RETURNING ` + taskColumns

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id, userID, time.Now()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task not found: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to complete task: %w", err)
	}

	return task, nil
}

// Delete deletes a task owned by userID
func (r *TaskRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("task not found: %w", ErrNotFound)
	}

	return nil
}

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tasks := []*models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return tasks, nil
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var (
		friction    string
		value       sql.NullString
		dueDate     sql.NullTime
		completedAt sql.NullTime
	)
	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&task.EnergyCost,
		&friction,
		&value,
		&dueDate,
		&task.IsCompleted,
		&completedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.EmotionalFriction = models.ParseFriction(friction)
	if value.Valid {
		task.AssociatedValue = &value.String
	}
	if dueDate.Valid {
		task.DueDate = &dueDate.Time
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}
	return task, nil
}

// normalizeTask applies the stored defaults for energy and friction
func normalizeTask(task *models.Task) {
	if task.EnergyCost == 0 {
		task.EnergyCost = models.DefaultEnergy
	}
	task.EnergyCost = models.ClampEnergy(task.EnergyCost)
	if !task.EmotionalFriction.Valid() {
		task.EmotionalFriction = models.ParseFriction(string(task.EmotionalFriction))
	}
	if task.AssociatedValue != nil && *task.AssociatedValue == "" {
		task.AssociatedValue = nil
	}
}
