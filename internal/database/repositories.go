package database

import (
	"context"

	"github.com/Azalea224/butler-service-backend/internal/models"
	"github.com/google/uuid"
)

// UserStore defines the user operations used by handlers, middleware and the butler service.
// This interface enables better testability by allowing mock implementations
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	TouchLastActive(ctx context.Context, id uuid.UUID) error
}

// TaskStore defines the owner-scoped task operations
type TaskStore interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Task, error)
	ListByOwner(ctx context.Context, userID uuid.UUID, includeCompleted bool) ([]*models.Task, error)
	FindOpenByOwner(ctx context.Context, userID uuid.UUID) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Complete(ctx context.Context, userID, id uuid.UUID) (*models.Task, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// MoodLogStore defines the context log operations (mood check-ins and consultations)
type MoodLogStore interface {
	Append(ctx context.Context, log *models.ContextLog) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ContextLog, error)
	FindRecentMoods(ctx context.Context, userID uuid.UUID, limit int) ([]models.MoodObservation, error)
	FindRecentMoodLogs(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ContextLog, error)
	FindRecentConsultations(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ContextLog, error)
	UpdateMoodAnalysis(ctx context.Context, id uuid.UUID, estimate models.MoodEstimate) error
}

// ChatLogStore defines the chat turn operations
type ChatLogStore interface {
	Append(ctx context.Context, turn *models.ChatTurn) error
	FindRecentByOwner(ctx context.Context, userID uuid.UUID, limit int) ([]models.ChatTurn, error)
	DeleteAllByOwner(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Ensure concrete types implement the interfaces
var (
	_ UserStore    = (*UserRepository)(nil)
	_ TaskStore    = (*TaskRepository)(nil)
	_ MoodLogStore = (*ContextLogRepository)(nil)
	_ ChatLogStore = (*ChatLogRepository)(nil)
)
