package butler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Azalea224/butler-service-backend/internal/database"
	"github.com/Azalea224/butler-service-backend/internal/models"
	"github.com/google/uuid"
)

// Recorder persists consultations and chat turns once a result exists
type Recorder struct {
	logs  database.MoodLogStore
	chats database.ChatLogStore
	now   func() time.Time
}

// NewRecorder creates a recorder. A nil clock uses time.Now.
func NewRecorder(logs database.MoodLogStore, chats database.ChatLogStore, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{logs: logs, chats: chats, now: now}
}

// RecordConsultation appends one consultation log carrying the normalized result
func (r *Recorder) RecordConsultation(ctx context.Context, uc *UserContext, result models.RecommendationResult) (*models.ContextLog, error) {
	input := strings.TrimSpace(uc.Message)
	if input == "" {
		input = fmt.Sprintf("Mood: %s, Energy: %d", uc.CurrentMood(), uc.CurrentEnergy())
	}

	res := result
	log := &models.ContextLog{
		ID:                uuid.New(),
		UserID:            uc.UserID,
		Kind:              models.ContextLogKindConsultation,
		RawInput:          input,
		Mood:              uc.CurrentMood(),
		Energy:            uc.CurrentEnergy(),
		Result:            &res,
		RecommendedTaskID: result.ChosenTaskID,
		CreatedAt:         r.now(),
	}
	if err := r.logs.Append(ctx, log); err != nil {
		return nil, fmt.Errorf("failed to record consultation: %w", err)
	}
	return log, nil
}

// RecordMood appends one mood check-in
func (r *Recorder) RecordMood(ctx context.Context, log *models.ContextLog) error {
	log.Kind = models.ContextLogKindMood
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = r.now()
	}
	if err := r.logs.Append(ctx, log); err != nil {
		return fmt.Errorf("failed to record mood: %w", err)
	}
	return nil
}

// RecordChatExchange appends the user's turn and then the assistant's reply
func (r *Recorder) RecordChatExchange(ctx context.Context, userID uuid.UUID, message, reply string) (models.ChatTurn, error) {
	now := r.now()
	userTurn := &models.ChatTurn{ID: uuid.New(), UserID: userID, Role: models.ChatRoleUser, Message: message, Timestamp: now}
	if err := r.chats.Append(ctx, userTurn); err != nil {
		return models.ChatTurn{}, fmt.Errorf("failed to record chat turn: %w", err)
	}

	assistantTurn := &models.ChatTurn{ID: uuid.New(), UserID: userID, Role: models.ChatRoleAssistant, Message: reply, Timestamp: now.Add(time.Millisecond)}
	if err := r.chats.Append(ctx, assistantTurn); err != nil {
		return models.ChatTurn{}, fmt.Errorf("failed to record chat reply: %w", err)
	}
	return *assistantTurn, nil
}

// RecentConsultations returns the user's latest consultations, most recent first
func (r *Recorder) RecentConsultations(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ContextLog, error) {
	return r.logs.FindRecentConsultations(ctx, userID, limit)
}

// RecentMoods returns the user's latest mood check-ins, most recent first
func (r *Recorder) RecentMoods(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ContextLog, error) {
	return r.logs.FindRecentMoodLogs(ctx, userID, limit)
}

// RecentChat returns the user's latest chat turns, most recent first
func (r *Recorder) RecentChat(ctx context.Context, userID uuid.UUID, limit int) ([]models.ChatTurn, error) {
	return r.chats.FindRecentByOwner(ctx, userID, limit)
}

// ClearChat deletes every chat turn of the user
func (r *Recorder) ClearChat(ctx context.Context, userID uuid.UUID) (int64, error) {
	return r.chats.DeleteAllByOwner(ctx, userID)
}
