package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Azalea224/butler-service-backend/internal/models"
	"github.com/google/uuid"
)

// ChatLogRepository stores chat turns. Turns are append-only.
type ChatLogRepository struct {
	db *DB
}

// NewChatLogRepository creates a new chat log repository
func NewChatLogRepository(db *DB) *ChatLogRepository {
	return &ChatLogRepository{db: db}
}

// Append inserts one chat turn
func (r *ChatLogRepository) Append(ctx context.Context, turn *models.ChatTurn) error {
	if turn.ID == uuid.Nil {
		turn.ID = uuid.New()
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_logs (id, user_id, role, message, created_at) VALUES ($1, $2, $3, $4, $5)`,
		turn.ID, turn.UserID, string(turn.Role), turn.Message, turn.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append chat turn: %w", err)
	}

	return nil
}

// FindRecentByOwner returns the user's latest turns, most recent first.
// Insertion order breaks timestamp ties so a reply always follows its prompt.
func (r *ChatLogRepository) FindRecentByOwner(ctx context.Context, userID uuid.UUID, limit int) ([]models.ChatTurn, error) {
	query := `
		SELECT id, user_id, role, message, created_at
		FROM chat_logs
		WHERE user_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat turns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	turns := []models.ChatTurn{}
	for rows.Next() {
		var (
			turn models.ChatTurn
			role string
		)
		if err := rows.Scan(&turn.ID, &turn.UserID, &role, &turn.Message, &turn.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan chat turn: %w", err)
		}
		turn.Role = models.ChatRole(role)
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat turns: %w", err)
	}

	return turns, nil
}

// DeleteAllByOwner removes every turn of the user and returns how many were deleted
func (r *ChatLogRepository) DeleteAllByOwner(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM chat_logs WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete chat turns: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
