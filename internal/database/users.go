package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Azalea224/butler-service-backend/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrEmailTaken is returned when registering an email that already exists
var ErrEmailTaken = errors.New("email already registered")

const userColumns = `id, email, password_hash, name, core_values, baseline_energy, last_active_at, created_at, updated_at`

// UserRepository handles user database operations
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user. Email is stored lowercased.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, name, core_values, baseline_energy, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.CoreValues == nil {
		user.CoreValues = []string{}
	}
	user.BaselineEnergy = models.ClampEnergy(user.BaselineEnergy)

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		pq.Array(user.CoreValues),
		user.BaselineEnergy,
		now,
		now,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user not found: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetByEmail retrieves a user by email, case-insensitively
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user not found: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// UpdateProfile updates the name, core values and baseline energy of a user
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET name = $2, core_values = $3, baseline_energy = $4, updated_at = $5
		WHERE id = $1
		RETURNING updated_at
	`

	if user.CoreValues == nil {
		user.CoreValues = []string{}
	}
	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.Name,
		pq.Array(user.CoreValues),
		models.ClampEnergy(user.BaselineEnergy),
		time.Now(),
	).Scan(&user.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("user not found: %w", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	return nil
}

// TouchLastActive records that the user made an authenticated request
func (r *UserRepository) TouchLastActive(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET last_active_at = $2 WHERE id = $1`, id, time.Now()); err != nil {
		return fmt.Errorf("failed to update last active: %w", err)
	}
	return nil
}

// List returns users ordered by creation time, newest first
func (r *UserRepository) List(ctx context.Context, limit int) ([]*models.User, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var lastActive sql.NullTime
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		pq.Array(&user.CoreValues),
		&user.BaselineEnergy,
		&lastActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastActive.Valid {
		user.LastActiveAt = &lastActive.Time
	}
	if user.CoreValues == nil {
		user.CoreValues = []string{}
	}
	return user, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
