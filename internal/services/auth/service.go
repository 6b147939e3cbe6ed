package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Azalea224/butler-service-backend/internal/database"
	"github.com/Azalea224/butler-service-backend/internal/models"
	"github.com/Azalea224/butler-service-backend/internal/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidCredentials is returned by Login for an unknown email or a wrong password
var ErrInvalidCredentials = errors.New("invalid email or password")

const minNameLength = 2

// RegisterInput is the payload of a registration
type RegisterInput struct {
	Email          string   `json:"email" validate:"required,max=254"`
	Password       string   `json:"password" validate:"required,min=6,max=72"`
	Name           string   `json:"name" validate:"required,min=2,max=100"`
	CoreValues     []string `json:"core_values" validate:"max=20,dive,max=50"`
	BaselineEnergy *int     `json:"baseline_energy,omitempty"`
}

// LoginInput is the payload of a login
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Session is a signed token and the profile it was issued for
type Session struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      models.Profile `json:"user"`
}

// Service registers and authenticates users
type Service struct {
	users  database.UserStore
	tokens *TokenIssuer
	logger *zap.Logger
}

// NewService creates the auth service
func NewService(users database.UserStore, tokens *TokenIssuer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{users: users, tokens: tokens, logger: logger}
}

// Register creates a user and returns a session for it
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = validation.SanitizeText(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(in.Name) < minNameLength {
		return nil, validation.Errorf("name", "must be at least %d characters", minNameLength)
	}
	if in.BaselineEnergy != nil && (*in.BaselineEnergy < models.MinEnergy || *in.BaselineEnergy > models.MaxEnergy) {
		return nil, validation.Errorf("baseline_energy", "must be between %d and %d", models.MinEnergy, models.MaxEnergy)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:             uuid.New(),
		Email:          in.Email,
		PasswordHash:   hash,
		Name:           in.Name,
		CoreValues:     validation.SanitizeValues(in.CoreValues),
		BaselineEnergy: models.DefaultEnergy,
	}
	if in.BaselineEnergy != nil {
		user.BaselineEnergy = *in.BaselineEnergy
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			return nil, validation.Errorf("email", "is already registered")
		}
		return nil, err
	}

	s.logger.Info("user_registered", zap.String("user_id", user.ID.String()))
	return s.session(user)
}

// Login checks the credentials and returns a fresh session
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := CheckPassword(user.PasswordHash, in.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Info("login_failed", zap.String("user_id", user.ID.String()))
		return nil, ErrInvalidCredentials
	}

	if err := s.users.TouchLastActive(ctx, user.ID); err != nil {
		s.logger.Warn("touch_last_active_failed", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	return s.session(user)
}

// Authenticate verifies a bearer token and loads its user
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, fmt.Errorf("%w: unknown user", ErrInvalidToken)
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) session(user *models.User) (*Session, error) {
	token, expires, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expires, User: user.Profile()}, nil
}
