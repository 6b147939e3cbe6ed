package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Azalea224/butler-service-backend/internal/models"
	"github.com/Azalea224/butler-service-backend/internal/services/auth"
	"github.com/Azalea224/butler-service-backend/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func newAuthRouter(accounts Accounts) *mux.Router {
	h := NewAuthHandler(accounts, zap.NewNop())
	r := mux.NewRouter()
	sub := r.PathPrefix("/api/v1/auth").Subrouter()
	h.RegisterPublicRoutes(sub)
	h.RegisterRoutes(sub)
	return r
}

func TestAuthHandler_Register(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		registerErr  error
		expectStatus int
	}{
		{"created", nil, http.StatusCreated},
		{"duplicate email", validation.Errorf("email", "is already registered"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			accounts := &mockAccounts{registerFunc: func(_ context.Context, in auth.RegisterInput) (*auth.Session, error) {
				if tt.registerErr != nil {
					return nil, tt.registerErr
				}
				return &auth.Session{
					Token:     "token",
					ExpiresAt: time.Now().Add(auth.DefaultTokenTTL),
					User:      models.Profile{Email: in.Email, Name: in.Name},
				}, nil
			}}

			body := map[string]any{"email": "ada@example.com", "password": "secret1", "name": "Ada"}
			w := serve(newAuthRouter(accounts), newTestRequest(http.MethodPost, "/api/v1/auth/register", body))

			if w.Code != tt.expectStatus {
				t.Fatalf("Expected status %d, got %d", tt.expectStatus, w.Code)
			}
			if tt.registerErr == nil {
				var session auth.Session
				decodeData(t, w, &session)
				if session.Token == "" || session.User.Email != "ada@example.com" {
					t.Errorf("Unexpected session: %+v", session)
				}
			}
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	t.Parallel()

	accounts := &mockAccounts{loginFunc: func(_ context.Context, in auth.LoginInput) (*auth.Session, error) {
		if in.Password != "secret1" {
			return nil, auth.ErrInvalidCredentials
		}
		return &auth.Session{Token: "token"}, nil
	}}
	router := newAuthRouter(accounts)

	w := serve(router, newTestRequest(http.MethodPost, "/api/v1/auth/login", auth.LoginInput{Email: "ada@example.com", Password: "secret1"}))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	w = serve(router, newTestRequest(http.MethodPost, "/api/v1/auth/login", auth.LoginInput{Email: "ada@example.com", Password: "wrong"}))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestAuthHandler_GetProfile(t *testing.T) {
	t.Parallel()

	router := newAuthRouter(&mockAccounts{})
	user := newTestUser()

	w := serve(router, withUser(httptest.NewRequest(http.MethodGet, "/api/v1/auth/profile", nil), user))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "password") {
		t.Error("Expected profile not to expose the password hash")
	}
	var profile models.Profile
	decodeData(t, w, &profile)
	if profile.ID != user.ID || profile.Name != user.Name {
		t.Errorf("Unexpected profile: %+v", profile)
	}

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/auth/profile", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without a user, got %d", w.Code)
	}
}
