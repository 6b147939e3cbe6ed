package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/Azalea224/butler-service-backend/internal/services/auth"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Accounts registers and logs in users. *auth.Service implements it.
type Accounts interface {
	Register(ctx context.Context, in auth.RegisterInput) (*auth.Session, error)
	Login(ctx context.Context, in auth.LoginInput) (*auth.Session, error)
}

var _ Accounts = (*auth.Service)(nil)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	accounts Accounts
	logger   *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(accounts Accounts, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, logger: logger}
}

// RegisterPublicRoutes registers the unauthenticated auth routes.
// The router should already have the /api/v1/auth prefix.
func (h *AuthHandler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	r.HandleFunc("/login", h.Login).Methods(http.MethodPost)
}

// RegisterRoutes registers the auth routes that need a bearer token
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/profile", h.GetProfile).Methods(http.MethodGet)
}

// Register creates an account and returns a session
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterInput
	if !decodeJSON(w, r, &req, false) {
		return
	}

	session, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		respondServiceError(w, h.logger, "register", err)
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

// Login exchanges credentials for a session
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginInput
	if !decodeJSON(w, r, &req, false) {
		return
	}

	session, err := h.accounts.Login(r.Context(), req)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Invalid email or password")
		return
	}
	if err != nil {
		respondServiceError(w, h.logger, "log in", err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

// GetProfile returns the authenticated user's profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	respondJSON(w, http.StatusOK, user.Profile())
}
