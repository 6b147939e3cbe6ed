package handlers

import (
	"context"
	"net/http"

	"github.com/Azalea224/butler-service-backend/internal/models"
	"github.com/Azalea224/butler-service-backend/internal/services/butler"
	"github.com/Azalea224/butler-service-backend/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ButlerService is the assistant surface used by the butler and chat handlers.
// *butler.Service implements it.
type ButlerService interface {
	Consult(ctx context.Context, userID uuid.UUID, req butler.ConsultRequest) (*butler.ConsultResponse, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ContextLog, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, upd butler.ProfileUpdate) (*models.Profile, error)
	LogMood(ctx context.Context, userID uuid.UUID, in butler.MoodInput) (*models.ContextLog, error)
	Moods(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ContextLog, error)
	Chat(ctx context.Context, userID uuid.UUID, message string) (*butler.ChatResponse, error)
	ChatHistory(ctx context.Context, userID uuid.UUID, limit int) ([]models.ChatTurn, error)
	ClearChat(ctx context.Context, userID uuid.UUID) (int64, error)
}

var _ ButlerService = (*butler.Service)(nil)

// ButlerHandler handles consultation, mood and profile requests
type ButlerHandler struct {
	service ButlerService
	logger  *zap.Logger
}

// NewButlerHandler creates a new butler handler
func NewButlerHandler(service ButlerService, logger *zap.Logger) *ButlerHandler {
	return &ButlerHandler{service: service, logger: logger}
}

// RegisterRoutes registers the butler routes that do not call the model.
// The router should already have the /api/v1/butler prefix.
func (h *ButlerHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/history", h.GetHistory).Methods(http.MethodGet)
	r.HandleFunc("/profile", h.UpdateProfile).Methods(http.MethodPatch, http.MethodPut)
	r.HandleFunc("/mood", h.LogMood).Methods(http.MethodPost)
	r.HandleFunc("/moods", h.GetMoods).Methods(http.MethodGet)
}

// RegisterModelRoutes registers the routes that call the model
func (h *ButlerHandler) RegisterModelRoutes(r *mux.Router) {
	r.HandleFunc("/consult", h.Consult).Methods(http.MethodPost)
}

// ConsultRequest is the body of POST /butler/consult. All fields are optional.
type ConsultRequest struct {
	Message string `json:"message"`
	Mood    string `json:"mood"`
	Energy  *int   `json:"energy"`
}

// ProfileRequest is the body of PATCH /butler/profile
type ProfileRequest struct {
	Name           *string  `json:"name"`
	CoreValues     []string `json:"core_values" validate:"max=20,dive,max=50"`
	BaselineEnergy *int     `json:"baseline_energy"`
}

// MoodRequest is the body of POST /butler/mood
type MoodRequest struct {
	Mood     string `json:"mood"`
	Energy   *int   `json:"energy"`
	RawInput string `json:"raw_input"`
}

// Consult recommends one of the user's open tasks
func (h *ButlerHandler) Consult(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req ConsultRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	resp, err := h.service.Consult(r.Context(), user.ID, butler.ConsultRequest{
		Message: req.Message,
		Mood:    req.Mood,
		Energy:  req.Energy,
	})
	if err != nil {
		respondServiceError(w, h.logger, "consult the butler", err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// GetHistory returns recent consultations, newest first
func (h *ButlerHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	logs, err := h.service.History(r.Context(), user.ID, queryLimit(r))
	if err != nil {
		respondServiceError(w, h.logger, "retrieve history", err)
		return
	}
	if logs == nil {
		logs = []*models.ContextLog{}
	}

	respondJSON(w, http.StatusOK, logs)
}

// UpdateProfile changes the user's name, core values or baseline energy
func (h *ButlerHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req ProfileRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if err := validation.Struct(req); err != nil {
		respondServiceError(w, h.logger, "update profile", err)
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), user.ID, butler.ProfileUpdate{
		Name:           req.Name,
		CoreValues:     req.CoreValues,
		BaselineEnergy: req.BaselineEnergy,
	})
	if err != nil {
		respondServiceError(w, h.logger, "update profile", err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// LogMood records a mood check-in
func (h *ButlerHandler) LogMood(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req MoodRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	log, err := h.service.LogMood(r.Context(), user.ID, butler.MoodInput{
		Mood:     req.Mood,
		Energy:   req.Energy,
		RawInput: req.RawInput,
	})
	if err != nil {
		respondServiceError(w, h.logger, "log mood", err)
		return
	}

	respondJSON(w, http.StatusCreated, log)
}

// GetMoods returns recent mood check-ins, newest first
func (h *ButlerHandler) GetMoods(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	logs, err := h.service.Moods(r.Context(), user.ID, queryLimit(r))
	if err != nil {
		respondServiceError(w, h.logger, "retrieve moods", err)
		return
	}
	if logs == nil {
		logs = []*models.ContextLog{}
	}

	respondJSON(w, http.StatusOK, logs)
}
