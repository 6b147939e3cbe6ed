package handlers

import (
	"net/http"

	"github.com/Azalea224/butler-service-backend/internal/models"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ChatHandler handles free-form chat with the assistant
type ChatHandler struct {
	service ButlerService
	logger  *zap.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(service ButlerService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{service: service, logger: logger}
}

// RegisterRoutes registers the chat history routes.
// The router should already have the /api/v1/chat prefix.
func (h *ChatHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/history", h.GetHistory).Methods(http.MethodGet)
	r.HandleFunc("/history", h.ClearHistory).Methods(http.MethodDelete)
}

// RegisterModelRoutes registers the routes that call the model
func (h *ChatHandler) RegisterModelRoutes(r *mux.Router) {
	r.HandleFunc("/message", h.SendMessage).Methods(http.MethodPost)
}

// ChatMessageRequest represents a chat message request
type ChatMessageRequest struct {
	Message string `json:"message"`
}

// SendMessage sends one message and returns the assistant's reply
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req ChatMessageRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	resp, err := h.service.Chat(r.Context(), user.ID, req.Message)
	if err != nil {
		respondServiceError(w, h.logger, "send message", err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// GetHistory returns the stored chat turns, oldest first
func (h *ChatHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	turns, err := h.service.ChatHistory(r.Context(), user.ID, queryLimit(r))
	if err != nil {
		respondServiceError(w, h.logger, "retrieve chat history", err)
		return
	}
	if turns == nil {
		turns = []models.ChatTurn{}
	}

	respondJSON(w, http.StatusOK, turns)
}

// ClearHistory deletes every stored chat turn of the user
func (h *ChatHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	deleted, err := h.service.ClearChat(r.Context(), user.ID)
	if err != nil {
		respondServiceError(w, h.logger, "clear chat history", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}
