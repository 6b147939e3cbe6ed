package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/Azalea224/butler-service-backend/internal/database"
	logpkg "github.com/Azalea224/butler-service-backend/internal/logger"
	"github.com/Azalea224/butler-service-backend/internal/models"
	"github.com/Azalea224/butler-service-backend/internal/request"
	"github.com/Azalea224/butler-service-backend/internal/services/ai"
	"github.com/Azalea224/butler-service-backend/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// maxErrorMessageLength caps error messages returned to clients
const maxErrorMessageLength = 200

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// sanitizeErrorMessage truncates error messages so internal detail does not leak
func sanitizeErrorMessage(message string) string {
	if len(message) > maxErrorMessageLength {
		return message[:maxErrorMessageLength] + "..."
	}
	return message
}

// respondJSONError sends an error JSON response with sanitized error messages
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   sanitizeErrorMessage(message),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondServiceError maps a domain error to its HTTP status and writes it
func respondServiceError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", verr.Error())
		return
	}
	if database.IsNotFound(err) {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Resource not found")
		return
	}

	switch ai.KindOf(err) {
	case ai.KindServiceUnconfigured:
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "The assistant is not configured")
		return
	case ai.KindModelUnavailable:
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "The assistant model is unavailable")
		return
	case ai.KindRateLimited:
		retryAfter := ai.GetRetryDelay(err, 0)
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
		respondJSONError(w, http.StatusTooManyRequests, "Too Many Requests", "The assistant is busy, please try again shortly")
		return
	case ai.KindAuth:
		logger.Error("llm_credential_rejected", zap.String("op", op), zap.String("error", logpkg.SanitizeError(err)))
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "The assistant rejected our credentials")
		return
	case ai.KindUpstream:
		logger.Warn("llm_upstream_error", zap.String("op", op), zap.String("error", logpkg.SanitizeError(err)))
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "The assistant failed to respond")
		return
	case ai.KindTimeout:
		respondJSONError(w, http.StatusGatewayTimeout, "Gateway Timeout", "The assistant took too long to respond")
		return
	}

	logger.Error("request_failed", zap.String("op", op), zap.String("error", logpkg.SanitizeError(err)))
	respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", fmt.Sprintf("Failed to %s", op))
}

// decodeJSON reads the request body into dst. An empty body leaves dst untouched
// when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return false
	}
	return true
}

// requireUser returns the authenticated user or writes 401
func requireUser(w http.ResponseWriter, r *http.Request) *models.User {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
	}
	return user
}

// pathID parses the {id} route variable or writes 400
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid task ID")
		return uuid.Nil, false
	}
	return id, true
}

// queryLimit reads ?limit=; missing or malformed values return 0 so the service default applies
func queryLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
