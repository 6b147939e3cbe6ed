package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Azalea224/butler-service-backend/internal/database"
	"github.com/Azalea224/butler-service-backend/internal/models"
	"github.com/Azalea224/butler-service-backend/internal/services/butler"
	"github.com/Azalea224/butler-service-backend/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// TaskParser turns free text into a task draft. *butler.Service implements it.
type TaskParser interface {
	ParseTask(ctx context.Context, userID uuid.UUID, text string) (*models.ParsedTaskDraft, error)
}

var _ TaskParser = (*butler.Service)(nil)

// TaskHandler handles task-related requests
type TaskHandler struct {
	tasks  database.TaskStore
	parser TaskParser
	logger *zap.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(tasks database.TaskStore, parser TaskParser, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, parser: parser, logger: logger}
}

// RegisterRoutes registers task routes. The router should already have the /tasks prefix.
// /parse calls the model and is registered separately with RegisterParseRoute.
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTasks).Methods(http.MethodGet)
	r.HandleFunc("", h.CreateTask).Methods(http.MethodPost)
	r.HandleFunc("/{id}", h.GetTask).Methods(http.MethodGet)
	r.HandleFunc("/{id}", h.UpdateTask).Methods(http.MethodPut, http.MethodPatch)
	r.HandleFunc("/{id}", h.DeleteTask).Methods(http.MethodDelete)
	r.HandleFunc("/{id}/complete", h.CompleteTask).Methods(http.MethodPatch, http.MethodPost)
}

// RegisterParseRoute registers POST /parse on a router with the /tasks prefix
func (h *TaskHandler) RegisterParseRoute(r *mux.Router) {
	r.HandleFunc("/parse", h.ParseTask).Methods(http.MethodPost)
}

// CreateTaskRequest represents a create task request
type CreateTaskRequest struct {
	Title             string  `json:"title" validate:"required,max=200"`
	Description       string  `json:"description" validate:"max=2000"`
	EnergyCost        int     `json:"energy_cost" validate:"energy"`
	EmotionalFriction string  `json:"emotional_friction" validate:"friction"`
	AssociatedValue   *string `json:"associated_value" validate:"omitempty,max=50"`
	DueDate           *string `json:"due_date"`
}

// UpdateTaskRequest represents an update. Absent fields are left as they are; an explicit
// null clears associated_value or due_date.
type UpdateTaskRequest struct {
	Title             *string          `json:"title" validate:"omitempty,max=200"`
	Description       *string          `json:"description" validate:"omitempty,max=2000"`
	EnergyCost        *int             `json:"energy_cost"`
	EmotionalFriction *string          `json:"emotional_friction" validate:"omitempty,friction"`
	AssociatedValue   nullable[string] `json:"associated_value"`
	DueDate           nullable[string] `json:"due_date"`
	IsCompleted       *bool            `json:"is_completed"`
}

// ParseTaskRequest is the body of POST /tasks/parse
type ParseTaskRequest struct {
	Text string `json:"text"`
}

// nullable distinguishes an absent JSON field from an explicit null
type nullable[T any] struct {
	Set   bool
	Value *T
}

func (n *nullable[T]) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// ListTasks lists the user's tasks. Completed tasks are included with ?include_completed=true.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	includeCompleted, _ := strconv.ParseBool(r.URL.Query().Get("include_completed"))
	tasks, err := h.tasks.ListByOwner(r.Context(), user.ID, includeCompleted)
	if err != nil {
		respondServiceError(w, h.logger, "retrieve tasks", err)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}

	respondJSON(w, http.StatusOK, tasks)
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req CreateTaskRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	req.Title = validation.SanitizeText(req.Title)
	if err := validation.Struct(req); err != nil {
		respondServiceError(w, h.logger, "create task", err)
		return
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		respondServiceError(w, h.logger, "create task", err)
		return
	}

	if req.EnergyCost == 0 {
		req.EnergyCost = models.DefaultEnergy
	}

	task := &models.Task{
		ID:                uuid.New(),
		UserID:            user.ID,
		Title:             req.Title,
		Description:       validation.SanitizeText(req.Description),
		EnergyCost:        req.EnergyCost,
		EmotionalFriction: models.ParseFriction(req.EmotionalFriction),
		AssociatedValue:   cleanValue(req.AssociatedValue),
		DueDate:           dueDate,
	}
	if err := h.tasks.Create(r.Context(), task); err != nil {
		respondServiceError(w, h.logger, "create task", err)
		return
	}

	respondJSON(w, http.StatusCreated, task)
}

// GetTask retrieves a task by ID
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	task, err := h.tasks.GetByID(r.Context(), user.ID, id)
	if err != nil {
		respondServiceError(w, h.logger, "retrieve task", err)
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// UpdateTask applies the fields present in the body to an existing task
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if err := validation.Struct(req); err != nil {
		respondServiceError(w, h.logger, "update task", err)
		return
	}

	ctx := r.Context()
	task, err := h.tasks.GetByID(ctx, user.ID, id)
	if err != nil {
		respondServiceError(w, h.logger, "update task", err)
		return
	}

	if err := applyTaskUpdate(task, req); err != nil {
		respondServiceError(w, h.logger, "update task", err)
		return
	}

	if err := h.tasks.Update(ctx, task); err != nil {
		respondServiceError(w, h.logger, "update task", err)
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.tasks.Delete(r.Context(), user.ID, id); err != nil {
		respondServiceError(w, h.logger, "delete task", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CompleteTask marks a task as completed
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	task, err := h.tasks.Complete(r.Context(), user.ID, id)
	if err != nil {
		respondServiceError(w, h.logger, "complete task", err)
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// ParseTask returns a task draft extracted from free text. Nothing is saved.
func (h *TaskHandler) ParseTask(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req ParseTaskRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	draft, err := h.parser.ParseTask(r.Context(), user.ID, req.Text)
	if err != nil {
		respondServiceError(w, h.logger, "parse task", err)
		return
	}

	respondJSON(w, http.StatusOK, draft)
}

func applyTaskUpdate(task *models.Task, req UpdateTaskRequest) error {
	if req.Title != nil {
		title := validation.SanitizeText(*req.Title)
		if title == "" {
			return validation.Errorf("title", "cannot be empty")
		}
		task.Title = title
	}
	if req.Description != nil {
		task.Description = validation.SanitizeText(*req.Description)
	}
	if req.EnergyCost != nil {
		if *req.EnergyCost < models.MinEnergy || *req.EnergyCost > models.MaxEnergy {
			return validation.Errorf("energy_cost", "must be between %d and %d", models.MinEnergy, models.MaxEnergy)
		}
		task.EnergyCost = *req.EnergyCost
	}
	if req.EmotionalFriction != nil {
		task.EmotionalFriction = models.ParseFriction(*req.EmotionalFriction)
	}
	if req.AssociatedValue.Set {
		task.AssociatedValue = cleanValue(req.AssociatedValue.Value)
	}
	if req.DueDate.Set {
		due, err := parseDueDate(req.DueDate.Value)
		if err != nil {
			return err
		}
		task.DueDate = due
	}
	if req.IsCompleted != nil {
		task.IsCompleted = *req.IsCompleted
	}
	return nil
}

// parseDueDate accepts an RFC 3339 instant or a YYYY-MM-DD date. Nil or blank means no due date.
func parseDueDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	s := strings.TrimSpace(*raw)
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, validation.Errorf("due_date", "must be an ISO date or timestamp")
}

// cleanValue trims a value tag; blank becomes nil
func cleanValue(v *string) *string {
	if v == nil {
		return nil
	}
	s := validation.SanitizeText(*v)
	if s == "" {
		return nil
	}
	return &s
}
