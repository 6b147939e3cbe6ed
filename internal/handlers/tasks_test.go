package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Azalea224/butler-service-backend/internal/database"
	"github.com/Azalea224/butler-service-backend/internal/models"
	"github.com/Azalea224/butler-service-backend/internal/services/ai"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func newTaskRouter(store *mockTaskStore, parser TaskParser) *mux.Router {
	h := NewTaskHandler(store, parser, zap.NewNop())
	r := mux.NewRouter()
	sub := r.PathPrefix("/api/v1/tasks").Subrouter()
	h.RegisterParseRoute(sub)
	h.RegisterRoutes(sub)
	return r
}

func serve(router http.Handler, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !envelope.Success {
		t.Fatalf("Expected success envelope")
	}
	if err := json.Unmarshal(envelope.Data, dst); err != nil {
		t.Fatalf("Failed to decode data: %v", err)
	}
}

func TestTaskHandler_RequiresUser(t *testing.T) {
	t.Parallel()

	router := newTaskRouter(&mockTaskStore{}, nil)
	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestTaskHandler_ListTasks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		query           string
		expectCompleted bool
	}{
		{"open tasks by default", "", false},
		{"include completed", "?include_completed=true", true},
		{"malformed flag", "?include_completed=maybe", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			user := newTestUser()
			var gotInclude bool
			store := &mockTaskStore{
				listByOwnerFunc: func(_ context.Context, userID uuid.UUID, includeCompleted bool) ([]*models.Task, error) {
					if userID != user.ID {
						t.Errorf("Expected owner %s, got %s", user.ID, userID)
					}
					gotInclude = includeCompleted
					return nil, nil
				},
			}

			req := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/tasks"+tt.query, nil), user)
			w := serve(newTaskRouter(store, nil), req)

			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			if gotInclude != tt.expectCompleted {
				t.Errorf("Expected includeCompleted=%v, got %v", tt.expectCompleted, gotInclude)
			}
			var tasks []models.Task
			decodeData(t, w, &tasks)
			if tasks == nil {
				t.Error("Expected an empty array, not null")
			}
		})
	}
}

func TestTaskHandler_CreateTask(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		body         any
		expectStatus int
		validate     func(*testing.T, *models.Task)
	}{
		{
			name:         "defaults applied",
			body:         map[string]any{"title": "  Write report  "},
			expectStatus: http.StatusCreated,
			validate: func(t *testing.T, task *models.Task) {
				if task.Title != "Write report" {
					t.Errorf("Expected trimmed title, got %q", task.Title)
				}
				if task.EnergyCost != models.DefaultEnergy {
					t.Errorf("Expected default energy %d, got %d", models.DefaultEnergy, task.EnergyCost)
				}
				if task.EmotionalFriction != models.FrictionMedium {
					t.Errorf("Expected Medium friction, got %q", task.EmotionalFriction)
				}
			},
		},
		{
			name: "all fields",
			body: map[string]any{
				"title": "Gym", "energy_cost": 8, "emotional_friction": "high",
				"associated_value": "Health", "due_date": "2025-03-14",
			},
			expectStatus: http.StatusCreated,
			validate: func(t *testing.T, task *models.Task) {
				if task.EmotionalFriction != models.FrictionHigh {
					t.Errorf("Expected High friction, got %q", task.EmotionalFriction)
				}
				if task.AssociatedValue == nil || *task.AssociatedValue != "Health" {
					t.Errorf("Expected associated value Health, got %v", task.AssociatedValue)
				}
				want := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
				if task.DueDate == nil || !task.DueDate.Equal(want) {
					t.Errorf("Expected due date %v, got %v", want, task.DueDate)
				}
			},
		},
		{"missing title", map[string]any{"description": "x"}, http.StatusBadRequest, nil},
		{"energy out of range", map[string]any{"title": "x", "energy_cost": 11}, http.StatusBadRequest, nil},
		{"unknown friction", map[string]any{"title": "x", "emotional_friction": "extreme"}, http.StatusBadRequest, nil},
		{"title too long", map[string]any{"title": strings.Repeat("a", 201)}, http.StatusBadRequest, nil},
		{"bad due date", map[string]any{"title": "x", "due_date": "tomorrow"}, http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			user := newTestUser()
			var created *models.Task
			store := &mockTaskStore{
				createFunc: func(_ context.Context, task *models.Task) error {
					created = task
					return nil
				},
			}

			req := withUser(newTestRequest(http.MethodPost, "/api/v1/tasks", tt.body), user)
			w := serve(newTaskRouter(store, nil), req)

			if w.Code != tt.expectStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectStatus, w.Code, w.Body.String())
			}
			if tt.validate == nil {
				if created != nil {
					t.Error("Expected nothing to be stored")
				}
				return
			}
			if created.UserID != user.ID {
				t.Errorf("Expected owner %s, got %s", user.ID, created.UserID)
			}
			tt.validate(t, created)
		})
	}
}

func TestTaskHandler_UpdateTask(t *testing.T) {
	t.Parallel()

	value := "Career"
	due := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		method       string
		body         string
		expectStatus int
		validate     func(*testing.T, *models.Task)
	}{
		{
			name:         "partial update keeps other fields",
			method:       http.MethodPatch,
			body:         `{"title":"Renamed"}`,
			expectStatus: http.StatusOK,
			validate: func(t *testing.T, task *models.Task) {
				if task.Title != "Renamed" || task.EnergyCost != 4 {
					t.Errorf("Unexpected task after update: %+v", task)
				}
				if task.AssociatedValue == nil || task.DueDate == nil {
					t.Error("Expected absent fields to be kept")
				}
			},
		},
		{
			name:         "explicit null clears",
			method:       http.MethodPut,
			body:         `{"associated_value":null,"due_date":null}`,
			expectStatus: http.StatusOK,
			validate: func(t *testing.T, task *models.Task) {
				if task.AssociatedValue != nil || task.DueDate != nil {
					t.Errorf("Expected cleared fields, got %v %v", task.AssociatedValue, task.DueDate)
				}
			},
		},
		{
			name:         "friction normalized",
			method:       http.MethodPatch,
			body:         `{"emotional_friction":"LOW","energy_cost":2}`,
			expectStatus: http.StatusOK,
			validate: func(t *testing.T, task *models.Task) {
				if task.EmotionalFriction != models.FrictionLow || task.EnergyCost != 2 {
					t.Errorf("Unexpected task after update: %+v", task)
				}
			},
		},
		{"empty title", http.MethodPatch, `{"title":"   "}`, http.StatusBadRequest, nil},
		{"energy zero", http.MethodPatch, `{"energy_cost":0}`, http.StatusBadRequest, nil},
		{"bad friction", http.MethodPatch, `{"emotional_friction":"none"}`, http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			user := newTestUser()
			taskID := uuid.New()
			var updated *models.Task
			store := &mockTaskStore{
				getByIDFunc: func(_ context.Context, userID, id uuid.UUID) (*models.Task, error) {
					v, d := value, due
					return &models.Task{
						ID: id, UserID: userID, Title: "Original", EnergyCost: 4,
						EmotionalFriction: models.FrictionMedium, AssociatedValue: &v, DueDate: &d,
					}, nil
				},
				updateFunc: func(_ context.Context, task *models.Task) error {
					updated = task
					return nil
				},
			}

			req := withUser(httptest.NewRequest(tt.method, "/api/v1/tasks/"+taskID.String(), strings.NewReader(tt.body)), user)
			w := serve(newTaskRouter(store, nil), req)

			if w.Code != tt.expectStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectStatus, w.Code, w.Body.String())
			}
			if tt.validate == nil {
				if updated != nil {
					t.Error("Expected no update")
				}
				return
			}
			tt.validate(t, updated)
		})
	}
}

func TestTaskHandler_NotFoundAndInvalidID(t *testing.T) {
	t.Parallel()

	user := newTestUser()
	missing := fmt.Errorf("task not found: %w", database.ErrNotFound)
	store := &mockTaskStore{
		getByIDFunc: func(context.Context, uuid.UUID, uuid.UUID) (*models.Task, error) { return nil, missing },
		completeFunc: func(context.Context, uuid.UUID, uuid.UUID) (*models.Task, error) {
			return nil, missing
		},
		deleteFunc: func(context.Context, uuid.UUID, uuid.UUID) error { return missing },
	}
	router := newTaskRouter(store, nil)
	id := uuid.New().String()

	tests := []struct {
		name         string
		method       string
		path         string
		expectStatus int
	}{
		{"get missing", http.MethodGet, "/api/v1/tasks/" + id, http.StatusNotFound},
		{"delete missing", http.MethodDelete, "/api/v1/tasks/" + id, http.StatusNotFound},
		{"complete missing", http.MethodPatch, "/api/v1/tasks/" + id + "/complete", http.StatusNotFound},
		{"invalid id", http.MethodGet, "/api/v1/tasks/not-a-uuid", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := serve(router, withUser(httptest.NewRequest(tt.method, tt.path, nil), user))
			if w.Code != tt.expectStatus {
				t.Errorf("Expected status %d, got %d", tt.expectStatus, w.Code)
			}
		})
	}
}

func TestTaskHandler_DeleteAndComplete(t *testing.T) {
	t.Parallel()

	user := newTestUser()
	taskID := uuid.New()
	store := &mockTaskStore{
		deleteFunc: func(_ context.Context, userID, id uuid.UUID) error {
			if userID != user.ID || id != taskID {
				return database.ErrNotFound
			}
			return nil
		},
		completeFunc: func(_ context.Context, userID, id uuid.UUID) (*models.Task, error) {
			now := time.Now()
			return &models.Task{ID: id, UserID: userID, IsCompleted: true, CompletedAt: &now}, nil
		},
	}
	router := newTaskRouter(store, nil)

	w := serve(router, withUser(httptest.NewRequest(http.MethodDelete, "/api/v1/tasks/"+taskID.String(), nil), user))
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}

	w = serve(router, withUser(httptest.NewRequest(http.MethodPost, "/api/v1/tasks/"+taskID.String()+"/complete", nil), user))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var task models.Task
	decodeData(t, w, &task)
	if !task.IsCompleted || task.CompletedAt == nil {
		t.Errorf("Expected completed task, got %+v", task)
	}
}

func TestTaskHandler_ParseTask(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		parseErr     error
		expectStatus int
	}{
		{"draft returned", nil, http.StatusOK},
		{"model unconfigured", &ai.Error{Kind: ai.KindServiceUnconfigured, Op: "invoke"}, http.StatusServiceUnavailable},
		{"model rate limited", ai.NewStatusError("generate", http.StatusTooManyRequests, "quota", nil), http.StatusTooManyRequests},
		{"unexpected failure", errors.New("unexpected"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			user := newTestUser()
			var created bool
			store := &mockTaskStore{createFunc: func(context.Context, *models.Task) error {
				created = true
				return nil
			}}
			parser := &mockParser{parseFunc: func(_ context.Context, _ uuid.UUID, text string) (*models.ParsedTaskDraft, error) {
				if tt.parseErr != nil {
					return nil, tt.parseErr
				}
				return &models.ParsedTaskDraft{Title: text, EnergyCost: 3, EmotionalFriction: models.FrictionLow}, nil
			}}

			req := withUser(newTestRequest(http.MethodPost, "/api/v1/tasks/parse", ParseTaskRequest{Text: "call mom"}), user)
			w := serve(newTaskRouter(store, parser), req)

			if w.Code != tt.expectStatus {
				t.Fatalf("Expected status %d, got %d", tt.expectStatus, w.Code)
			}
			if created {
				t.Error("Expected parse not to store a task")
			}
			if tt.parseErr == nil {
				var draft models.ParsedTaskDraft
				decodeData(t, w, &draft)
				if draft.Title != "call mom" {
					t.Errorf("Expected draft title, got %q", draft.Title)
				}
			}
		})
	}
}
