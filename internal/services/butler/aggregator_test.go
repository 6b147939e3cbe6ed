package butler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Azalea224/butler-service-backend/internal/database"
	"github.com/Azalea224/butler-service-backend/internal/models"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func newTestUser(id uuid.UUID) *models.User {
	return &models.User{ID: id, Email: "ada@example.com", Name: "Ada", CoreValues: []string{"family"}, BaselineEnergy: 6}
}

func TestAggregator_Aggregate(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	open := &models.Task{ID: uuid.New(), UserID: userID, Title: "Walk", EnergyCost: 2, EmotionalFriction: models.FrictionLow}
	done := &models.Task{ID: uuid.New(), UserID: userID, Title: "Done", IsCompleted: true}
	foreign := &models.Task{ID: uuid.New(), UserID: uuid.New(), Title: "Not mine"}

	users := &mockUserStore{getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.User, error) {
		return newTestUser(id), nil
	}}
	tasks := &mockTaskStore{findOpenByOwnerFunc: func(ctx context.Context, id uuid.UUID) ([]*models.Task, error) {
		return []*models.Task{open, done, foreign}, nil
	}}
	moods := &mockLogStore{findRecentMoodsFunc: func(ctx context.Context, id uuid.UUID, limit int) ([]models.MoodObservation, error) {
		if limit != RecentMoodLimit {
			t.Errorf("Expected mood limit %d, got %d", RecentMoodLimit, limit)
		}
		return []models.MoodObservation{{Mood: "tired", Energy: 3, Timestamp: fixedNow}}, nil
	}}
	chats := &mockChatStore{turns: []models.ChatTurn{
		{UserID: userID, Role: models.ChatRoleUser, Message: "first", Timestamp: fixedNow.Add(-2 * time.Minute)},
		{UserID: userID, Role: models.ChatRoleAssistant, Message: "second", Timestamp: fixedNow.Add(-time.Minute)},
	}}

	uc, err := NewAggregator(users, tasks, moods, chats).Aggregate(context.Background(), userID, AggregateOptions{
		Message:      "hi",
		IncludeTasks: true,
		ChatWindow:   ChatWindow,
	})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if diff := cmp.Diff([]models.TaskSummary{open.Summary()}, uc.Tasks); diff != "" {
		t.Errorf("tasks mismatch (-want +got):\n%s", diff)
	}
	if uc.Name != "Ada" || uc.BaselineEnergy != 6 || uc.Message != "hi" {
		t.Errorf("Unexpected profile fields: %+v", uc)
	}
	if len(uc.History) != 2 || uc.History[0].Message != "first" || uc.History[1].Message != "second" {
		t.Errorf("Expected chronological history, got %+v", uc.History)
	}
	if chats.lastLimit != ChatWindow {
		t.Errorf("Expected chat window %d, got %d", ChatWindow, chats.lastLimit)
	}
	if uc.CurrentMood() != "tired" || uc.CurrentEnergy() != 3 {
		t.Errorf("Expected latest mood tired/3, got %s/%d", uc.CurrentMood(), uc.CurrentEnergy())
	}
}

func TestAggregator_SkipsOptionalReads(t *testing.T) {
	t.Parallel()

	users := &mockUserStore{getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.User, error) {
		return newTestUser(id), nil
	}}
	tasks := &mockTaskStore{findOpenByOwnerFunc: func(ctx context.Context, id uuid.UUID) ([]*models.Task, error) {
		t.Error("Expected tasks not to be loaded")
		return nil, nil
	}}
	chats := &mockChatStore{}

	uc, err := NewAggregator(users, tasks, &mockLogStore{}, chats).Aggregate(context.Background(), uuid.New(), AggregateOptions{})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(uc.Tasks) != 0 || len(uc.History) != 0 {
		t.Errorf("Expected no tasks or history, got %+v", uc)
	}
	if chats.lastLimit != 0 {
		t.Error("Expected chat history not to be loaded")
	}
	if uc.CurrentMood() != "unknown" || uc.CurrentEnergy() != 6 {
		t.Errorf("Expected unknown mood at baseline energy, got %s/%d", uc.CurrentMood(), uc.CurrentEnergy())
	}
}

func TestAggregator_Errors(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")

	tests := []struct {
		name    string
		users   *mockUserStore
		tasks   *mockTaskStore
		wantErr error
	}{
		{
			name:    "unknown user",
			users:   &mockUserStore{},
			tasks:   &mockTaskStore{},
			wantErr: database.ErrNotFound,
		},
		{
			name: "task store failure",
			users: &mockUserStore{getByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.User, error) {
				return newTestUser(id), nil
			}},
			tasks: &mockTaskStore{findOpenByOwnerFunc: func(ctx context.Context, id uuid.UUID) ([]*models.Task, error) {
				return nil, boom
			}},
			wantErr: boom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewAggregator(tt.users, tt.tasks, &mockLogStore{}, &mockChatStore{}).
				Aggregate(context.Background(), uuid.New(), AggregateOptions{IncludeTasks: true})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestUserContext_WithObservation(t *testing.T) {
	t.Parallel()

	uc := &UserContext{RecentMoods: []models.MoodObservation{{Mood: "a"}, {Mood: "b"}, {Mood: "c"}}}
	next := uc.withObservation(models.MoodObservation{Mood: "now", Energy: 8})

	got := make([]string, 0, len(next.RecentMoods))
	for _, m := range next.RecentMoods {
		got = append(got, m.Mood)
	}
	if diff := cmp.Diff([]string{"now", "a", "b"}, got); diff != "" {
		t.Errorf("moods mismatch (-want +got):\n%s", diff)
	}
	if len(uc.RecentMoods) != 3 || uc.RecentMoods[0].Mood != "a" {
		t.Error("Expected original context to be unchanged")
	}
	if next.CurrentEnergy() != 8 {
		t.Errorf("Expected current energy 8, got %d", next.CurrentEnergy())
	}
}
