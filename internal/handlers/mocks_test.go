package handlers

import (
	"context"
	"net/http"

	"github.com/Azalea224/butler-service-backend/internal/database"
	"github.com/Azalea224/butler-service-backend/internal/models"
	"github.com/Azalea224/butler-service-backend/internal/request"
	"github.com/Azalea224/butler-service-backend/internal/services/auth"
	"github.com/Azalea224/butler-service-backend/internal/services/butler"
	"github.com/google/uuid"
)

type mockTaskStore struct {
	createFunc      func(ctx context.Context, task *models.Task) error
	getByIDFunc     func(ctx context.Context, userID, id uuid.UUID) (*models.Task, error)
	listByOwnerFunc func(ctx context.Context, userID uuid.UUID, includeCompleted bool) ([]*models.Task, error)
	updateFunc      func(ctx context.Context, task *models.Task) error
	completeFunc    func(ctx context.Context, userID, id uuid.UUID) (*models.Task, error)
	deleteFunc      func(ctx context.Context, userID, id uuid.UUID) error
}

var _ database.TaskStore = (*mockTaskStore)(nil)

func (m *mockTaskStore) Create(ctx context.Context, task *models.Task) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, task)
	}
	return nil
}

func (m *mockTaskStore) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Task, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, userID, id)
	}
	return nil, database.ErrNotFound
}

func (m *mockTaskStore) ListByOwner(ctx context.Context, userID uuid.UUID, includeCompleted bool) ([]*models.Task, error) {
	if m.listByOwnerFunc != nil {
		return m.listByOwnerFunc(ctx, userID, includeCompleted)
	}
	return nil, nil
}

func (m *mockTaskStore) FindOpenByOwner(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	return m.ListByOwner(ctx, userID, false)
}

func (m *mockTaskStore) Update(ctx context.Context, task *models.Task) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, task)
	}
	return nil
}

func (m *mockTaskStore) Complete(ctx context.Context, userID, id uuid.UUID) (*models.Task, error) {
	if m.completeFunc != nil {
		return m.completeFunc(ctx, userID, id)
	}
	return nil, database.ErrNotFound
}

func (m *mockTaskStore) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, userID, id)
	}
	return nil
}

type mockParser struct {
	parseFunc func(ctx context.Context, userID uuid.UUID, text string) (*models.ParsedTaskDraft, error)
}

var _ TaskParser = (*mockParser)(nil)

func (m *mockParser) ParseTask(ctx context.Context, userID uuid.UUID, text string) (*models.ParsedTaskDraft, error) {
	return m.parseFunc(ctx, userID, text)
}

type mockAccounts struct {
	registerFunc func(ctx context.Context, in auth.RegisterInput) (*auth.Session, error)
	loginFunc    func(ctx context.Context, in auth.LoginInput) (*auth.Session, error)
}

var _ Accounts = (*mockAccounts)(nil)

func (m *mockAccounts) Register(ctx context.Context, in auth.RegisterInput) (*auth.Session, error) {
	return m.registerFunc(ctx, in)
}

func (m *mockAccounts) Login(ctx context.Context, in auth.LoginInput) (*auth.Session, error) {
	return m.loginFunc(ctx, in)
}

// mockButler implements ButlerService. Unset funcs return zero values.
type mockButler struct {
	consultFunc       func(ctx context.Context, userID uuid.UUID, req butler.ConsultRequest) (*butler.ConsultResponse, error)
	historyFunc       func(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ContextLog, error)
	updateProfileFunc func(ctx context.Context, userID uuid.UUID, upd butler.ProfileUpdate) (*models.Profile, error)
	logMoodFunc       func(ctx context.Context, userID uuid.UUID, in butler.MoodInput) (*models.ContextLog, error)
	moodsFunc         func(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ContextLog, error)
	chatFunc          func(ctx context.Context, userID uuid.UUID, message string) (*butler.ChatResponse, error)
	chatHistoryFunc   func(ctx context.Context, userID uuid.UUID, limit int) ([]models.ChatTurn, error)
	clearChatFunc     func(ctx context.Context, userID uuid.UUID) (int64, error)
}

var _ ButlerService = (*mockButler)(nil)

func (m *mockButler) Consult(ctx context.Context, userID uuid.UUID, req butler.ConsultRequest) (*butler.ConsultResponse, error) {
	if m.consultFunc != nil {
		return m.consultFunc(ctx, userID, req)
	}
	return &butler.ConsultResponse{}, nil
}

func (m *mockButler) History(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ContextLog, error) {
	if m.historyFunc != nil {
		return m.historyFunc(ctx, userID, limit)
	}
	return nil, nil
}

func (m *mockButler) UpdateProfile(ctx context.Context, userID uuid.UUID, upd butler.ProfileUpdate) (*models.Profile, error) {
	if m.updateProfileFunc != nil {
		return m.updateProfileFunc(ctx, userID, upd)
	}
	return &models.Profile{ID: userID}, nil
}

func (m *mockButler) LogMood(ctx context.Context, userID uuid.UUID, in butler.MoodInput) (*models.ContextLog, error) {
	if m.logMoodFunc != nil {
		return m.logMoodFunc(ctx, userID, in)
	}
	return &models.ContextLog{ID: uuid.New(), UserID: userID}, nil
}

func (m *mockButler) Moods(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ContextLog, error) {
	if m.moodsFunc != nil {
		return m.moodsFunc(ctx, userID, limit)
	}
	return nil, nil
}

func (m *mockButler) Chat(ctx context.Context, userID uuid.UUID, message string) (*butler.ChatResponse, error) {
	if m.chatFunc != nil {
		return m.chatFunc(ctx, userID, message)
	}
	return &butler.ChatResponse{}, nil
}

func (m *mockButler) ChatHistory(ctx context.Context, userID uuid.UUID, limit int) ([]models.ChatTurn, error) {
	if m.chatHistoryFunc != nil {
		return m.chatHistoryFunc(ctx, userID, limit)
	}
	return nil, nil
}

func (m *mockButler) ClearChat(ctx context.Context, userID uuid.UUID) (int64, error) {
	if m.clearChatFunc != nil {
		return m.clearChatFunc(ctx, userID)
	}
	return 0, nil
}

func newTestUser() *models.User {
	return &models.User{
		ID:             uuid.New(),
		Email:          "ada@example.com",
		Name:           "Ada",
		CoreValues:     []string{"Health"},
		BaselineEnergy: 6,
	}
}

// withUser attaches user to the request the way the auth middleware does
func withUser(r *http.Request, user *models.User) *http.Request {
	return r.WithContext(request.WithUser(r.Context(), user))
}
