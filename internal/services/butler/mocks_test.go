package butler

import (
	"context"
	"sync"

	"github.com/Azalea224/butler-service-backend/internal/database"
	"github.com/Azalea224/butler-service-backend/internal/models"
	"github.com/Azalea224/butler-service-backend/internal/queue"
	"github.com/Azalea224/butler-service-backend/internal/services/ai"
	"github.com/google/uuid"
)

type mockUserStore struct {
	getByIDFunc         func(ctx context.Context, id uuid.UUID) (*models.User, error)
	updateProfileFunc   func(ctx context.Context, user *models.User) error
	touchLastActiveFunc func(ctx context.Context, id uuid.UUID) error
}

func (m *mockUserStore) Create(ctx context.Context, user *models.User) error { return nil }

func (m *mockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, database.ErrNotFound
}

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, database.ErrNotFound
}

func (m *mockUserStore) UpdateProfile(ctx context.Context, user *models.User) error {
	if m.updateProfileFunc != nil {
		return m.updateProfileFunc(ctx, user)
	}
	return nil
}

func (m *mockUserStore) TouchLastActive(ctx context.Context, id uuid.UUID) error {
	if m.touchLastActiveFunc != nil {
		return m.touchLastActiveFunc(ctx, id)
	}
	return nil
}

type mockTaskStore struct {
	findOpenByOwnerFunc func(ctx context.Context, userID uuid.UUID) ([]*models.Task, error)
}

func (m *mockTaskStore) Create(ctx context.Context, task *models.Task) error { return nil }

func (m *mockTaskStore) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Task, error) {
	return nil, database.ErrNotFound
}

func (m *mockTaskStore) ListByOwner(ctx context.Context, userID uuid.UUID, includeCompleted bool) ([]*models.Task, error) {
	return nil, nil
}

func (m *mockTaskStore) FindOpenByOwner(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	if m.findOpenByOwnerFunc != nil {
		return m.findOpenByOwnerFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockTaskStore) Update(ctx context.Context, task *models.Task) error { return nil }

func (m *mockTaskStore) Complete(ctx context.Context, userID, id uuid.UUID) (*models.Task, error) {
	return nil, database.ErrNotFound
}

func (m *mockTaskStore) Delete(ctx context.Context, userID, id uuid.UUID) error { return nil }

// mockLogStore keeps appended logs in memory
type mockLogStore struct {
	mu                     sync.Mutex
	appended               []*models.ContextLog
	updated                map[uuid.UUID]models.MoodEstimate
	appendErr              error
	findRecentMoodsFunc    func(ctx context.Context, userID uuid.UUID, limit int) ([]models.MoodObservation, error)
	getByIDFunc            func(ctx context.Context, id uuid.UUID) (*models.ContextLog, error)
	findConsultationsLimit int
}

func (m *mockLogStore) Append(ctx context.Context, log *models.ContextLog) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appended = append(m.appended, log)
	return nil
}

func (m *mockLogStore) GetByID(ctx context.Context, id uuid.UUID) (*models.ContextLog, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, database.ErrNotFound
}

func (m *mockLogStore) FindRecentMoods(ctx context.Context, userID uuid.UUID, limit int) ([]models.MoodObservation, error) {
	if m.findRecentMoodsFunc != nil {
		return m.findRecentMoodsFunc(ctx, userID, limit)
	}
	return nil, nil
}

func (m *mockLogStore) FindRecentMoodLogs(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ContextLog, error) {
	return nil, nil
}

func (m *mockLogStore) FindRecentConsultations(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ContextLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findConsultationsLimit = limit
	return nil, nil
}

func (m *mockLogStore) UpdateMoodAnalysis(ctx context.Context, id uuid.UUID, estimate models.MoodEstimate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updated == nil {
		m.updated = make(map[uuid.UUID]models.MoodEstimate)
	}
	m.updated[id] = estimate
	return nil
}

// mockChatStore returns history most recent first like the repository does
type mockChatStore struct {
	mu        sync.Mutex
	turns     []models.ChatTurn
	lastLimit int
}

func (m *mockChatStore) Append(ctx context.Context, turn *models.ChatTurn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, *turn)
	return nil
}

func (m *mockChatStore) FindRecentByOwner(ctx context.Context, userID uuid.UUID, limit int) ([]models.ChatTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	var out []models.ChatTurn
	for i := len(m.turns) - 1; i >= 0 && len(out) < limit; i-- {
		if m.turns[i].UserID == userID {
			out = append(out, m.turns[i])
		}
	}
	return out, nil
}

func (m *mockChatStore) DeleteAllByOwner(ctx context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.turns[:0]
	var n int64
	for _, t := range m.turns {
		if t.UserID == userID {
			n++
			continue
		}
		kept = append(kept, t)
	}
	m.turns = kept
	return n, nil
}

type mockInvoker struct {
	invokeFunc func(ctx context.Context, tpl ai.Template, prompt string) (string, error)
	calls      []ai.Template
	prompts    []string
}

func (m *mockInvoker) Invoke(ctx context.Context, tpl ai.Template, prompt string) (string, error) {
	m.calls = append(m.calls, tpl)
	m.prompts = append(m.prompts, prompt)
	if m.invokeFunc != nil {
		return m.invokeFunc(ctx, tpl, prompt)
	}
	return "", nil
}

type mockEnqueuer struct {
	jobs []*queue.Job
	err  error
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, job *queue.Job) error {
	if m.err != nil {
		return m.err
	}
	m.jobs = append(m.jobs, job)
	return nil
}
