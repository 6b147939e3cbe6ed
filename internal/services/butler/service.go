package butler

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Azalea224/butler-service-backend/internal/database"
	"github.com/Azalea224/butler-service-backend/internal/models"
	"github.com/Azalea224/butler-service-backend/internal/queue"
	"github.com/Azalea224/butler-service-backend/internal/services/ai"
	"github.com/Azalea224/butler-service-backend/internal/telemetry"
	"github.com/Azalea224/butler-service-backend/internal/validation"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	maxMessageLength = 2000
	maxParseLength   = 1000
	maxMoodLength    = 50

	defaultHistoryLimit     = 10
	maxHistoryLimit         = 50
	defaultChatHistoryLimit = 20
	maxChatHistoryLimit     = 100

	// chatFallbackReply is sent when the model answers with empty text
	chatFallbackReply = "I'm having trouble thinking right now. Perhaps take a moment to breathe, and we can try again."
)

// Invoker calls the generative model. *ai.Client implements it.
type Invoker interface {
	Invoke(ctx context.Context, tpl ai.Template, prompt string) (string, error)
}

var _ Invoker = (*ai.Client)(nil)

// Deps are the collaborators of a Service
type Deps struct {
	Users  database.UserStore
	Tasks  database.TaskStore
	Logs   database.MoodLogStore
	Chats  database.ChatLogStore
	Client Invoker
	// Jobs receives mood analysis jobs. Nil leaves raw check-ins pending.
	Jobs   queue.Enqueuer
	Logger *zap.Logger
	Now    func() time.Time
}

// Service runs the butler pipeline: aggregate, compose, invoke, normalize, record
type Service struct {
	aggregator *Aggregator
	composer   *Composer
	client     Invoker
	recorder   *Recorder
	users      database.UserStore
	logs       database.MoodLogStore
	jobs       queue.Enqueuer
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates the butler service
func NewService(deps Deps) *Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		aggregator: NewAggregator(deps.Users, deps.Tasks, deps.Logs, deps.Chats),
		composer:   NewComposer(now),
		client:     deps.Client,
		recorder:   NewRecorder(deps.Logs, deps.Chats, now),
		users:      deps.Users,
		logs:       deps.Logs,
		jobs:       deps.Jobs,
		logger:     logger,
		now:        now,
	}
}

// ConsultRequest is the input of a consultation. Mood and Energy describe the user's
// state right now and take precedence over the logged history.
type ConsultRequest struct {
	Message string
	Mood    string
	Energy  *int
}

// ConsultResponse is the normalized recommendation plus the log it was recorded under
type ConsultResponse struct {
	models.RecommendationResult
	RecommendedTask *models.TaskSummary `json:"recommended_task,omitempty"`
	ContextLogID    uuid.UUID           `json:"context_log_id"`
}

// Consult asks the model to pick at most one of the user's open tasks
func (s *Service) Consult(ctx context.Context, userID uuid.UUID, req ConsultRequest) (resp *ConsultResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "butler.consult", attribute.String("user_id", userID.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	message := validation.SanitizeText(req.Message)
	mood := validation.SanitizeText(req.Mood)
	if err := checkLength("message", message, maxMessageLength); err != nil {
		return nil, err
	}
	if err := checkLength("current_mood", mood, maxMoodLength); err != nil {
		return nil, err
	}
	if err := checkEnergy("current_energy", req.Energy); err != nil {
		return nil, err
	}

	uc, err := s.aggregator.Aggregate(ctx, userID, AggregateOptions{Message: message, IncludeTasks: true})
	if err != nil {
		return nil, err
	}
	if mood != "" || req.Energy != nil {
		obs := models.MoodObservation{Mood: mood, Energy: uc.CurrentEnergy(), RawInput: message, Timestamp: s.now()}
		if obs.Mood == "" {
			obs.Mood = uc.CurrentMood()
		}
		if req.Energy != nil {
			obs.Energy = *req.Energy
		}
		uc = uc.withObservation(obs)
	}
	span.SetAttributes(attribute.Int("task_count", len(uc.Tasks)))

	prompt, err := s.composer.Compose(ai.TemplateRecommendation, uc)
	if err != nil {
		return nil, err
	}
	raw, err := s.invoke(ctx, ai.TemplateRecommendation, prompt)
	if err != nil {
		return nil, err
	}

	result := NormalizeRecommendation(raw, uc.OfferedIDs())
	log, err := s.recorder.RecordConsultation(ctx, uc, result)
	if err != nil {
		return nil, err
	}

	resp = &ConsultResponse{RecommendationResult: result, ContextLogID: log.ID}
	if result.ChosenTaskID != nil {
		for i := range uc.Tasks {
			if uc.Tasks[i].ID == *result.ChosenTaskID {
				task := uc.Tasks[i]
				resp.RecommendedTask = &task
				break
			}
		}
	}

	s.logger.Info("butler_consultation",
		zap.String("user_id", userID.String()),
		zap.String("context_log_id", log.ID.String()),
		zap.Int("task_count", len(uc.Tasks)),
		zap.Bool("task_chosen", result.ChosenTaskID != nil),
	)
	return resp, nil
}

// ChatResponse is one assistant turn
type ChatResponse struct {
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// Chat sends the message with the recent conversation and records both turns
func (s *Service) Chat(ctx context.Context, userID uuid.UUID, message string) (resp *ChatResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "butler.chat", attribute.String("user_id", userID.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	message = validation.SanitizeText(message)
	if message == "" {
		return nil, validation.Errorf("message", "is required")
	}
	if err := checkLength("message", message, maxMessageLength); err != nil {
		return nil, err
	}

	uc, err := s.aggregator.Aggregate(ctx, userID, AggregateOptions{Message: message, IncludeTasks: true, ChatWindow: ChatWindow})
	if err != nil {
		return nil, err
	}

	prompt, err := s.composer.Compose(ai.TemplateChat, uc)
	if err != nil {
		return nil, err
	}
	raw, err := s.invoke(ctx, ai.TemplateChat, prompt)
	if err != nil {
		return nil, err
	}

	reply := strings.TrimSpace(raw)
	if reply == "" {
		reply = chatFallbackReply
	}
	turn, err := s.recorder.RecordChatExchange(ctx, userID, message, reply)
	if err != nil {
		return nil, err
	}

	return &ChatResponse{Response: turn.Message, Timestamp: turn.Timestamp}, nil
}

// ParseTask turns a sentence into a task draft. Nothing is persisted.
func (s *Service) ParseTask(ctx context.Context, userID uuid.UUID, text string) (draft *models.ParsedTaskDraft, err error) {
	ctx, span := telemetry.StartSpan(ctx, "butler.parse_task", attribute.String("user_id", userID.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	text = validation.SanitizeText(text)
	if text == "" {
		return nil, validation.Errorf("text", "is required")
	}
	if err := checkLength("text", text, maxParseLength); err != nil {
		return nil, err
	}

	prompt, err := s.composer.Compose(ai.TemplateParse, &UserContext{UserID: userID, Message: text})
	if err != nil {
		return nil, err
	}
	raw, err := s.invoke(ctx, ai.TemplateParse, prompt)
	if err != nil {
		return nil, err
	}

	parsed := NormalizeParsedTask(raw, text)
	return &parsed, nil
}

// MoodInput is a mood check-in. At least one of Mood and RawInput is required.
type MoodInput struct {
	Mood     string
	Energy   *int
	RawInput string
}

// LogMood records a check-in. A check-in with text but no label is stored as pending and
// labeled later by the mood analysis worker.
func (s *Service) LogMood(ctx context.Context, userID uuid.UUID, in MoodInput) (*models.ContextLog, error) {
	mood := validation.SanitizeText(in.Mood)
	raw := validation.SanitizeText(in.RawInput)
	if mood == "" && raw == "" {
		return nil, validation.Errorf("mood", "mood or raw_input is required")
	}
	if err := checkLength("mood", mood, maxMoodLength); err != nil {
		return nil, err
	}
	if err := checkLength("raw_input", raw, maxParseLength); err != nil {
		return nil, err
	}
	if err := checkEnergy("energy", in.Energy); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	log := &models.ContextLog{
		UserID:   userID,
		RawInput: raw,
		Mood:     mood,
		Energy:   user.BaselineEnergy,
	}
	if in.Energy != nil {
		log.Energy = *in.Energy
	}
	pending := mood == ""
	if pending {
		log.Mood = models.MoodPending
	}

	if err := s.recorder.RecordMood(ctx, log); err != nil {
		return nil, err
	}

	if pending && s.jobs != nil {
		job := queue.NewMoodAnalysisJob(userID, log.ID, in.Energy != nil)
		if err := s.jobs.Enqueue(ctx, job); err != nil {
			s.logger.Warn("mood_analysis_enqueue_failed",
				zap.String("user_id", userID.String()),
				zap.String("context_log_id", log.ID.String()),
				zap.Error(err),
			)
		}
	}

	return log, nil
}

// AnalyzeMood labels a pending check-in. Logs that are no longer pending are left untouched
// and reported as nil.
func (s *Service) AnalyzeMood(ctx context.Context, logID uuid.UUID, keepEnergy bool) (estimate *models.MoodEstimate, err error) {
	ctx, span := telemetry.StartSpan(ctx, "butler.analyze_mood", attribute.String("context_log_id", logID.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	log, err := s.logs.GetByID(ctx, logID)
	if err != nil {
		return nil, err
	}
	if log.Kind != models.ContextLogKindMood || log.Mood != models.MoodPending {
		return nil, nil
	}

	prompt, err := s.composer.Compose(ai.TemplateMoodAnalysis, &UserContext{UserID: log.UserID, Message: log.RawInput})
	if err != nil {
		return nil, err
	}
	raw, err := s.invoke(ctx, ai.TemplateMoodAnalysis, prompt)
	if err != nil {
		return nil, err
	}

	est := NormalizeMoodEstimate(raw)
	if keepEnergy {
		est.EnergyEstimate = models.ClampEnergy(log.Energy)
	}
	if err := s.logs.UpdateMoodAnalysis(ctx, logID, est); err != nil {
		return nil, err
	}
	return &est, nil
}

// History returns the user's latest consultations, most recent first
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ContextLog, error) {
	return s.recorder.RecentConsultations(ctx, userID, clampLimit(limit, defaultHistoryLimit, maxHistoryLimit))
}

// Moods returns the user's latest mood check-ins, most recent first
func (s *Service) Moods(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ContextLog, error) {
	return s.recorder.RecentMoods(ctx, userID, clampLimit(limit, defaultHistoryLimit, maxHistoryLimit))
}

// ChatHistory returns the user's latest chat turns in chronological order
func (s *Service) ChatHistory(ctx context.Context, userID uuid.UUID, limit int) ([]models.ChatTurn, error) {
	turns, err := s.recorder.RecentChat(ctx, userID, clampLimit(limit, defaultChatHistoryLimit, maxChatHistoryLimit))
	if err != nil {
		return nil, err
	}
	return chronological(turns), nil
}

// ClearChat deletes all of the user's chat turns
func (s *Service) ClearChat(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.recorder.ClearChat(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("chat_history_cleared", zap.String("user_id", userID.String()), zap.Int64("deleted", n))
	return n, nil
}

// ProfileUpdate holds the profile fields to change. Nil fields are left as they are.
type ProfileUpdate struct {
	Name           *string
	CoreValues     []string
	BaselineEnergy *int
}

// UpdateProfile changes the user's name, core values or baseline energy
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, upd ProfileUpdate) (*models.Profile, error) {
	if err := checkEnergy("baseline_energy", upd.BaselineEnergy); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		name := validation.SanitizeText(*upd.Name)
		if utf8.RuneCountInString(name) < 2 {
			return nil, validation.Errorf("name", "must be at least 2 characters")
		}
		user.Name = name
	}
	if upd.CoreValues != nil {
		user.CoreValues = validation.SanitizeValues(upd.CoreValues)
	}
	if upd.BaselineEnergy != nil {
		user.BaselineEnergy = *upd.BaselineEnergy
	}

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	profile := user.Profile()
	return &profile, nil
}

func (s *Service) invoke(ctx context.Context, tpl ai.Template, prompt string) (string, error) {
	if s.client == nil {
		return "", &ai.Error{Kind: ai.KindServiceUnconfigured, Op: "invoke " + string(tpl), Err: ai.ErrServiceUnconfigured}
	}
	raw, err := s.client.Invoke(ctx, tpl, prompt)
	if err != nil {
		s.logger.Warn("llm_invoke_failed",
			zap.String("template", string(tpl)),
			zap.String("kind", string(ai.KindOf(err))),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to invoke model: %w", err)
	}
	return raw, nil
}

func checkLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return validation.Errorf(field, "must be at most %d characters", max)
	}
	return nil
}

func checkEnergy(field string, v *int) error {
	if v != nil && (*v < models.MinEnergy || *v > models.MaxEnergy) {
		return validation.Errorf(field, "must be between %d and %d", models.MinEnergy, models.MaxEnergy)
	}
	return nil
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
