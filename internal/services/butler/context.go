package butler

import (
	"github.com/Azalea224/butler-service-backend/internal/models"
	"github.com/google/uuid"
)

const (
	// RecentMoodLimit is how many mood observations are offered to the model
	RecentMoodLimit = 3
	// ChatWindow is how many prior chat turns are offered to the model
	ChatWindow = 6
)

// UserContext is the per-request snapshot the prompts are built from. It is never persisted.
type UserContext struct {
	UserID         uuid.UUID
	Name           string
	CoreValues     []string
	BaselineEnergy int
	// RecentMoods is most recent first
	RecentMoods []models.MoodObservation
	Message     string
	// Tasks holds the open tasks offered to the recommender
	Tasks []models.TaskSummary
	// History holds prior chat turns in chronological order
	History []models.ChatTurn
}

// OfferedIDs returns the ids of the tasks offered in this context
func (uc *UserContext) OfferedIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(uc.Tasks))
	for _, t := range uc.Tasks {
		ids = append(ids, t.ID)
	}
	return ids
}

// LatestMood returns the most recent observation, if any
func (uc *UserContext) LatestMood() (models.MoodObservation, bool) {
	if len(uc.RecentMoods) == 0 {
		return models.MoodObservation{}, false
	}
	return uc.RecentMoods[0], true
}

// CurrentEnergy is the latest observed energy, or the baseline when nothing was logged
func (uc *UserContext) CurrentEnergy() int {
	if m, ok := uc.LatestMood(); ok {
		return models.ClampEnergy(m.Energy)
	}
	return models.ClampEnergy(uc.BaselineEnergy)
}

// CurrentMood is the latest mood label, or "unknown"
func (uc *UserContext) CurrentMood() string {
	if m, ok := uc.LatestMood(); ok && m.Mood != "" {
		return m.Mood
	}
	return "unknown"
}

// withObservation returns a copy whose mood list starts with obs, trimmed to RecentMoodLimit
func (uc *UserContext) withObservation(obs models.MoodObservation) *UserContext {
	next := *uc
	moods := make([]models.MoodObservation, 0, RecentMoodLimit)
	moods = append(moods, obs)
	for _, m := range uc.RecentMoods {
		if len(moods) == RecentMoodLimit {
			break
		}
		moods = append(moods, m)
	}
	next.RecentMoods = moods
	return &next
}
