package butler

import (
	"context"
	"fmt"

	"github.com/Azalea224/butler-service-backend/internal/database"
	"github.com/Azalea224/butler-service-backend/internal/models"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// AggregateOptions selects what Aggregate loads besides the profile and recent moods
type AggregateOptions struct {
	Message      string
	IncludeTasks bool
	// ChatWindow > 0 loads that many prior chat turns
	ChatWindow int
}

// Aggregator assembles a UserContext from the stores. It only reads.
type Aggregator struct {
	users database.UserStore
	tasks database.TaskStore
	moods database.MoodLogStore
	chats database.ChatLogStore
}

// NewAggregator creates an aggregator
func NewAggregator(users database.UserStore, tasks database.TaskStore, moods database.MoodLogStore, chats database.ChatLogStore) *Aggregator {
	return &Aggregator{users: users, tasks: tasks, moods: moods, chats: chats}
}

// Aggregate loads the user's profile, recent moods and, on request, open tasks and chat history.
// The reads run concurrently; an unknown user fails with database.ErrNotFound.
func (a *Aggregator) Aggregate(ctx context.Context, userID uuid.UUID, opts AggregateOptions) (*UserContext, error) {
	var (
		user    *models.User
		moods   []models.MoodObservation
		tasks   []*models.Task
		history []models.ChatTurn
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := a.users.GetByID(gctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load user: %w", err)
		}
		user = u
		return nil
	})
	g.Go(func() error {
		m, err := a.moods.FindRecentMoods(gctx, userID, RecentMoodLimit)
		if err != nil {
			return fmt.Errorf("failed to load recent moods: %w", err)
		}
		moods = m
		return nil
	})
	if opts.IncludeTasks {
		g.Go(func() error {
			t, err := a.tasks.FindOpenByOwner(gctx, userID)
			if err != nil {
				return fmt.Errorf("failed to load open tasks: %w", err)
			}
			tasks = t
			return nil
		})
	}
	if opts.ChatWindow > 0 && a.chats != nil {
		g.Go(func() error {
			h, err := a.chats.FindRecentByOwner(gctx, userID, opts.ChatWindow)
			if err != nil {
				return fmt.Errorf("failed to load chat history: %w", err)
			}
			history = h
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	uc := &UserContext{
		UserID:         user.ID,
		Name:           user.Name,
		CoreValues:     user.CoreValues,
		BaselineEnergy: models.ClampEnergy(user.BaselineEnergy),
		RecentMoods:    moods,
		Message:        opts.Message,
		History:        chronological(history),
	}
	if len(uc.RecentMoods) > RecentMoodLimit {
		uc.RecentMoods = uc.RecentMoods[:RecentMoodLimit]
	}
	for _, t := range tasks {
		// stores are owner scoped; the check keeps foreign or finished rows out of the prompt
		if t.UserID != userID || t.IsCompleted {
			continue
		}
		uc.Tasks = append(uc.Tasks, t.Summary())
	}

	return uc, nil
}

// chronological reverses a most-recent-first slice into a new slice
func chronological(turns []models.ChatTurn) []models.ChatTurn {
	out := make([]models.ChatTurn, len(turns))
	for i, t := range turns {
		out[len(turns)-1-i] = t
	}
	return out
}
