package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EmotionalFriction is the qualitative cost of starting a task
type EmotionalFriction string

const (
	FrictionLow    EmotionalFriction = "Low"
	FrictionMedium EmotionalFriction = "Medium"
	FrictionHigh   EmotionalFriction = "High"
)

// ParseFriction matches a friction label case-insensitively.
// Anything other than low or high falls back to Medium.
func ParseFriction(s string) EmotionalFriction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return FrictionLow
	case "high":
		return FrictionHigh
	default:
		return FrictionMedium
	}
}

// Valid reports whether f is one of the three known levels
func (f EmotionalFriction) Valid() bool {
	switch f {
	case FrictionLow, FrictionMedium, FrictionHigh:
		return true
	default:
		return false
	}
}

// Task represents a user's task
type Task struct {
	ID                uuid.UUID         `json:"id"`
	UserID            uuid.UUID         `json:"user_id"`
	Title             string            `json:"title"`
	Description       string            `json:"description,omitempty"`
	EnergyCost        int               `json:"energy_cost"`
	EmotionalFriction EmotionalFriction `json:"emotional_friction"`
	AssociatedValue   *string           `json:"associated_value,omitempty"`
	DueDate           *time.Time        `json:"due_date,omitempty"`
	IsCompleted       bool              `json:"is_completed"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// TaskSummary is the projection of an open task offered to the recommender
type TaskSummary struct {
	ID                uuid.UUID         `json:"id"`
	Title             string            `json:"title"`
	EnergyCost        int               `json:"energy_cost"`
	EmotionalFriction EmotionalFriction `json:"emotional_friction"`
	AssociatedValue   *string           `json:"associated_value,omitempty"`
	DueDate           *time.Time        `json:"due_date,omitempty"`
}

// Summary projects the task for prompt rendering
func (t *Task) Summary() TaskSummary {
	return TaskSummary{
		ID:                t.ID,
		Title:             t.Title,
		EnergyCost:        t.EnergyCost,
		EmotionalFriction: t.EmotionalFriction,
		AssociatedValue:   t.AssociatedValue,
		DueDate:           t.DueDate,
	}
}
