package models

import (
	"time"

	"github.com/google/uuid"
)

// RecommendationResult is the normalized answer of one consultation.
// A nil ChosenTaskID means no task was chosen and rest is suggested.
type RecommendationResult struct {
	EmpathyStatement string     `json:"empathy_statement"`
	ChosenTaskID     *uuid.UUID `json:"chosen_task_id"`
	Reasoning        string     `json:"reasoning"`
	MicroStep        string     `json:"micro_step"`
}

// ParsedTaskDraft is a task extracted from free text, returned for confirmation only
type ParsedTaskDraft struct {
	Title             string            `json:"title"`
	EnergyCost        int               `json:"energy_cost"`
	EmotionalFriction EmotionalFriction `json:"emotional_friction"`
	DueDate           *time.Time        `json:"due_date"`
	AssociatedValue   *string           `json:"associated_value"`
}

// MoodEstimate is the normalized result of analyzing a raw check-in
type MoodEstimate struct {
	Mood           string `json:"mood"`
	EnergyEstimate int    `json:"energy_estimate"`
}
