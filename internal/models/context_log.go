package models

import (
	"time"

	"github.com/google/uuid"
)

// ContextLogKind distinguishes plain mood check-ins from recorded consultations
type ContextLogKind string

const (
	ContextLogKindMood         ContextLogKind = "mood"
	ContextLogKindConsultation ContextLogKind = "consultation"
)

// MoodPending is the label stored while a raw check-in waits for mood analysis
const MoodPending = "pending"

// ContextLog is one persisted check-in or consultation
type ContextLog struct {
	ID                uuid.UUID             `json:"id"`
	UserID            uuid.UUID             `json:"user_id"`
	Kind              ContextLogKind        `json:"kind"`
	RawInput          string                `json:"raw_input"`
	Mood              string                `json:"mood"`
	Energy            int                   `json:"current_energy"`
	Result            *RecommendationResult `json:"ai_response,omitempty"`
	RecommendedTaskID *uuid.UUID            `json:"recommended_task_id,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
}

// MoodObservation is the read projection of a check-in used for prompts
type MoodObservation struct {
	Mood      string    `json:"mood"`
	Energy    int       `json:"energy"`
	RawInput  string    `json:"raw_input,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Observation projects the log into a MoodObservation
func (l *ContextLog) Observation() MoodObservation {
	return MoodObservation{
		Mood:      l.Mood,
		Energy:    ClampEnergy(l.Energy),
		RawInput:  l.RawInput,
		Timestamp: l.CreatedAt,
	}
}
