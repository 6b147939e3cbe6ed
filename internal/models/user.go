package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	// MinEnergy is the lowest energy rating a user or task can carry
	MinEnergy = 1
	// MaxEnergy is the highest energy rating a user or task can carry
	MaxEnergy = 10
	// DefaultEnergy is used when no rating is supplied
	DefaultEnergy = 5
)

// User represents a registered user and their Butler profile
type User struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"-"`
	Name           string     `json:"name"`
	CoreValues     []string   `json:"core_values"`
	BaselineEnergy int        `json:"baseline_energy"`
	LastActiveAt   *time.Time `json:"last_active_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Profile is the public projection of a user returned by the API
type Profile struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	CoreValues     []string  `json:"core_values"`
	BaselineEnergy int       `json:"baseline_energy"`
}

// Profile returns the public projection of the user
func (u *User) Profile() Profile {
	values := u.CoreValues
	if values == nil {
		values = []string{}
	}
	return Profile{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		CoreValues:     values,
		BaselineEnergy: u.BaselineEnergy,
	}
}

// ClampEnergy forces an energy rating into [MinEnergy, MaxEnergy]
func ClampEnergy(v int) int {
	if v < MinEnergy {
		return MinEnergy
	}
	if v > MaxEnergy {
		return MaxEnergy
	}
	return v
}
