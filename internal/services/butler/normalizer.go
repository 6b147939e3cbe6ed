package butler

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Azalea224/butler-service-backend/internal/models"
	"github.com/google/uuid"
)

// Defaults substituted for missing or malformed fields of a model reply
const (
	DefaultEmpathyStatement = "I hear you."
	DefaultReasoning        = "Based on your current state."
	DefaultMicroStep        = "Take a deep breath."
	DefaultMood             = "neutral"

	// parsedTitleLimit is how many characters of the input become the fallback title
	parsedTitleLimit = 50
)

// DefaultRecommendation is returned when the reply carries no usable JSON object
func DefaultRecommendation() models.RecommendationResult {
	return models.RecommendationResult{
		EmpathyStatement: DefaultEmpathyStatement,
		ChosenTaskID:     nil,
		Reasoning:        DefaultReasoning,
		MicroStep:        DefaultMicroStep,
	}
}

// DefaultParsedTask is the draft returned when the reply carries no usable JSON object
func DefaultParsedTask(input string) models.ParsedTaskDraft {
	return models.ParsedTaskDraft{
		Title:             fallbackTitle(input),
		EnergyCost:        models.DefaultEnergy,
		EmotionalFriction: models.FrictionMedium,
	}
}

// NormalizeRecommendation turns a raw model reply into a RecommendationResult. It never fails.
// A chosen task id is kept only when it is one of offered; otherwise it becomes null.
func NormalizeRecommendation(raw string, offered []uuid.UUID) models.RecommendationResult {
	result := DefaultRecommendation()
	obj, ok := ExtractFirstJSONObject(raw)
	if !ok {
		return result
	}

	result.EmpathyStatement = stringField(obj, "empathy_statement", DefaultEmpathyStatement)
	result.Reasoning = stringField(obj, "reasoning", DefaultReasoning)
	result.MicroStep = stringField(obj, "micro_step", DefaultMicroStep)
	result.ChosenTaskID = offeredID(obj["chosen_task_id"], offered)
	return result
}

// NormalizeParsedTask turns a raw model reply into a ParsedTaskDraft. It never fails.
func NormalizeParsedTask(raw, input string) models.ParsedTaskDraft {
	draft := DefaultParsedTask(input)
	obj, ok := ExtractFirstJSONObject(raw)
	if !ok {
		return draft
	}

	draft.Title = stringField(obj, "title", draft.Title)
	draft.EnergyCost = energyField(obj, "energy_cost")
	if s, ok := obj["emotional_friction"].(string); ok {
		draft.EmotionalFriction = models.ParseFriction(s)
	}
	draft.DueDate = dateField(obj, "due_date")
	draft.AssociatedValue = optionalStringField(obj, "associated_value")
	return draft
}

// NormalizeMoodEstimate turns a raw mood analysis reply into a MoodEstimate. It never fails.
func NormalizeMoodEstimate(raw string) models.MoodEstimate {
	estimate := models.MoodEstimate{Mood: DefaultMood, EnergyEstimate: models.DefaultEnergy}
	obj, ok := ExtractFirstJSONObject(raw)
	if !ok {
		return estimate
	}

	estimate.Mood = strings.ToLower(stringField(obj, "mood", DefaultMood))
	estimate.EnergyEstimate = energyField(obj, "energy_estimate")
	return estimate
}

// stringField returns the trimmed string at key, or def when absent, blank or not a string
func stringField(obj map[string]any, key, def string) string {
	s, ok := obj[key].(string)
	if !ok {
		return def
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

// optionalStringField is stringField with null as the default. "null" and "none" spelled as text count as null.
func optionalStringField(obj map[string]any, key string) *string {
	s := stringField(obj, key, "")
	switch strings.ToLower(s) {
	case "", "null", "none":
		return nil
	}
	return &s
}

// energyField reads a number or numeric string, rounds to nearest and clamps into range
func energyField(obj map[string]any, key string) int {
	var f float64
	switch v := obj[key].(type) {
	case float64:
		f = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return models.DefaultEnergy
		}
		f = parsed
	default:
		return models.DefaultEnergy
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return models.DefaultEnergy
	}
	f = math.Round(f)
	if f < models.MinEnergy {
		return models.MinEnergy
	}
	if f > models.MaxEnergy {
		return models.MaxEnergy
	}
	return int(f)
}

// dateField accepts an RFC 3339 instant or a YYYY-MM-DD date (UTC midnight)
func dateField(obj map[string]any, key string) *time.Time {
	s, ok := obj[key].(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// offeredID parses v as a task id and keeps it only when it was offered
func offeredID(v any, offered []uuid.UUID) *uuid.UUID {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	for _, o := range offered {
		if o == id {
			return &id
		}
	}
	return nil
}

// fallbackTitle is the first parsedTitleLimit characters of the trimmed input
func fallbackTitle(input string) string {
	input = strings.TrimSpace(input)
	if utf8.RuneCountInString(input) <= parsedTitleLimit {
		return input
	}
	return string([]rune(input)[:parsedTitleLimit])
}
