package butler

import (
	"fmt"
	"strings"
	"time"

	"github.com/Azalea224/butler-service-backend/internal/models"
	"github.com/Azalea224/butler-service-backend/internal/services/ai"
)

// Composer renders a UserContext into prompt text for one of the templates.
// Output depends only on its inputs and the injected clock.
type Composer struct {
	now func() time.Time
}

// NewComposer creates a composer. A nil clock uses time.Now.
func NewComposer(now func() time.Time) *Composer {
	if now == nil {
		now = time.Now
	}
	return &Composer{now: now}
}

// Compose renders the prompt for tpl
func (c *Composer) Compose(tpl ai.Template, uc *UserContext) (string, error) {
	if uc == nil {
		uc = &UserContext{}
	}
	now := c.now()

	switch tpl {
	case ai.TemplateRecommendation:
		return c.recommendation(uc, now), nil
	case ai.TemplateChat:
		return c.chat(uc, now), nil
	case ai.TemplateParse:
		return c.parse(uc.Message, now), nil
	case ai.TemplateMoodAnalysis:
		return c.moodAnalysis(uc.Message), nil
	default:
		return "", fmt.Errorf("unknown prompt template %q", tpl)
	}
}

func (c *Composer) recommendation(uc *UserContext, now time.Time) string {
	var b strings.Builder

	writeProfile(&b, uc)

	b.WriteString("\nRECENT MOOD LOGS (most recent first)\n")
	b.WriteString(RenderMoods(uc.RecentMoods, now))

	b.WriteString("\n\nPENDING TASKS\n")
	b.WriteString(RenderTasks(uc.Tasks))

	if msg := strings.TrimSpace(uc.Message); msg != "" {
		b.WriteString("\n\nUSER MESSAGE\n")
		fmt.Fprintf(&b, "%q", msg)
	}

	b.WriteString("\n\n")
	b.WriteString(recommendationInstructions)
	return b.String()
}

func (c *Composer) chat(uc *UserContext, now time.Time) string {
	var b strings.Builder

	b.WriteString("USER SNAPSHOT\n")
	fmt.Fprintf(&b, "- Name: %s\n", displayName(uc.Name))
	if m, ok := uc.LatestMood(); ok {
		fmt.Fprintf(&b, "- Latest mood: %s\n", renderMood(m, now))
	} else {
		fmt.Fprintf(&b, "- Latest mood: %s\n", noMoodsSentinel)
	}
	fmt.Fprintf(&b, "- Pending tasks: %d\n", len(uc.Tasks))

	b.WriteString("\nCONVERSATION SO FAR\n")
	b.WriteString(RenderHistory(uc.History))

	b.WriteString("\n\nNEW MESSAGE\n")
	fmt.Fprintf(&b, "User: %s\n\n", strings.TrimSpace(uc.Message))
	b.WriteString(chatInstructions)
	return b.String()
}

func (c *Composer) parse(input string, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Today is %s (%s).\n\n", now.Format("2006-01-02"), now.Weekday())
	b.WriteString(parseInstructions)

	tomorrow := now.AddDate(0, 0, 1).Format("2006-01-02")
	b.WriteString("\n\nExamples:\n")
	b.WriteString(`Input: "call mom tomorrow, family matters to me"` + "\n")
	fmt.Fprintf(&b, `Output: {"title": "Call mom", "energy_cost": 3, "emotional_friction": "Low", "due_date": "%s", "associated_value": "family"}`+"\n", tomorrow)
	b.WriteString(`Input: "finally do my tax return, dreading it"` + "\n")
	b.WriteString(`Output: {"title": "Do tax return", "energy_cost": 8, "emotional_friction": "High", "due_date": null, "associated_value": null}` + "\n")

	fmt.Fprintf(&b, "\nInput: %q\nOutput:", strings.TrimSpace(input))
	return b.String()
}

func (c *Composer) moodAnalysis(input string) string {
	var b strings.Builder
	b.WriteString(moodAnalysisInstructions)
	fmt.Fprintf(&b, "\n\nStatement: %q", strings.TrimSpace(input))
	return b.String()
}

func writeProfile(b *strings.Builder, uc *UserContext) {
	b.WriteString("USER PROFILE\n")
	fmt.Fprintf(b, "- Name: %s\n", displayName(uc.Name))
	values := noValuesSentinel
	if len(uc.CoreValues) > 0 {
		values = strings.Join(uc.CoreValues, ", ")
	}
	fmt.Fprintf(b, "- Core values: %s\n", values)
	fmt.Fprintf(b, "- Baseline energy: %d/10\n", models.ClampEnergy(uc.BaselineEnergy))
}

// RenderMoods renders mood observations one per line, or the empty sentinel
func RenderMoods(moods []models.MoodObservation, now time.Time) string {
	if len(moods) == 0 {
		return noMoodsSentinel
	}
	lines := make([]string, 0, len(moods))
	for _, m := range moods {
		lines = append(lines, "- "+renderMood(m, now))
	}
	return strings.Join(lines, "\n")
}

func renderMood(m models.MoodObservation, now time.Time) string {
	mood := m.Mood
	if mood == "" {
		mood = "unlabeled"
	}
	s := fmt.Sprintf("%s, energy %d/10, %s", mood, models.ClampEnergy(m.Energy), RelativeTime(now, m.Timestamp))
	if raw := strings.TrimSpace(m.RawInput); raw != "" {
		s += fmt.Sprintf(", said %q", raw)
	}
	return s
}

// RenderTasks renders task summaries one per line, or the empty sentinel
func RenderTasks(tasks []models.TaskSummary) string {
	if len(tasks) == 0 {
		return noTasksSentinel
	}
	lines := make([]string, 0, len(tasks))
	for _, t := range tasks {
		parts := []string{
			"id: " + t.ID.String(),
			fmt.Sprintf("title: %q", t.Title),
			fmt.Sprintf("energy cost: %d/10", models.ClampEnergy(t.EnergyCost)),
			"friction: " + string(t.EmotionalFriction),
		}
		if t.AssociatedValue != nil && *t.AssociatedValue != "" {
			parts = append(parts, "value: "+*t.AssociatedValue)
		}
		if t.DueDate != nil {
			parts = append(parts, "due: "+t.DueDate.Format("2006-01-02"))
		}
		lines = append(lines, "- "+strings.Join(parts, " | "))
	}
	return strings.Join(lines, "\n")
}

// RenderHistory renders chat turns in the order given, labeled by role
func RenderHistory(turns []models.ChatTurn) string {
	if len(turns) == 0 {
		return noHistorySentinel
	}
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		label := "User"
		if t.Role == models.ChatRoleAssistant {
			label = "Simi"
		}
		lines = append(lines, label+": "+strings.TrimSpace(t.Message))
	}
	return strings.Join(lines, "\n")
}

// RelativeTime labels ts relative to now, floor-rounded: "just now", "Nm ago", "Nh ago" or "Nd ago".
// Timestamps in the future count as now.
func RelativeTime(now, ts time.Time) string {
	d := now.Sub(ts)
	if d < 0 {
		d = 0
	}
	minutes := int(d / time.Minute)
	switch {
	case minutes < 1:
		return "just now"
	case minutes < 60:
		return fmt.Sprintf("%dm ago", minutes)
	case minutes < 24*60:
		return fmt.Sprintf("%dh ago", minutes/60)
	default:
		return fmt.Sprintf("%dd ago", minutes/(24*60))
	}
}

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Friend"
	}
	return name
}
