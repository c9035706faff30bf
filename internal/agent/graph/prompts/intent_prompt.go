package prompts

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
)

// IntentContext describes what the classifier should know about the conversation.
type IntentContext struct {
	Company        *model.Company
	ActiveGoals    []ActiveGoal
	CompletedGoals []string
	CapturedFields []string
}

// ActiveGoal is an active goal with the fields it still needs.
type ActiveGoal struct {
	ID     string
	Name   string
	Needed []string
}

var knownFields = []string{
	model.FieldFirstName, model.FieldLastName, model.FieldEmail, model.FieldPhone,
	model.FieldWrongEmail, model.FieldWrongPhone, model.FieldPreferredTime,
	model.FieldPreferredContact, model.FieldExperienceLevel, model.FieldMotivationReason,
	model.FieldGender, model.FieldInjuries, model.FieldVisitDate, model.FieldVisitTime,
	model.FieldCurrentWeight, model.FieldGoalWeight, model.FieldHeight, model.FieldFitnessGoal,
}

// RenderIntentSystem renders the classification system prompt.
func RenderIntentSystem(ctx context.Context, ic IntentContext) (string, error) {
	name, kind := "the business", "business"
	if ic.Company != nil {
		if ic.Company.Name != "" {
			name = ic.Company.Name
		}
		if ic.Company.BusinessType != "" {
			kind = ic.Company.BusinessType
		}
	}

	var needed []string
	active := make([]string, 0, len(ic.ActiveGoals))
	for _, g := range ic.ActiveGoals {
		label := g.ID
		if g.Name != "" && g.Name != g.ID {
			label = fmt.Sprintf("%s (%s)", g.ID, g.Name)
		}
		if len(g.Needed) > 0 {
			label += ", still needs: " + strings.Join(g.Needed, ", ")
		} else {
			label += ", nothing left to collect"
		}
		active = append(active, label)
		for _, f := range g.Needed {
			if !slices.Contains(needed, f) {
				needed = append(needed, f)
			}
		}
	}

	fields := slices.Clone(knownFields)
	for _, f := range needed {
		if !slices.Contains(fields, f) {
			fields = append(fields, f)
		}
	}

	return render(ctx, "intent", intentSystemPrompt, map[string]any{
		"BusinessName":   name,
		"BusinessType":   kind,
		"Intents":        strings.Join(model.Intents, ", "),
		"NeededFields":   strings.Join(needed, ", "),
		"ActiveGoals":    active,
		"CompletedGoals": strings.Join(ic.CompletedGoals, ", "),
		"CapturedFields": strings.Join(ic.CapturedFields, ", "),
		"KnownFields":    strings.Join(fields, ", "),
		"Categories":     strings.Join(model.CompanyInfoCategories, ", "),
	})
}
