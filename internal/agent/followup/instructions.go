package followup

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
)

// Instruction tells the follow-up prompt what to ask and how.
type Instruction struct {
	Text     string
	Examples []string
}

var (
	contactFields  = []string{model.FieldEmail, model.FieldPhone, model.FieldPreferredContact}
	identityFields = []string{model.FieldFirstName, model.FieldLastName, model.FieldGender}
	scheduleFields = []string{model.FieldVisitDate, model.FieldVisitTime, model.FieldPreferredTime}
	metricFields   = []string{model.FieldCurrentWeight, model.FieldGoalWeight, model.FieldHeight}
)

var fieldLabels = map[string]string{
	model.FieldFirstName:        "first name",
	model.FieldLastName:         "last name",
	model.FieldEmail:            "email address",
	model.FieldPhone:            "phone number",
	model.FieldPreferredContact: "preferred way to be contacted",
	model.FieldPreferredTime:    "preferred time of day to train",
	model.FieldExperienceLevel:  "training experience",
	model.FieldMotivationReason: "reason for wanting to start",
	model.FieldGender:           "gender",
	model.FieldInjuries:         "injuries or health limitations",
	model.FieldVisitDate:        "day to visit",
	model.FieldVisitTime:        "time to visit",
	model.FieldCurrentWeight:    "current weight",
	model.FieldGoalWeight:       "goal weight",
	model.FieldHeight:           "height",
	model.FieldFitnessGoal:      "main fitness goal",
}

// Label returns a human phrase for a captured-data field.
func Label(field string) string {
	if l, ok := fieldLabels[field]; ok {
		return l
	}
	return strings.ReplaceAll(field, "_", " ")
}

func labels(fields []string) string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = Label(f)
	}
	switch len(out) {
	case 0:
		return ""
	case 1:
		return out[0]
	default:
		return strings.Join(out[:len(out)-1], ", ") + " and " + out[len(out)-1]
	}
}

func anyOf(needed, set []string) bool {
	return slices.ContainsFunc(needed, func(f string) bool { return slices.Contains(set, f) })
}

func onlyOf(needed, set []string) bool {
	return len(needed) > 0 && !slices.ContainsFunc(needed, func(f string) bool { return !slices.Contains(set, f) })
}

// goalInstruction picks the generator for the goal and its still-needed fields.
func goalInstruction(g *model.GoalDefinition, needed []string) Instruction {
	switch {
	case anyOf(needed, contactFields):
		return contactInstruction(needed)
	case g.Type == model.GoalTypeScheduling || anyOf(needed, scheduleFields):
		return schedulingInstruction(needed)
	case anyOf(needed, metricFields):
		return bodyMetricsInstruction(needed)
	case slices.Contains(needed, model.FieldInjuries):
		return injuriesInstruction()
	case onlyOf(needed, identityFields):
		return identityInstruction(needed)
	default:
		return genericInstruction(g, needed)
	}
}

func contactInstruction(needed []string) Instruction {
	return Instruction{
		Text: fmt.Sprintf("Ask for their %s so the team can follow up. Ask for everything in one friendly question.", labels(needed)),
		Examples: []string{
			"What's the best email to send your free pass to?",
			"Could I grab your name and a number to text you the details?",
		},
	}
}

func schedulingInstruction(needed []string) Instruction {
	text := "Invite them to come in for a visit and ask when suits them."
	if len(needed) > 0 {
		text = fmt.Sprintf("Invite them to come in for a visit and ask for their %s.", labels(needed))
	}
	return Instruction{
		Text: text,
		Examples: []string{
			"Would a morning or an evening visit work better for you?",
			"Which day this week could you stop by for a quick tour?",
		},
	}
}

func bodyMetricsInstruction(needed []string) Instruction {
	return Instruction{
		Text: fmt.Sprintf("Gently ask for their %s so a coach can plan around it. Make clear it is optional and private.", labels(needed)),
		Examples: []string{
			"If you don't mind sharing, what's your current weight and where would you like to be?",
		},
	}
}

func injuriesInstruction() Instruction {
	return Instruction{
		Text: "Ask whether they have any injuries or health limitations the coaches should know about.",
		Examples: []string{
			"Anything like old injuries or sore joints our coaches should keep in mind?",
		},
	}
}

func identityInstruction(needed []string) Instruction {
	return Instruction{
		Text: fmt.Sprintf("Ask for their %s in a casual way.", labels(needed)),
		Examples: []string{
			"By the way, who am I chatting with?",
		},
	}
}

func genericInstruction(g *model.GoalDefinition, needed []string) Instruction {
	var b strings.Builder
	b.WriteString("Ask one short question")
	if len(needed) > 0 {
		fmt.Fprintf(&b, " to learn their %s", labels(needed))
	}
	if g.Description != "" {
		fmt.Fprintf(&b, ". Context: %s", g.Description)
	} else if g.Name != "" {
		fmt.Fprintf(&b, ". Context: %s", g.Name)
	}
	b.WriteString(".")
	return Instruction{Text: b.String()}
}

func recoveryInstruction(field, wrong, previous string) Instruction {
	onFile := previous
	if onFile == "" {
		onFile = wrong
	}
	return Instruction{
		Text: fmt.Sprintf("Apologize that the %s we have (%s) is wrong and ask for the correct one.", Label(field), onFile),
		Examples: []string{
			fmt.Sprintf("Sorry about that! What's the right %s?", Label(field)),
		},
	}
}

func verificationInstruction(field, value string) Instruction {
	return Instruction{
		Text: fmt.Sprintf("Confirm you saved their %s as %s and invite them to correct it if it is wrong.", Label(field), value),
		Examples: []string{
			fmt.Sprintf("Got it, I have %s. Let me know if that's not right.", value),
		},
	}
}

func exitInstruction(in Input) Instruction {
	var farewell []string
	if p := in.Profile.Persona; p != nil && p.Farewell != "" {
		farewell = []string{p.Farewell}
	}
	catalog := in.Profile.Catalog
	if catalog != nil && catalog.Settings.PrimaryGoal != "" && in.State.IsCompleted(catalog.Settings.PrimaryGoal) {
		return Instruction{
			Text:     "Thank them, confirm the team will be in touch with the details they shared, and say goodbye.",
			Examples: farewell,
		}
	}
	return Instruction{
		Text:     "Say a warm goodbye and let them know they can message again any time.",
		Examples: farewell,
	}
}

func engagementInstruction(p *model.Persona) Instruction {
	in := Instruction{Text: "Ask one open question about what brought them here today."}
	if p != nil && len(p.EngagementQuestions) > 0 {
		in.Examples = p.EngagementQuestions
	}
	return in
}
