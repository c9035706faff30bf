package prompts

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
)

// Fact is one company fact injected into the reply prompt.
type Fact struct {
	Category string
	Text     string
}

// KnownValue is one captured customer field shown to the reply model.
type KnownValue struct {
	Field string
	Value string
}

// ReplyContext carries everything the reply prompt needs.
type ReplyContext struct {
	Persona         *model.Persona
	Company         *model.Company
	Classification  *model.IntentDetectionResult
	PrimaryIntent   string
	Data            map[string]any
	SuggestedAnswer string
}

// hiddenFields are never shown to the reply model.
var hiddenFields = []string{model.FieldWrongEmail, model.FieldWrongPhone, model.FieldMotivationCategories}

// SelectFacts returns the requested company facts, or all of them when deep
// context is needed, in taxonomy order.
func SelectFacts(company *model.Company, c *model.IntentDetectionResult) []Fact {
	if company == nil || len(company.Facts) == 0 || c == nil {
		return nil
	}
	var out []Fact
	for _, cat := range model.CompanyInfoCategories {
		text, ok := company.Facts[cat]
		if !ok || text == "" {
			continue
		}
		if c.NeedsDeepContext || slices.Contains(c.CompanyInfoRequested, cat) {
			out = append(out, Fact{Category: cat, Text: text})
		}
	}
	return out
}

func knownValues(data map[string]any) []KnownValue {
	out := make([]KnownValue, 0, len(data))
	for k, v := range data {
		if slices.Contains(hiddenFields, k) {
			continue
		}
		if s := model.StringValue(v); s != "" {
			out = append(out, KnownValue{Field: k, Value: s})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// RenderReplySystem renders the persona-voiced reply system prompt.
func RenderReplySystem(ctx context.Context, rc ReplyContext) (string, error) {
	if rc.Persona == nil {
		return "", fmt.Errorf("persona is nil")
	}
	c := rc.Classification
	if c == nil {
		c = model.DefaultIntentResult()
	}
	business := "our business"
	if rc.Company != nil && rc.Company.Name != "" {
		business = rc.Company.Name
	}
	intent := rc.PrimaryIntent
	if intent == "" {
		intent = c.PrimaryIntent
	}
	return render(ctx, "reply", replySystemPrompt, map[string]any{
		"SystemPrompt":    rc.Persona.SystemPrompt,
		"PersonaName":     rc.Persona.Name,
		"PersonaRole":     rc.Persona.Role,
		"BusinessName":    business,
		"Tone":            rc.Persona.Tone,
		"Style":           rc.Persona.Style,
		"Facts":           SelectFacts(rc.Company, c),
		"Known":           knownValues(rc.Data),
		"Intent":          intent,
		"EmotionalTone":   c.EmotionalTone,
		"SuggestedAnswer": rc.SuggestedAnswer,
	})
}
