package prompts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
)

var company = &model.Company{
	Name:         "Ironworks",
	BusinessType: "gym",
	Facts: map[string]string{
		"hours":   "Open 5am to 11pm",
		"pricing": "Memberships from $49",
		"classes": "HIIT and yoga",
	},
}

func TestRenderIntentSystem(t *testing.T) {
	out, err := RenderIntentSystem(context.Background(), IntentContext{
		Company: company,
		ActiveGoals: []ActiveGoal{
			{ID: "collect_contact_info", Name: "Contact", Needed: []string{"firstName", "email"}},
		},
		CompletedGoals: []string{"fitness_background"},
		CapturedFields: []string{"phone"},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Ironworks (gym)")
	assert.Contains(t, out, "currently collecting: firstName, email")
	assert.Contains(t, out, "- collect_contact_info (Contact), still needs: firstName, email")
	assert.Contains(t, out, "Completed goals")
	assert.Contains(t, out, "end_conversation")
	assert.Contains(t, out, "promotions")
}

func TestRenderIntentSystemWithoutGoals(t *testing.T) {
	out, err := RenderIntentSystem(context.Background(), IntentContext{})
	require.NoError(t, err)
	assert.Contains(t, out, "the business")
	assert.NotContains(t, out, "Active goals")
}

func TestSelectFacts(t *testing.T) {
	facts := SelectFacts(company, &model.IntentDetectionResult{CompanyInfoRequested: []string{"pricing"}})
	assert.Equal(t, []Fact{{Category: "pricing", Text: "Memberships from $49"}}, facts)

	facts = SelectFacts(company, &model.IntentDetectionResult{NeedsDeepContext: true})
	require.Len(t, facts, 3)
	assert.Equal(t, "hours", facts[0].Category)

	assert.Empty(t, SelectFacts(company, &model.IntentDetectionResult{}))
	assert.Empty(t, SelectFacts(nil, &model.IntentDetectionResult{NeedsDeepContext: true}))
}

func TestRenderReplySystem(t *testing.T) {
	persona := &model.Persona{Name: "Maya", Role: "membership advisor", Tone: "warm", SystemPrompt: "Be helpful."}
	out, err := RenderReplySystem(context.Background(), ReplyContext{
		Persona:         persona,
		Company:         company,
		Classification:  &model.IntentDetectionResult{PrimaryIntent: model.IntentPricingInquiry, CompanyInfoRequested: []string{"pricing"}, EmotionalTone: "curious"},
		Data:            map[string]any{"firstName": model.FieldValue{Value: "Sam"}, "wrong_phone": "555"},
		SuggestedAnswer: "Plans start at $49.",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Be helpful.")
	assert.Contains(t, out, "You are Maya, membership advisor at Ironworks.")
	assert.Contains(t, out, "- pricing: Memberships from $49")
	assert.NotContains(t, out, "HIIT")
	assert.Contains(t, out, "- firstName: Sam")
	assert.NotContains(t, out, "wrong_phone")
	assert.Contains(t, out, "Intent: pricing_inquiry. Tone: curious.")
	assert.Contains(t, out, "Plans start at $49.")

	_, err = RenderReplySystem(context.Background(), ReplyContext{})
	assert.Error(t, err)
}

func TestRenderFollowUp(t *testing.T) {
	out, err := RenderFollowUp(context.Background(), &model.Persona{Name: "Maya"}, company,
		"We open at 5am.", "Ask for their email address.", []string{"What's the best email to reach you?"})
	require.NoError(t, err)
	assert.Contains(t, out, "You are Maya at Ironworks.")
	assert.Contains(t, out, `"We open at 5am."`)
	assert.Contains(t, out, "Task: Ask for their email address.")
	assert.Contains(t, out, "- What's the best email to reach you?")
}
