package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
)

func TestExtract_HintedTimeOfDay(t *testing.T) {
	e := NewPatternExtractor()

	recs := e.Extract("evening", []string{model.FieldPreferredTime})
	require.Len(t, recs, 1)
	assert.Equal(t, model.ExtractionRecord{
		Field:      model.FieldPreferredTime,
		Value:      "evening",
		Confidence: patternConfidence,
		Source:     model.SourcePatternMatch,
	}, recs[0])

	recs = e.Extract("Mornings work best before work", []string{model.FieldPreferredTime})
	require.Len(t, recs, 1)
	assert.Equal(t, "morning", recs[0].Value)
}

func TestExtract_RequiresHint(t *testing.T) {
	e := NewPatternExtractor()
	assert.Empty(t, e.Extract("evening", nil))
	assert.Empty(t, e.Extract("evening", []string{model.FieldEmail}))
	assert.Empty(t, e.Extract("   ", []string{model.FieldPreferredTime}))
}

func TestExtract_FirstRuleWins(t *testing.T) {
	e := NewPatternExtractor()
	recs := e.Extract("whatsapp or email is fine", []string{model.FieldPreferredContact})
	require.Len(t, recs, 1)
	assert.Equal(t, "whatsapp", recs[0].Value)

	recs = e.Extract("I'm a total beginner", []string{model.FieldExperienceLevel, model.FieldExperienceLevel})
	require.Len(t, recs, 1)
	assert.Equal(t, "beginner", recs[0].Value)
}

func TestExtract_Motivation(t *testing.T) {
	e := NewPatternExtractor()
	recs := e.Extract("My wedding is in June and my doctor wants me healthier", nil)
	require.Len(t, recs, 2)
	assert.Equal(t, model.FieldMotivationReason, recs[0].Field)
	assert.Equal(t, "My wedding is in June and my doctor wants me healthier", recs[0].Value)
	assert.Equal(t, model.FieldMotivationCategories, recs[1].Field)
	assert.Equal(t, "wedding,health", recs[1].Value)

	assert.Empty(t, e.Extract("sounds fine", nil))
}

func TestFieldSets(t *testing.T) {
	assert.True(t, IsCorrectionField(model.FieldPreferredTime))
	assert.False(t, IsCorrectionField(model.FieldMotivationReason))
	assert.True(t, IsMotivationField(model.FieldMotivationCategories))
	assert.Equal(t, []string{model.FieldExperienceLevel, model.FieldPreferredContact, model.FieldPreferredTime}, HintableFields())
}

func TestFilterConfirmation(t *testing.T) {
	recs := []model.ExtractionRecord{
		{Field: model.FieldWrongEmail, Value: "david@x.com", Source: model.SourceLLM},
		{Field: model.FieldWrongPhone, Value: "555", Source: model.SourceLLM},
		{Field: model.FieldFirstName, Value: "David", Source: model.SourceLLM},
	}

	out := FilterConfirmation("yep that's correct, got it", recs)
	require.Len(t, out, 1)
	assert.Equal(t, model.FieldFirstName, out[0].Field)
	assert.Len(t, recs, 3)

	assert.Len(t, FilterConfirmation("no, that email is wrong", recs), 3)
	assert.Len(t, FilterConfirmation("my new email is d@x.com", recs), 3)

	for _, msg := range []string{
		"Yes, nothing wrong with it",
		"yes that's correct, no problem",
		"Confirmed, not a typo",
	} {
		assert.Len(t, FilterConfirmation(msg, recs), 1, msg)
	}

	assert.Len(t, FilterConfirmation("yes but that's not my email", recs), 3)
	assert.Len(t, FilterConfirmation("right, wrong number though", recs), 3)
}

func TestContactValidation(t *testing.T) {
	assert.True(t, ValidEmail("david@x.com"))
	assert.False(t, ValidEmail("david@"))
	assert.False(t, ValidEmail(""))

	assert.Equal(t, "+15551234567", NormalizePhone("+1 (555) 123-4567"))
	assert.True(t, ValidPhone("555.123.4567"))
	assert.False(t, ValidPhone("12"))
	assert.False(t, ValidPhone("call me"))

	assert.True(t, Valid(model.FieldEmail, "", model.FieldValue{Value: "a@b.co"}))
	assert.False(t, Valid(model.FieldEmail, "", map[string]any{"value": nil}))
	assert.True(t, Valid("workEmail", "email", "a@b.co"))
	assert.False(t, Valid("workEmail", "email", "a@"))
	assert.True(t, Valid(model.FieldFirstName, "", "David"))

	field, value, ok := ValidatedContact(map[string]any{"email": "bad", "phone": "555 123 4567"})
	assert.True(t, ok)
	assert.Equal(t, model.FieldPhone, field)
	assert.Equal(t, "555 123 4567", value)
}
