package nodes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/extract"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
)

func llmRecord(field string, value any) model.ExtractionRecord {
	return model.ExtractionRecord{Field: field, Value: value, Confidence: 0.8, Source: model.SourceLLM}
}

func TestMergePatternWinsForCorrectionFields(t *testing.T) {
	c := &model.TurnClassification{
		Intent: &model.IntentDetectionResult{
			PrimaryIntent: model.IntentGreeting,
			Extractions:   []model.ExtractionRecord{llmRecord("preferredTime", "morning"), llmRecord("firstName", "Eve")},
		},
		Patterns: extract.NewPatternExtractor().Extract("evening", []string{"preferredTime"}),
	}
	got := Merge("evening", nil, c)

	fv, ok := got.TurnData["preferredTime"].(model.FieldValue)
	require.True(t, ok)
	assert.Equal(t, "evening", fv.Value)
	assert.Equal(t, model.SourcePatternMatch, fv.Source)
	assert.Equal(t, "Eve", model.Lookup(got.TurnData, "firstName"))
	assert.Equal(t, model.IntentGreeting, got.PrimaryIntent)
}

func TestMergeConfirmationDropsWrongContact(t *testing.T) {
	c := &model.TurnClassification{
		Intent: &model.IntentDetectionResult{
			PrimaryIntent: model.IntentConfirmation,
			Extractions:   []model.ExtractionRecord{llmRecord("wrong_email", "a@b.com")},
		},
	}
	got := Merge("yep that's correct, got it", nil, c)
	assert.NotContains(t, got.TurnData, "wrong_email")
	assert.Empty(t, got.Records)
}

func TestMergeConfirmationWithNegativeWordingDropsWrongContact(t *testing.T) {
	c := &model.TurnClassification{
		Intent: &model.IntentDetectionResult{
			PrimaryIntent: model.IntentConfirmation,
			Extractions:   []model.ExtractionRecord{llmRecord("wrong_email", "a@b.com")},
		},
	}
	got := Merge("Yes, nothing wrong with it", nil, c)
	assert.NotContains(t, got.TurnData, "wrong_email")
}

func TestMergeKeepsWrongContactWithoutConfirmation(t *testing.T) {
	c := &model.TurnClassification{
		Intent: &model.IntentDetectionResult{
			Extractions: []model.ExtractionRecord{llmRecord("wrong_phone", "555"), llmRecord("phone", "(415) 555-0100")},
		},
	}
	got := Merge("no, that number is wrong, use (415) 555-0100", nil, c)
	assert.Equal(t, "555", model.Lookup(got.TurnData, "wrong_phone"))
	assert.Equal(t, "(415) 555-0100", model.Lookup(got.TurnData, "phone"))
}

func TestMergeMotivationSkippedWhenReasonKnown(t *testing.T) {
	patterns := extract.NewPatternExtractor().Extract("I want to get in shape for my wedding", nil)
	require.NotEmpty(t, patterns)

	withLLM := Merge("I want to get in shape for my wedding", nil, &model.TurnClassification{
		Intent:   &model.IntentDetectionResult{Extractions: []model.ExtractionRecord{llmRecord("motivationReason", "Getting married in June and wants to look great")}},
		Patterns: patterns,
	})
	assert.Equal(t, "Getting married in June and wants to look great", model.Lookup(withLLM.TurnData, "motivationReason"))
	assert.NotContains(t, withLLM.TurnData, "motivationCategories")

	persisted := Merge("I want to get in shape for my wedding", map[string]any{"motivationReason": "health"}, &model.TurnClassification{
		Intent:   &model.IntentDetectionResult{},
		Patterns: patterns,
	})
	assert.Empty(t, persisted.TurnData)
	assert.Equal(t, "health", model.Lookup(persisted.Data, "motivationReason"))

	fresh := Merge("I want to get in shape for my wedding", nil, &model.TurnClassification{
		Intent:   &model.IntentDetectionResult{},
		Patterns: patterns,
	})
	assert.Equal(t, "wedding", model.Lookup(fresh.TurnData, "motivationCategories"))
}

func TestMergeDropsInvalidContact(t *testing.T) {
	got := Merge("it's david@", map[string]any{"email": "old@x.com"}, &model.TurnClassification{
		Intent: &model.IntentDetectionResult{Extractions: []model.ExtractionRecord{llmRecord("email", "david@"), llmRecord("phone", "12")}},
	})
	assert.Empty(t, got.TurnData)
	assert.Equal(t, "old@x.com", model.Lookup(got.Data, "email"))
}

func TestMergeRuleIntentOnFallback(t *testing.T) {
	rule := &model.RuleMatch{Intent: model.IntentPricingInquiry, Confidence: 0.5}
	got := Merge("how much?", nil, &model.TurnClassification{Intent: model.DefaultIntentResult(), Rule: rule})
	assert.Equal(t, model.IntentPricingInquiry, got.PrimaryIntent)

	got = Merge("how much?", nil, &model.TurnClassification{
		Intent: &model.IntentDetectionResult{PrimaryIntent: model.IntentAskQuestion},
		Rule:   rule,
	})
	assert.Equal(t, model.IntentAskQuestion, got.PrimaryIntent)

	got = Merge("hi", nil, nil)
	assert.Equal(t, model.IntentGeneralConversation, got.PrimaryIntent)
}

func TestMergeCurrentTurnOverridesPersisted(t *testing.T) {
	got := Merge("call me Dave", map[string]any{"firstName": "David", "phone": "4155550100"}, &model.TurnClassification{
		Intent: &model.IntentDetectionResult{Extractions: []model.ExtractionRecord{llmRecord("firstName", "Dave")}},
	})
	assert.Equal(t, "Dave", model.Lookup(got.Data, "firstName"))
	assert.Equal(t, "4155550100", model.Lookup(got.Data, "phone"))
}
