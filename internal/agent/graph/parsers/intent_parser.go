package parsers

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/salesagent/pkg/logger"
)

// basic safety limits to avoid pathological inputs
const (
	maxExtractions = 50
	maxFieldLen    = 64
	maxValueLen    = 2 * 1024
)

// IntentSchema is the JSON Schema the classification oracle must satisfy.
func IntentSchema() map[string]any {
	intents := make([]any, len(model.Intents))
	for i, v := range model.Intents {
		intents[i] = v
	}
	return map[string]any{
		"type":     "object",
		"required": []any{"primary_intent", "extractions"},
		"properties": map[string]any{
			"primary_intent": map[string]any{"type": "string", "enum": intents},
			"extractions": map[string]any{
				"type": "array",
				// Items are checked loosely; ParseIntentResult drops incomplete ones.
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"field":      map[string]any{"type": "string"},
						"value":      map[string]any{},
						"confidence": map[string]any{"type": "number"},
					},
				},
			},
			"company_info_requested": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"needs_deep_context":     map[string]any{"type": "boolean"},
			"complexity":             map[string]any{"type": "string"},
			"emotional_tone":         map[string]any{"type": "string"},
			"engagement_score":       map[string]any{"type": "number"},
			"conversion_score":       map[string]any{"type": "number"},
		},
	}
}

// ParseIntentResult converts a schema-validated oracle answer into an
// IntentDetectionResult. Scores are clamped to [0,1], unknown company
// categories are dropped and malformed extractions are skipped.
func ParseIntentResult(data map[string]any) (*model.IntentDetectionResult, error) {
	if data == nil {
		return nil, fmt.Errorf("intent result is nil")
	}
	primary, _ := data["primary_intent"].(string)
	primary = strings.TrimSpace(primary)
	if !slices.Contains(model.Intents, primary) {
		return nil, fmt.Errorf("unknown primary intent %q", primary)
	}

	out := &model.IntentDetectionResult{
		PrimaryIntent:   primary,
		Extractions:     parseExtractions(data["extractions"]),
		Complexity:      model.ComplexityModerate,
		EmotionalTone:   model.ToneNeutral,
		EngagementScore: 0.5,
		ConversionScore: 0.5,
	}

	if raw, ok := data["company_info_requested"].([]any); ok {
		for _, v := range raw {
			cat, _ := v.(string)
			cat = strings.ToLower(strings.TrimSpace(cat))
			if slices.Contains(model.CompanyInfoCategories, cat) && !slices.Contains(out.CompanyInfoRequested, cat) {
				out.CompanyInfoRequested = append(out.CompanyInfoRequested, cat)
			}
		}
	}
	if v, ok := data["needs_deep_context"].(bool); ok {
		out.NeedsDeepContext = v
	}
	if v, ok := data["complexity"].(string); ok {
		switch c := strings.ToLower(strings.TrimSpace(v)); c {
		case model.ComplexitySimple, model.ComplexityModerate, model.ComplexityComplex:
			out.Complexity = c
		}
	}
	if v, ok := data["emotional_tone"].(string); ok && strings.TrimSpace(v) != "" {
		out.EmotionalTone = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := number(data["engagement_score"]); ok {
		out.EngagementScore = clamp01(v)
	}
	if v, ok := number(data["conversion_score"]); ok {
		out.ConversionScore = clamp01(v)
	}
	return out, nil
}

func parseExtractions(raw any) []model.ExtractionRecord {
	items, _ := raw.([]any)
	out := make([]model.ExtractionRecord, 0, len(items))
	for i, it := range items {
		if i >= maxExtractions {
			logx.Warn().Int("count", len(items)).Msg("extractions truncated")
			break
		}
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		field, _ := m["field"].(string)
		field = strings.TrimSpace(field)
		if field == "" || len(field) > maxFieldLen || !utf8.ValidString(field) {
			continue
		}
		value := normalizeValue(m["value"])
		if !model.HasRealValue(value) {
			continue
		}
		conf, ok := number(m["confidence"])
		if !ok {
			conf = 0.8
		}
		out = append(out, model.ExtractionRecord{
			Field:      field,
			Value:      value,
			Confidence: clamp01(conf),
			Source:     model.SourceLLM,
		})
	}
	return out
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case string:
		s := strings.TrimSpace(x)
		if len(s) > maxValueLen || !utf8.ValidString(s) {
			return nil
		}
		return s
	default:
		return x
	}
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x)
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil && !math.IsNaN(f)
	default:
		return 0, false
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
