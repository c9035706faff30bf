package model

import (
	"fmt"
	"strings"
)

// Source identifies which extractor produced a value.
type Source string

const (
	SourcePatternMatch Source = "pre_llm_pattern_match"
	SourceLLM          Source = "llm_intent_detection"
)

// Well-known captured-data field names.
const (
	FieldFirstName            = "firstName"
	FieldLastName             = "lastName"
	FieldEmail                = "email"
	FieldPhone                = "phone"
	FieldWrongEmail           = "wrong_email"
	FieldWrongPhone           = "wrong_phone"
	FieldPreferredTime        = "preferredTime"
	FieldPreferredContact     = "preferredContactMethod"
	FieldExperienceLevel      = "experienceLevel"
	FieldMotivationReason     = "motivationReason"
	FieldMotivationCategories = "motivationCategories"
	FieldGender               = "gender"
	FieldInjuries             = "injuries"
	FieldVisitDate            = "visitDate"
	FieldVisitTime            = "visitTime"
	FieldCurrentWeight        = "currentWeight"
	FieldGoalWeight           = "goalWeight"
	FieldHeight               = "height"
	FieldFitnessGoal          = "fitnessGoal"
)

// FieldValue is the wrapped shape of a captured value.
type FieldValue struct {
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence,omitempty"`
	Source     Source  `json:"source,omitempty"`
}

// ExtractionRecord is the per-turn unit merged into captured data.
type ExtractionRecord struct {
	Field      string  `json:"field"`
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
	Source     Source  `json:"source"`
}

// Wrap converts the record to the persisted field shape.
func (r ExtractionRecord) Wrap() FieldValue {
	return FieldValue{Value: r.Value, Confidence: r.Confidence, Source: r.Source}
}

// Unwrap returns the bare value of x, which may be a scalar, a FieldValue,
// or a decoded {value, confidence, source} object.
func Unwrap(x any) any {
	switch v := x.(type) {
	case FieldValue:
		return v.Value
	case *FieldValue:
		if v == nil {
			return nil
		}
		return v.Value
	case map[string]any:
		if inner, ok := v["value"]; ok {
			return inner
		}
		return v
	default:
		return x
	}
}

// HasRealValue reports whether x holds a usable value in either shape.
// A wrapped {value: null} counts as absent.
func HasRealValue(x any) bool {
	switch v := Unwrap(x).(type) {
	case nil:
		return false
	case string:
		s := strings.TrimSpace(v)
		return s != "" && !strings.EqualFold(s, "null") && !strings.EqualFold(s, "undefined")
	case []any:
		return len(v) > 0
	case []string:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}

// StringValue returns the unwrapped value formatted as a string, or "" when absent.
func StringValue(x any) string {
	if !HasRealValue(x) {
		return ""
	}
	switch v := Unwrap(x).(type) {
	case string:
		return strings.TrimSpace(v)
	default:
		return fmt.Sprint(v)
	}
}

// Lookup returns the string value of field in data.
func Lookup(data map[string]any, field string) string {
	if data == nil {
		return ""
	}
	return StringValue(data[field])
}
