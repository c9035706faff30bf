package extract

import (
	"regexp"
	"slices"
	"strings"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
)

const (
	patternConfidence    = 0.95
	motivationConfidence = 0.8
	maxReasonLen         = 280
)

type rule struct {
	re    *regexp.Regexp
	value string
}

type category struct {
	name string
	re   *regexp.Regexp
}

// Ordered per field; the first matching rule wins.
var hintedRules = map[string][]rule{
	model.FieldPreferredTime: {
		{regexp.MustCompile(`(?i)\b(evenings?|nights?|tonight|after\s+work|after\s+[5-9]\s*(pm)?)\b`), "evening"},
		{regexp.MustCompile(`(?i)\b(mornings?|before\s+work|early|sunrise)\b`), "morning"},
		{regexp.MustCompile(`(?i)\b(afternoons?|midday|noon|lunch\s*time|lunch)\b`), "afternoon"},
		{regexp.MustCompile(`(?i)\bweekends?\b`), "weekend"},
		{regexp.MustCompile(`(?i)\b(any\s*time|whenever|flexible|doesn'?t\s+matter)\b`), "flexible"},
	},
	model.FieldPreferredContact: {
		{regexp.MustCompile(`(?i)\bwhats\s*app\b`), "whatsapp"},
		{regexp.MustCompile(`(?i)\be-?mail\b`), "email"},
		{regexp.MustCompile(`(?i)\b(text|texts|texting|sms)\b`), "text"},
		{regexp.MustCompile(`(?i)\b(call|calls|phone|ring)\b`), "phone"},
	},
	model.FieldExperienceLevel: {
		{regexp.MustCompile(`(?i)\b(beginner|newbie|never|first\s+time|just\s+start(ing)?|new\s+to)\b`), "beginner"},
		{regexp.MustCompile(`(?i)\b(intermediate|some\s+experience|on\s+and\s+off|used\s+to|a\s+bit)\b`), "intermediate"},
		{regexp.MustCompile(`(?i)\b(advanced|experienced|athlete|competitive|for\s+years)\b`), "advanced"},
	},
}

// Checked on every message regardless of hints.
var motivationCategories = []category{
	{"wedding", regexp.MustCompile(`(?i)\b(wedding|bride|groom|getting\s+married|honeymoon)\b`)},
	{"competition", regexp.MustCompile(`(?i)\b(competition|compete|competing|marathon|triathlon|race|tournament)\b`)},
	{"health", regexp.MustCompile(`(?i)\b(health|healthier|doctor|blood\s+pressure|diabetes|cholesterol|heart)\b`)},
	{"family", regexp.MustCompile(`(?i)\b(kids|children|family|grandkids|baby|pregnan\w*)\b`)},
	{"confidence", regexp.MustCompile(`(?i)\b(confidence|confident|self[\s-]esteem|feel\s+better)\b`)},
	{"event", regexp.MustCompile(`(?i)\b(vacation|holiday|reunion|birthday|beach|summer)\b`)},
}

var (
	confirmationRe      = regexp.MustCompile(`(?i)\b(yes|yeah|yep|yup|correct|that'?s\s+right|right|got\s+it|confirm|confirmed|exactly|perfect|sounds\s+good)\b`)
	// Only an explicit contact correction outranks a confirmation word.
	contactCorrectionRe = regexp.MustCompile(`(?i)\b(?:(?:not|isn'?t)\s+(?:my|the\s+right|the\s+correct)\s+(?:e-?mail|phone|number)|wrong\s+(?:e-?mail|phone|number)|(?:e-?mail|phone|number)\s+(?:is|was)\s+(?:wrong|incorrect))\b`)
)

// PatternExtractor captures a small set of high-confidence answers with
// fixed rules. It is deterministic and holds no mutable state.
type PatternExtractor struct{}

func NewPatternExtractor() *PatternExtractor {
	return &PatternExtractor{}
}

// Extract returns records for hinted fields and motivation keywords found in message.
func (e *PatternExtractor) Extract(message string, hints []string) []model.ExtractionRecord {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return nil
	}
	var out []model.ExtractionRecord
	seen := map[string]bool{}
	for _, field := range hints {
		rules, ok := hintedRules[field]
		if !ok || seen[field] {
			continue
		}
		seen[field] = true
		for _, r := range rules {
			if r.re.MatchString(msg) {
				out = append(out, model.ExtractionRecord{
					Field:      field,
					Value:      r.value,
					Confidence: patternConfidence,
					Source:     model.SourcePatternMatch,
				})
				break
			}
		}
	}
	return append(out, motivation(msg)...)
}

func motivation(msg string) []model.ExtractionRecord {
	var cats []string
	for _, c := range motivationCategories {
		if c.re.MatchString(msg) {
			cats = append(cats, c.name)
		}
	}
	if len(cats) == 0 {
		return nil
	}
	reason := msg
	if len(reason) > maxReasonLen {
		reason = reason[:maxReasonLen]
	}
	return []model.ExtractionRecord{
		{Field: model.FieldMotivationReason, Value: reason, Confidence: motivationConfidence, Source: model.SourcePatternMatch},
		{Field: model.FieldMotivationCategories, Value: strings.Join(cats, ","), Confidence: motivationConfidence, Source: model.SourcePatternMatch},
	}
}

// IsCorrectionField reports whether pattern output for field overrides the LLM.
func IsCorrectionField(field string) bool {
	_, ok := hintedRules[field]
	return ok
}

// IsMotivationField reports whether field is produced by the motivation keywords.
func IsMotivationField(field string) bool {
	return field == model.FieldMotivationReason || field == model.FieldMotivationCategories
}

// HintableFields lists the fields with hinted rules.
func HintableFields() []string {
	out := make([]string, 0, len(hintedRules))
	for f := range hintedRules {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// IsConfirmation reports whether message affirms what the agent just said.
func IsConfirmation(message string) bool {
	return confirmationRe.MatchString(message) && !contactCorrectionRe.MatchString(message)
}

// FilterConfirmation drops wrong-contact signals when message is a confirmation.
func FilterConfirmation(message string, records []model.ExtractionRecord) []model.ExtractionRecord {
	if !IsConfirmation(message) {
		return records
	}
	return slices.DeleteFunc(slices.Clone(records), func(r model.ExtractionRecord) bool {
		return r.Field == model.FieldWrongEmail || r.Field == model.FieldWrongPhone
	})
}
