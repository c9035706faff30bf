package model

// Primary intent tags produced by classification.
const (
	IntentGeneralConversation = "general_conversation"
	IntentGreeting            = "greeting"
	IntentProvideInformation  = "provide_information"
	IntentAskQuestion         = "ask_question"
	IntentPricingInquiry      = "pricing_inquiry"
	IntentScheduleVisit       = "schedule_visit"
	IntentObjection           = "objection"
	IntentDecline             = "decline"
	IntentConfirmation        = "confirmation"
	IntentCorrection          = "correction"
	IntentEndConversation     = "end_conversation"
)

// Intents is the taxonomy offered to the classifier.
var Intents = []string{
	IntentGeneralConversation,
	IntentGreeting,
	IntentProvideInformation,
	IntentAskQuestion,
	IntentPricingInquiry,
	IntentScheduleVisit,
	IntentObjection,
	IntentDecline,
	IntentConfirmation,
	IntentCorrection,
	IntentEndConversation,
}

// CompanyInfoCategories is the fixed taxonomy of company facts a turn may request.
var CompanyInfoCategories = []string{
	"hours",
	"pricing",
	"location",
	"amenities",
	"classes",
	"trainers",
	"policies",
	"promotions",
	"contact",
}

const (
	ComplexitySimple   = "simple"
	ComplexityModerate = "moderate"
	ComplexityComplex  = "complex"

	ToneNeutral = "neutral"
)

// IntentDetectionResult is the per-turn output of LLM classification. It is
// never persisted.
type IntentDetectionResult struct {
	PrimaryIntent        string             `json:"primary_intent"`
	Extractions          []ExtractionRecord `json:"extractions"`
	CompanyInfoRequested []string           `json:"company_info_requested,omitempty"`
	NeedsDeepContext     bool               `json:"needs_deep_context"`
	Complexity           string             `json:"complexity"`
	EmotionalTone        string             `json:"emotional_tone"`
	EngagementScore      float64            `json:"engagement_score"`
	ConversionScore      float64            `json:"conversion_score"`

	// Fallback is set when the result is the safe default rather than an oracle answer.
	Fallback bool `json:"-"`
}

// DefaultIntentResult is returned whenever classification fails.
func DefaultIntentResult() *IntentDetectionResult {
	return &IntentDetectionResult{
		PrimaryIntent:   IntentGeneralConversation,
		Extractions:     []ExtractionRecord{},
		Complexity:      ComplexityModerate,
		EmotionalTone:   ToneNeutral,
		EngagementScore: 0.5,
		ConversionScore: 0.5,
		Fallback:        true,
	}
}

// RuleMatch is the outcome of the rule-based persona intent matcher.
type RuleMatch struct {
	Intent     string   `json:"intent"`
	Confidence float64  `json:"confidence"`
	Matched    []string `json:"matched,omitempty"`
	Response   string   `json:"response,omitempty"`
}
