package model

import "time"

// ================ Config ================
type ConversationConfig struct {
	TTL      string `envconfig:"CONVERSATION_TTL" default:"168h"`
	StateTTL string `envconfig:"CONVERSATION_STATE_TTL" default:"0"`
	History  struct {
		MaxTurns int `envconfig:"CONVERSATION_HISTORY_TURNS" default:"10"`
	}
}

type OracleConfig struct {
	Provider      string `envconfig:"LLM_PROVIDER" default:"gemini"`
	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY"`
	GeminiBaseURL string `envconfig:"GEMINI_BASE_URL"`
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`
}

type IntentModelConfig struct {
	Model       string  `envconfig:"INTENT_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"INTENT_MAX_TOKENS" default:"1500"`
	Temperature float32 `envconfig:"INTENT_TEMPERATURE" default:"0.1"`
}

type ReplyModelConfig struct {
	Model       string  `envconfig:"REPLY_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"REPLY_MAX_TOKENS" default:"800"`
	Temperature float32 `envconfig:"REPLY_TEMPERATURE" default:"0.6"`
}

// TimeoutConfig bounds each oracle call by the phase that issues it.
type TimeoutConfig struct {
	Classify time.Duration `envconfig:"TIMEOUT_CLASSIFY" default:"8s"`
	Reply    time.Duration `envconfig:"TIMEOUT_REPLY" default:"20s"`
	FollowUp time.Duration `envconfig:"TIMEOUT_FOLLOW_UP" default:"10s"`
}

type ProfileConfig struct {
	CompanyPath string `envconfig:"COMPANY_CONFIG_PATH" default:"config/company.yaml"`
	PersonaPath string `envconfig:"PERSONA_CONFIG_PATH" default:"config/persona.yaml"`
}
