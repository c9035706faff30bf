package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// Purpose labels an oracle call; it selects the model and tags usage metrics.
type Purpose string

const (
	PurposeClassify     Purpose = "classify"
	PurposeReply        Purpose = "reply"
	PurposeVerification Purpose = "verification"
	PurposeGoalQuestion Purpose = "goal_question"
	PurposeRecovery     Purpose = "error_recovery"
	PurposeExit         Purpose = "exit"
	PurposeEngagement   Purpose = "engagement"
)

// TokenUsage is reported by the oracle when the provider returns it.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add accumulates u2 into u.
func (u *TokenUsage) Add(u2 *TokenUsage) {
	if u2 == nil {
		return
	}
	u.InputTokens += u2.InputTokens
	u.OutputTokens += u2.OutputTokens
}

// OracleRequest asks for free text, or for a structured object when Schema is set.
type OracleRequest struct {
	Purpose Purpose
	System  string
	Prompt  string
	History []*schema.Message
	Schema  map[string]any
}

type OracleResponse struct {
	Text       string
	Structured map[string]any
	Usage      *TokenUsage
	Model      string
}

// Oracle is the language model inference service, treated as a black box.
type Oracle interface {
	Complete(ctx context.Context, req OracleRequest) (*OracleResponse, error)
}

// TelemetrySink receives fire-and-forget events. Implementations must never
// surface failures to the caller.
type TelemetrySink interface {
	Emit(ctx context.Context, event string, payload map[string]any)
}
