package model

import (
	"github.com/cloudwego/eino/schema"
)

// TurnInput is the per-turn request handed to the turn graph. State is the
// persisted working copy read at turn start; storage is only touched through Updater.
type TurnInput struct {
	ConversationID string
	TurnID         string
	Message        string
	History        []*schema.Message
	State          *ChannelWorkflowState
	Profile        *Profile
	Updater        StateUpdater
}

// TurnClassification is the output of the Classify phase.
type TurnClassification struct {
	Intent   *IntentDetectionResult
	Patterns []ExtractionRecord
	Rule     *RuleMatch
	HintGoal string
	Hints    []string
}

// MergedTurn is the output of the Merge phase.
type MergedTurn struct {
	Records       []ExtractionRecord
	TurnData      map[string]any
	Data          map[string]any
	PrimaryIntent string
}

type FollowUpKind string

const (
	FollowUpNone          FollowUpKind = "none"
	FollowUpExit          FollowUpKind = "exit"
	FollowUpErrorRecovery FollowUpKind = "error_recovery"
	FollowUpVerification  FollowUpKind = "verification"
	FollowUpGoalQuestion  FollowUpKind = "goal_question"
	FollowUpEngagement    FollowUpKind = "engagement"
)

// FollowUp is the message appended after the reply, if any.
type FollowUp struct {
	Kind     FollowUpKind `json:"kind"`
	Text     string       `json:"text,omitempty"`
	GoalID   string       `json:"goal_id,omitempty"`
	Fields   []string     `json:"fields,omitempty"`
	Degraded bool         `json:"degraded,omitempty"`
}

// TurnResult is returned to the caller once all phases have run.
type TurnResult struct {
	ConversationID string                 `json:"conversation_id"`
	TurnID         string                 `json:"turn_id"`
	Reply          string                 `json:"reply"`
	FollowUp       FollowUp               `json:"follow_up"`
	PrimaryIntent  string                 `json:"primary_intent"`
	Classification *IntentDetectionResult `json:"classification,omitempty"`
	Extracted      map[string]any         `json:"extracted"`
	State          *ChannelWorkflowState  `json:"state"`
	Events         []string               `json:"events,omitempty"`
	Usage          TokenUsage             `json:"usage"`
	CostUSD        float64                `json:"cost_usd"`
}

// Text joins the reply and the follow-up as the agent would send them.
func (r *TurnResult) Text() string {
	if r.FollowUp.Text == "" {
		return r.Reply
	}
	return r.Reply + "\n\n" + r.FollowUp.Text
}

// TurnState stores per-invocation state for the turn graph.
// Concurrency model:
//   - Registered as graph local state via compose.WithGenLocalState.
//   - Read and written only inside eino state handlers or compose.ProcessState,
//     which serialize access, so no extra locking is needed.
//   - Never cached across turns; persistence goes through the StateUpdater.
type TurnState struct {
	Input          *TurnInput
	Classification *TurnClassification
	Merged         *MergedTurn
	Updated        *ChannelWorkflowState
	Events         []string
	Reply          string

	Usage        TokenUsage
	TotalCostUSD float64
}
