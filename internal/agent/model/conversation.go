package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

type ConversationRepository interface {
	// AddMessage adds a message to the conversation history for the given conversation
	AddMessage(ctx context.Context, conversationID string, message *schema.Message) error

	// LoadHistory retrieves the conversation history for a conversation
	LoadHistory(ctx context.Context, conversationID string) (*ConversationHistory, error)

	// ClearHistory removes all conversation history for a conversation
	ClearHistory(ctx context.Context, conversationID string) error

	// GetMessageCount returns the number of messages in the conversation
	GetMessageCount(ctx context.Context, conversationID string) (int, error)
}

// ConversationHistory represents loaded conversation data with metadata.
type ConversationHistory struct {
	ConversationID string
	Messages       []*schema.Message
}

// StateUpdater applies a partial update atomically for one conversation and
// returns the resulting state.
type StateUpdater interface {
	Update(ctx context.Context, conversationID string, patch *StatePatch) (*ChannelWorkflowState, error)
}

// WorkflowStateStore is the sole writer of record for ChannelWorkflowState.
type WorkflowStateStore interface {
	StateUpdater

	// Load returns the stored state, or a fresh empty state on first reference.
	Load(ctx context.Context, conversationID string) (*ChannelWorkflowState, error)

	// Save replaces the stored state. Turn processing uses Update instead.
	Save(ctx context.Context, conversationID string, state *ChannelWorkflowState) error

	// Clear removes the state; it is never called by turn processing.
	Clear(ctx context.Context, conversationID string) error
}
