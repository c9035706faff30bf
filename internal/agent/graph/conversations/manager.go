package conversations

import (
	"context"
	"strings"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"

	"github.com/cloudwego/eino/schema"
)

// transcriptWriter is implemented by repositories that can append a whole turn atomically.
type transcriptWriter interface {
	AddMessages(ctx context.Context, conversationID string, messages ...*schema.Message) error
}

type MessagesManager struct {
	conversationRepo model.ConversationRepository
	maxTurns         int
}

func NewMessagesManager(conversationRepo model.ConversationRepository, config model.ConversationConfig) *MessagesManager {
	maxTurns := config.History.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 10
	}
	return &MessagesManager{
		conversationRepo: conversationRepo,
		maxTurns:         maxTurns,
	}
}

// LoadHistory returns the recent transcript window for a conversation.
func (cm *MessagesManager) LoadHistory(ctx context.Context, conversationID string) ([]*schema.Message, error) {
	if cm == nil || cm.conversationRepo == nil {
		return nil, nil
	}
	history, err := cm.conversationRepo.LoadHistory(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return TrimTail(history.Messages, cm.maxTurns*2), nil
}

// SaveTurn appends the customer message and the agent's full text.
func (cm *MessagesManager) SaveTurn(ctx context.Context, conversationID, userText, agentText string) error {
	if cm == nil || cm.conversationRepo == nil {
		return nil
	}
	msgs := []*schema.Message{schema.UserMessage(userText)}
	if agentText != "" {
		msgs = append(msgs, schema.AssistantMessage(agentText, nil))
	}
	if w, ok := cm.conversationRepo.(transcriptWriter); ok {
		return w.AddMessages(ctx, conversationID, msgs...)
	}
	for _, m := range msgs {
		if err := cm.conversationRepo.AddMessage(ctx, conversationID, m); err != nil {
			return err
		}
	}
	return nil
}

// Clear drops the transcript.
func (cm *MessagesManager) Clear(ctx context.Context, conversationID string) error {
	if cm == nil || cm.conversationRepo == nil {
		return nil
	}
	return cm.conversationRepo.ClearHistory(ctx, conversationID)
}

// =========== Context for classification ===========

// BuildClassificationContext renders the recent transcript plus the message to analyze.
func BuildClassificationContext(history []*schema.Message, message string, maxMessages int) string {
	var b strings.Builder
	b.WriteString("<conversation_context>\n")
	for _, msg := range TrimTail(history, maxMessages) {
		if msg == nil || msg.Content == "" {
			continue
		}
		switch msg.Role {
		case schema.User:
			b.WriteString("UserMessage(" + msg.Content + ")\n")
		case schema.Assistant:
			b.WriteString("AssistantMessage(" + msg.Content + ")\n")
		}
	}
	b.WriteString("</conversation_context>")
	b.WriteString("\n<current_message_to_analyze>\n")
	b.WriteString("UserMessage(" + message + ")\n")
	b.WriteString("</current_message_to_analyze>")
	return b.String()
}

// LastAssistantMessage returns the most recent agent text in history.
func LastAssistantMessage(history []*schema.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if m := history[i]; m != nil && m.Role == schema.Assistant {
			return m.Content
		}
	}
	return ""
}

// ====================== Helper function ======================

// TrimTail returns a copy of the last max messages.
func TrimTail(messages []*schema.Message, max int) []*schema.Message {
	if max <= 0 || len(messages) <= max {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-max:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}
