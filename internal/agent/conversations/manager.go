package conversations

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/unicornlens/server/internal/agent/model"
)

// MessagesManager assembles the message context for the analyst model from
// persisted conversation history.
type MessagesManager struct {
	conversationRepo model.ConversationRepository
	maxTurns         int
}

func NewMessagesManager(conversationRepo model.ConversationRepository, config model.ConversationConfig) *MessagesManager {
	return &MessagesManager{
		conversationRepo: conversationRepo,
		maxTurns:         config.Chat.MaxTurns,
	}
}

// BuildChatContext records the user question and returns the system prompt
// followed by the trimmed conversation history.
func (cm *MessagesManager) BuildChatContext(ctx context.Context, conversationID, systemPrompt, question string) ([]*schema.Message, error) {
	userMsg := schema.UserMessage(question)
	if err := cm.conversationRepo.AddMessage(ctx, conversationID, userMsg); err != nil {
		return nil, err
	}

	history, err := cm.conversationRepo.LoadHistory(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
	}
	messages = append(messages, trimTail(history.Messages, cm.maxTurns)...)

	return messages, nil
}

// SaveResponse persists the final assistant answer for a conversation.
func (cm *MessagesManager) SaveResponse(ctx context.Context, conversationID string, content string) error {
	assistantMsg := schema.AssistantMessage(content, nil)
	return cm.conversationRepo.AddMessage(ctx, conversationID, assistantMsg)
}

// ====================== Helper function ======================
func trimTail(messages []*schema.Message, maxTurns int) []*schema.Message {
	if maxTurns <= 0 || len(messages) <= maxTurns {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-maxTurns:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}
