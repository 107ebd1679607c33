package agent

import (
	"context"

	einomodel "github.com/cloudwego/eino/components/model"

	"github.com/unicornlens/server/internal/agent/conversations"
	"github.com/unicornlens/server/internal/agent/model"
	"github.com/unicornlens/server/internal/agent/prompts"
	"github.com/unicornlens/server/internal/query"
	logx "github.com/unicornlens/server/pkg/logger"
)

// Executor runs screened SQL against the dataset.
type Executor interface {
	Execute(ctx context.Context, sql string) (*query.Result, error)
}

// ServiceConfig bundles the non-secret knobs the service needs.
type ServiceConfig struct {
	Prompt       model.PromptConfig
	Conversation model.ConversationConfig
}

// Service is the application core: it owns the conversation turn, SQL
// generation, query execution, explanation and chart synthesis.
type Service struct {
	orchestrator *Orchestrator
	synthesis    einomodel.BaseChatModel
	messages     *conversations.MessagesManager
	gateway      Executor
	promptCfg    model.PromptConfig
}

func NewService(
	answer einomodel.BaseChatModel,
	synthesis einomodel.BaseChatModel,
	runner toolRunner,
	conversationRepo model.ConversationRepository,
	gateway Executor,
	cfg ServiceConfig,
) *Service {
	return &Service{
		orchestrator: NewOrchestrator(answer, runner, cfg.Conversation.Tools.MaxCalls),
		synthesis:    synthesis,
		messages:     conversations.NewMessagesManager(conversationRepo, cfg.Conversation),
		gateway:      gateway,
		promptCfg:    cfg.Prompt,
	}
}

// Chat runs one streaming conversation turn. Segments are pushed to emit in
// stream order; the final assistant text is persisted to the conversation
// when the turn completes.
func (s *Service) Chat(ctx context.Context, conversationID, question string, emit EmitFunc) (*TurnResult, error) {
	systemPrompt, err := prompts.RenderAnalystSystem(ctx, s.promptCfg)
	if err != nil {
		return nil, err
	}

	msgs, err := s.messages.BuildChatContext(ctx, conversationID, systemPrompt, question)
	if err != nil {
		return nil, err
	}

	result, err := s.orchestrator.Run(ctx, msgs, emit)
	if err != nil {
		return nil, err
	}

	saved := result.Answer
	if saved == "" {
		saved = result.Reasoning
	}
	if err := s.messages.SaveResponse(ctx, conversationID, saved); err != nil {
		// history write failure does not invalidate the delivered turn
		logx.Warn().Err(err).Str("conversation_id", conversationID).Msg("failed to persist assistant response")
	}

	return result, nil
}

// ExecuteQuery screens and runs one SQL statement.
func (s *Service) ExecuteQuery(ctx context.Context, sql string) (*query.Result, error) {
	if err := screen(sql); err != nil {
		return nil, err
	}
	return s.gateway.Execute(ctx, sql)
}
