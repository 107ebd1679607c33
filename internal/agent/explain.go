package agent

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cloudwego/eino/schema"

	"github.com/unicornlens/server/internal/agent/model"
	"github.com/unicornlens/server/internal/agent/parsers"
	"github.com/unicornlens/server/internal/agent/prompts"
	errx "github.com/unicornlens/server/internal/core/error"
)

// ExplainQuery breaks a generated SQL statement into annotated sections.
func (s *Service) ExplainQuery(ctx context.Context, question, sql string) ([]model.Explanation, error) {
	systemPrompt, err := prompts.RenderExplainSystem(ctx, s.promptCfg)
	if err != nil {
		return nil, err
	}

	msg, err := s.synthesis.Generate(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(prompts.ExplainUserMessage(question, sql)),
	})
	if err != nil {
		return nil, errx.ModelStream(fmt.Errorf("explain query: %w", err))
	}

	explanations, err := parsers.ParseExplanations(msg.Content)
	if err != nil {
		return nil, errx.New(err, http.StatusBadGateway, "query explanation parse failed")
	}
	return explanations, nil
}
