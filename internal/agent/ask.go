package agent

import (
	"context"

	"github.com/unicornlens/server/internal/agent/model"
	"github.com/unicornlens/server/internal/query"
)

// AskResult is the full analytics answer for one question.
type AskResult struct {
	Query  string             `json:"query"`
	Result *query.Result      `json:"result"`
	Chart  *model.ChartConfig `json:"chart"`
}

// Ask runs the whole pipeline for one question: generate SQL, execute it,
// and synthesize a chart for the rows.
func (s *Service) Ask(ctx context.Context, question string) (*AskResult, error) {
	gen, err := s.GenerateQuery(ctx, question)
	if err != nil {
		return nil, err
	}

	result, err := s.gateway.Execute(ctx, gen.Query)
	if err != nil {
		return nil, err
	}

	return &AskResult{
		Query:  gen.Query,
		Result: result,
		Chart:  s.ChartConfig(ctx, question, result),
	}, nil
}
