package agent

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/unicornlens/server/internal/agent/model"
	"github.com/unicornlens/server/internal/agent/parsers"
	"github.com/unicornlens/server/internal/agent/prompts"
	errx "github.com/unicornlens/server/internal/core/error"
	"github.com/unicornlens/server/internal/query"
	logx "github.com/unicornlens/server/pkg/logger"
)

// ChartConfig synthesizes a chart configuration for a query result. Any
// failure along the way, and an empty result, downgrade to the default
// config instead of failing the request.
func (s *Service) ChartConfig(ctx context.Context, question string, result *query.Result) *model.ChartConfig {
	fallback := defaultChartFor(result)
	if result == nil || len(result.Rows) == 0 {
		return fallback
	}

	cfg, err := s.synthesizeChart(ctx, question, result.Rows)
	if err != nil {
		logx.Warn().Err(err).Msg("chart synthesis failed, using default config")
		return fallback
	}
	return cfg
}

// synthesizeChart runs the non-streaming chart inference and parses the
// completion. Every failure carries the chart-synthesis kind so callers can
// tell it apart from the pipeline errors they must surface.
func (s *Service) synthesizeChart(ctx context.Context, question string, rows []map[string]any) (*model.ChartConfig, error) {
	systemPrompt, err := prompts.RenderChartSystem(ctx)
	if err != nil {
		return nil, errx.ChartSynthesis(err)
	}
	userMsg, err := prompts.ChartUserMessage(question, rows)
	if err != nil {
		return nil, errx.ChartSynthesis(err)
	}

	msg, err := s.synthesis.Generate(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userMsg),
	})
	if err != nil {
		return nil, errx.ChartSynthesis(err)
	}

	cfg, err := parsers.ParseChartConfig(msg.Content)
	if err != nil {
		return nil, errx.ChartSynthesis(err)
	}
	return cfg, nil
}

// defaultChartFor derives the fallback axes from the result columns: the
// first column is the dimension, the rest are series.
func defaultChartFor(result *query.Result) *model.ChartConfig {
	if result == nil || len(result.Columns) == 0 {
		return model.DefaultChartConfig("", nil)
	}
	xKey := result.Columns[0].Name
	yKeys := make([]string, 0, len(result.Columns)-1)
	for _, col := range result.Columns[1:] {
		yKeys = append(yKeys, col.Name)
	}
	return model.DefaultChartConfig(xKey, yKeys)
}
