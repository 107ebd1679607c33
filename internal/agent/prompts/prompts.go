package prompts

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/unicornlens/server/internal/agent/model"
	"github.com/unicornlens/server/internal/agent/tools"
)

//go:embed template/analyst_prompt.txt
var analystSystemPrompt string

//go:embed template/query_prompt.txt
var querySystemPrompt string

//go:embed template/explain_prompt.txt
var explainSystemPrompt string

//go:embed template/chart_prompt.txt
var chartSystemPrompt string

// RenderAnalystSystem renders the system prompt for the streaming
// conversation turn. Rendering goes through the Eino prompt component so
// prompt callbacks fire.
func RenderAnalystSystem(ctx context.Context, config model.PromptConfig) (string, error) {
	return render(ctx, analystSystemPrompt, map[string]any{
		"TableName":  config.TableName,
		"SearchTool": tools.ToolSearchEntity,
	})
}

// RenderQuerySystem renders the SQL generation system prompt.
func RenderQuerySystem(ctx context.Context, config model.PromptConfig) (string, error) {
	return render(ctx, querySystemPrompt, map[string]any{
		"TableName": config.TableName,
	})
}

// RenderExplainSystem renders the query explanation system prompt.
func RenderExplainSystem(ctx context.Context, config model.PromptConfig) (string, error) {
	return render(ctx, explainSystemPrompt, map[string]any{
		"TableName": config.TableName,
	})
}

// RenderChartSystem renders the chart synthesis system prompt. It carries a
// literal JSON schema, so no variables are substituted.
func RenderChartSystem(_ context.Context) (string, error) {
	return chartSystemPrompt, nil
}

func render(ctx context.Context, template string, vars map[string]any) (string, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(template),
	)
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("prompt render: empty result")
	}
	return msgs[0].Content, nil
}

// QueryUserMessage builds the user turn for SQL generation.
func QueryUserMessage(question string) string {
	return fmt.Sprintf("Generate the query necessary to retrieve the data the user wants: %s", question)
}

// ExplainUserMessage builds the user turn for query explanation.
func ExplainUserMessage(question, sql string) string {
	return fmt.Sprintf(`Explain the SQL query you generated to retrieve the data the user wanted. Assume the user is not an expert in SQL. Break down the query into steps. Be concise.

User Query:
%s

Generated SQL Query:
%s`, question, sql)
}

// ChartUserMessage builds the user turn for chart synthesis. The query
// result is embedded as indented JSON.
func ChartUserMessage(question string, result any) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal result for chart prompt: %w", err)
	}
	return fmt.Sprintf(`Given the following data from a SQL query result, generate the chart config that best visualises the data and answers the users query.
For multiple groups use multi-lines.

User Query:
%s

Data:
%s`, question, data), nil
}
