package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/unicornlens/server/internal/agent/model"
	"github.com/unicornlens/server/internal/agent/stream"
	errx "github.com/unicornlens/server/internal/core/error"
	"github.com/unicornlens/server/internal/query"
)

// ===================================
// Fakes
// ===================================

type memoryConversationRepo struct {
	messages map[string][]*schema.Message
}

func newMemoryConversationRepo() *memoryConversationRepo {
	return &memoryConversationRepo{messages: make(map[string][]*schema.Message)}
}

func (r *memoryConversationRepo) AddMessage(ctx context.Context, conversationID string, message *schema.Message) error {
	r.messages[conversationID] = append(r.messages[conversationID], message)
	return nil
}

func (r *memoryConversationRepo) LoadHistory(ctx context.Context, conversationID string) (*model.ConversationHistory, error) {
	return &model.ConversationHistory{
		ConversationID: conversationID,
		Messages:       r.messages[conversationID],
	}, nil
}

func (r *memoryConversationRepo) ClearHistory(ctx context.Context, conversationID string) error {
	delete(r.messages, conversationID)
	return nil
}

func (r *memoryConversationRepo) GetMessageCount(ctx context.Context, conversationID string) (int, error) {
	return len(r.messages[conversationID]), nil
}

type fakeExecutor struct {
	result *query.Result
	err    error
	gotSQL string
}

func (f *fakeExecutor) Execute(ctx context.Context, sql string) (*query.Result, error) {
	f.gotSQL = sql
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func testServiceConfig() ServiceConfig {
	cfg := ServiceConfig{Prompt: model.PromptConfig{TableName: "unicorns"}}
	cfg.Conversation.Chat.MaxTurns = 10
	cfg.Conversation.Tools.MaxCalls = 3
	return cfg
}

func newTestService(answer, synthesis *fakeChatModel, executor *fakeExecutor) (*Service, *memoryConversationRepo) {
	repo := newMemoryConversationRepo()
	runner := &fakeRunner{results: map[string]string{"searchEntity": `{"tableName":"unicorns","confidence":0.95}`}}
	svc := NewService(answer, synthesis, runner, repo, executor, testServiceConfig())
	return svc, repo
}

// ===================================
// Tests
// ===================================

func TestServiceChatPersistsAnswer(t *testing.T) {
	answer := &fakeChatModel{rounds: [][]*schema.Message{answerRound("SpaceX is the most valuable unicorn.")}}
	svc, repo := newTestService(answer, &fakeChatModel{}, &fakeExecutor{})

	emit, _ := collectSegments()
	result, err := svc.Chat(context.Background(), "conv-1", "most valuable unicorn?", emit)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if result.Answer == "" {
		t.Fatal("empty answer")
	}

	history := repo.messages["conv-1"]
	if len(history) != 2 {
		t.Fatalf("history = %d messages, want user + assistant", len(history))
	}
	if history[0].Role != schema.User || history[1].Role != schema.Assistant {
		t.Fatalf("history roles = %s, %s", history[0].Role, history[1].Role)
	}
	if history[1].Content != result.Answer {
		t.Fatalf("persisted = %q, want final answer", history[1].Content)
	}
}

func TestServiceChatSystemPromptFirst(t *testing.T) {
	answer := &fakeChatModel{rounds: [][]*schema.Message{answerRound("done")}}
	svc, _ := newTestService(answer, &fakeChatModel{}, &fakeExecutor{})

	emit, _ := collectSegments()
	if _, err := svc.Chat(context.Background(), "conv-1", "question", emit); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	sent := answer.gotMessages[0]
	if sent[0].Role != schema.System {
		t.Fatalf("first message role = %s, want system", sent[0].Role)
	}
	if sent[len(sent)-1].Role != schema.User {
		t.Fatalf("last message role = %s, want user", sent[len(sent)-1].Role)
	}
}

func TestServiceGenerateQuery(t *testing.T) {
	synthesis := &fakeChatModel{rounds: [][]*schema.Message{{
		{Role: schema.Assistant, Content: "The valuation column is stored in billions.\nOrdering descending gives the top entries.\n"},
		{Role: schema.Assistant, Content: "```sql\nSELECT company, valuation FROM unicorns ORDER BY valuation DESC LIMIT 5\n```"},
		{Role: schema.Assistant, ResponseMeta: &schema.ResponseMeta{FinishReason: "stop"}},
	}}}
	svc, _ := newTestService(&fakeChatModel{}, synthesis, &fakeExecutor{})

	gen, err := svc.GenerateQuery(context.Background(), "top 5 unicorns")
	if err != nil {
		t.Fatalf("GenerateQuery: %v", err)
	}
	if gen.Query != "SELECT company, valuation FROM unicorns ORDER BY valuation DESC LIMIT 5" {
		t.Fatalf("query = %q", gen.Query)
	}
	if len(gen.Reasoning) != 2 {
		t.Fatalf("reasoning = %v, want the two steps before the statement", gen.Reasoning)
	}
	if gen.Reasoning[0] != "The valuation column is stored in billions." {
		t.Fatalf("reasoning[0] = %q", gen.Reasoning[0])
	}
}

func TestServiceGenerateQueryNoReasoning(t *testing.T) {
	synthesis := &fakeChatModel{rounds: [][]*schema.Message{{
		{Role: schema.Assistant, Content: "```sql\nSELECT company FROM unicorns\n```"},
		{Role: schema.Assistant, ResponseMeta: &schema.ResponseMeta{FinishReason: "stop"}},
	}}}
	svc, _ := newTestService(&fakeChatModel{}, synthesis, &fakeExecutor{})

	gen, err := svc.GenerateQuery(context.Background(), "companies")
	if err != nil {
		t.Fatalf("GenerateQuery: %v", err)
	}
	if gen.Reasoning == nil || len(gen.Reasoning) != 0 {
		t.Fatalf("reasoning = %#v, want empty non-nil slice", gen.Reasoning)
	}
}

func TestServiceGenerateQueryRejectsUnsafe(t *testing.T) {
	synthesis := &fakeChatModel{rounds: [][]*schema.Message{{
		{Role: schema.Assistant, Content: "DROP TABLE unicorns"},
		{Role: schema.Assistant, ResponseMeta: &schema.ResponseMeta{FinishReason: "stop"}},
	}}}
	svc, _ := newTestService(&fakeChatModel{}, synthesis, &fakeExecutor{})

	_, err := svc.GenerateQuery(context.Background(), "delete everything")
	if !errx.IsKind(err, errx.KindSafetyRejected) {
		t.Fatalf("err = %v, want safety-rejected kind", err)
	}
}

func TestServiceGenerateQueryModelFailure(t *testing.T) {
	synthesis := &fakeChatModel{streamErr: errors.New("quota exceeded")}
	svc, _ := newTestService(&fakeChatModel{}, synthesis, &fakeExecutor{})

	_, err := svc.GenerateQuery(context.Background(), "anything")
	if !errx.IsKind(err, errx.KindModelStream) {
		t.Fatalf("err = %v, want model-stream kind", err)
	}
}

func TestServiceExecuteQueryScreensFirst(t *testing.T) {
	executor := &fakeExecutor{}
	svc, _ := newTestService(&fakeChatModel{}, &fakeChatModel{}, executor)

	_, err := svc.ExecuteQuery(context.Background(), "TRUNCATE unicorns")
	if !errx.IsKind(err, errx.KindSafetyRejected) {
		t.Fatalf("err = %v, want safety-rejected kind", err)
	}
	if executor.gotSQL != "" {
		t.Fatal("rejected statement reached the gateway")
	}
}

func TestServiceExplainQuery(t *testing.T) {
	synthesis := &fakeChatModel{generated: &schema.Message{
		Role:    schema.Assistant,
		Content: `[{"section":"SELECT company","explanation":"Picks the company column."}]`,
	}}
	svc, _ := newTestService(&fakeChatModel{}, synthesis, &fakeExecutor{})

	explanations, err := svc.ExplainQuery(context.Background(), "companies", "SELECT company FROM unicorns")
	if err != nil {
		t.Fatalf("ExplainQuery: %v", err)
	}
	if len(explanations) != 1 || explanations[0].Section != "SELECT company" {
		t.Fatalf("explanations = %+v", explanations)
	}
}

func TestServiceChartConfig(t *testing.T) {
	synthesis := &fakeChatModel{generated: &schema.Message{
		Role:    schema.Assistant,
		Content: `{"type":"pie","title":"Unicorns by Country","xKey":"country","yKeys":["count"]}`,
	}}
	svc, _ := newTestService(&fakeChatModel{}, synthesis, &fakeExecutor{})

	result := &query.Result{
		Columns: []query.Column{{Name: "country"}, {Name: "count"}},
		Rows:    []map[string]any{{"country": "United States", "count": float64(640)}},
	}
	cfg := svc.ChartConfig(context.Background(), "unicorns by country", result)
	if cfg.Type != model.ChartPie {
		t.Fatalf("type = %s", cfg.Type)
	}
	if cfg.Colors["count"] == "" {
		t.Fatal("colors not assigned")
	}
}

func TestServiceChartConfigFallsBack(t *testing.T) {
	tests := []struct {
		name      string
		synthesis *fakeChatModel
		result    *query.Result
	}{
		{
			"empty result skips synthesis",
			&fakeChatModel{genErr: errors.New("should not be called")},
			&query.Result{Columns: []query.Column{{Name: "company"}, {Name: "valuation"}}, Rows: []map[string]any{}},
		},
		{
			"model failure",
			&fakeChatModel{genErr: errors.New("quota exceeded")},
			&query.Result{Columns: []query.Column{{Name: "company"}, {Name: "valuation"}}, Rows: []map[string]any{{"company": "SpaceX", "valuation": 350.0}}},
		},
		{
			"unparseable completion",
			&fakeChatModel{generated: &schema.Message{Role: schema.Assistant, Content: "no json here"}},
			&query.Result{Columns: []query.Column{{Name: "company"}, {Name: "valuation"}}, Rows: []map[string]any{{"company": "SpaceX", "valuation": 350.0}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(&fakeChatModel{}, tt.synthesis, &fakeExecutor{})
			cfg := svc.ChartConfig(context.Background(), "q", tt.result)
			if cfg == nil {
				t.Fatal("nil config")
			}
			if cfg.Type != model.ChartBar || cfg.XKey != "company" {
				t.Fatalf("fallback config = %+v", cfg)
			}
			if len(cfg.YKeys) != 1 || cfg.YKeys[0] != "valuation" {
				t.Fatalf("fallback yKeys = %v", cfg.YKeys)
			}
		})
	}
}

func TestServiceChartSynthesisErrorKind(t *testing.T) {
	synthesis := &fakeChatModel{genErr: errors.New("quota exceeded")}
	svc, _ := newTestService(&fakeChatModel{}, synthesis, &fakeExecutor{})

	rows := []map[string]any{{"company": "SpaceX", "valuation": 350.0}}
	_, err := svc.synthesizeChart(context.Background(), "q", rows)
	if !errx.IsKind(err, errx.KindChartSynthesis) {
		t.Fatalf("err = %v, want chart-synthesis kind", err)
	}
}

func TestServiceAsk(t *testing.T) {
	synthesis := &fakeChatModel{
		rounds: [][]*schema.Message{{
			{Role: schema.Assistant, Content: "SELECT country, count(*) FROM unicorns GROUP BY country"},
			{Role: schema.Assistant, ResponseMeta: &schema.ResponseMeta{FinishReason: "stop"}},
		}},
		generated: &schema.Message{Role: schema.Assistant, Content: "not a chart config"},
	}
	executor := &fakeExecutor{result: &query.Result{
		Columns: []query.Column{{Name: "country"}, {Name: "count"}},
		Rows:    []map[string]any{{"country": "Sweden", "count": float64(8)}},
	}}
	svc, _ := newTestService(&fakeChatModel{}, synthesis, executor)

	// The chart call reuses the same synthesis fake, whose completion is not
	// chart JSON, so Ask falls back to the default config.
	res, err := svc.Ask(context.Background(), "unicorns per country")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if res.Query == "" || res.Result == nil || res.Chart == nil {
		t.Fatalf("incomplete result = %+v", res)
	}
	if executor.gotSQL != res.Query {
		t.Fatalf("executed %q, returned %q", executor.gotSQL, res.Query)
	}
}

func TestServiceChatToolRoundTrip(t *testing.T) {
	answer := &fakeChatModel{rounds: [][]*schema.Message{
		toolCallRound("call_1", "searchEntity", `{"description":"unicorn companies"}`),
		answerRound("There are 1200 unicorns."),
	}}
	svc, _ := newTestService(answer, &fakeChatModel{}, &fakeExecutor{})

	emit, segs := collectSegments()
	result, err := svc.Chat(context.Background(), "conv-2", "how many unicorns?", emit)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if result.ToolCalls != 1 {
		t.Fatalf("toolCalls = %d", result.ToolCalls)
	}

	var sawPending, sawComplete bool
	for _, seg := range *segs {
		if seg.Kind == stream.SegmentTool {
			switch seg.Invocation.State {
			case stream.InvocationPending:
				sawPending = true
			case stream.InvocationComplete:
				sawComplete = true
			}
		}
	}
	if !sawPending || !sawComplete {
		t.Fatalf("pending=%v complete=%v, want both invocation states", sawPending, sawComplete)
	}
}
