package stream

import (
	"io"
	"testing"

	"github.com/cloudwego/eino/schema"
)

func drain(t *testing.T, src Source) []Delta {
	t.Helper()
	var deltas []Delta
	for {
		d, err := src.Next()
		if err == io.EOF {
			return deltas
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		deltas = append(deltas, d)
	}
}

func TestMessageDeltasTextOnly(t *testing.T) {
	sr := schema.StreamReaderFromArray([]*schema.Message{
		{Role: schema.Assistant, Content: "hello "},
		{Role: schema.Assistant, Content: "world", ResponseMeta: &schema.ResponseMeta{FinishReason: "stop"}},
	})
	deltas := drain(t, MessageDeltas(sr))

	if len(deltas) != 3 {
		t.Fatalf("deltas = %d, want 3", len(deltas))
	}
	if deltas[0].Kind != DeltaText || deltas[0].Text != "hello " {
		t.Fatalf("delta 0 = %+v", deltas[0])
	}
	if deltas[2].Kind != DeltaFinish || deltas[2].FinishReason != "stop" {
		t.Fatalf("final delta = %+v, want finish stop", deltas[2])
	}
}

func TestMessageDeltasAssemblesToolCallFragments(t *testing.T) {
	idx := 0
	sr := schema.StreamReaderFromArray([]*schema.Message{
		{Role: schema.Assistant, ToolCalls: []schema.ToolCall{{
			Index:    &idx,
			ID:       "call_1",
			Function: schema.FunctionCall{Name: "searchEntity", Arguments: `{"query":`},
		}}},
		{Role: schema.Assistant, ToolCalls: []schema.ToolCall{{
			Index:    &idx,
			Function: schema.FunctionCall{Arguments: `"unicorn companies"}`},
		}}},
		{Role: schema.Assistant, ResponseMeta: &schema.ResponseMeta{FinishReason: "tool_calls"}},
	})
	deltas := drain(t, MessageDeltas(sr))

	var complete *Delta
	for i := range deltas {
		if deltas[i].Kind == DeltaToolCallComplete {
			complete = &deltas[i]
		}
	}
	if complete == nil {
		t.Fatal("no tool-call-complete delta")
	}
	if complete.ToolName != "searchEntity" || complete.ToolCallID != "call_1" {
		t.Fatalf("complete = %+v", complete)
	}
	if complete.Args != `{"query":"unicorn companies"}` {
		t.Fatalf("args = %q, want assembled fragments", complete.Args)
	}
}

func TestMessageDeltasTextClosesOpenCall(t *testing.T) {
	idx := 0
	sr := schema.StreamReaderFromArray([]*schema.Message{
		{Role: schema.Assistant, ToolCalls: []schema.ToolCall{{
			Index:    &idx,
			ID:       "call_1",
			Function: schema.FunctionCall{Name: "searchEntity", Arguments: `{}`},
		}}},
		{Role: schema.Assistant, Content: "after"},
	})
	deltas := drain(t, MessageDeltas(sr))

	var completeAt, textAt int = -1, -1
	for i, d := range deltas {
		switch d.Kind {
		case DeltaToolCallComplete:
			completeAt = i
		case DeltaText:
			textAt = i
		}
	}
	if completeAt == -1 || textAt == -1 || completeAt > textAt {
		t.Fatalf("order = %v: complete must precede resumed text", deltas)
	}
}

func TestMessageDeltasEmptyArgsBecomeEmptyObject(t *testing.T) {
	idx := 0
	sr := schema.StreamReaderFromArray([]*schema.Message{
		{Role: schema.Assistant, ToolCalls: []schema.ToolCall{{
			Index:    &idx,
			ID:       "call_1",
			Function: schema.FunctionCall{Name: "searchEntity"},
		}}},
	})
	deltas := drain(t, MessageDeltas(sr))

	for _, d := range deltas {
		if d.Kind == DeltaToolCallComplete {
			if d.Args != "{}" {
				t.Fatalf("args = %q, want {}", d.Args)
			}
			return
		}
	}
	t.Fatal("no tool-call-complete delta")
}
