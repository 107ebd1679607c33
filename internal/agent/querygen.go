package agent

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/unicornlens/server/internal/agent/prompts"
	"github.com/unicornlens/server/internal/agent/stream"
	errx "github.com/unicornlens/server/internal/core/error"
	"github.com/unicornlens/server/internal/query"
)

// QueryGeneration is a generated statement together with the reasoning steps
// the model produced before it.
type QueryGeneration struct {
	Query     string   `json:"query"`
	Reasoning []string `json:"reasoning"`
}

// GenerateQuery asks the synthesis model for a SQL statement answering the
// question. The completion is streamed through the classifier so the
// reasoning steps are captured alongside the statement, which is extracted
// and screened. A statement that fails screening is never returned.
func (s *Service) GenerateQuery(ctx context.Context, question string) (*QueryGeneration, error) {
	systemPrompt, err := prompts.RenderQuerySystem(ctx, s.promptCfg)
	if err != nil {
		return nil, err
	}

	sr, err := s.synthesis.Stream(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(prompts.QueryUserMessage(question)),
	})
	if err != nil {
		return nil, errx.ModelStream(fmt.Errorf("generate query: %w", err))
	}

	classifier := stream.NewClassifier(stream.MessageDeltas(sr), stream.NewMarkerDetector())
	defer classifier.Close()
	for {
		seg, err := classifier.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errx.ModelStream(err)
		}
		if seg.Kind == stream.SegmentError {
			return nil, errx.ModelStream(seg.Err)
		}
	}

	sql := query.ExtractSQL(classifier.Reasoning() + classifier.Answer())
	if err := screen(sql); err != nil {
		return nil, err
	}
	return &QueryGeneration{
		Query:     sql,
		Reasoning: reasoningSteps(classifier.Reasoning()),
	}, nil
}

// reasoningSteps splits accumulated reasoning text into its non-empty lines.
func reasoningSteps(text string) []string {
	steps := []string{}
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			steps = append(steps, line)
		}
	}
	return steps
}

// screen applies the read-only policy, converting a rejection into the
// typed error surfaced to callers.
func screen(sql string) error {
	if verdict := query.Screen(sql); !verdict.Allowed {
		return errx.SafetyRejected(verdict.Rule)
	}
	return nil
}
