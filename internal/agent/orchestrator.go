package agent

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/unicornlens/server/internal/agent/stream"
	errx "github.com/unicornlens/server/internal/core/error"
	logx "github.com/unicornlens/server/pkg/logger"
)

// EmitFunc receives classified segments as they are produced. Returning an
// error stops the turn; the controller treats it as the consumer going away.
type EmitFunc func(stream.Segment) error

// toolRunner is what the controller needs from the tool registry.
type toolRunner interface {
	Has(name string) bool
	Validate(name, args string) error
	Execute(ctx context.Context, name, args string) (string, error)
}

// TurnResult summarizes one completed conversation turn.
type TurnResult struct {
	Reasoning string
	Answer    string
	ToolCalls int
}

// Orchestrator drives one conversation turn: it streams the model, emits
// classified segments, and when the model requests a tool it validates the
// arguments, executes the tool, and continues the stream with the result
// appended. One tool call per model response; two or more in the same
// response is a violation and ends the turn.
type Orchestrator struct {
	model    einomodel.BaseChatModel
	tools    toolRunner
	detector stream.MarkerDetector
	maxCalls int
}

func NewOrchestrator(chatModel einomodel.BaseChatModel, runner toolRunner, maxCalls int) *Orchestrator {
	return &Orchestrator{
		model:    chatModel,
		tools:    runner,
		detector: stream.NewMarkerDetector(),
		maxCalls: maxCalls,
	}
}

// Run executes the turn to completion. Segments are emitted in stream
// order. On failure the last emitted segment is an error segment and the
// returned error is non-nil; no further model requests are made.
func (o *Orchestrator) Run(ctx context.Context, messages []*schema.Message, emit EmitFunc) (*TurnResult, error) {
	msgs := make([]*schema.Message, len(messages))
	copy(msgs, messages)

	result := &TurnResult{}
	for {
		invocation, err := o.runRound(ctx, msgs, result, emit)
		if err != nil {
			o.emitError(emit, err)
			return nil, err
		}
		if invocation == nil {
			return result, nil
		}

		result.ToolCalls++
		if result.ToolCalls > o.maxCalls {
			err := errx.ToolExecution(invocation.Name, fmt.Errorf("tool call limit %d exceeded", o.maxCalls))
			o.emitError(emit, err)
			return nil, err
		}

		if err := o.invoke(ctx, invocation, emit); err != nil {
			o.emitError(emit, err)
			return nil, err
		}

		msgs = append(msgs,
			schema.AssistantMessage("", []schema.ToolCall{{
				ID:       invocation.ID,
				Function: schema.FunctionCall{Name: invocation.Name, Arguments: invocation.Args},
			}}),
			schema.ToolMessage(invocation.Result, invocation.ID),
		)
	}
}

// runRound streams one model response. It returns the round's single tool
// invocation if the model requested one, nil when the turn is complete.
func (o *Orchestrator) runRound(ctx context.Context, msgs []*schema.Message, result *TurnResult, emit EmitFunc) (*stream.ToolInvocation, error) {
	sr, err := o.model.Stream(ctx, msgs)
	if err != nil {
		return nil, errx.ModelStream(err)
	}

	classifier := stream.NewClassifier(stream.MessageDeltas(sr), o.detector)
	defer classifier.Close()

	var invocation *stream.ToolInvocation
	for {
		seg, segErr := classifier.Next()
		if segErr != nil {
			break
		}

		switch seg.Kind {
		case stream.SegmentReasoning, stream.SegmentAnswer:
			if err := emit(seg); err != nil {
				return nil, err
			}
		case stream.SegmentTool:
			if invocation != nil {
				return nil, errx.ToolExecution(seg.Invocation.Name,
					fmt.Errorf("concurrent tool calls are not supported"))
			}
			invocation = seg.Invocation
			if invocation.ID == "" {
				invocation.ID = uuid.NewString()
			}
			// Emit a snapshot so the pending segment is not retroactively
			// rewritten when invoke mutates the retained invocation.
			pending := *invocation
			if err := emit(stream.Segment{Kind: stream.SegmentTool, Invocation: &pending}); err != nil {
				return nil, err
			}
		case stream.SegmentError:
			return nil, errx.ModelStream(seg.Err)
		case stream.SegmentDone:
			// keep draining; the source has already finished
		}
	}

	result.Reasoning += classifier.Reasoning()
	result.Answer += classifier.Answer()
	return invocation, nil
}

// invoke validates and executes one tool call, then emits the invocation
// segment again with its final state.
func (o *Orchestrator) invoke(ctx context.Context, invocation *stream.ToolInvocation, emit EmitFunc) error {
	if !o.tools.Has(invocation.Name) {
		invocation.State = stream.InvocationFailed
		invocation.FailReason = "unknown tool"
		return errx.ToolSchema(invocation.Name, fmt.Errorf("unknown tool %q", invocation.Name))
	}
	if err := o.tools.Validate(invocation.Name, invocation.Args); err != nil {
		invocation.State = stream.InvocationFailed
		invocation.FailReason = err.Error()
		return errx.ToolSchema(invocation.Name, err)
	}

	out, err := o.tools.Execute(ctx, invocation.Name, invocation.Args)
	if err != nil {
		invocation.State = stream.InvocationFailed
		invocation.FailReason = err.Error()
		return errx.ToolExecution(invocation.Name, err)
	}

	invocation.State = stream.InvocationComplete
	invocation.Result = out
	logx.Debug().
		Str("component", "orchestrator").
		Str("tool", invocation.Name).
		Msg("tool call completed")

	return emit(stream.Segment{Kind: stream.SegmentTool, Invocation: invocation})
}

func (o *Orchestrator) emitError(emit EmitFunc, err error) {
	logx.Error().Err(err).Str("component", "orchestrator").Msg("turn failed")
	if emitErr := emit(stream.Segment{Kind: stream.SegmentError, Err: err}); emitErr != nil {
		logx.Warn().Err(emitErr).Msg("error segment not delivered")
	}
}
