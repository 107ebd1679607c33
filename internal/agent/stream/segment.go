package stream

// SegmentKind classifies a run of the model stream.
type SegmentKind string

const (
	SegmentReasoning SegmentKind = "reasoning"
	SegmentAnswer    SegmentKind = "answer"
	SegmentTool      SegmentKind = "tool"
	SegmentDone      SegmentKind = "done"
	SegmentError     SegmentKind = "error"
)

// InvocationState tracks a tool invocation through its lifecycle.
type InvocationState string

const (
	InvocationPending  InvocationState = "pending"
	InvocationComplete InvocationState = "complete"
	InvocationFailed   InvocationState = "failed"
)

// ToolInvocation is a fully assembled tool call surfaced from the stream.
// The classifier emits it in the pending state; the controller fills Result
// or FailReason after execution.
type ToolInvocation struct {
	ID    string
	Name  string
	Args  string
	State InvocationState

	Result     string
	FailReason string
}

// Segment is one classified unit of model output.
//
// Reasoning segments carry the full accumulated reasoning text so far;
// answer segments carry only the increment.
type Segment struct {
	Kind SegmentKind
	Text string

	Invocation   *ToolInvocation
	FinishReason string
	Err          error
}
