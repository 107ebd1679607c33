package stream

import (
	"io"
	"strings"
)

type classifierState int

const (
	stateReasoning classifierState = iota
	stateAnswering
)

// Classifier walks a delta source and emits classified segments. Every text
// delta starts as reasoning; once the marker detector fires, the triggering
// delta and everything after it is answer text. Tool-call deltas interrupt
// text accumulation without discarding it. If the marker never appears the
// whole response stays reasoning and the answer is empty.
type Classifier struct {
	src      Source
	detector MarkerDetector

	state     classifierState
	reasoning strings.Builder
	answer    strings.Builder

	queue    []Segment
	finished bool
}

func NewClassifier(src Source, detector MarkerDetector) *Classifier {
	return &Classifier{src: src, detector: detector}
}

// Next returns the next classified segment, or io.EOF after the done or
// error segment has been delivered.
func (c *Classifier) Next() (Segment, error) {
	for len(c.queue) == 0 {
		if c.finished {
			return Segment{}, io.EOF
		}
		d, err := c.src.Next()
		if err == io.EOF {
			c.finished = true
			continue
		}
		if err != nil {
			c.finished = true
			c.queue = append(c.queue, Segment{Kind: SegmentError, Err: err})
			continue
		}
		c.handle(d)
	}

	seg := c.queue[0]
	c.queue = c.queue[1:]
	return seg, nil
}

// Reasoning returns all reasoning text accumulated so far.
func (c *Classifier) Reasoning() string { return c.reasoning.String() }

// Answer returns all answer text accumulated so far.
func (c *Classifier) Answer() string { return c.answer.String() }

func (c *Classifier) Close() { c.src.Close() }

func (c *Classifier) handle(d Delta) {
	switch d.Kind {
	case DeltaText:
		c.handleText(d.Text)
	case DeltaToolCallComplete:
		c.queue = append(c.queue, Segment{
			Kind: SegmentTool,
			Invocation: &ToolInvocation{
				ID:    d.ToolCallID,
				Name:  d.ToolName,
				Args:  d.Args,
				State: InvocationPending,
			},
		})
	case DeltaToolCallStart, DeltaToolCallArgs:
		// Assembled by the source; nothing to surface until complete.
	case DeltaFinish:
		c.queue = append(c.queue, Segment{Kind: SegmentDone, FinishReason: d.FinishReason})
	}
}

func (c *Classifier) handleText(text string) {
	if c.state == stateAnswering {
		c.answer.WriteString(text)
		c.queue = append(c.queue, Segment{Kind: SegmentAnswer, Text: text})
		return
	}

	if c.detector.Detect(c.reasoning.String(), text) {
		c.state = stateAnswering
		c.answer.WriteString(text)
		c.queue = append(c.queue, Segment{Kind: SegmentAnswer, Text: text})
		return
	}

	c.reasoning.WriteString(text)
	c.queue = append(c.queue, Segment{Kind: SegmentReasoning, Text: c.reasoning.String()})
}
