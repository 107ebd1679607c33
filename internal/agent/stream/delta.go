// Package stream turns a raw model delta stream into typed, classified
// segments. The classification is a pure transformation: deltas go in,
// segments come out in arrival order, and nothing here executes tools or
// touches the network.
package stream

import (
	"io"

	"github.com/cloudwego/eino/schema"
)

// DeltaKind tags the smallest unit emitted by the model.
type DeltaKind string

const (
	DeltaText             DeltaKind = "text"
	DeltaToolCallStart    DeltaKind = "tool-call-start"
	DeltaToolCallArgs     DeltaKind = "tool-call-args"
	DeltaToolCallComplete DeltaKind = "tool-call-complete"
	DeltaFinish           DeltaKind = "finish"
)

// Delta is a provider-neutral streaming event.
type Delta struct {
	Kind DeltaKind
	Text string

	ToolCallID string
	ToolName   string
	// Args carries a fragment for DeltaToolCallArgs and the fully
	// accumulated JSON for DeltaToolCallComplete.
	Args string

	FinishReason string
}

// Source is a pull-based, finite, non-restartable delta sequence.
// Next returns io.EOF once the sequence is exhausted.
type Source interface {
	Next() (Delta, error)
	Close()
}

// ===================================
// Slice source (tests, scripted replies)
// ===================================

type sliceSource struct {
	deltas []Delta
	pos    int
}

// SliceSource exposes a fixed delta sequence as a Source.
func SliceSource(deltas []Delta) Source {
	return &sliceSource{deltas: deltas}
}

func (s *sliceSource) Next() (Delta, error) {
	if s.pos >= len(s.deltas) {
		return Delta{}, io.EOF
	}
	d := s.deltas[s.pos]
	s.pos++
	return d, nil
}

func (s *sliceSource) Close() {}

// ===================================
// Message-stream source
// ===================================

type openCall struct {
	index int
	id    string
	name  string
	args  string
}

// messageSource adapts an eino chunk-message stream into deltas. Tool-call
// fragments are keyed by their chunk index and accumulated; a call is closed
// (tool-call-complete) when text resumes after its fragments, or when the
// stream finishes.
type messageSource struct {
	sr *schema.StreamReader[*schema.Message]

	queue  []Delta
	open   []*openCall
	finish string
	done   bool
}

// MessageDeltas wraps a model response stream as a delta Source.
func MessageDeltas(sr *schema.StreamReader[*schema.Message]) Source {
	return &messageSource{sr: sr}
}

func (m *messageSource) Next() (Delta, error) {
	for len(m.queue) == 0 {
		if m.done {
			return Delta{}, io.EOF
		}
		chunk, err := m.sr.Recv()
		if err == io.EOF {
			m.done = true
			m.closeOpenCalls()
			m.queue = append(m.queue, Delta{Kind: DeltaFinish, FinishReason: m.finish})
			continue
		}
		if err != nil {
			m.done = true
			return Delta{}, err
		}
		m.handleChunk(chunk)
	}

	d := m.queue[0]
	m.queue = m.queue[1:]
	return d, nil
}

func (m *messageSource) Close() {
	m.done = true
	m.sr.Close()
}

func (m *messageSource) handleChunk(chunk *schema.Message) {
	if chunk == nil {
		return
	}

	for _, tc := range chunk.ToolCalls {
		call := m.lookup(tc)
		if call == nil {
			call = &openCall{index: m.callIndex(tc), id: tc.ID, name: tc.Function.Name}
			m.open = append(m.open, call)
			m.queue = append(m.queue, Delta{Kind: DeltaToolCallStart, ToolCallID: call.id, ToolName: call.name})
		}
		if call.id == "" && tc.ID != "" {
			call.id = tc.ID
		}
		if call.name == "" && tc.Function.Name != "" {
			call.name = tc.Function.Name
		}
		if tc.Function.Arguments != "" {
			call.args += tc.Function.Arguments
			m.queue = append(m.queue, Delta{Kind: DeltaToolCallArgs, ToolCallID: call.id, ToolName: call.name, Args: tc.Function.Arguments})
		}
	}

	if chunk.Content != "" {
		// Text resuming after tool fragments closes the enclosing calls.
		m.closeOpenCalls()
		m.queue = append(m.queue, Delta{Kind: DeltaText, Text: chunk.Content})
	}

	if chunk.ResponseMeta != nil && chunk.ResponseMeta.FinishReason != "" {
		m.finish = chunk.ResponseMeta.FinishReason
	}
}

func (m *messageSource) callIndex(tc schema.ToolCall) int {
	if tc.Index != nil {
		return *tc.Index
	}
	return len(m.open)
}

func (m *messageSource) lookup(tc schema.ToolCall) *openCall {
	for _, call := range m.open {
		if tc.Index != nil && call.index == *tc.Index {
			return call
		}
		if tc.Index == nil && tc.ID != "" && call.id == tc.ID {
			return call
		}
	}
	// A bare args fragment with neither index nor id continues the most
	// recently opened call.
	if tc.Index == nil && tc.ID == "" && tc.Function.Name == "" && len(m.open) > 0 {
		return m.open[len(m.open)-1]
	}
	return nil
}

func (m *messageSource) closeOpenCalls() {
	for _, call := range m.open {
		args := call.args
		if args == "" {
			args = "{}"
		}
		m.queue = append(m.queue, Delta{
			Kind:       DeltaToolCallComplete,
			ToolCallID: call.id,
			ToolName:   call.name,
			Args:       args,
		})
	}
	m.open = nil
}
