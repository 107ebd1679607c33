package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// SSE event types on the wire.
const (
	EventReasoning = "reasoning"
	EventContent   = "content"
	EventError     = "error"
)

type ssePayload struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// SSEWriter serializes events onto one event-stream response. It enforces
// the stream contract: events are framed as data lines, the terminal
// [DONE] marker is written at most once, and never after an error event.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher

	mu       sync.Mutex
	sentErr  bool
	sentDone bool
}

// NewSSEWriter prepares the response for event streaming.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// Send writes one typed event and flushes it to the client.
func (s *SSEWriter) Send(eventType, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sentDone {
		return fmt.Errorf("stream already closed")
	}

	data, err := json.Marshal(ssePayload{Type: eventType, Content: content})
	if err != nil {
		return fmt.Errorf("marshal sse payload: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()

	if eventType == EventError {
		s.sentErr = true
	}
	return nil
}

// Done writes the terminal marker. It is a no-op after an error event or a
// previous Done, so calling it on every exit path is safe.
func (s *SSEWriter) Done() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sentErr || s.sentDone {
		return
	}
	s.sentDone = true
	fmt.Fprint(s.w, "data: [DONE]\n\n")
	s.flusher.Flush()
}
