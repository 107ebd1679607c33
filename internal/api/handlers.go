// Package api exposes the analytics service over HTTP: JSON endpoints for
// the query pipeline and an SSE endpoint for the streaming conversation.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/google/uuid"

	"github.com/unicornlens/server/internal/agent"
	"github.com/unicornlens/server/internal/agent/model"
	"github.com/unicornlens/server/internal/agent/stream"
	errx "github.com/unicornlens/server/internal/core/error"
	"github.com/unicornlens/server/internal/query"
	logx "github.com/unicornlens/server/pkg/logger"
)

// Service is the application surface the handlers drive.
type Service interface {
	Chat(ctx context.Context, conversationID, question string, emit agent.EmitFunc) (*agent.TurnResult, error)
	GenerateQuery(ctx context.Context, question string) (*agent.QueryGeneration, error)
	ExecuteQuery(ctx context.Context, sql string) (*query.Result, error)
	ExplainQuery(ctx context.Context, question, sql string) ([]model.Explanation, error)
	ChartConfig(ctx context.Context, question string, result *query.Result) *model.ChartConfig
	Ask(ctx context.Context, question string) (*agent.AskResult, error)
}

// Handlers holds all handler dependencies.
type Handlers struct {
	service Service
}

func NewHandlers(service Service) *Handlers {
	return &Handlers{service: service}
}

// ===================================
// Chat (SSE)
// ===================================

type chatRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversationId,omitempty"`
}

func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
		respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	errorSent := false
	emit := func(seg stream.Segment) error {
		switch seg.Kind {
		case stream.SegmentReasoning:
			return sse.Send(EventReasoning, seg.Text)
		case stream.SegmentAnswer:
			return sse.Send(EventContent, seg.Text)
		case stream.SegmentTool:
			return sse.Send(EventReasoning, renderInvocation(seg.Invocation))
		case stream.SegmentError:
			errorSent = true
			return sse.Send(EventError, safeMessage(seg.Err))
		}
		return nil
	}

	if _, err := h.service.Chat(r.Context(), req.ConversationID, req.Question, emit); err != nil {
		logx.Warn().Err(err).Str("conversation_id", req.ConversationID).Msg("chat turn failed")
		// failures before streaming begins never reach emit, so the client
		// still gets an error event
		if !errorSent {
			sse.Send(EventError, safeMessage(err))
		}
	}
	sse.Done()
}

// renderInvocation formats a tool invocation for the reasoning track.
func renderInvocation(inv *stream.ToolInvocation) string {
	switch inv.State {
	case stream.InvocationComplete:
		return fmt.Sprintf("Tool %s returned: %s", inv.Name, inv.Result)
	case stream.InvocationFailed:
		return fmt.Sprintf("Tool %s failed: %s", inv.Name, inv.FailReason)
	default:
		return fmt.Sprintf("Calling tool %s with %s", inv.Name, inv.Args)
	}
}

// ===================================
// Query pipeline
// ===================================

type generateQueryRequest struct {
	Question string `json:"question"`
}

func (h *Handlers) GenerateQuery(w http.ResponseWriter, r *http.Request) {
	var req generateQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
		respondError(w, http.StatusBadRequest, "question is required")
		return
	}

	gen, err := h.service.GenerateQuery(r.Context(), req.Question)
	if err != nil {
		respondAppError(w, err)
		return
	}
	if gen.Reasoning == nil {
		gen.Reasoning = []string{}
	}
	respondJSON(w, http.StatusOK, gen)
}

type executeQueryRequest struct {
	Query string `json:"query"`
}

func (h *Handlers) ExecuteQuery(w http.ResponseWriter, r *http.Request) {
	var req executeQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		respondError(w, http.StatusBadRequest, "query is required")
		return
	}

	result, err := h.service.ExecuteQuery(r.Context(), req.Query)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"rows":     result.Rows,
		"rowCount": len(result.Rows),
		"fields":   result.Columns,
	})
}

type explainQueryRequest struct {
	Question string `json:"question"`
	Query    string `json:"query"`
}

func (h *Handlers) ExplainQuery(w http.ResponseWriter, r *http.Request) {
	var req explainQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		respondError(w, http.StatusBadRequest, "query is required")
		return
	}

	explanations, err := h.service.ExplainQuery(r.Context(), req.Question, req.Query)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"explanations": explanations})
}

type chartConfigRequest struct {
	Question string           `json:"question"`
	Columns  []query.Column   `json:"columns,omitempty"`
	Results  []map[string]any `json:"results"`
}

func (h *Handlers) ChartConfig(w http.ResponseWriter, r *http.Request) {
	var req chartConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := &query.Result{Columns: req.Columns, Rows: req.Results}
	if len(result.Columns) == 0 && len(req.Results) > 0 {
		result.Columns = columnsFromRow(req.Results[0])
	}

	cfg := h.service.ChartConfig(r.Context(), req.Question, result)
	respondJSON(w, http.StatusOK, map[string]any{"config": cfg})
}

// columnsFromRow recovers a stable column list when the caller posted bare
// rows. Keys are sorted so the derived axes do not change between calls.
func columnsFromRow(row map[string]any) []query.Column {
	names := make([]string, 0, len(row))
	for name := range row {
		names = append(names, name)
	}
	sort.Strings(names)

	columns := make([]query.Column, len(names))
	for i, name := range names {
		columns[i] = query.Column{Name: name}
	}
	return columns
}

type askRequest struct {
	Question string `json:"question"`
}

func (h *Handlers) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
		respondError(w, http.StatusBadRequest, "question is required")
		return
	}

	result, err := h.service.Ask(r.Context(), req.Question)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ===================================
// Helpers
// ===================================

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondAppError maps a typed pipeline error onto the HTTP response.
func respondAppError(w http.ResponseWriter, err error) {
	var appErr *errx.AppError
	if errors.As(err, &appErr) {
		body := map[string]string{"error": appErr.Message}
		if appErr.Kind != "" {
			body["kind"] = string(appErr.Kind)
		}
		respondJSON(w, appErr.Status, body)
		return
	}
	respondError(w, http.StatusInternalServerError, errx.SystemErrorMessage)
}

// safeMessage extracts the user-facing message from a pipeline error.
func safeMessage(err error) string {
	var appErr *errx.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "An error occurred"
}
