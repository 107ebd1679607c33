package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "not found"
)

// Kind classifies a failure along the pipeline so callers can branch on it
// without parsing messages.
type Kind string

const (
	KindModelStream    Kind = "model_stream_error"
	KindToolSchema     Kind = "tool_schema_error"
	KindToolExecution  Kind = "tool_execution_error"
	KindSafetyRejected Kind = "safety_rejected"
	KindSchemaMissing  Kind = "schema_missing"
	KindExecutionFail  Kind = "execution_failed"
	KindChartSynthesis Kind = "chart_synthesis_failed"
)

// AppError wraps an underlying error with a kind, an HTTP status and a safe message.
type AppError struct {
	Err     error
	Kind    Kind
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// NewKind creates an AppError carrying a pipeline kind.
func NewKind(kind Kind, err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Kind:    kind,
		Status:  status,
		Message: message,
	}
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}

// KindOf extracts the Kind from an error chain; empty when none is present.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// ModelStream wraps a provider stream failure.
func ModelStream(err error) *AppError {
	return NewKind(KindModelStream, err, http.StatusBadGateway, "model stream failed")
}

// ToolSchema wraps a tool-call input that failed schema validation.
func ToolSchema(tool string, err error) *AppError {
	return NewKind(KindToolSchema, err, http.StatusBadRequest, fmt.Sprintf("invalid input for tool %q", tool))
}

// ToolExecution wraps a capability call that raised.
func ToolExecution(tool string, err error) *AppError {
	return NewKind(KindToolExecution, err, http.StatusBadGateway, fmt.Sprintf("tool %q failed", tool))
}

// SafetyRejected marks a query that failed the deny-list/prefix check.
// The violated rule is the user-facing message and is never silently substituted.
func SafetyRejected(rule string) *AppError {
	return NewKind(KindSafetyRejected, nil, http.StatusBadRequest, rule)
}

// SchemaMissing marks the target relation as absent, distinct from generic
// execution failure so the caller may offer a remediation path.
func SchemaMissing(err error) *AppError {
	return NewKind(KindSchemaMissing, err, http.StatusNotFound, "table does not exist")
}

// ExecutionFailed wraps a generic backend failure.
func ExecutionFailed(err error) *AppError {
	return NewKind(KindExecutionFail, err, http.StatusInternalServerError, "query execution failed")
}

// ChartSynthesis wraps a chart-config synthesis failure. Callers are expected
// to recover locally by downgrading to a default config.
func ChartSynthesis(err error) *AppError {
	return NewKind(KindChartSynthesis, err, http.StatusInternalServerError, "chart synthesis failed")
}
