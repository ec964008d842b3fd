package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/commerce-blocks/guest-orders/internal/platform/requestctx"
)

const (
	maxCodeLen    = 80
	maxMessageLen = 512
	maxTraceLen   = 64
)

// Error represents the canonical JSON error envelope returned by the API.
type Error struct {
	Code      string
	Message   string
	Status    int
	RequestID string
	TraceID   string
	Details   map[string]any
}

// NewError constructs a new Error with the provided parameters.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{
		Code:    clean(code, maxCodeLen),
		Message: clean(message, maxMessageLen),
		Status:  status,
	}
}

// WithRequestID sets the request identifier on the error payload.
func (e Error) WithRequestID(id string) Error {
	e.RequestID = clean(id, maxCodeLen)
	return e
}

// WithTraceID sets the trace identifier on the error payload.
func (e Error) WithTraceID(id string) Error {
	e.TraceID = clean(id, maxTraceLen)
	return e
}

// WithDetails attaches additional JSON-serialisable metadata. Detail keys are
// flattened into the envelope alongside the standard fields.
func (e Error) WithDetails(details map[string]any) Error {
	if len(details) == 0 {
		return e
	}
	copied := make(map[string]any, len(details))
	for k, v := range details {
		copied[k] = v
	}
	e.Details = copied
	return e
}

// envelope assembles the JSON payload, pulling request and trace identifiers
// from the context when the error does not carry them already.
func (e Error) envelope(ctx context.Context) (map[string]any, int) {
	status := e.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	payload := map[string]any{
		"error":   e.Code,
		"message": e.Message,
		"status":  status,
	}

	requestID := e.RequestID
	if requestID == "" {
		requestID = clean(middleware.GetReqID(ctx), maxCodeLen)
	}
	if requestID != "" {
		payload["request_id"] = requestID
	}

	traceID := e.TraceID
	if traceID == "" {
		traceID = clean(requestctx.TraceID(ctx), maxTraceLen)
	}
	if traceID != "" {
		payload["trace_id"] = traceID
	}

	for k, v := range e.Details {
		payload[k] = v
	}
	return payload, status
}

// WriteError writes the structured error as JSON to the provided response writer.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	payload, status := err.envelope(ctx)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// clean strips newlines and truncates the value so caller-supplied strings
// stay single-line and bounded in the envelope.
func clean(value string, limit int) string {
	if limit <= 0 {
		limit = 256
	}
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.TrimSpace(value)
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}
