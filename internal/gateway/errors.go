// Package gateway orchestrates the governance pipeline: identity resolution,
// prompt screening, authorization, tool dispatch, masking, output screening,
// confirmation, and audit.
package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tamshai/govern/internal/middleware"
)

// Error codes returned in the JSON error envelope.
const (
	// ErrCodeAuthFailed indicates the bearer token was rejected.
	ErrCodeAuthFailed = "auth_failed"

	// ErrCodePromptRejected indicates the input guard blocked the prompt.
	ErrCodePromptRejected = "prompt_rejected"

	// ErrCodeForbidden indicates the caller's roles do not permit the tool.
	ErrCodeForbidden = "forbidden"

	// ErrCodeQueryTooBroad indicates the query guard rejected the request.
	ErrCodeQueryTooBroad = "query_too_broad"

	// ErrCodeUnknownTool indicates no handler is registered for the tool.
	ErrCodeUnknownTool = "unknown_tool"

	// ErrCodeConfirmationNotFound indicates the confirmation id is missing,
	// expired, or already consumed.
	ErrCodeConfirmationNotFound = "confirmation_not_found"

	// ErrCodeNotFound indicates the tool's target record does not exist.
	ErrCodeNotFound = "not_found"

	// ErrCodeBadRequest indicates a malformed request body.
	ErrCodeBadRequest = "bad_request"

	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal = "internal_error"
)

// ErrorResponse is the standard error envelope:
// {"error": {"code": "...", "message": "..."}}
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error code and human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError writes a standardized JSON error response and records the error
// code on the request context so the logging middleware picks it up.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	*r = *r.WithContext(middleware.SetErrorCode(r.Context(), code))

	data, err := json.Marshal(ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to marshal error response", "error", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.ErrorContext(r.Context(), "failed to write error response", "error", err)
	}
}
