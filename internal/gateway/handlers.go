package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/tamshai/govern/internal/confirm"
	"github.com/tamshai/govern/internal/middleware"
)

// Handler exposes the governance pipeline over HTTP.
type Handler struct {
	service *Service
}

// NewHandler creates the HTTP surface for a pipeline service.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes registers the pipeline endpoints on a mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /ask", h.Ask)
	mux.HandleFunc("POST /execute", h.Execute)
}

// Ask handles POST /ask.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		WriteError(w, r, http.StatusUnauthorized, ErrCodeAuthFailed, "Missing bearer token")
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body")
		return
	}
	if req.Prompt == "" || req.Tool == "" {
		WriteError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "prompt and tool are required")
		return
	}

	resp, err := h.service.Ask(r.Context(), token, middleware.ClientIP(r), req)
	if err != nil {
		h.writePipelineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Execute handles POST /execute.
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		WriteError(w, r, http.StatusUnauthorized, ErrCodeAuthFailed, "Missing bearer token")
		return
	}

	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body")
		return
	}
	if req.ConfirmationID == "" {
		WriteError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "confirmation_id is required")
		return
	}

	resp, err := h.service.Execute(r.Context(), token, middleware.ClientIP(r), req)
	if err != nil {
		h.writePipelineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// writePipelineError maps pipeline errors onto HTTP status and error codes.
func (h *Handler) writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrAuthFailed):
		WriteError(w, r, http.StatusUnauthorized, ErrCodeAuthFailed, "Token rejected")
	case errors.Is(err, ErrPromptRejected):
		WriteError(w, r, http.StatusBadRequest, ErrCodePromptRejected, err.Error())
	case errors.Is(err, ErrQueryTooBroad):
		WriteError(w, r, http.StatusBadRequest, ErrCodeQueryTooBroad, err.Error())
	case errors.Is(err, ErrToolDenied):
		WriteError(w, r, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case errors.Is(err, ErrUnknownTool):
		WriteError(w, r, http.StatusNotFound, ErrCodeUnknownTool, err.Error())
	case errors.Is(err, confirm.ErrNotFound):
		WriteError(w, r, http.StatusNotFound, ErrCodeConfirmationNotFound,
			"Confirmation not found, expired, or already used")
	case errors.Is(err, ErrRecordNotFound):
		WriteError(w, r, http.StatusNotFound, ErrCodeNotFound, err.Error())
	default:
		WriteError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Internal server error")
	}
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return token, token != ""
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
