package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLogging_CapturesStatusAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	handler := RequestID(Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("created"))
	})))

	req := httptest.NewRequest(http.MethodPost, "/execute", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	out := buf.String()
	if !strings.Contains(out, "status=201") {
		t.Errorf("log output missing status: %s", out)
	}
	if !strings.Contains(out, "path=/execute") {
		t.Errorf("log output missing path: %s", out)
	}
	if !strings.Contains(out, "request_id=") {
		t.Errorf("log output missing request_id: %s", out)
	}
}

func TestLogging_ErrorCodeOn4xx(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*r = *r.WithContext(SetErrorCode(r.Context(), "prompt_rejected"))
		w.WriteHeader(http.StatusBadRequest)
	}))

	req := httptest.NewRequest(http.MethodPost, "/ask", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	out := buf.String()
	if !strings.Contains(out, "level=WARN") {
		t.Errorf("4xx must log at warn level: %s", out)
	}
	if !strings.Contains(out, "error_code=prompt_rejected") {
		t.Errorf("log output missing error_code: %s", out)
	}
}

func TestLogging_UserIDWhenResolved(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*r = *r.WithContext(SetUserID(r.Context(), "staff-7"))
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/ask", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !strings.Contains(buf.String(), "user_id=staff-7") {
		t.Errorf("log output missing user_id: %s", buf.String())
	}
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	rw.WriteHeader(http.StatusForbidden)
	rw.WriteHeader(http.StatusOK)

	if rw.statusCode != http.StatusForbidden {
		t.Errorf("statusCode = %d, want first write (403)", rw.statusCode)
	}
}

func TestNewLogger_EnvHandlers(t *testing.T) {
	if NewLogger("production") == nil {
		t.Error("NewLogger(production) returned nil")
	}
	if NewLogger("development") == nil {
		t.Error("NewLogger(development) returned nil")
	}
}
