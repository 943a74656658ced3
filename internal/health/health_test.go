package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubChecker struct {
	err error
}

func (s stubChecker) HealthCheck(context.Context) error {
	return s.err
}

func TestHandler_AllHealthy(t *testing.T) {
	h := NewHandler()
	h.Add("redis", stubChecker{})
	h.Add("audit_db", stubChecker{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Status string `json:"status"`
		Checks map[string]struct {
			Status string `json:"status"`
		} `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("overall status = %q, want ok", body.Status)
	}
	if body.Checks["redis"].Status != "ok" {
		t.Errorf("redis check = %q, want ok", body.Checks["redis"].Status)
	}
}

func TestHandler_FailingDependency(t *testing.T) {
	h := NewHandler()
	h.Add("redis", stubChecker{})
	h.Add("audit_db", stubChecker{err: errors.New("connection refused")})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var body struct {
		Status string `json:"status"`
		Checks map[string]struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.Status != "unhealthy" {
		t.Errorf("overall status = %q, want unhealthy", body.Status)
	}
	if body.Checks["audit_db"].Error != "connection refused" {
		t.Errorf("audit_db error = %q", body.Checks["audit_db"].Error)
	}
}

func TestHandler_NilCheckerSkipped(t *testing.T) {
	h := NewHandler()
	h.Add("audit_db", nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with no registered checks", rec.Code)
	}
}
