package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrNoSinkConfigured is returned when Forward is called on a forwarder
// with neither sink configured.
var ErrNoSinkConfigured = errors.New("no audit sink configured")

// Forwarder posts audit events to exactly one external sink per event: the
// log-aggregation endpoint when its token is configured, otherwise the
// generic SIEM webhook. Never both.
type Forwarder struct {
	logSinkURL   string
	logSinkToken string
	siemURL      string
	client       *http.Client
}

// NewForwarder creates a forwarder. Returns nil when no sink is configured,
// which the pipeline treats as forwarding disabled.
func NewForwarder(logSinkURL, logSinkToken, siemURL string) *Forwarder {
	if (logSinkURL == "" || logSinkToken == "") && siemURL == "" {
		return nil
	}
	return &Forwarder{
		logSinkURL:   logSinkURL,
		logSinkToken: logSinkToken,
		siemURL:      siemURL,
		client:       &http.Client{Timeout: forwardTimeout},
	}
}

// Forward posts the event to the selected sink.
func (f *Forwarder) Forward(ctx context.Context, event *Event) error {
	if f.logSinkURL != "" && f.logSinkToken != "" {
		return f.forwardLogSink(ctx, event)
	}
	if f.siemURL != "" {
		return f.forwardSIEM(ctx, event)
	}
	return ErrNoSinkConfigured
}

// logSinkEnvelope is the log-aggregation ingestion format: the event fields
// wrapped with a dt timestamp and a level.
type logSinkEnvelope struct {
	DT    string `json:"dt"`
	Level string `json:"level"`
	Event
}

// forwardLogSink posts the enveloped event with bearer-token auth.
func (f *Forwarder) forwardLogSink(ctx context.Context, event *Event) error {
	body, err := json.Marshal(logSinkEnvelope{
		DT:    event.Timestamp.Format(time.RFC3339Nano),
		Level: string(event.Severity),
		Event: *event,
	})
	if err != nil {
		return fmt.Errorf("marshal log sink envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.logSinkURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build log sink request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.logSinkToken)

	return f.post(req)
}

// forwardSIEM posts the raw event with the event id in a custom header.
func (f *Forwarder) forwardSIEM(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal SIEM event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.siemURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build SIEM request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-ID", event.EventID)

	return f.post(req)
}

func (f *Forwarder) post(req *http.Request) error {
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("post audit event: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("audit sink returned status %d", resp.StatusCode)
	}
	return nil
}
