package audit

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func testPipeline(opts Options, repo Repository, forwarder *Forwarder) (*Pipeline, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewPipeline(opts, logger, repo, forwarder), &buf
}

func TestPipelineEmitsAtOrAboveMinimum(t *testing.T) {
	repo := NewInMemoryRepository()
	p, buf := testPipeline(Options{
		Enabled:     true,
		MinSeverity: SeverityWarning,
		Service:     "govern-gateway",
		Environment: "test",
	}, repo, nil)

	id := p.Log(context.Background(), AuthFailure("bad signature", "req-1", "10.0.0.1"))
	if id == "" {
		t.Fatal("warning-severity event must be emitted under a warning minimum")
	}
	if repo.Len() != 1 {
		t.Errorf("repository has %d events, want 1", repo.Len())
	}
	if !strings.Contains(buf.String(), "authentication failed") {
		t.Error("local log must contain the event message")
	}
	if !strings.Contains(buf.String(), id) {
		t.Error("local log must contain the event id")
	}
}

func TestPipelineFiltersBelowMinimum(t *testing.T) {
	repo := NewInMemoryRepository()
	p, buf := testPipeline(Options{
		Enabled:     true,
		MinSeverity: SeverityWarning,
	}, repo, nil)

	id := p.Log(context.Background(), AuthSuccess("staff-7", "jordan", "internal", "req-1", "10.0.0.1"))
	if id != "" {
		t.Errorf("info-severity event id = %q, want filtered (empty)", id)
	}
	if repo.Len() != 0 {
		t.Errorf("repository has %d events, want 0", repo.Len())
	}
	if buf.Len() != 0 {
		t.Errorf("local log = %q, want nothing", buf.String())
	}
}

func TestPipelineDisabledDropsEverything(t *testing.T) {
	repo := NewInMemoryRepository()
	p, buf := testPipeline(Options{
		Enabled:     false,
		MinSeverity: SeverityDebug,
	}, repo, nil)

	event := InjectionBlocked("staff-7", "req-1", 100, []string{"instruction_override"})
	if id := p.Log(context.Background(), event); id != "" {
		t.Errorf("disabled pipeline returned id %q, want empty", id)
	}
	if repo.Len() != 0 || buf.Len() != 0 {
		t.Error("disabled pipeline must not emit anywhere")
	}
}

func TestPipelineStampsEvents(t *testing.T) {
	repo := NewInMemoryRepository()
	p, _ := testPipeline(Options{
		Enabled:     true,
		MinSeverity: SeverityDebug,
		Service:     "govern-gateway",
		Environment: "test",
	}, repo, nil)

	p.Log(context.Background(), DataRead("staff-7", "employees", "req-1", 12, false))

	events, err := repo.QueryByUser(context.Background(), "staff-7", 0)
	if err != nil {
		t.Fatalf("QueryByUser() error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}

	event := events[0]
	if event.EventID == "" {
		t.Error("event id must be stamped")
	}
	if event.Timestamp.IsZero() {
		t.Error("timestamp must be stamped")
	}
	if event.Service != "govern-gateway" || event.Environment != "test" {
		t.Errorf("service/environment = %q/%q, want stamped config", event.Service, event.Environment)
	}
}

func TestPipelineRepositoryFailureIsRecovered(t *testing.T) {
	p, buf := testPipeline(Options{
		Enabled:     true,
		MinSeverity: SeverityDebug,
	}, failingRepository{}, nil)

	// Must not panic or propagate; the event id is still returned.
	id := p.Log(context.Background(), AuthFailure("expired", "req-1", ""))
	if id == "" {
		t.Error("event must still be emitted locally when the repository fails")
	}
	if !strings.Contains(buf.String(), "audit repository insert failed") {
		t.Error("repository failure must be logged locally")
	}
}

type failingRepository struct{}

func (failingRepository) Insert(context.Context, *Event) error {
	return context.DeadlineExceeded
}

func (failingRepository) QueryByUser(context.Context, string, int) ([]*Event, error) {
	return nil, nil
}

func (failingRepository) QueryByCategory(context.Context, string, int) ([]*Event, error) {
	return nil, nil
}
