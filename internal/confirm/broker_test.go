package confirm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestBrokerRequestAndExecute(t *testing.T) {
	broker := NewBroker(NewMemoryStore(), time.Minute)
	ctx := context.Background()

	pending, err := broker.Request(ctx, "update_employee", "hr", "staff-7", json.RawMessage(`{"id":"e-1"}`))
	if err != nil {
		t.Fatalf("Request() error: %v", err)
	}
	if pending.ID == "" {
		t.Fatal("Request() must assign a confirmation id")
	}
	if !strings.Contains(pending.Summary, "update_employee") {
		t.Errorf("Summary = %q, want it to name the action", pending.Summary)
	}

	got, err := broker.Execute(ctx, pending.ID)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if got.Action != "update_employee" || got.UserID != "staff-7" {
		t.Errorf("Execute() = %+v, want the stored action", got)
	}

	if _, err := broker.Execute(ctx, pending.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("re-Execute() = %v, want ErrNotFound", err)
	}
}

func TestBrokerDefaultTTL(t *testing.T) {
	broker := NewBroker(NewMemoryStore(), 0)
	if broker.TTL() != DefaultTTL {
		t.Errorf("TTL() = %v, want %v", broker.TTL(), DefaultTTL)
	}
}

func TestBrokerDistinctIDs(t *testing.T) {
	broker := NewBroker(NewMemoryStore(), time.Minute)
	ctx := context.Background()

	first, err := broker.Request(ctx, "approve_leave", "hr", "staff-7", nil)
	if err != nil {
		t.Fatalf("Request() error: %v", err)
	}
	second, err := broker.Request(ctx, "approve_leave", "hr", "staff-7", nil)
	if err != nil {
		t.Fatalf("Request() error: %v", err)
	}
	if first.ID == second.ID {
		t.Error("each Request() must generate a fresh confirmation id")
	}
}
