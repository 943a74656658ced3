package audit

import (
	"context"
	"sync"
)

// Repository is the durable, append-only store for audit events.
type Repository interface {
	// Insert appends an event. Events are never updated or deleted.
	Insert(ctx context.Context, event *Event) error

	// QueryByUser retrieves events for a user, newest first.
	// Limit caps the number of entries returned (0 = no limit).
	QueryByUser(ctx context.Context, userID string, limit int) ([]*Event, error)

	// QueryByCategory retrieves events in a category, newest first.
	// Limit caps the number of entries returned (0 = no limit).
	QueryByCategory(ctx context.Context, category string, limit int) ([]*Event, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used for testing and development. Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu     sync.RWMutex
	events []*Event
}

// NewInMemoryRepository creates a new in-memory audit repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

// Insert appends a copy of the event.
func (r *InMemoryRepository) Insert(_ context.Context, event *Event) error {
	eventCopy := *event

	r.mu.Lock()
	r.events = append(r.events, &eventCopy)
	r.mu.Unlock()

	return nil
}

// QueryByUser retrieves events for a user, newest first.
func (r *InMemoryRepository) QueryByUser(_ context.Context, userID string, limit int) ([]*Event, error) {
	return r.query(func(e *Event) bool { return e.UserID == userID }, limit)
}

// QueryByCategory retrieves events in a category, newest first.
func (r *InMemoryRepository) QueryByCategory(_ context.Context, category string, limit int) ([]*Event, error) {
	return r.query(func(e *Event) bool { return e.Category == category }, limit)
}

func (r *InMemoryRepository) query(match func(*Event) bool, limit int) ([]*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*Event
	// Iterate in reverse insertion order (newest first)
	for i := len(r.events) - 1; i >= 0; i-- {
		if match(r.events[i]) {
			eventCopy := *r.events[i]
			results = append(results, &eventCopy)
			if limit > 0 && len(results) >= limit {
				break
			}
		}
	}
	return results, nil
}

// Len returns the number of stored events.
func (r *InMemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}
