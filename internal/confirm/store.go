package confirm

import (
	"context"
	"sync"
	"time"
)

// Store holds pending confirmations under a TTL.
//
// Consume must be atomic against concurrent consume attempts for the same
// id: at most one caller ever receives the payload.
type Store interface {
	// Create stores a pending confirmation for ttl.
	Create(ctx context.Context, pending *Pending, ttl time.Duration) error
	// Consume atomically removes and returns the pending confirmation.
	// Returns ErrNotFound for missing, expired, or already-consumed ids.
	Consume(ctx context.Context, id string) (*Pending, error)
}

// memoryEntry is a stored confirmation with its expiry deadline.
type memoryEntry struct {
	pending   Pending
	expiresAt time.Time
}

// MemoryStore implements Store with in-memory storage. Expiry is passive:
// checked at consume time, with no background sweep required.
// Thread-safe via mutex; used for testing and single-node deployments.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	// now is injectable for expiry tests.
	now func() time.Time
}

// NewMemoryStore creates an empty in-memory confirmation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Create stores a copy of the pending confirmation.
func (s *MemoryStore) Create(_ context.Context, pending *Pending, ttl time.Duration) error {
	if err := pending.Validate(); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[pending.ID] = memoryEntry{
		pending:   *pending,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// Consume removes and returns the confirmation under one lock acquisition,
// so a concurrent consume of the same id sees it gone.
func (s *MemoryStore) Consume(_ context.Context, id string) (*Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.entries, id)

	if s.now().After(entry.expiresAt) {
		return nil, ErrNotFound
	}

	pending := entry.pending
	return &pending, nil
}
