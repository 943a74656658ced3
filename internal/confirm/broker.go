package confirm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Broker coordinates the confirmation lifecycle for write-tool handlers:
// Request stores the pending action, Execute consumes it exactly once.
type Broker struct {
	store Store
	ttl   time.Duration
}

// NewBroker creates a Broker. A non-positive ttl uses DefaultTTL.
func NewBroker(store Store, ttl time.Duration) *Broker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Broker{store: store, ttl: ttl}
}

// TTL returns the broker's confirmation lifetime.
func (b *Broker) TTL() time.Duration {
	return b.ttl
}

// Request stores a pending mutating action under a fresh confirmation id
// and returns it for display to the user.
func (b *Broker) Request(ctx context.Context, action, domain, userID string, payload json.RawMessage) (*Pending, error) {
	pending := &Pending{
		ID:        uuid.New().String(),
		Action:    action,
		Domain:    domain,
		UserID:    userID,
		Summary:   fmt.Sprintf("Confirm %s (%s). This action expires in %d seconds.", action, domain, int(b.ttl.Seconds())),
		CreatedAt: time.Now().UTC(),
		Payload:   payload,
	}

	if err := b.store.Create(ctx, pending, b.ttl); err != nil {
		return nil, err
	}
	return pending, nil
}

// Execute consumes a confirmation id. On ErrNotFound the caller surfaces a
// "confirmation expired, please retry" message; it is not a failure of the
// request pipeline. A decline is never consumed: the record simply expires,
// and the decline is recorded in the audit trail by the caller.
func (b *Broker) Execute(ctx context.Context, id string) (*Pending, error) {
	return b.store.Consume(ctx, id)
}
