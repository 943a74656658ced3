// Package confirm implements the human-in-the-loop confirmation protocol for
// mutating actions: a pending action is stored under a short-lived token and
// consumed exactly once when the user approves.
package confirm

import (
	"encoding/json"
	"errors"
	"time"
)

// DefaultTTL is how long a pending confirmation stays consumable.
const DefaultTTL = 300 * time.Second

// ErrNotFound is returned when a confirmation id does not resolve: never
// created, already consumed, or expired. It is an expected, retryable
// condition, surfaced to the user as "confirmation expired, please retry".
var ErrNotFound = errors.New("confirmation not found")

// ErrInvalidPending is returned when a pending confirmation is missing
// required fields.
var ErrInvalidPending = errors.New("pending confirmation missing required fields")

// Pending is a mutating action awaiting human approval.
type Pending struct {
	// ID is the confirmation token handed back to the caller.
	ID string `json:"id"`
	// Action names the mutating operation, e.g. "create_pay_run".
	Action string `json:"action"`
	// Domain is the owning business domain, e.g. "payroll".
	Domain string `json:"domain"`
	// UserID is the caller who initiated the action.
	UserID string `json:"user_id"`
	// Summary is the human-readable description shown for approval.
	Summary string `json:"summary"`
	// CreatedAt is when the confirmation was stored.
	CreatedAt time.Time `json:"created_at"`
	// Payload is the opaque action payload replayed on execution.
	Payload json.RawMessage `json:"payload"`
}

// Validate checks the fields required before storing.
func (p *Pending) Validate() error {
	if p.ID == "" || p.Action == "" || p.Domain == "" || p.UserID == "" {
		return ErrInvalidPending
	}
	return nil
}
