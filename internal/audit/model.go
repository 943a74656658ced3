// Package audit builds structured audit events for every governance
// decision and fans them out to the local log, an optional durable
// repository, and at most one external sink.
package audit

import (
	"log/slog"
	"time"
)

// Severity levels, most to least urgent. The pipeline emits an event only
// when its severity is at least as urgent as the configured minimum.
type Severity string

const (
	SeverityEmergency Severity = "emergency"
	SeverityAlert     Severity = "alert"
	SeverityCritical  Severity = "critical"
	SeverityError     Severity = "error"
	SeverityWarning   Severity = "warning"
	SeverityNotice    Severity = "notice"
	SeverityInfo      Severity = "info"
	SeverityDebug     Severity = "debug"
)

// severityRank orders severities; lower rank is more urgent.
var severityRank = map[Severity]int{
	SeverityEmergency: 0,
	SeverityAlert:     1,
	SeverityCritical:  2,
	SeverityError:     3,
	SeverityWarning:   4,
	SeverityNotice:    5,
	SeverityInfo:      6,
	SeverityDebug:     7,
}

// Known reports whether s is a recognized severity name.
func (s Severity) Known() bool {
	_, ok := severityRank[s]
	return ok
}

// AtLeast reports whether s is at least as urgent as min.
// Unknown severities compare as least urgent, so they are filtered rather
// than slipping past the minimum.
func (s Severity) AtLeast(min Severity) bool {
	rank, ok := severityRank[s]
	if !ok {
		return false
	}
	minRank, ok := severityRank[min]
	if !ok {
		return true
	}
	return rank <= minRank
}

// SlogLevel maps a severity onto the local structured log level.
func (s Severity) SlogLevel() slog.Level {
	switch s {
	case SeverityDebug:
		return slog.LevelDebug
	case SeverityInfo, SeverityNotice:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// Event categories.
const (
	CategoryAuthentication = "authentication"
	CategoryAuthorization  = "authorization"
	CategoryDataAccess     = "data_access"
	CategoryDataMutation   = "data_mutation"
	CategorySecurity       = "security"
	CategoryConfirmation   = "confirmation"
	CategoryRateLimit      = "rate_limit"
)

// Event outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePending = "pending"
	OutcomeBlocked = "blocked"
)

// Event is a single audit record. Append-only: never mutated after the
// pipeline stamps and emits it.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	EventID   string    `json:"event_id"`
	Severity  Severity  `json:"severity"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`

	UserID    string   `json:"user_id,omitempty"`
	Username  string   `json:"username,omitempty"`
	Roles     []string `json:"roles,omitempty"`
	ClientIP  string   `json:"client_ip,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
	Resource  string   `json:"resource,omitempty"`
	Action    string   `json:"action,omitempty"`
	Outcome   string   `json:"outcome,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`

	Service     string `json:"service"`
	Environment string `json:"environment"`
}
