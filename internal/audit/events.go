package audit

import (
	"fmt"
	"strings"
)

// Convenience builders producing consistently shaped events for each
// governance decision point. The pipeline stamps id, timestamp, service,
// and environment on Log.

// AuthSuccess records a successful token validation.
func AuthSuccess(userID, username, realm, requestID, clientIP string) *Event {
	return &Event{
		Severity:  SeverityInfo,
		Category:  CategoryAuthentication,
		Message:   fmt.Sprintf("authentication succeeded for %s (%s realm)", username, realm),
		UserID:    userID,
		Username:  username,
		RequestID: requestID,
		ClientIP:  clientIP,
		Outcome:   OutcomeSuccess,
		Metadata:  map[string]any{"realm": realm},
	}
}

// AuthFailure records a failed token validation.
func AuthFailure(reason, requestID, clientIP string) *Event {
	return &Event{
		Severity:  SeverityWarning,
		Category:  CategoryAuthentication,
		Message:   "authentication failed: " + reason,
		RequestID: requestID,
		ClientIP:  clientIP,
		Outcome:   OutcomeFailure,
	}
}

// AuthzGrant records an allowed tool invocation.
func AuthzGrant(userID string, roles []string, tool, reason, requestID string) *Event {
	return &Event{
		Severity:  SeverityInfo,
		Category:  CategoryAuthorization,
		Message:   fmt.Sprintf("tool %s granted: %s", tool, reason),
		UserID:    userID,
		Roles:     roles,
		RequestID: requestID,
		Resource:  tool,
		Outcome:   OutcomeSuccess,
	}
}

// AuthzDeny records a denied tool invocation.
func AuthzDeny(userID string, roles []string, tool, reason, requestID string) *Event {
	return &Event{
		Severity:  SeverityWarning,
		Category:  CategoryAuthorization,
		Message:   fmt.Sprintf("tool %s denied: %s", tool, reason),
		UserID:    userID,
		Roles:     roles,
		RequestID: requestID,
		Resource:  tool,
		Outcome:   OutcomeBlocked,
	}
}

// DataRead records a read of domain data, with the record count and whether
// the result set was truncated.
func DataRead(userID, resource, requestID string, recordCount int, truncated bool) *Event {
	return &Event{
		Severity:  SeverityInfo,
		Category:  CategoryDataAccess,
		Message:   fmt.Sprintf("read %d records from %s", recordCount, resource),
		UserID:    userID,
		RequestID: requestID,
		Resource:  resource,
		Action:    "read",
		Outcome:   OutcomeSuccess,
		Metadata:  map[string]any{"record_count": recordCount, "truncated": truncated},
	}
}

// DataMutation records an executed mutation and whether it succeeded.
func DataMutation(userID, resource, action, requestID string, success bool) *Event {
	outcome := OutcomeSuccess
	severity := SeverityNotice
	if !success {
		outcome = OutcomeFailure
		severity = SeverityError
	}
	return &Event{
		Severity:  severity,
		Category:  CategoryDataMutation,
		Message:   fmt.Sprintf("mutation %s on %s: %s", action, resource, outcome),
		UserID:    userID,
		RequestID: requestID,
		Resource:  resource,
		Action:    action,
		Outcome:   outcome,
	}
}

// RateLimitExceeded records a rate limit violation.
func RateLimitExceeded(clientIP, endpoint, requestID string) *Event {
	return &Event{
		Severity:  SeverityWarning,
		Category:  CategoryRateLimit,
		Message:   "rate limit exceeded on " + endpoint,
		ClientIP:  clientIP,
		RequestID: requestID,
		Resource:  endpoint,
		Outcome:   OutcomeBlocked,
	}
}

// InjectionBlocked records a prompt rejected by the input guard.
func InjectionBlocked(userID, requestID string, riskScore int, flags []string) *Event {
	return &Event{
		Severity:  SeverityAlert,
		Category:  CategorySecurity,
		Message:   fmt.Sprintf("prompt blocked (risk %d): %s", riskScore, strings.Join(flags, ", ")),
		UserID:    userID,
		RequestID: requestID,
		Action:    "validate_prompt",
		Outcome:   OutcomeBlocked,
		Metadata:  map[string]any{"risk_score": riskScore, "flags": flags},
	}
}

// PIIRedacted records fields masked or redacted before reaching the model
// or the caller.
func PIIRedacted(userID, resource, requestID string, fields []string) *Event {
	return &Event{
		Severity:  SeverityNotice,
		Category:  CategorySecurity,
		Message:   fmt.Sprintf("redacted %d field(s) in %s", len(fields), resource),
		UserID:    userID,
		RequestID: requestID,
		Resource:  resource,
		Action:    "redact",
		Outcome:   OutcomeSuccess,
		Metadata:  map[string]any{"fields": fields},
	}
}

// ConfirmationDecision records a human approval or decline of a pending
// mutating action.
func ConfirmationDecision(userID, action, confirmationID, requestID string, approved bool) *Event {
	outcome := OutcomeSuccess
	verb := "approved"
	if !approved {
		outcome = OutcomeBlocked
		verb = "declined"
	}
	return &Event{
		Severity:  SeverityNotice,
		Category:  CategoryConfirmation,
		Message:   fmt.Sprintf("confirmation %s for %s", verb, action),
		UserID:    userID,
		RequestID: requestID,
		Action:    action,
		Outcome:   outcome,
		Metadata:  map[string]any{"confirmation_id": confirmationID},
	}
}

// ConfirmationExpired records a consume attempt on a missing or expired
// confirmation. Expected and retryable, so severity stays at info.
func ConfirmationExpired(userID, confirmationID, requestID string) *Event {
	return &Event{
		Severity:  SeverityInfo,
		Category:  CategoryConfirmation,
		Message:   "confirmation not found or expired",
		UserID:    userID,
		RequestID: requestID,
		Outcome:   OutcomePending,
		Metadata:  map[string]any{"confirmation_id": confirmationID},
	}
}
