package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"

	"github.com/tamshai/govern/internal/audit"
	"github.com/tamshai/govern/internal/authz"
	"github.com/tamshai/govern/internal/confirm"
	"github.com/tamshai/govern/internal/guard"
	"github.com/tamshai/govern/internal/identity"
	"github.com/tamshai/govern/internal/mask"
	"github.com/tamshai/govern/internal/middleware"
	"github.com/tamshai/govern/internal/tracing"
)

// Pipeline stage errors surfaced to the HTTP layer.
var (
	// ErrAuthFailed wraps any token resolution failure.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrPromptRejected is returned when the input guard blocks the prompt.
	ErrPromptRejected = errors.New("prompt rejected by input guard")
	// ErrToolDenied is returned when authorization or a downstream access
	// check refuses the tool.
	ErrToolDenied = errors.New("tool not permitted")
	// ErrQueryTooBroad is returned when the query guard refuses the request.
	ErrQueryTooBroad = errors.New("query too broad")
)

// Service runs the full governance pipeline for each request.
type Service struct {
	resolver *identity.Resolver
	guard    *guard.Guard
	masker   *mask.Masker
	broker   *confirm.Broker
	audit    *audit.Pipeline
	metrics  *middleware.Metrics
	registry *Registry
	logger   *slog.Logger

	maxQueryResults int
}

// ServiceOptions bundles the pipeline's tunables.
type ServiceOptions struct {
	// MaxQueryResults caps records returned from a single read tool call.
	MaxQueryResults int
}

// NewService wires the governance stages together. metrics may be nil.
func NewService(
	resolver *identity.Resolver,
	g *guard.Guard,
	masker *mask.Masker,
	broker *confirm.Broker,
	auditPipe *audit.Pipeline,
	metrics *middleware.Metrics,
	registry *Registry,
	logger *slog.Logger,
	opts ServiceOptions,
) *Service {
	if opts.MaxQueryResults <= 0 {
		opts.MaxQueryResults = guard.DefaultMaxQueryResults
	}
	return &Service{
		resolver:        resolver,
		guard:           g,
		masker:          masker,
		broker:          broker,
		audit:           auditPipe,
		metrics:         metrics,
		registry:        registry,
		logger:          logger,
		maxQueryResults: opts.MaxQueryResults,
	}
}

// AskRequest is a governed prompt-plus-tool invocation.
type AskRequest struct {
	Prompt string            `json:"prompt"`
	Tool   string            `json:"tool"`
	Params map[string]string `json:"params,omitempty"`
}

// ConfirmationInfo describes a pending mutation awaiting human approval.
type ConfirmationInfo struct {
	ID               string `json:"id"`
	Summary          string `json:"summary"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
}

// AskResponse is the pipeline result for a read or a deferred mutation.
type AskResponse struct {
	Records      []Record          `json:"records,omitempty"`
	Output       string            `json:"output,omitempty"`
	Flags        []string          `json:"flags,omitempty"`
	Truncated    bool              `json:"truncated,omitempty"`
	Confirmation *ConfirmationInfo `json:"confirmation,omitempty"`
	AuditEventID string            `json:"audit_event_id,omitempty"`
}

// ExecuteRequest resolves a pending confirmation.
type ExecuteRequest struct {
	ConfirmationID string `json:"confirmation_id"`
	Approved       bool   `json:"approved"`
}

// ExecuteResponse reports the outcome of a confirmation decision.
type ExecuteResponse struct {
	Outcome      string `json:"outcome"`
	Result       string `json:"result,omitempty"`
	AuditEventID string `json:"audit_event_id,omitempty"`
}

// Ask runs the read pipeline: resolve identity, screen the prompt, authorize
// the tool, scope and dispatch it, mask the result, and screen the output.
// Mutating tools short-circuit into a pending confirmation instead of
// executing.
func (s *Service) Ask(ctx context.Context, token, clientIP string, req AskRequest) (*AskResponse, error) {
	requestID := middleware.GetRequestID(ctx)

	id, err := s.resolveIdentity(ctx, token, clientIP, requestID)
	if err != nil {
		return nil, err
	}

	assessment, err := s.screenPrompt(ctx, id, requestID, req.Prompt)
	if err != nil {
		return nil, err
	}

	if decision := s.guard.CheckQueryLimits(0, assessment.SanitizedPrompt); !decision.Allowed {
		return nil, fmt.Errorf("%w: %s (%s)", ErrQueryTooBroad, decision.Reason, decision.Suggestion)
	}

	decision, err := s.authorizeTool(ctx, id, requestID, req.Tool)
	if err != nil {
		return nil, err
	}

	if !s.registry.Known(req.Tool) {
		return nil, fmt.Errorf("%s: %w", req.Tool, ErrUnknownTool)
	}

	scope, scopeErr := authz.BuildScopeFilter(id)
	if scopeErr != nil {
		// Degrades to AccessNone rather than failing the request.
		s.logger.Warn("scope filter unavailable, restricting to none",
			"user_id", id.UserID, "error", scopeErr)
	}

	inv := Invocation{
		Caller:                 id,
		Params:                 req.Params,
		Scope:                  scope,
		RequiresHierarchyCheck: decision.RequiresHierarchyCheck,
	}

	if s.registry.Mutating(req.Tool) {
		return s.deferMutation(ctx, id, req, inv)
	}

	return s.dispatchRead(ctx, id, requestID, req.Tool, inv)
}

// Execute consumes a confirmation exactly once and, when approved, runs the
// pending mutation.
func (s *Service) Execute(ctx context.Context, token, clientIP string, req ExecuteRequest) (*ExecuteResponse, error) {
	requestID := middleware.GetRequestID(ctx)

	id, err := s.resolveIdentity(ctx, token, clientIP, requestID)
	if err != nil {
		return nil, err
	}

	if !req.Approved {
		// Declines never consume the pending record; it simply expires.
		s.audit.Log(ctx, audit.ConfirmationDecision(id.UserID, "", req.ConfirmationID, requestID, false))
		s.incConfirmation("declined")
		return &ExecuteResponse{Outcome: "declined"}, nil
	}

	ctx, endSpan := tracing.StartStageSpan(ctx, tracing.StageConfirm)
	pending, err := s.broker.Execute(ctx, req.ConfirmationID)
	endSpan(err)
	if err != nil {
		if errors.Is(err, confirm.ErrNotFound) {
			s.audit.Log(ctx, audit.ConfirmationExpired(id.UserID, req.ConfirmationID, requestID))
			s.incConfirmation("expired")
		}
		return nil, fmt.Errorf("consume confirmation: %w", err)
	}

	if pending.UserID != id.UserID {
		// Consumed either way: a confirmation id is single-use even when
		// presented by the wrong caller.
		s.audit.Log(ctx, audit.AuthzDeny(id.UserID, id.Roles, pending.Action,
			"confirmation belongs to a different user", requestID))
		return nil, fmt.Errorf("confirmation %s: %w", req.ConfirmationID, ErrToolDenied)
	}

	tool, _, ok := s.registry.Write(pending.Action)
	if !ok {
		return nil, fmt.Errorf("%s: %w", pending.Action, ErrUnknownTool)
	}

	// Re-derive the authorization decision at execution time. The pending
	// record only stores the action and payload; the hierarchy-check flag and
	// scope must come from the caller's current roles, which also closes the
	// window where a role revoked between Ask and Execute would still act.
	decision := authz.CheckToolAccess(pending.Action, id.Roles)
	if !decision.Allowed {
		s.audit.Log(ctx, audit.AuthzDeny(id.UserID, id.Roles, pending.Action, decision.Reason, requestID))
		if s.metrics != nil {
			s.metrics.IncAuthzDenial(pending.Action)
		}
		return nil, fmt.Errorf("%w: %s", ErrToolDenied, decision.Reason)
	}

	scope, scopeErr := authz.BuildScopeFilter(id)
	if scopeErr != nil {
		// Degrades to AccessNone rather than failing the request.
		s.logger.Warn("scope filter unavailable, restricting to none",
			"user_id", id.UserID, "error", scopeErr)
	}

	var params map[string]string
	if len(pending.Payload) > 0 {
		if err := json.Unmarshal(pending.Payload, &params); err != nil {
			return nil, fmt.Errorf("decode pending payload: %w", err)
		}
	}

	ctx, endSpan = tracing.StartStageSpan(ctx, tracing.StageDispatchTool)
	result, err := tool.Write(ctx, Invocation{
		Caller:                 id,
		Params:                 params,
		Scope:                  scope,
		RequiresHierarchyCheck: decision.RequiresHierarchyCheck,
	})
	endSpan(err)

	auditID := s.audit.Log(ctx, audit.DataMutation(id.UserID, pending.Action, "execute", requestID, err == nil))
	if err != nil {
		if errors.Is(err, ErrHierarchyViolation) {
			s.audit.Log(ctx, audit.AuthzDeny(id.UserID, id.Roles, pending.Action, err.Error(), requestID))
			if s.metrics != nil {
				s.metrics.IncAuthzDenial(pending.Action)
			}
			return nil, fmt.Errorf("%w: %s", ErrToolDenied, err)
		}
		return nil, fmt.Errorf("execute %s: %w", pending.Action, err)
	}

	s.audit.Log(ctx, audit.ConfirmationDecision(id.UserID, pending.Action, pending.ID, requestID, true))
	s.incConfirmation("approved")

	return &ExecuteResponse{
		Outcome:      "executed",
		Result:       result,
		AuditEventID: auditID,
	}, nil
}

func (s *Service) resolveIdentity(ctx context.Context, token, clientIP, requestID string) (*identity.Identity, error) {
	ctx, endSpan := tracing.StartStageSpan(ctx, tracing.StageResolveIdentity)
	id, err := s.resolver.Resolve(ctx, token)
	endSpan(err)
	if err != nil {
		s.audit.Log(ctx, audit.AuthFailure(err.Error(), requestID, clientIP))
		if s.metrics != nil {
			s.metrics.IncAuthFailure(authFailureReason(err))
		}
		return nil, fmt.Errorf("%w: %s", ErrAuthFailed, err)
	}

	s.audit.Log(ctx, audit.AuthSuccess(id.UserID, id.Username, string(id.Realm), requestID, clientIP))
	return id, nil
}

func (s *Service) screenPrompt(ctx context.Context, id *identity.Identity, requestID, prompt string) (*guard.Assessment, error) {
	ctx, endSpan := tracing.StartStageSpan(ctx, tracing.StageValidatePrompt)
	assessment := s.guard.ValidatePrompt(prompt)
	if !assessment.IsValid {
		err := fmt.Errorf("%w: %s", ErrPromptRejected, strings.Join(assessment.Flags, ", "))
		endSpan(err)
		s.audit.Log(ctx, audit.InjectionBlocked(id.UserID, requestID, assessment.RiskScore, assessment.Flags))
		if s.metrics != nil {
			s.metrics.IncPromptBlocked(assessment.Flags)
		}
		return nil, err
	}
	endSpan(nil)
	return &assessment, nil
}

func (s *Service) authorizeTool(ctx context.Context, id *identity.Identity, requestID, tool string) (authz.Decision, error) {
	ctx, endSpan := tracing.StartStageSpan(ctx, tracing.StageAuthorize)
	decision := authz.CheckToolAccess(tool, id.Roles)
	if !decision.Allowed {
		err := fmt.Errorf("%w: %s", ErrToolDenied, decision.Reason)
		endSpan(err)
		s.audit.Log(ctx, audit.AuthzDeny(id.UserID, id.Roles, tool, decision.Reason, requestID))
		if s.metrics != nil {
			s.metrics.IncAuthzDenial(tool)
		}
		return decision, err
	}
	endSpan(nil)
	s.audit.Log(ctx, audit.AuthzGrant(id.UserID, id.Roles, tool, decision.Reason, requestID))
	return decision, nil
}

func (s *Service) deferMutation(ctx context.Context, id *identity.Identity, req AskRequest, inv Invocation) (*AskResponse, error) {
	_, domain, _ := s.registry.Write(req.Tool)

	payload, err := json.Marshal(req.Params)
	if err != nil {
		return nil, fmt.Errorf("encode tool params: %w", err)
	}

	ctx, endSpan := tracing.StartStageSpan(ctx, tracing.StageConfirm)
	pending, err := s.broker.Request(ctx, req.Tool, domain, id.UserID, payload)
	endSpan(err)
	if err != nil {
		return nil, fmt.Errorf("request confirmation: %w", err)
	}

	s.logger.Info("mutation deferred pending confirmation",
		"user_id", id.UserID, "tool", req.Tool, "confirmation_id", pending.ID)

	return &AskResponse{
		Confirmation: &ConfirmationInfo{
			ID:               pending.ID,
			Summary:          pending.Summary,
			ExpiresInSeconds: int(s.broker.TTL().Seconds()),
		},
	}, nil
}

func (s *Service) dispatchRead(ctx context.Context, id *identity.Identity, requestID, tool string, inv Invocation) (*AskResponse, error) {
	handler, _ := s.registry.Read(tool)

	ctx, endSpan := tracing.StartStageSpan(ctx, tracing.StageDispatchTool)
	records, err := handler.Read(ctx, inv)
	endSpan(err)
	if err != nil {
		if errors.Is(err, ErrHierarchyViolation) {
			s.audit.Log(ctx, audit.AuthzDeny(id.UserID, id.Roles, tool, err.Error(), requestID))
			if s.metrics != nil {
				s.metrics.IncAuthzDenial(tool)
			}
			return nil, fmt.Errorf("%w: %s", ErrToolDenied, err)
		}
		return nil, fmt.Errorf("read %s: %w", tool, err)
	}

	truncated := false
	if len(records) > s.maxQueryResults {
		records = records[:s.maxQueryResults]
		truncated = true
	}

	auditID := s.audit.Log(ctx, audit.DataRead(id.UserID, tool, requestID, len(records), truncated))

	masked, maskedFields := s.maskRecords(ctx, records)
	if len(maskedFields) > 0 {
		s.audit.Log(ctx, audit.PIIRedacted(id.UserID, tool, requestID, maskedFields))
		if s.metrics != nil {
			s.metrics.IncFieldsMasked(maskedFields)
		}
	}

	rendered, err := json.Marshal(masked)
	if err != nil {
		return nil, fmt.Errorf("render records: %w", err)
	}

	ctx, endSpan = tracing.StartStageSpan(ctx, tracing.StageValidateOutput)
	outcome := s.guard.ValidateOutput(string(rendered), id.Roles)
	endSpan(nil)

	resp := &AskResponse{
		Records:      masked,
		Output:       outcome.Output,
		Flags:        outcome.Flags,
		Truncated:    truncated,
		AuditEventID: auditID,
	}
	if !outcome.IsValid {
		// Guardrail leak: the rendered records are withheld along with
		// the output text.
		resp.Records = nil
		resp.Output = outcome.Output
	}
	return resp, nil
}

// maskRecords masks every record and reports which field names changed.
func (s *Service) maskRecords(ctx context.Context, records []Record) ([]Record, []string) {
	ctx, endSpan := tracing.StartStageSpan(ctx, tracing.StageMaskFields)
	defer endSpan(nil)
	_ = ctx

	changed := make(map[string]bool)
	masked := make([]Record, len(records))
	for i, rec := range records {
		out := s.masker.Record(rec)
		for key, value := range out {
			if !reflect.DeepEqual(value, rec[key]) {
				changed[key] = true
			}
		}
		masked[i] = out
	}

	fields := make([]string, 0, len(changed))
	for field := range changed {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return masked, fields
}

// authFailureReason maps resolver errors to a bounded metric label set.
func authFailureReason(err error) string {
	switch {
	case errors.Is(err, identity.ErrInvalidTokenFormat):
		return "invalid_format"
	case errors.Is(err, identity.ErrUnknownIssuer):
		return "unknown_issuer"
	case errors.Is(err, identity.ErrKeyNotFound):
		return "key_not_found"
	case errors.Is(err, identity.ErrVerificationFailed):
		return "verification_failed"
	default:
		return "other"
	}
}

func (s *Service) incConfirmation(outcome string) {
	if s.metrics != nil {
		s.metrics.IncConfirmation(outcome)
	}
}
