package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// forwardTimeout bounds the fire-and-forget POST to an external sink.
const forwardTimeout = 5 * time.Second

// Options configures the audit pipeline.
type Options struct {
	// Enabled gates all emission. Disabled pipelines drop every event.
	Enabled bool
	// MinSeverity is the least urgent severity still emitted.
	MinSeverity Severity
	// Service and Environment are stamped onto every event.
	Service     string
	Environment string
}

// Pipeline stamps, filters, and fans out audit events. Emitted events
// always reach the local structured log; a configured repository and
// forwarder additionally receive them. Repository and forwarder failures
// are recovered locally and never propagate into the request path.
type Pipeline struct {
	opts      Options
	logger    *slog.Logger
	repo      Repository
	forwarder *Forwarder
}

// NewPipeline creates an audit pipeline. repo and forwarder may be nil.
func NewPipeline(opts Options, logger *slog.Logger, repo Repository, forwarder *Forwarder) *Pipeline {
	if !opts.MinSeverity.Known() {
		opts.MinSeverity = SeverityInfo
	}
	return &Pipeline{
		opts:      opts,
		logger:    logger,
		repo:      repo,
		forwarder: forwarder,
	}
}

// Log stamps the event with an id, timestamp, and run-time config, then
// emits it if audit logging is enabled and the severity clears the minimum.
// Returns the event id, or "" when the event was filtered.
func (p *Pipeline) Log(ctx context.Context, event *Event) string {
	event.EventID = uuid.New().String()
	event.Timestamp = time.Now().UTC()
	event.Service = p.opts.Service
	event.Environment = p.opts.Environment

	if !p.opts.Enabled || !event.Severity.AtLeast(p.opts.MinSeverity) {
		return ""
	}

	p.logger.LogAttrs(ctx, event.Severity.SlogLevel(), event.Message,
		slog.String("event_id", event.EventID),
		slog.String("severity", string(event.Severity)),
		slog.String("category", event.Category),
		slog.String("user_id", event.UserID),
		slog.String("request_id", event.RequestID),
		slog.String("resource", event.Resource),
		slog.String("action", event.Action),
		slog.String("outcome", event.Outcome),
	)

	if p.repo != nil {
		if err := p.repo.Insert(ctx, event); err != nil {
			p.logger.Warn("audit repository insert failed", "error", err, "event_id", event.EventID)
		}
	}

	if p.forwarder != nil {
		// Fire-and-forget: the request path never waits on sink I/O.
		go p.forward(*event)
	}

	return event.EventID
}

// forward posts a copy of the event to the external sink with a bounded
// timeout, logging failures locally as warnings.
func (p *Pipeline) forward(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), forwardTimeout)
	defer cancel()

	if err := p.forwarder.Forward(ctx, &event); err != nil {
		p.logger.Warn("audit sink forwarding failed", "error", err, "event_id", event.EventID)
	}
}
