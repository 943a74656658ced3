package gateway

import (
	"context"
	"errors"

	"github.com/tamshai/govern/internal/authz"
	"github.com/tamshai/govern/internal/identity"
)

// ErrUnknownTool is returned when no handler is registered for a tool name.
var ErrUnknownTool = errors.New("unknown tool")

// Record is a single row of domain data returned by a read tool.
type Record map[string]any

// Invocation carries the governed context a tool handler runs under.
// Handlers must apply Scope at the query level, not by filtering results
// after the fact.
type Invocation struct {
	// Caller is the resolved identity the tool runs on behalf of.
	Caller *identity.Identity
	// Params are the tool arguments from the request.
	Params map[string]string
	// Scope restricts which records the caller may see.
	Scope authz.ScopeFilter
	// RequiresHierarchyCheck is set when the permission table demands the
	// handler verify a reporting relationship before returning data.
	RequiresHierarchyCheck bool
}

// ReadTool executes a read-only domain tool.
type ReadTool interface {
	Read(ctx context.Context, inv Invocation) ([]Record, error)
}

// WriteTool executes a mutating domain tool. It is only invoked after a
// confirmation has been consumed; the returned string summarizes the result.
type WriteTool interface {
	Write(ctx context.Context, inv Invocation) (string, error)
}

type writeEntry struct {
	tool   WriteTool
	domain string
}

// Registry maps tool names to handlers. Mutating tools are registered
// separately so the pipeline can route them through the confirmation broker.
type Registry struct {
	reads  map[string]ReadTool
	writes map[string]writeEntry
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		reads:  make(map[string]ReadTool),
		writes: make(map[string]writeEntry),
	}
}

// RegisterRead registers a read-only tool.
func (r *Registry) RegisterRead(name string, tool ReadTool) {
	r.reads[name] = tool
}

// RegisterWrite registers a mutating tool under a domain label used in
// confirmation summaries.
func (r *Registry) RegisterWrite(name, domain string, tool WriteTool) {
	r.writes[name] = writeEntry{tool: tool, domain: domain}
}

// Read returns the read handler for a tool name.
func (r *Registry) Read(name string) (ReadTool, bool) {
	tool, ok := r.reads[name]
	return tool, ok
}

// Write returns the write handler and domain for a tool name.
func (r *Registry) Write(name string) (WriteTool, string, bool) {
	entry, ok := r.writes[name]
	return entry.tool, entry.domain, ok
}

// Mutating reports whether the named tool requires confirmation.
func (r *Registry) Mutating(name string) bool {
	_, ok := r.writes[name]
	return ok
}

// Known reports whether any handler is registered for the name.
func (r *Registry) Known(name string) bool {
	if _, ok := r.reads[name]; ok {
		return true
	}
	_, ok := r.writes[name]
	return ok
}
