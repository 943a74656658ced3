package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tamshai/govern/internal/authz"
)

// ErrHierarchyViolation is returned when a hierarchy-checked tool targets an
// employee outside the caller's management chain.
var ErrHierarchyViolation = errors.New("target is not in the caller's management chain")

// ErrRecordNotFound is returned when a tool's target record does not exist.
var ErrRecordNotFound = errors.New("record not found")

// DemoStore holds in-memory fixture data behind the demo tool registry.
// Production deployments register their own domain handlers; this store
// exists so the pipeline can be wired and exercised end to end.
type DemoStore struct {
	mu        sync.Mutex
	employees map[string]Record
	tickets   []demoTicket
	mutations []string
}

type demoTicket struct {
	meta    authz.Ticket
	subject string
	status  string
}

// NewDemoStore creates a store with a small fixture data set.
func NewDemoStore() *DemoStore {
	return &DemoStore{
		employees: map[string]Record{
			"staff-7": {
				"employee_id": "staff-7",
				"name":        "Jordan Vega",
				"email":       "jordan.vega@example.com",
				"phone":       "555-867-5309",
				"ssn":         "123-45-6789",
				"salary":      125000,
				"manager_id":  "staff-2",
			},
			"staff-8": {
				"employee_id": "staff-8",
				"name":        "Sam Okafor",
				"email":       "sam.okafor@example.com",
				"phone":       "555-201-3344",
				"ssn":         "987-65-4321",
				"salary":      98000,
				"manager_id":  "staff-2",
			},
			"staff-9": {
				"employee_id": "staff-9",
				"name":        "Riley Chen",
				"email":       "riley.chen@example.com",
				"phone":       "555-443-9921",
				"ssn":         "555-12-3456",
				"salary":      143000,
				"manager_id":  "staff-5",
			},
		},
		tickets: []demoTicket{
			{meta: authz.Ticket{ID: "T-100", OrganizationID: "org-acme", OwnerID: "cust-1"}, subject: "Login loop on portal", status: "open"},
			{meta: authz.Ticket{ID: "T-101", OrganizationID: "org-acme", OwnerID: "cust-2", Visibility: authz.VisibilityOrganization}, subject: "Invoice discrepancy", status: "open"},
			{meta: authz.Ticket{ID: "T-200", OrganizationID: "org-globex", OwnerID: "cust-9"}, subject: "API quota exceeded", status: "pending"},
		},
	}
}

// Mutations returns the summaries of executed write tools, oldest first.
func (s *DemoStore) Mutations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.mutations...)
}

func (s *DemoStore) recordMutation(summary string) {
	s.mu.Lock()
	s.mutations = append(s.mutations, summary)
	s.mu.Unlock()
}

// NewDemoRegistry wires the demo tools into a registry backed by the store.
func NewDemoRegistry(store *DemoStore) *Registry {
	r := NewRegistry()
	r.RegisterRead("get_my_profile", profileTool{store})
	r.RegisterRead("get_company_holidays", holidaysTool{})
	r.RegisterRead("get_employee", employeeTool{store})
	r.RegisterRead("get_report_details", reportTool{store})
	r.RegisterRead("get_ticket", ticketTool{store})
	r.RegisterWrite("update_ticket", "support", updateTicketTool{store})
	r.RegisterWrite("approve_leave", "hr", approveLeaveTool{store})
	return r
}

// profileTool returns the caller's own directory record.
type profileTool struct {
	store *DemoStore
}

func (t profileTool) Read(_ context.Context, inv Invocation) ([]Record, error) {
	rec, ok := t.store.employees[inv.Caller.UserID]
	if !ok {
		return nil, fmt.Errorf("employee %s: %w", inv.Caller.UserID, ErrRecordNotFound)
	}
	return []Record{rec}, nil
}

// holidaysTool returns static reference data visible to every role.
type holidaysTool struct{}

func (holidaysTool) Read(context.Context, Invocation) ([]Record, error) {
	return []Record{
		{"date": "2026-01-01", "name": "New Year's Day"},
		{"date": "2026-07-03", "name": "Independence Day (observed)"},
		{"date": "2026-12-25", "name": "Christmas Day"},
	}, nil
}

// employeeTool looks up an arbitrary employee, available to HR roles.
type employeeTool struct {
	store *DemoStore
}

func (t employeeTool) Read(_ context.Context, inv Invocation) ([]Record, error) {
	id := inv.Params["employee_id"]
	rec, ok := t.store.employees[id]
	if !ok {
		return nil, fmt.Errorf("employee %s: %w", id, ErrRecordNotFound)
	}
	return []Record{rec}, nil
}

// reportTool returns a direct report's details. The permission table marks it
// hierarchy-checked: the target must report to the caller.
type reportTool struct {
	store *DemoStore
}

func (t reportTool) Read(_ context.Context, inv Invocation) ([]Record, error) {
	id := inv.Params["employee_id"]
	rec, ok := t.store.employees[id]
	if !ok {
		return nil, fmt.Errorf("employee %s: %w", id, ErrRecordNotFound)
	}
	if inv.RequiresHierarchyCheck && rec["manager_id"] != inv.Caller.UserID {
		return nil, fmt.Errorf("employee %s: %w", id, ErrHierarchyViolation)
	}
	return []Record{rec}, nil
}

// ticketTool searches support tickets under the caller's scope filter.
// The scope is applied while selecting, never by trimming a broader result.
type ticketTool struct {
	store *DemoStore
}

func (t ticketTool) Read(_ context.Context, inv Invocation) ([]Record, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	var out []Record
	for _, ticket := range t.store.tickets {
		if !scopeAdmits(inv.Scope, ticket.meta) {
			continue
		}
		out = append(out, Record{
			"ticket_id":       ticket.meta.ID,
			"organization_id": ticket.meta.OrganizationID,
			"subject":         ticket.subject,
			"status":          ticket.status,
		})
	}
	return out, nil
}

func scopeAdmits(scope authz.ScopeFilter, ticket authz.Ticket) bool {
	switch scope.Level {
	case authz.AccessFull:
		return true
	case authz.AccessOrganization:
		return ticket.OrganizationID == scope.OrganizationID
	case authz.AccessOwn:
		if ticket.OrganizationID != scope.OrganizationID {
			return false
		}
		return ticket.OwnerID == scope.OwnerID || ticket.Visibility == authz.VisibilityOrganization
	default:
		return false
	}
}

// updateTicketTool records a ticket status change.
type updateTicketTool struct {
	store *DemoStore
}

func (t updateTicketTool) Write(_ context.Context, inv Invocation) (string, error) {
	id := inv.Params["ticket_id"]
	status := inv.Params["status"]

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for i := range t.store.tickets {
		if t.store.tickets[i].meta.ID == id {
			t.store.tickets[i].status = status
			summary := fmt.Sprintf("ticket %s set to %s", id, status)
			// mu is already held; recordMutation would self-deadlock.
			t.store.mutations = append(t.store.mutations, summary)
			return summary, nil
		}
	}
	return "", fmt.Errorf("ticket %s: %w", id, ErrRecordNotFound)
}

// approveLeaveTool records a leave approval.
type approveLeaveTool struct {
	store *DemoStore
}

func (t approveLeaveTool) Write(_ context.Context, inv Invocation) (string, error) {
	id := inv.Params["employee_id"]
	rec, ok := t.store.employees[id]
	if !ok {
		return "", fmt.Errorf("employee %s: %w", id, ErrRecordNotFound)
	}
	if inv.RequiresHierarchyCheck && rec["manager_id"] != inv.Caller.UserID {
		return "", fmt.Errorf("employee %s: %w", id, ErrHierarchyViolation)
	}
	summary := fmt.Sprintf("leave approved for %s", id)
	t.store.recordMutation(summary)
	return summary, nil
}
