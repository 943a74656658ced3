package gateway

import (
	"context"
	"sync"
	"testing"

	"github.com/tamshai/govern/internal/authz"
	"github.com/tamshai/govern/internal/identity"
)

func TestRegistryDispatch(t *testing.T) {
	reg := NewDemoRegistry(NewDemoStore())

	if _, ok := reg.Read("get_my_profile"); !ok {
		t.Error("get_my_profile must be registered as a read tool")
	}
	if _, _, ok := reg.Write("update_ticket"); !ok {
		t.Error("update_ticket must be registered as a write tool")
	}
	if _, _, ok := reg.Write("get_my_profile"); ok {
		t.Error("read tool must not resolve as a write tool")
	}

	if !reg.Mutating("approve_leave") {
		t.Error("approve_leave must be mutating")
	}
	if reg.Mutating("get_ticket") {
		t.Error("get_ticket must not be mutating")
	}

	if !reg.Known("get_company_holidays") {
		t.Error("registered tool must be known")
	}
	if reg.Known("get_my_vacation_balance") {
		t.Error("unregistered tool must not be known")
	}
}

func TestScopeAdmits(t *testing.T) {
	own := authz.Ticket{ID: "T-1", OrganizationID: "org-a", OwnerID: "u-1"}
	orgVisible := authz.Ticket{ID: "T-2", OrganizationID: "org-a", OwnerID: "u-2", Visibility: authz.VisibilityOrganization}
	private := authz.Ticket{ID: "T-3", OrganizationID: "org-a", OwnerID: "u-2"}
	foreign := authz.Ticket{ID: "T-4", OrganizationID: "org-b", OwnerID: "u-9"}

	tests := []struct {
		name   string
		scope  authz.ScopeFilter
		ticket authz.Ticket
		want   bool
	}{
		{"full sees foreign org", authz.ScopeFilter{Level: authz.AccessFull}, foreign, true},
		{"org scope admits same org", authz.ScopeFilter{Level: authz.AccessOrganization, OrganizationID: "org-a"}, private, true},
		{"org scope rejects other org", authz.ScopeFilter{Level: authz.AccessOrganization, OrganizationID: "org-a"}, foreign, false},
		{"own admits owned", authz.ScopeFilter{Level: authz.AccessOwn, OrganizationID: "org-a", OwnerID: "u-1"}, own, true},
		{"own admits org-visible", authz.ScopeFilter{Level: authz.AccessOwn, OrganizationID: "org-a", OwnerID: "u-1"}, orgVisible, true},
		{"own rejects private peer ticket", authz.ScopeFilter{Level: authz.AccessOwn, OrganizationID: "org-a", OwnerID: "u-1"}, private, false},
		{"own never crosses orgs", authz.ScopeFilter{Level: authz.AccessOwn, OrganizationID: "org-a", OwnerID: "u-9"}, foreign, false},
		{"none admits nothing", authz.ScopeFilter{Level: authz.AccessNone}, own, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scopeAdmits(tt.scope, tt.ticket); got != tt.want {
				t.Errorf("scopeAdmits() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDemoStoreConcurrentTicketAccess(t *testing.T) {
	store := NewDemoStore()
	reg := NewDemoRegistry(store)

	readTool, ok := reg.Read("get_ticket")
	if !ok {
		t.Fatal("get_ticket not registered")
	}
	writeTool, _, ok := reg.Write("update_ticket")
	if !ok {
		t.Fatal("update_ticket not registered")
	}

	caller := &identity.Identity{UserID: "staff-4"}
	scope := authz.ScopeFilter{Level: authz.AccessFull}

	const workers = 8
	const iterations = 25

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				if _, err := readTool.Read(context.Background(), Invocation{Caller: caller, Scope: scope}); err != nil {
					t.Errorf("Read() error: %v", err)
					return
				}
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				inv := Invocation{Caller: caller, Params: map[string]string{"ticket_id": "T-100", "status": "open"}}
				if _, err := writeTool.Write(context.Background(), inv); err != nil {
					t.Errorf("Write() error: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if got := len(store.Mutations()); got != workers*iterations {
		t.Errorf("mutations = %d, want %d", got, workers*iterations)
	}
}
