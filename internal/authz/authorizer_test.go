package authz

import (
	"strings"
	"testing"
)

func TestCheckToolAccess(t *testing.T) {
	tests := []struct {
		name          string
		tool          string
		roles         []string
		allowed       bool
		wantHierarchy bool
	}{
		{
			name:    "hr-read may read employees",
			tool:    "get_employee",
			roles:   []string{RoleHRRead},
			allowed: true,
		},
		{
			name:    "finance may not read employees",
			tool:    "get_employee",
			roles:   []string{RoleFinance},
			allowed: false,
		},
		{
			name:          "manager report details needs hierarchy check",
			tool:          "get_report_details",
			roles:         []string{RoleManager},
			allowed:       true,
			wantHierarchy: true,
		},
		{
			name:          "hr-write approve_leave has no hierarchy check",
			tool:          "approve_leave",
			roles:         []string{RoleHRWrite},
			allowed:       true,
			wantHierarchy: false,
		},
		{
			name:          "first allowed role wins over later hierarchy entry",
			tool:          "approve_leave",
			roles:         []string{RoleManager, RoleHRWrite},
			allowed:       true,
			wantHierarchy: true,
		},
		{
			name:    "default role grants profile access with unknown role",
			tool:    "get_my_profile",
			roles:   []string{"visitor"},
			allowed: true,
		},
		{
			name:    "payroll admin may create pay run",
			tool:    "create_pay_run",
			roles:   []string{RolePayrollAdmin},
			allowed: true,
		},
		{
			name:    "unknown tool denied",
			tool:    "delete_everything",
			roles:   []string{RoleExecutive, RoleHRWrite},
			allowed: false,
		},
		{
			name:    "no roles denied",
			tool:    "get_employee",
			roles:   nil,
			allowed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckToolAccess(tt.tool, tt.roles)
			if got.Allowed != tt.allowed {
				t.Errorf("Allowed = %t, want %t (reason %q)", got.Allowed, tt.allowed, got.Reason)
			}
			if got.RequiresHierarchyCheck != tt.wantHierarchy {
				t.Errorf("RequiresHierarchyCheck = %t, want %t", got.RequiresHierarchyCheck, tt.wantHierarchy)
			}
			if got.Reason == "" {
				t.Error("decision must carry a reason")
			}
		})
	}
}

func TestBulkToolsDeniedForEveryRole(t *testing.T) {
	// Defense in depth: no role may bulk-export, not even hr-write or
	// executive.
	for _, tool := range []string{"bulk_export", "get_all_salaries"} {
		for _, role := range KnownRoles() {
			got := CheckToolAccess(tool, []string{role})
			if got.Allowed {
				t.Errorf("CheckToolAccess(%q, [%s]).Allowed = true, want false", tool, role)
			}
		}

		// All roles at once must still be denied.
		got := CheckToolAccess(tool, KnownRoles())
		if got.Allowed {
			t.Errorf("CheckToolAccess(%q, all roles).Allowed = true, want false", tool)
		}
	}
}

func TestGetMyProfileAllowedForEveryRole(t *testing.T) {
	for _, role := range KnownRoles() {
		got := CheckToolAccess("get_my_profile", []string{role})
		if !got.Allowed {
			t.Errorf("CheckToolAccess(get_my_profile, [%s]).Allowed = false, want true", role)
		}
	}
}

func TestDenialNamesToolAndRoles(t *testing.T) {
	got := CheckToolAccess("create_pay_run", []string{RoleHRRead, RoleFinance})
	if got.Allowed {
		t.Fatal("expected denial")
	}
	if !strings.Contains(got.Reason, "create_pay_run") {
		t.Errorf("Reason = %q, want it to name the tool", got.Reason)
	}
	if !strings.Contains(got.Reason, RoleHRRead) || !strings.Contains(got.Reason, RoleFinance) {
		t.Errorf("Reason = %q, want it to name the caller's roles", got.Reason)
	}
}
