package authz

import (
	"fmt"
	"strings"
)

// Decision is the outcome of a tool authorization check.
type Decision struct {
	Allowed bool
	Reason  string
	// RequiresHierarchyCheck is carried from the matching table entry; the
	// domain handler performs the actual ownership verification.
	RequiresHierarchyCheck bool
}

// CheckToolAccess consults the permission table for the requested tool.
//
// The caller's roles are evaluated in the order supplied by the identity;
// the first allowed entry wins. If no role grants the tool, the shared
// default role's table is consulted. Anything else is denied with a message
// naming the tool and the caller's roles.
func CheckToolAccess(toolName string, roles []string) Decision {
	for _, role := range roles {
		table, ok := permissions[role]
		if !ok {
			continue
		}
		perm, ok := table[toolName]
		if !ok || !perm.Allowed {
			continue
		}
		return Decision{
			Allowed:                true,
			Reason:                 fmt.Sprintf("granted via role %q", role),
			RequiresHierarchyCheck: perm.RequiresHierarchyCheck,
		}
	}

	if perm, ok := permissions[RoleDefault][toolName]; ok && perm.Allowed {
		return Decision{
			Allowed:                true,
			Reason:                 "granted via default role",
			RequiresHierarchyCheck: perm.RequiresHierarchyCheck,
		}
	}

	roleList := strings.Join(roles, ", ")
	if roleList == "" {
		roleList = "none"
	}
	return Decision{
		Allowed: false,
		Reason:  fmt.Sprintf("tool %q is not permitted for roles: %s", toolName, roleList),
	}
}
