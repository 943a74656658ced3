package authz

import (
	"errors"

	"github.com/tamshai/govern/internal/identity"
)

// AccessLevel describes how much support data an identity may see.
type AccessLevel string

const (
	// AccessNone excludes every record at query level.
	AccessNone AccessLevel = "none"
	// AccessOwn covers records the caller owns, plus records marked
	// organization-visible within the caller's organization.
	AccessOwn AccessLevel = "own"
	// AccessOrganization covers every record sharing the caller's organization.
	AccessOrganization AccessLevel = "organization"
	// AccessFull is unrestricted (internal support and executive staff).
	AccessFull AccessLevel = "full"
)

// VisibilityOrganization marks a ticket readable by the whole organization.
const VisibilityOrganization = "organization"

// ErrScopeUnavailable is returned when a scope filter cannot be derived,
// for example a customer identity without an organization binding.
var ErrScopeUnavailable = errors.New("cannot derive data scope for identity")

// Ticket is the slice of a support record relevant to scope decisions.
type Ticket struct {
	ID             string
	OrganizationID string
	OwnerID        string
	Visibility     string
}

// ScopeFilter restricts which records a caller may see or mutate. It is
// applied at query level; records outside the scope are never fetched.
type ScopeFilter struct {
	Level          AccessLevel
	OrganizationID string
	OwnerID        string
}

// TicketAccessLevel derives the support-data access level for an identity.
// Internal staff get full access only with a support or executive role:
// support data is not visible to, say, finance staff.
func TicketAccessLevel(id *identity.Identity) AccessLevel {
	if id.Realm == identity.RealmInternal {
		if id.HasRole(RoleSupport) || id.HasRole(RoleExecutive) {
			return AccessFull
		}
		return AccessNone
	}

	if id.HasRole(RoleContactLead) {
		return AccessOrganization
	}
	if id.HasRole(RoleContactBasic) {
		return AccessOwn
	}
	return AccessNone
}

// CanCustomerAccessTicket reports whether a customer-realm caller may access
// a specific ticket. Cross-organization access is always denied regardless
// of role or visibility.
func CanCustomerAccessTicket(caller *identity.CustomerContext, ticket Ticket) bool {
	if ticket.OrganizationID != caller.OrganizationID {
		return false
	}

	for _, role := range caller.Roles {
		if role == RoleContactLead {
			return true
		}
	}

	return ticket.OwnerID == caller.UserID || ticket.Visibility == VisibilityOrganization
}

// BuildScopeFilter derives the query-level filter for an identity. The data
// layer must apply it in the query itself rather than filtering after the
// fetch; with AccessNone no record is ever fetched.
func BuildScopeFilter(id *identity.Identity) (ScopeFilter, error) {
	level := TicketAccessLevel(id)

	switch level {
	case AccessFull, AccessNone:
		return ScopeFilter{Level: level}, nil
	case AccessOrganization:
		cc, err := id.CustomerContext()
		if err != nil {
			return ScopeFilter{Level: AccessNone}, ErrScopeUnavailable
		}
		return ScopeFilter{Level: level, OrganizationID: cc.OrganizationID}, nil
	case AccessOwn:
		cc, err := id.CustomerContext()
		if err != nil {
			return ScopeFilter{Level: AccessNone}, ErrScopeUnavailable
		}
		return ScopeFilter{
			Level:          level,
			OrganizationID: cc.OrganizationID,
			OwnerID:        cc.UserID,
		}, nil
	}

	return ScopeFilter{Level: AccessNone}, ErrScopeUnavailable
}

// SQL renders the filter as a parametrized WHERE fragment for the data
// layer. AccessNone yields a clause that matches nothing.
func (f ScopeFilter) SQL() (string, []any) {
	switch f.Level {
	case AccessFull:
		return "TRUE", nil
	case AccessOrganization:
		return "organization_id = $1", []any{f.OrganizationID}
	case AccessOwn:
		return "organization_id = $1 AND (owner_id = $2 OR visibility = $3)",
			[]any{f.OrganizationID, f.OwnerID, VisibilityOrganization}
	default:
		return "FALSE", nil
	}
}
