// Package identity resolves bearer tokens from two independent trust realms
// (internal staff and external customers) into a normalized identity record.
package identity

import "errors"

// Realm identifies which trust domain issued a token.
type Realm string

const (
	// RealmInternal is the staff realm (employees, managers, executives).
	RealmInternal Realm = "internal"
	// RealmCustomer is the external customer realm.
	RealmCustomer Realm = "customer"
)

// ErrIncompleteCustomerIdentity is returned when a customer-realm identity is
// missing its organization binding.
var ErrIncompleteCustomerIdentity = errors.New("customer identity missing organization claims")

// Identity is the normalized result of token validation.
// It is immutable per request; construct it once via Resolver.Resolve.
type Identity struct {
	UserID   string
	Username string
	Email    string
	// Roles preserves claim order; authorization is first-match over this slice.
	Roles []string
	Realm Realm

	// Organization binding, present only for customer-realm tokens.
	OrganizationID   string
	OrganizationName string
}

// HasRole reports whether the identity holds the given role.
func (id *Identity) HasRole(role string) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// CustomerContext describes an external caller's organization binding.
type CustomerContext struct {
	UserID           string
	Username         string
	Roles            []string
	OrganizationID   string
	OrganizationName string
}

// CustomerContext builds the customer-scoped view of this identity.
// A customer identity without both organization claims is incomplete and is
// rejected; customer-only operations must treat it as unauthenticated.
func (id *Identity) CustomerContext() (*CustomerContext, error) {
	if id.Realm != RealmCustomer {
		return nil, ErrIncompleteCustomerIdentity
	}
	if id.OrganizationID == "" || id.OrganizationName == "" {
		return nil, ErrIncompleteCustomerIdentity
	}
	return &CustomerContext{
		UserID:           id.UserID,
		Username:         id.Username,
		Roles:            id.Roles,
		OrganizationID:   id.OrganizationID,
		OrganizationName: id.OrganizationName,
	}, nil
}
