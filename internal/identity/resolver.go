package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token validation errors.
var (
	// ErrInvalidTokenFormat is returned when the token cannot be decoded or
	// is missing the kid header or iss claim.
	ErrInvalidTokenFormat = errors.New("invalid token format")
	// ErrUnknownIssuer is returned when the token's issuer matches neither realm.
	ErrUnknownIssuer = errors.New("token issuer does not match a known realm")
	// ErrVerificationFailed is returned when signature or claim validation fails.
	ErrVerificationFailed = errors.New("token verification failed")
)

// Default leeway for clock skew during claim validation.
const DefaultLeeway = 30 * time.Second

// realmClaims is the claim shape shared by both realms. Organization claims
// are only populated by customer-realm tokens; resource roles only matter
// for internal-realm tokens.
type realmClaims struct {
	jwt.RegisteredClaims
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
	RealmAccess       struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
	ResourceAccess map[string]struct {
		Roles []string `json:"roles"`
	} `json:"resource_access"`
	OrganizationID   string `json:"organization_id"`
	OrganizationName string `json:"organization_name"`
}

// RealmConfig describes one trust realm.
type RealmConfig struct {
	// IssuerURL is the issuer string tokens from this realm carry.
	IssuerURL string
	// Keys resolves the realm's signing keys.
	Keys KeySource
	// ClientID selects the resource-scoped role claim. Internal realm only;
	// customer tokens must never contribute resource roles.
	ClientID string
}

// Resolver validates bearer tokens against two trust realms and produces
// normalized Identity records.
type Resolver struct {
	internal RealmConfig
	customer RealmConfig
	leeway   time.Duration
}

// NewResolver creates a Resolver for the given realm configurations.
func NewResolver(internal, customer RealmConfig) *Resolver {
	return &Resolver{
		internal: internal,
		customer: customer,
		leeway:   DefaultLeeway,
	}
}

// RealmFromIssuer classifies an issuer string.
// The customer pattern is tested first: when one realm name is a substring
// of the other (e.g. "corp" and "corp-customers"), testing internal first
// would misclassify customer tokens.
func (r *Resolver) RealmFromIssuer(iss string) (Realm, error) {
	if strings.Contains(iss, r.customer.IssuerURL) {
		return RealmCustomer, nil
	}
	if strings.Contains(iss, r.internal.IssuerURL) {
		return RealmInternal, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownIssuer, iss)
}

// Resolve validates a raw bearer token and returns the caller's Identity.
//
// Steps: decode (unverified) to read kid and iss, classify the realm, fetch
// the signing key from the realm's key source, then verify signature and
// standard claims with RS256.
func (r *Resolver) Resolve(ctx context.Context, rawToken string) (*Identity, error) {
	kid, iss, err := decodeUnverified(rawToken)
	if err != nil {
		return nil, err
	}

	realm, err := r.RealmFromIssuer(iss)
	if err != nil {
		return nil, err
	}

	cfg := r.internal
	if realm == RealmCustomer {
		cfg = r.customer
	}

	key, err := cfg.Keys.Key(ctx, kid)
	if err != nil {
		return nil, err
	}

	claims := &realmClaims{}
	// The issuer is verified against the realm's configured value, not the
	// token's own claim: substring classification above is only routing.
	token, err := jwt.ParseWithClaims(rawToken, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method %s", ErrVerificationFailed, token.Method.Alg())
		}
		return key, nil
	}, jwt.WithLeeway(r.leeway), jwt.WithIssuer(cfg.IssuerURL), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrVerificationFailed, err)
		}
		return nil, ErrVerificationFailed
	}

	identity := &Identity{
		UserID:   claims.Subject,
		Username: claims.PreferredUsername,
		Email:    claims.Email,
		Roles:    append([]string(nil), claims.RealmAccess.Roles...),
		Realm:    realm,
	}

	switch realm {
	case RealmInternal:
		// Resource-scoped roles are merged for staff tokens only.
		if resource, ok := claims.ResourceAccess[cfg.ClientID]; ok {
			identity.Roles = append(identity.Roles, resource.Roles...)
		}
	case RealmCustomer:
		// Copied verbatim; presence is enforced by CustomerContext, not here.
		identity.OrganizationID = claims.OrganizationID
		identity.OrganizationName = claims.OrganizationName
	}

	return identity, nil
}

// decodeUnverified reads the kid header and iss claim without verifying the
// signature. Verification happens after realm classification, because the
// realm determines which key set to verify against.
func decodeUnverified(rawToken string) (kid, iss string, err error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(rawToken, jwt.MapClaims{})
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrInvalidTokenFormat, err)
	}

	kid, _ = token.Header["kid"].(string)
	if kid == "" {
		return "", "", fmt.Errorf("%w: missing kid header", ErrInvalidTokenFormat)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", ErrInvalidTokenFormat
	}
	iss, _ = claims["iss"].(string)
	if iss == "" {
		return "", "", fmt.Errorf("%w: missing iss claim", ErrInvalidTokenFormat)
	}

	return kid, iss, nil
}
