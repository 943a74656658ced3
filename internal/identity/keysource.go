package identity

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"
)

// ErrKeyNotFound is returned when no signing key matches the token's kid.
var ErrKeyNotFound = errors.New("signing key not found")

// Default key cache settings.
const (
	DefaultKeyCacheTTL = 10 * time.Minute
	// maxCachedKeys bounds the cache; a realm's key set is small, so hitting
	// this limit indicates kid churn and the cache is simply reset.
	maxCachedKeys = 64

	fetchTimeout = 10 * time.Second
)

// KeySource resolves a key ID to an RSA public key.
// Each realm gets its own independent instance.
type KeySource interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// jwk is a single JSON Web Key as served by the realm's JWKS endpoint.
type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// jwks is the JWKS document shape.
type jwks struct {
	Keys []jwk `json:"keys"`
}

// cachedKey is a public key with its fetch time for TTL checks.
type cachedKey struct {
	key       *rsa.PublicKey
	fetchedAt time.Time
}

// JWKSSource fetches signing keys from a realm's JWKS endpoint and caches
// them with a TTL. Safe for concurrent use; a cache miss triggers a blocking
// fetch for that request only.
type JWKSSource struct {
	url    string
	ttl    time.Duration
	client *http.Client

	mu   sync.RWMutex
	keys map[string]cachedKey
}

// NewJWKSSource creates a key source for the given JWKS URL.
// A ttl of zero uses DefaultKeyCacheTTL.
func NewJWKSSource(url string, ttl time.Duration) *JWKSSource {
	if ttl <= 0 {
		ttl = DefaultKeyCacheTTL
	}
	return &JWKSSource{
		url:    url,
		ttl:    ttl,
		client: &http.Client{Timeout: fetchTimeout},
		keys:   make(map[string]cachedKey),
	}
}

// Key returns the public key for the given kid, fetching the key set if the
// kid is not cached or its cache entry has expired.
func (s *JWKSSource) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	s.mu.RLock()
	cached, ok := s.keys[kid]
	s.mu.RUnlock()

	if ok && time.Since(cached.fetchedAt) < s.ttl {
		return cached.key, nil
	}

	if err := s.refresh(ctx); err != nil {
		// A stale cached key is still usable if the refresh fails.
		if ok {
			return cached.key, nil
		}
		return nil, err
	}

	s.mu.RLock()
	cached, ok = s.keys[kid]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
	}
	return cached.key, nil
}

// refresh fetches the JWKS document and replaces cached entries.
func (s *JWKSSource) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("build JWKS request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch JWKS: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch JWKS: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read JWKS response: %w", err)
	}

	var doc jwks
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("parse JWKS response: %w", err)
	}

	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.keys) >= maxCachedKeys {
		s.keys = make(map[string]cachedKey)
	}

	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		pub, err := parseRSAKey(k)
		if err != nil {
			continue
		}
		s.keys[k.Kid] = cachedKey{key: pub, fetchedAt: now}
	}

	return nil
}

// parseRSAKey converts a JWK's modulus and exponent into an rsa.PublicKey.
func parseRSAKey(k jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}

	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	if e <= 0 {
		return nil, errors.New("invalid exponent")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}

// StaticKeySource serves keys from a fixed map. Used for tests and for
// deployments that pin keys instead of fetching JWKS.
type StaticKeySource struct {
	Keys map[string]*rsa.PublicKey
}

// Key returns the key for kid, or ErrKeyNotFound.
func (s *StaticKeySource) Key(_ context.Context, kid string) (*rsa.PublicKey, error) {
	key, ok := s.Keys[kid]
	if !ok {
		return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
	}
	return key, nil
}
