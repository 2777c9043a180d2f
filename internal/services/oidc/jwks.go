package oidc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

// DefaultKeyTTL is how long a fetched key set is served before refetching.
const DefaultKeyTTL = 1 * time.Hour

// KeyCache fetches and caches the JWKS document for a single endpoint.
type KeyCache struct {
	url        string
	ttl        time.Duration
	httpClient *http.Client

	mu      sync.RWMutex
	keys    jwk.Set
	expires time.Time
}

// NewKeyCache creates a key cache for the given JWKS endpoint.
func NewKeyCache(jwksURL string, ttl time.Duration) *KeyCache {
	if ttl <= 0 {
		ttl = DefaultKeyTTL
	}
	return &KeyCache{
		url:        jwksURL,
		ttl:        ttl,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Keys returns the cached key set, refetching it when the cache has expired.
// A stale cache is served if the refresh fails and keys are still present,
// so a flaky JWKS endpoint does not take down token verification.
func (c *KeyCache) Keys(ctx context.Context) (jwk.Set, error) {
	c.mu.RLock()
	if c.keys != nil && time.Now().Before(c.expires) {
		keys := c.keys
		c.mu.RUnlock()
		return keys, nil
	}
	stale := c.keys
	c.mu.RUnlock()

	keys, err := c.fetch(ctx)
	if err != nil {
		if stale != nil {
			return stale, nil
		}
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	c.mu.Lock()
	c.keys = keys
	c.expires = time.Now().Add(c.ttl)
	c.mu.Unlock()

	return keys, nil
}

func (c *KeyCache) fetch(ctx context.Context) (jwk.Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read JWKS response: %w", err)
	}

	keys, err := jwk.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWKS: %w", err)
	}

	return keys, nil
}
