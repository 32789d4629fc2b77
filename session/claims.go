package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ClaimsCache memoizes the decoded claims of the current access token.
// Decoding is unverified: signature verification belongs to the server;
// the client only reads expiry and identity claims for display and
// scheduling. The cache is tainted state and must be cleared whenever
// the session is invalidated.
type ClaimsCache struct {
	mu     sync.RWMutex
	token  string
	claims jwt.MapClaims
}

// NewClaimsCache creates an empty claims cache.
func NewClaimsCache() *ClaimsCache {
	return &ClaimsCache{}
}

// Decode parses the token and memoizes its claims. Repeated calls with
// the same token return the memoized copy.
func (c *ClaimsCache) Decode(token string) (jwt.MapClaims, error) {
	c.mu.RLock()
	if token != "" && token == c.token {
		claims := c.claims
		c.mu.RUnlock()
		return claims, nil
	}
	c.mu.RUnlock()

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenUndecodable, err)
	}

	c.mu.Lock()
	c.token = token
	c.claims = claims
	c.mu.Unlock()
	return claims, nil
}

// ExpiresAt returns the memoized token's expiry, if one is cached.
func (c *ClaimsCache) ExpiresAt() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.claims == nil {
		return time.Time{}, false
	}
	exp, err := c.claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Subject returns the memoized token's subject claim, if present.
func (c *ClaimsCache) Subject() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.claims == nil {
		return "", false
	}
	sub, err := c.claims.GetSubject()
	if err != nil || sub == "" {
		return "", false
	}
	return sub, true
}

// Clear drops the memoized token and claims.
func (c *ClaimsCache) Clear() {
	c.mu.Lock()
	c.token = ""
	c.claims = nil
	c.mu.Unlock()
}
