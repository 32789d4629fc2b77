package session

import (
	"net/http"
	"sync"
)

// Default credential cookie names.
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
	SessionIDCookie    = "session_id"
)

// CookieScope is one path/domain variant a cookie may have been set under.
type CookieScope struct {
	Path   string
	Domain string
}

// Location is a single concrete storage slot: a cookie name under a scope.
type Location struct {
	Name  string
	Scope CookieScope
}

// CredentialSet declares every client-visible location a session
// credential may live in. Clearing iterates the declared locations
// deterministically; partial clearing is a correctness bug, so the set
// must enumerate all name and scope variants ever used to set them.
type CredentialSet struct {
	// CookieNames are the credential cookie names.
	CookieNames []string

	// Scopes are the path/domain variants the cookies may carry.
	Scopes []CookieScope

	// MetadataKeys name non-sensitive durable-store entries tied to the
	// session (cleared alongside credentials).
	MetadataKeys []string
}

// DefaultCredentialSet covers the standard token cookies under the
// root path.
func DefaultCredentialSet() CredentialSet {
	return CredentialSet{
		CookieNames: []string{AccessTokenCookie, RefreshTokenCookie, SessionIDCookie},
		Scopes:      []CookieScope{{Path: "/"}},
	}
}

// Locations expands the set into the full name x scope cross product,
// in declaration order.
func (s CredentialSet) Locations() []Location {
	out := make([]Location, 0, len(s.CookieNames)*len(s.Scopes))
	for _, name := range s.CookieNames {
		for _, scope := range s.Scopes {
			out = append(out, Location{Name: name, Scope: scope})
		}
	}
	return out
}

// CredentialStore holds the client-visible session credentials.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - ClearAll must clear every location in the set even if individual
//   clears fail, returning the first error encountered.
type CredentialStore interface {
	// Token returns the credential stored under the name.
	Token(name string) (string, bool)

	// SetToken stores a credential under the name.
	SetToken(name, value string)

	// ClearAll removes every location declared by the set.
	ClearAll(set CredentialSet) error
}

// MemoryCredentialStore is an in-process CredentialStore.
type MemoryCredentialStore struct {
	mu     sync.RWMutex
	tokens map[string]string
}

// NewMemoryCredentialStore creates an empty credential store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{tokens: make(map[string]string)}
}

// Token returns the credential stored under the name.
func (s *MemoryCredentialStore) Token(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.tokens[name]
	return v, ok && v != ""
}

// SetToken stores a credential under the name.
func (s *MemoryCredentialStore) SetToken(name, value string) {
	s.mu.Lock()
	s.tokens[name] = value
	s.mu.Unlock()
}

// ClearAll removes every declared location. Idempotent.
func (s *MemoryCredentialStore) ClearAll(set CredentialSet) error {
	s.mu.Lock()
	for _, loc := range set.Locations() {
		delete(s.tokens, loc.Name)
	}
	for _, key := range set.MetadataKeys {
		delete(s.tokens, key)
	}
	s.mu.Unlock()
	return nil
}

// AccessToken returns the canonical access token. It satisfies the
// executor's credential source contract.
func (s *MemoryCredentialStore) AccessToken() (string, error) {
	v, ok := s.Token(AccessTokenCookie)
	if !ok {
		return "", ErrNoCredential
	}
	return v, nil
}

// Ensure MemoryCredentialStore implements CredentialStore
var _ CredentialStore = (*MemoryCredentialStore)(nil)

// ClearCookies writes an expiring Set-Cookie header for every location
// in the set. Each cookie is cleared under each declared path/domain
// variant; the iteration order is the set's declaration order, which
// keeps the sweep auditable.
func ClearCookies(w http.ResponseWriter, set CredentialSet) {
	for _, loc := range set.Locations() {
		http.SetCookie(w, &http.Cookie{
			Name:     loc.Name,
			Value:    "",
			Path:     loc.Scope.Path,
			Domain:   loc.Scope.Domain,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})
	}
}

// RecoverySweep is the second-line credential sweep performed on
// arrival at the recovery route, in case the primary clear did not
// reach every cookie variant.
func RecoverySweep(w http.ResponseWriter, set CredentialSet) {
	ClearCookies(w, set)
}
