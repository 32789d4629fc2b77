package route

import (
	"errors"
	"strings"
	"time"
)

// Sentinel errors for classifier configuration.
var (
	ErrNilMatcher  = errors.New("route: pattern has nil matcher")
	ErrNegativeTTL = errors.New("route: pattern TTL is negative")
)

// Config supplies the classification tables. Both the pattern table and
// the never-cache allow-list come from configuration so deployments can
// adjust sensitivity without touching gateway logic.
type Config struct {
	// NeverCachePaths are path fragments that force never-cache
	// classification, e.g. "/api/auth/". Matching is case-insensitive.
	NeverCachePaths []string

	// NeverCacheMarkers are body signatures that force never-cache
	// classification, e.g. "tokenRefresh" for a token mutation posted
	// to a shared endpoint. Matching is case-sensitive: mutation names
	// are exact identifiers.
	NeverCacheMarkers []string

	// Patterns is the ordered strategy table. First match wins.
	Patterns []Pattern

	// DefaultTTL applies to revalidate patterns that set no TTL.
	// If zero, such patterns get no freshness bound.
	DefaultTTL time.Duration

	// MaxTTL clamps pattern TTLs. Zero means no maximum. Immutable
	// patterns are exempt: their retention is forever.
	MaxTTL time.Duration
}

// DefaultNeverCachePaths is the baseline allow-list of auth, session,
// and checkout path fragments.
var DefaultNeverCachePaths = []string{
	"/api/auth/",
	"/auth/",
	"/login",
	"/logout",
	"/checkout",
	"/token",
}

// DefaultNeverCacheMarkers is the baseline list of mutation signatures
// that must never be cached when they appear in a request body.
var DefaultNeverCacheMarkers = []string{
	"tokenRefresh",
	"tokenCreate",
	"tokenVerify",
	"checkoutCreate",
	"checkoutComplete",
	"signIn",
	"signOut",
}

// Classifier maps requests to a sensitivity class and strategy.
// It is pure and synchronous; Classify performs no I/O and is safe
// for concurrent use after construction.
type Classifier struct {
	neverPaths   []string
	neverMarkers []string
	patterns     []Pattern
	defaultTTL   time.Duration
	maxTTL       time.Duration
}

// NewClassifier validates the configuration and builds a Classifier.
func NewClassifier(cfg Config) (*Classifier, error) {
	for _, p := range cfg.Patterns {
		if p.Match == nil {
			return nil, ErrNilMatcher
		}
		if p.TTL < 0 {
			return nil, ErrNegativeTTL
		}
	}

	// Lowercase the path allow-list once so Classify can compare
	// without re-folding per call.
	paths := make([]string, len(cfg.NeverCachePaths))
	for i, p := range cfg.NeverCachePaths {
		paths[i] = strings.ToLower(p)
	}

	return &Classifier{
		neverPaths:   paths,
		neverMarkers: append([]string(nil), cfg.NeverCacheMarkers...),
		patterns:     append([]Pattern(nil), cfg.Patterns...),
		defaultTTL:   cfg.DefaultTTL,
		maxTTL:       cfg.MaxTTL,
	}, nil
}

// Classify maps a request to its classification.
//
// The never-cache allow-list is evaluated before the pattern table and
// short-circuits regardless of table order. Unmatched requests default
// to the safest behavior: bypass class, network-first strategy, no TTL.
func (c *Classifier) Classify(method, path, body string) Classification {
	if c.neverCache(path, body) {
		return Classification{Class: ClassNeverCache, Strategy: StrategyNetworkOnly}
	}

	for _, p := range c.patterns {
		if !p.Match(method, path) {
			continue
		}
		return Classification{
			Class:    p.Class,
			Strategy: p.Strategy,
			TTL:      c.effectiveTTL(p),
		}
	}

	return Classification{Class: ClassBypass, Strategy: StrategyNetworkFirst}
}

func (c *Classifier) neverCache(path, body string) bool {
	lower := strings.ToLower(path)
	for _, frag := range c.neverPaths {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	if body == "" {
		return false
	}
	for _, marker := range c.neverMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}

// effectiveTTL resolves a pattern's freshness bound. Immutable assets
// keep zero (forever); revalidate patterns fall back to DefaultTTL and
// are clamped to MaxTTL.
func (c *Classifier) effectiveTTL(p Pattern) time.Duration {
	if p.Class == ClassImmutable {
		return 0
	}
	ttl := p.TTL
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if c.maxTTL > 0 && ttl > c.maxTTL {
		ttl = c.maxTTL
	}
	return ttl
}
