package route

import (
	"regexp"
	"strings"
	"time"
)

// Class is the cache sensitivity class of a request.
type Class int

const (
	// ClassBypass marks requests already handled by a lower layer.
	// Unmatched requests default to this class.
	ClassBypass Class = iota

	// ClassNeverCache marks auth, session, and checkout requests.
	// Entries for this class must never exist in any store.
	ClassNeverCache

	// ClassImmutable marks content-hashed static assets.
	ClassImmutable

	// ClassRevalidate marks pageable or catalog data with a bounded TTL.
	ClassRevalidate
)

func (c Class) String() string {
	switch c {
	case ClassNeverCache:
		return "never-cache"
	case ClassImmutable:
		return "immutable"
	case ClassRevalidate:
		return "revalidate"
	default:
		return "bypass"
	}
}

// Strategy selects how the gateway satisfies a request.
type Strategy int

const (
	// StrategyNetworkFirst attempts the network, falling back to a
	// stored entry on failure. This is the default for unmatched routes.
	StrategyNetworkFirst Strategy = iota

	// StrategyCacheFirst returns a stored entry when present, fetching
	// and storing otherwise.
	StrategyCacheFirst

	// StrategyStaleWhileRevalidate returns a stored entry immediately
	// and refreshes it in the background.
	StrategyStaleWhileRevalidate

	// StrategyNetworkOnly never touches the store.
	StrategyNetworkOnly
)

func (s Strategy) String() string {
	switch s {
	case StrategyCacheFirst:
		return "cache-first"
	case StrategyStaleWhileRevalidate:
		return "stale-while-revalidate"
	case StrategyNetworkOnly:
		return "network-only"
	default:
		return "network-first"
	}
}

// Classification is the result of classifying a single request.
type Classification struct {
	Class    Class
	Strategy Strategy

	// TTL bounds how long a stored entry stays fresh. Zero means
	// forever for immutable assets and "no bound configured" otherwise.
	TTL time.Duration
}

// Matcher reports whether a pattern applies to a request.
type Matcher func(method, path string) bool

// Pattern pairs a matcher with the classification it produces.
// Patterns are evaluated first-to-last; the first match wins.
type Pattern struct {
	Match    Matcher
	Class    Class
	Strategy Strategy
	TTL      time.Duration
}

// PathPrefix matches any method whose path starts with prefix.
func PathPrefix(prefix string) Matcher {
	return func(_, path string) bool {
		return strings.HasPrefix(path, prefix)
	}
}

// PathSuffix matches any method whose path ends with suffix.
func PathSuffix(suffix string) Matcher {
	return func(_, path string) bool {
		return strings.HasSuffix(path, suffix)
	}
}

// PathRegexp matches paths against a compiled expression.
func PathRegexp(re *regexp.Regexp) Matcher {
	return func(_, path string) bool {
		return re.MatchString(path)
	}
}

// MethodPath matches an exact method plus a path prefix.
func MethodPath(method, prefix string) Matcher {
	return func(m, path string) bool {
		return strings.EqualFold(m, method) && strings.HasPrefix(path, prefix)
	}
}

// hashedAssetRe matches content-hashed build artifacts and font files,
// e.g. /static/app.abc123.js or /fonts/inter.woff2.
var hashedAssetRe = regexp.MustCompile(`(\.[0-9a-fA-F]{6,}\.(js|css|json|svg|png|webp)|\.(woff2?|ttf|otf|eot))$`)

// HashedAsset matches immutable, content-addressed static assets.
func HashedAsset() Matcher {
	return PathRegexp(hashedAssetRe)
}
