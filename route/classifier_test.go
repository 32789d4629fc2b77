package route

import (
	"errors"
	"testing"
	"time"
)

func testClassifier(t *testing.T, cfg Config) *Classifier {
	t.Helper()
	c, err := NewClassifier(cfg)
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}
	return c
}

// TestClassify_NeverCachePrecedence verifies auth patterns take absolute
// precedence over any other pattern matching the same route.
func TestClassify_NeverCachePrecedence(t *testing.T) {
	c := testClassifier(t, Config{
		NeverCachePaths:   DefaultNeverCachePaths,
		NeverCacheMarkers: DefaultNeverCacheMarkers,
		Patterns: []Pattern{
			// A catch-all that would otherwise match everything,
			// including /graphql and /api/auth/refresh.
			{Match: PathPrefix("/"), Class: ClassRevalidate, Strategy: StrategyStaleWhileRevalidate, TTL: time.Minute},
		},
	})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"auth path", "POST", "/api/auth/refresh", ""},
		{"auth path mixed case", "POST", "/API/Auth/refresh", ""},
		{"login path", "GET", "/login", ""},
		{"checkout path", "POST", "/checkout/complete", ""},
		{"token mutation body", "POST", "/graphql", `{"query":"mutation { tokenRefresh(...) }"}`},
		{"checkout mutation body", "POST", "/graphql", `{"query":"mutation checkoutComplete"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.method, tt.path, tt.body)
			if got.Class != ClassNeverCache {
				t.Errorf("Classify(%q, %q) class = %v, want never-cache", tt.path, tt.body, got.Class)
			}
			if got.Strategy != StrategyNetworkOnly {
				t.Errorf("Classify(%q, %q) strategy = %v, want network-only", tt.path, tt.body, got.Strategy)
			}
		})
	}
}

// TestClassify_FirstMatchWins verifies table order resolves overlapping
// patterns.
func TestClassify_FirstMatchWins(t *testing.T) {
	c := testClassifier(t, Config{
		Patterns: []Pattern{
			{Match: PathPrefix("/api/products"), Class: ClassRevalidate, Strategy: StrategyStaleWhileRevalidate, TTL: time.Minute},
			{Match: PathPrefix("/api"), Class: ClassBypass, Strategy: StrategyNetworkFirst},
		},
	})

	got := c.Classify("GET", "/api/products?page=2", "")
	if got.Strategy != StrategyStaleWhileRevalidate {
		t.Errorf("strategy = %v, want stale-while-revalidate", got.Strategy)
	}

	got = c.Classify("GET", "/api/cart", "")
	if got.Strategy != StrategyNetworkFirst {
		t.Errorf("strategy = %v, want network-first", got.Strategy)
	}
}

// TestClassify_UnmatchedDefaults verifies absence of a match falls back
// to the non-caching default.
func TestClassify_UnmatchedDefaults(t *testing.T) {
	c := testClassifier(t, Config{})

	got := c.Classify("GET", "/totally/unknown", "")
	if got.Class != ClassBypass {
		t.Errorf("class = %v, want bypass", got.Class)
	}
	if got.Strategy != StrategyNetworkFirst {
		t.Errorf("strategy = %v, want network-first", got.Strategy)
	}
	if got.TTL != 0 {
		t.Errorf("ttl = %v, want 0", got.TTL)
	}
}

// TestClassify_ImmutableAssets verifies hashed assets map to cache-first
// with forever retention.
func TestClassify_ImmutableAssets(t *testing.T) {
	c := testClassifier(t, Config{
		Patterns: []Pattern{
			{Match: HashedAsset(), Class: ClassImmutable, Strategy: StrategyCacheFirst, TTL: time.Hour},
		},
		MaxTTL: time.Minute,
	})

	tests := []struct {
		path string
		want bool
	}{
		{"/_next/static/app.abc123.js", true},
		{"/static/chunk.00ff00ff.css", true},
		{"/fonts/inter.woff2", true},
		{"/fonts/inter.woff", true},
		{"/api/products", false},
		{"/static/app.js", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := c.Classify("GET", tt.path, "")
			if matched := got.Class == ClassImmutable; matched != tt.want {
				t.Fatalf("Classify(%q) class = %v, want immutable match %v", tt.path, got.Class, tt.want)
			}
			if tt.want {
				if got.Strategy != StrategyCacheFirst {
					t.Errorf("strategy = %v, want cache-first", got.Strategy)
				}
				// Immutable retention is forever regardless of the
				// configured pattern TTL or clamp.
				if got.TTL != 0 {
					t.Errorf("ttl = %v, want 0 (forever)", got.TTL)
				}
			}
		})
	}
}

// TestClassify_TTLClamping verifies revalidate TTLs honor defaults and MaxTTL.
func TestClassify_TTLClamping(t *testing.T) {
	tests := []struct {
		name       string
		patternTTL time.Duration
		defaultTTL time.Duration
		maxTTL     time.Duration
		want       time.Duration
	}{
		{"pattern ttl used", time.Minute, 0, 0, time.Minute},
		{"default applied", 0, 30 * time.Second, 0, 30 * time.Second},
		{"clamped to max", time.Hour, 0, time.Minute, time.Minute},
		{"default clamped", 0, time.Hour, time.Minute, time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClassifier(t, Config{
				Patterns: []Pattern{
					{Match: PathPrefix("/api/products"), Class: ClassRevalidate, Strategy: StrategyStaleWhileRevalidate, TTL: tt.patternTTL},
				},
				DefaultTTL: tt.defaultTTL,
				MaxTTL:     tt.maxTTL,
			})
			got := c.Classify("GET", "/api/products", "")
			if got.TTL != tt.want {
				t.Errorf("ttl = %v, want %v", got.TTL, tt.want)
			}
		})
	}
}

// TestNewClassifier_Validation verifies config errors.
func TestNewClassifier_Validation(t *testing.T) {
	if _, err := NewClassifier(Config{Patterns: []Pattern{{Match: nil}}}); !errors.Is(err, ErrNilMatcher) {
		t.Errorf("nil matcher error = %v, want ErrNilMatcher", err)
	}
	if _, err := NewClassifier(Config{Patterns: []Pattern{{Match: PathPrefix("/"), TTL: -time.Second}}}); !errors.Is(err, ErrNegativeTTL) {
		t.Errorf("negative ttl error = %v, want ErrNegativeTTL", err)
	}
}

// TestMatchers covers the matcher helpers.
func TestMatchers(t *testing.T) {
	tests := []struct {
		name    string
		matcher Matcher
		method  string
		path    string
		want    bool
	}{
		{"prefix hit", PathPrefix("/api"), "GET", "/api/x", true},
		{"prefix miss", PathPrefix("/api"), "GET", "/app", false},
		{"suffix hit", PathSuffix(".json"), "GET", "/data/page.json", true},
		{"suffix miss", PathSuffix(".json"), "GET", "/data/page.html", false},
		{"method hit", MethodPath("POST", "/graphql"), "post", "/graphql", true},
		{"method miss", MethodPath("POST", "/graphql"), "GET", "/graphql", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.matcher(tt.method, tt.path); got != tt.want {
				t.Errorf("matcher(%q, %q) = %v, want %v", tt.method, tt.path, got, tt.want)
			}
		})
	}
}

// TestClassString verifies string forms used in entry scopes and logs.
func TestClassString(t *testing.T) {
	tests := []struct {
		class Class
		want  string
	}{
		{ClassBypass, "bypass"},
		{ClassNeverCache, "never-cache"},
		{ClassImmutable, "immutable"},
		{ClassRevalidate, "revalidate"},
	}
	for _, tt := range tests {
		if got := tt.class.String(); got != tt.want {
			t.Errorf("Class(%d).String() = %q, want %q", tt.class, got, tt.want)
		}
	}
}
