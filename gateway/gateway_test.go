package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/sessioncache/route"
)

// testFetcher is a scriptable Fetcher that counts calls.
type testFetcher struct {
	mu    sync.Mutex
	calls int
	fn    Fetcher
}

func (f *testFetcher) fetch(ctx context.Context, req *Request) (*Response, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(ctx, req)
}

func (f *testFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func respondWith(status int, body string) Fetcher {
	return func(ctx context.Context, req *Request) (*Response, error) {
		return &Response{Status: status, Body: []byte(body)}, nil
	}
}

func failWith(err error) Fetcher {
	return func(ctx context.Context, req *Request) (*Response, error) {
		return nil, err
	}
}

func testRouteConfig() route.Config {
	return route.Config{
		NeverCachePaths:   route.DefaultNeverCachePaths,
		NeverCacheMarkers: route.DefaultNeverCacheMarkers,
		Patterns: []route.Pattern{
			{Match: route.HashedAsset(), Class: route.ClassImmutable, Strategy: route.StrategyCacheFirst},
			{Match: route.PathPrefix("/api/products"), Class: route.ClassRevalidate, Strategy: route.StrategyStaleWhileRevalidate, TTL: time.Minute},
			{Match: route.PathPrefix("/api/live"), Class: route.ClassBypass, Strategy: route.StrategyNetworkOnly},
		},
	}
}

func newTestGateway(t *testing.T, f *testFetcher) *Gateway {
	t.Helper()
	classifier, err := route.NewClassifier(testRouteConfig())
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}
	g, err := New(Config{
		Prefix:     "shop",
		Version:    "v1",
		Classifier: classifier,
		Fetch:      f.fetch,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return g
}

// TestCacheFirst_StoresThenServesOffline models an immutable asset:
// the first request stores the network result, the second is served
// from the store even with the network down.
func TestCacheFirst_StoresThenServesOffline(t *testing.T) {
	ctx := context.Background()
	f := &testFetcher{fn: respondWith(200, "asset-bytes")}
	g := newTestGateway(t, f)

	req := &Request{Method: "GET", URL: "https://shop.example/_next/static/app.abc123.js"}
	first, err := g.Do(ctx, req)
	if err != nil {
		t.Fatalf("first Do() error = %v", err)
	}
	if string(first.Body) != "asset-bytes" {
		t.Fatalf("first body = %q", first.Body)
	}

	// Network goes away entirely.
	f.fn = failWith(errors.New("offline"))

	second, err := g.Do(ctx, req)
	if err != nil {
		t.Fatalf("second Do() error = %v", err)
	}
	if string(second.Body) != "asset-bytes" {
		t.Errorf("second body = %q, want stored result unchanged", second.Body)
	}
	if f.count() != 1 {
		t.Errorf("fetch calls = %d, want 1 (second served from store)", f.count())
	}
}

// TestCacheFirst_RoundTripByteIdentical verifies a stored response body
// is returned byte-identical without an intervening clear or version bump.
func TestCacheFirst_RoundTripByteIdentical(t *testing.T) {
	ctx := context.Background()
	body := "\x00\x01binary\xffpayload"
	f := &testFetcher{fn: respondWith(200, body)}
	g := newTestGateway(t, f)

	req := &Request{Method: "GET", URL: "https://shop.example/static/app.deadbeef.js"}
	if _, err := g.Do(ctx, req); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	got, err := g.Do(ctx, req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if string(got.Body) != body {
		t.Errorf("round-trip body = %q, want %q", got.Body, body)
	}
}

// TestNetworkFirst_FallsBackToStore verifies the default strategy falls
// back to a stored entry on network failure, including timeouts.
func TestNetworkFirst_FallsBackToStore(t *testing.T) {
	ctx := context.Background()
	f := &testFetcher{fn: respondWith(200, "fresh")}
	g := newTestGateway(t, f)

	// Unmatched route: defaults to network-first.
	req := &Request{Method: "GET", URL: "https://shop.example/api/cart"}
	if _, err := g.Do(ctx, req); err != nil {
		t.Fatalf("seed Do() error = %v", err)
	}

	tests := []struct {
		name string
		err  error
	}{
		{"plain failure", errors.New("connection refused")},
		{"timeout", context.DeadlineExceeded},
		{"abort", context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.fn = failWith(tt.err)
			got, err := g.Do(ctx, req)
			if err != nil {
				t.Fatalf("Do() error = %v, want stored fallback", err)
			}
			if string(got.Body) != "fresh" {
				t.Errorf("body = %q, want stored entry", got.Body)
			}
		})
	}
}

// TestNetworkFirst_NoFallbackPropagates verifies failures propagate when
// nothing is stored, with aborts classified as the expected condition.
func TestNetworkFirst_NoFallbackPropagates(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		fetchEr error
		want    error
	}{
		{"network failure", errors.New("boom"), nil},
		{"timeout classified", context.DeadlineExceeded, ErrTimeout},
		{"abort classified", context.Canceled, ErrAborted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &testFetcher{fn: failWith(tt.fetchEr)}
			g := newTestGateway(t, f)
			_, err := g.Do(ctx, &Request{Method: "GET", URL: "https://shop.example/api/cart"})
			if err == nil {
				t.Fatal("Do() error = nil, want failure")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Do() error = %v, want %v", err, tt.want)
			}
		})
	}
}

// TestStaleWhileRevalidate_ServesStaleOnNetworkFailure: with a stored
// entry and a failing network, the resolved value equals the stored
// entry and the background failure never reaches the caller.
func TestStaleWhileRevalidate_ServesStaleOnNetworkFailure(t *testing.T) {
	ctx := context.Background()
	f := &testFetcher{fn: respondWith(200, "page-1")}
	g := newTestGateway(t, f)

	req := &Request{Method: "GET", URL: "https://shop.example/api/products?page=1"}
	if _, err := g.Do(ctx, req); err != nil {
		t.Fatalf("seed Do() error = %v", err)
	}

	f.fn = failWith(errors.New("upstream down"))
	got, err := g.Do(ctx, req)
	if err != nil {
		t.Fatalf("Do() error = %v, want stored entry", err)
	}
	if string(got.Body) != "page-1" {
		t.Errorf("body = %q, want stored entry", got.Body)
	}
}

// TestStaleWhileRevalidate_RefreshesInBackground verifies the fresher
// copy lands in the store and a CACHE_UPDATED notification goes out.
func TestStaleWhileRevalidate_RefreshesInBackground(t *testing.T) {
	ctx := context.Background()
	f := &testFetcher{fn: respondWith(200, "old")}

	classifier, err := route.NewClassifier(testRouteConfig())
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}
	updated := make(chan Message, 1)
	g, err := New(Config{
		Version:    "v1",
		Classifier: classifier,
		Fetch:      f.fetch,
		Notify: func(msg Message) {
			updated <- msg
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	req := &Request{Method: "GET", URL: "https://shop.example/api/products?page=1"}
	if _, err := g.Do(ctx, req); err != nil {
		t.Fatalf("seed Do() error = %v", err)
	}

	f.fn = respondWith(200, "new")
	got, err := g.Do(ctx, req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if string(got.Body) != "old" {
		t.Errorf("body = %q, want stale entry served immediately", got.Body)
	}

	select {
	case msg := <-updated:
		if msg.Kind != KindCacheUpdated {
			t.Errorf("notify kind = %q, want %q", msg.Kind, KindCacheUpdated)
		}
		if msg.URL != req.URL {
			t.Errorf("notify url = %q, want %q", msg.URL, req.URL)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("background refresh never notified")
	}

	// The next request observes the refreshed copy.
	f.fn = failWith(errors.New("offline"))
	got, err = g.Do(ctx, req)
	if err != nil {
		t.Fatalf("Do() after refresh error = %v", err)
	}
	if string(got.Body) != "new" {
		t.Errorf("body = %q, want refreshed entry", got.Body)
	}
}

// TestNeverCache_NoEntryEverExists: for never-cache routes no entry
// exists in any store after the request completes, success or failure.
func TestNeverCache_NoEntryEverExists(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		req  *Request
		fn   Fetcher
	}{
		{
			"auth path success",
			&Request{Method: "POST", URL: "https://shop.example/api/auth/refresh"},
			respondWith(200, `{"token":"t"}`),
		},
		{
			"auth path failure",
			&Request{Method: "POST", URL: "https://shop.example/api/auth/refresh"},
			failWith(errors.New("boom")),
		},
		{
			"token mutation body",
			&Request{Method: "POST", URL: "https://shop.example/graphql", Body: []byte(`{"query":"mutation { tokenRefresh }"}`)},
			respondWith(200, `{"data":{}}`),
		},
		{
			"checkout mutation body",
			&Request{Method: "POST", URL: "https://shop.example/graphql", Body: []byte(`{"query":"mutation checkoutComplete"}`)},
			respondWith(200, `{"data":{}}`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &testFetcher{fn: tt.fn}
			g := newTestGateway(t, f)
			g.Do(ctx, tt.req)
			if n := g.ActiveStore().Len(); n != 0 {
				t.Errorf("store has %d entries after never-cache request, want 0", n)
			}
		})
	}
}

// TestCacheableBoundary: 399 is stored, 400 is not, and a timeout
// stores nothing for any strategy.
func TestCacheableBoundary(t *testing.T) {
	ctx := context.Background()
	req := &Request{Method: "GET", URL: "https://shop.example/static/x.abc123.js"}

	t.Run("status 399 stored", func(t *testing.T) {
		f := &testFetcher{fn: respondWith(399, "redirectish")}
		g := newTestGateway(t, f)
		g.Do(ctx, req)
		if g.ActiveStore().Len() != 1 {
			t.Errorf("store len = %d, want 1", g.ActiveStore().Len())
		}
	})

	t.Run("status 400 never stored", func(t *testing.T) {
		f := &testFetcher{fn: respondWith(400, "bad request")}
		g := newTestGateway(t, f)
		g.Do(ctx, req)
		if g.ActiveStore().Len() != 0 {
			t.Errorf("store len = %d, want 0", g.ActiveStore().Len())
		}
	})

	t.Run("timeout never stored", func(t *testing.T) {
		f := &testFetcher{fn: failWith(context.DeadlineExceeded)}
		g := newTestGateway(t, f)
		g.Do(ctx, req)
		if g.ActiveStore().Len() != 0 {
			t.Errorf("store len = %d, want 0", g.ActiveStore().Len())
		}
	})
}

// TestNetworkOnly_NeverTouchesStore verifies failures propagate
// unmodified and nothing is stored.
func TestNetworkOnly_NeverTouchesStore(t *testing.T) {
	ctx := context.Background()
	rawErr := errors.New("upstream exploded")
	f := &testFetcher{fn: failWith(rawErr)}
	g := newTestGateway(t, f)

	_, err := g.Do(ctx, &Request{Method: "GET", URL: "https://shop.example/api/live/feed"})
	if !errors.Is(err, rawErr) {
		t.Errorf("Do() error = %v, want raw failure", err)
	}
	if g.ActiveStore().Len() != 0 {
		t.Errorf("store len = %d, want 0", g.ActiveStore().Len())
	}
}

// TestDo_ResponseIsolation verifies callers cannot mutate stored snapshots.
func TestDo_ResponseIsolation(t *testing.T) {
	ctx := context.Background()
	f := &testFetcher{fn: respondWith(200, "immutable")}
	g := newTestGateway(t, f)

	req := &Request{Method: "GET", URL: "https://shop.example/static/a.abc123.js"}
	if _, err := g.Do(ctx, req); err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	first, _ := g.Do(ctx, req)
	first.Body[0] = 'X'

	second, _ := g.Do(ctx, req)
	if string(second.Body) != "immutable" {
		t.Errorf("stored snapshot mutated: %q", second.Body)
	}
}

func TestNew_Validation(t *testing.T) {
	classifier, _ := route.NewClassifier(route.Config{})
	fetch := respondWith(200, "")

	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"nil classifier", Config{Version: "v1", Fetch: fetch}, ErrNilClassifier},
		{"nil fetcher", Config{Version: "v1", Classifier: classifier}, ErrNilFetcher},
		{"no version", Config{Classifier: classifier, Fetch: fetch}, ErrNoVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); !errors.Is(err, tt.want) {
				t.Errorf("New() error = %v, want %v", err, tt.want)
			}
		})
	}
}
