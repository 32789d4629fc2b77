package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/sessioncache/observe"
	"github.com/jonwraymond/sessioncache/route"
)

// DefaultTimeout bounds every network attempt made by the gateway.
const DefaultTimeout = 10 * time.Second

// DefaultPrefix names stores when no prefix is configured.
const DefaultPrefix = "sessioncache"

// Sentinel errors for gateway operations.
var (
	ErrNilClassifier = errors.New("gateway: classifier is nil")
	ErrNilFetcher    = errors.New("gateway: fetcher is nil")
	ErrNoVersion     = errors.New("gateway: version is required")

	// ErrAborted marks a request canceled by its caller. Callers treat
	// it as an expected no-op condition, not a failure to surface.
	ErrAborted = errors.New("gateway: request aborted")

	// ErrTimeout marks a network attempt that exceeded the per-request
	// budget. It is handled identically to a network failure.
	ErrTimeout = errors.New("gateway: request timed out")
)

// Fetcher performs the actual network request. The context carries the
// gateway's per-request deadline.
type Fetcher func(ctx context.Context, req *Request) (*Response, error)

// Config configures a Gateway.
type Config struct {
	// Prefix names the store family. Default: "sessioncache".
	Prefix string

	// Version identifies the live store generation. Required.
	Version string

	// Classifier decides class and strategy per request. Required.
	Classifier *route.Classifier

	// Fetch performs network requests. Required.
	Fetch Fetcher

	// Timeout bounds each network attempt. Default: 10s.
	Timeout time.Duration

	// Logger receives operational events. Default: no-op.
	Logger observe.Logger

	// Recorder receives cache telemetry. Default: no-op.
	Recorder observe.Recorder

	// Notify receives outbound control messages (CACHE_UPDATED).
	Notify func(Message)
}

// Gateway applies classified fetch strategies over versioned stores.
//
// Contract:
// - Concurrency: safe for concurrent use; each request is independent.
// - The store is the only shared mutable resource; same-key writers may
//   race (last write wins), entries are idempotent re-derivations.
type Gateway struct {
	prefix     string
	timeout    time.Duration
	classifier *route.Classifier
	fetch      Fetcher
	logger     observe.Logger
	recorder   observe.Recorder
	notify     func(Message)

	mu      sync.Mutex
	stores  map[string]Store
	live    Store
	pending Store

	revalidations singleflight.Group
}

// New creates a Gateway with a live store for cfg.Version.
func New(cfg Config) (*Gateway, error) {
	if cfg.Classifier == nil {
		return nil, ErrNilClassifier
	}
	if cfg.Fetch == nil {
		return nil, ErrNilFetcher
	}
	if cfg.Version == "" {
		return nil, ErrNoVersion
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = observe.NopRecorder()
	}

	live := NewMemoryStore(cfg.Prefix, cfg.Version)
	g := &Gateway{
		prefix:     cfg.Prefix,
		timeout:    cfg.Timeout,
		classifier: cfg.Classifier,
		fetch:      cfg.Fetch,
		logger:     cfg.Logger.WithComponent("gateway"),
		recorder:   cfg.Recorder,
		notify:     cfg.Notify,
		stores:     map[string]Store{live.Name(): live},
		live:       live,
	}
	return g, nil
}

// ActiveStore returns the live store.
func (g *Gateway) ActiveStore() Store {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.live
}

// ActiveVersion returns the live store version.
func (g *Gateway) ActiveVersion() string {
	return g.ActiveStore().Version()
}

// Install registers a new store generation without activating it.
// Installing the live version is a no-op.
func (g *Gateway) Install(version string) Store {
	g.mu.Lock()
	defer g.mu.Unlock()
	if version == g.live.Version() {
		return g.live
	}
	st := NewMemoryStore(g.prefix, version)
	g.stores[st.Name()] = st
	g.pending = st
	return st
}

// Activate promotes the pending store, if any, and garbage-collects
// every store whose version no longer matches the live one. At most
// one live store per prefix exists afterwards.
func (g *Gateway) Activate(ctx context.Context) error {
	g.mu.Lock()
	if g.pending != nil {
		g.live = g.pending
		g.pending = nil
	}
	liveVersion := g.live.Version()
	var stale []Store
	for name, st := range g.stores {
		if st.Version() != liveVersion {
			stale = append(stale, st)
			delete(g.stores, name)
		}
	}
	g.mu.Unlock()

	for _, st := range stale {
		if err := st.Clear(ctx); err != nil {
			g.logger.Warn(ctx, "stale store cleanup failed",
				observe.Field{Key: "store", Value: st.Name()},
				observe.Field{Key: "error", Value: err.Error()})
		}
	}
	g.logger.Info(ctx, "store generation activated",
		observe.Field{Key: "version", Value: liveVersion})
	return nil
}

// Stats reports the entry count of every owned store.
func (g *Gateway) Stats() map[string]int {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]int, len(g.stores))
	for name, st := range g.stores {
		out[name] = st.Len()
	}
	return out
}

// Do satisfies a request with the strategy chosen by the classifier,
// bounded by the configured per-request timeout.
func (g *Gateway) Do(ctx context.Context, req *Request) (*Response, error) {
	cls := g.classifier.Classify(req.Method, requestPath(req.URL), string(req.Body))

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if cls.Class == route.ClassNeverCache {
		return g.networkOnly(ctx, req)
	}

	key := EntryKey(req)
	switch cls.Strategy {
	case route.StrategyCacheFirst:
		return g.cacheFirst(ctx, req, key, cls)
	case route.StrategyStaleWhileRevalidate:
		return g.staleWhileRevalidate(ctx, req, key, cls)
	case route.StrategyNetworkOnly:
		return g.networkOnly(ctx, req)
	default:
		return g.networkFirst(ctx, req, key, cls)
	}
}

// cacheFirst returns a stored entry when present; otherwise fetches and
// stores a cacheable response before returning it.
func (g *Gateway) cacheFirst(ctx context.Context, req *Request, key string, cls route.Classification) (*Response, error) {
	if entry, ok := g.ActiveStore().Get(ctx, key); ok {
		g.recorder.CacheHit(ctx, cls.Class.String())
		return entry.Response.Clone(), nil
	}
	g.recorder.CacheMiss(ctx, cls.Class.String())

	resp, err := g.doFetch(ctx, req)
	if err != nil {
		return nil, err
	}
	g.storeResponse(ctx, key, req, resp, cls)
	return resp, nil
}

// networkFirst attempts the network; on any failure, including timeout
// and abort, it falls back to a stored entry before propagating.
func (g *Gateway) networkFirst(ctx context.Context, req *Request, key string, cls route.Classification) (*Response, error) {
	resp, err := g.doFetch(ctx, req)
	if err == nil {
		g.storeResponse(ctx, key, req, resp, cls)
		return resp, nil
	}

	if entry, ok := g.ActiveStore().Get(ctx, key); ok {
		g.recorder.CacheHit(ctx, cls.Class.String())
		g.logger.Debug(ctx, "network failed, serving stored entry",
			observe.Field{Key: "url", Value: req.URL},
			observe.Field{Key: "error", Value: err.Error()})
		return entry.Response.Clone(), nil
	}
	return nil, err
}

// staleWhileRevalidate returns a stored entry immediately and refreshes
// it in the background; without a stored entry it resolves to the network.
func (g *Gateway) staleWhileRevalidate(ctx context.Context, req *Request, key string, cls route.Classification) (*Response, error) {
	if entry, ok := g.ActiveStore().Get(ctx, key); ok {
		g.recorder.CacheHit(ctx, cls.Class.String())
		g.revalidate(req.clone(), key, cls)
		return entry.Response.Clone(), nil
	}
	g.recorder.CacheMiss(ctx, cls.Class.String())

	resp, err := g.doFetch(ctx, req)
	if err != nil {
		return nil, err
	}
	g.storeResponse(ctx, key, req, resp, cls)
	return resp, nil
}

// networkOnly never touches the store and propagates failures unmodified.
func (g *Gateway) networkOnly(ctx context.Context, req *Request) (*Response, error) {
	return g.fetch(ctx, req)
}

// revalidate refreshes a stored entry in the background. Concurrent
// refreshes of the same key collapse into one flight. Failures are
// swallowed: the caller already holds a served response.
func (g *Gateway) revalidate(req *Request, key string, cls route.Classification) {
	go func() {
		_, _, _ = g.revalidations.Do(key, func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
			defer cancel()

			resp, err := g.doFetch(ctx, req)
			if err != nil {
				g.logger.Debug(ctx, "background revalidation failed",
					observe.Field{Key: "url", Value: req.URL},
					observe.Field{Key: "error", Value: err.Error()})
				return nil, nil
			}
			if g.storeResponse(ctx, key, req, resp, cls) {
				g.notifyUpdated(req.URL)
			}
			return nil, nil
		})
	}()
}

// doFetch runs the fetcher and classifies cancellation outcomes:
// caller aborts become ErrAborted, deadline hits become ErrTimeout.
func (g *Gateway) doFetch(ctx context.Context, req *Request) (*Response, error) {
	resp, err := g.fetch(ctx, req)
	if err == nil {
		return resp, nil
	}
	switch {
	case errors.Is(err, context.Canceled):
		return nil, ErrAborted
	case errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return nil, err
}

// storeResponse persists a cacheable response snapshot. Never-cache
// routes and non-2xx/3xx responses are never stored, regardless of
// strategy. A store write failure is non-fatal.
func (g *Gateway) storeResponse(ctx context.Context, key string, req *Request, resp *Response, cls route.Classification) bool {
	if cls.Class == route.ClassNeverCache || !resp.Cacheable() {
		return false
	}

	store := g.ActiveStore()
	entry := &Entry{
		Method:   req.Method,
		URL:      req.URL,
		Response: resp.Clone(),
		Strategy: cls.Strategy,
		Scope:    cls.Class.String(),
		Version:  store.Version(),
		StoredAt: time.Now(),
		TTL:      cls.TTL,
	}
	if err := store.Set(ctx, key, entry); err != nil {
		g.logger.Warn(ctx, "store write failed",
			observe.Field{Key: "url", Value: req.URL},
			observe.Field{Key: "error", Value: err.Error()})
		return false
	}
	g.recorder.CacheStore(ctx, cls.Class.String())
	return true
}

func (g *Gateway) notifyUpdated(url string) {
	if g.notify == nil {
		return
	}
	g.notify(Message{Kind: KindCacheUpdated, URL: url})
}

// clone copies a request so background refreshes cannot observe caller
// mutations after Do returns.
func (r *Request) clone() *Request {
	out := &Request{Method: r.Method, URL: r.URL}
	if r.Header != nil {
		out.Header = r.Header.Clone()
	}
	if r.Body != nil {
		out.Body = append([]byte(nil), r.Body...)
	}
	return out
}

func requestPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Path
}
