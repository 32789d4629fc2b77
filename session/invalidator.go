package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jonwraymond/sessioncache/observe"
)

// Reason explains why a session was invalidated.
type Reason string

const (
	ReasonExpired    Reason = "expired"
	ReasonInvalid    Reason = "invalid"
	ReasonInactivity Reason = "inactivity"
)

// Event records a single invalidation trigger.
type Event struct {
	Reason      Reason
	TriggeredAt time.Time
}

// Invalidation states. The machine transitions Idle -> Invalidating ->
// Done exactly once per page lifetime; there is no path back to Idle.
const (
	StateIdle int32 = iota
	StateInvalidating
	StateDone
)

// DefaultAckTimeout bounds how long step one waits for the gateway to
// acknowledge the cache clear before moving on.
const DefaultAckTimeout = 2 * time.Second

// DefaultLandingRoute is the recovery route navigated to after teardown.
const DefaultLandingRoute = "/"

// CacheController broadcasts control commands to the network-interception
// tier. The gateway implements it; returning nil acknowledges the clear.
type CacheController interface {
	ClearAllCaches(ctx context.Context) error
}

// QueryCache is the in-memory query-result tier. The executor's memo
// cache implements it.
type QueryCache interface {
	Purge()
}

// Navigator performs the final full navigation. A full navigation, not
// a client-side route transition, so the browsing context teardown
// discards all remaining in-memory state.
type Navigator interface {
	Navigate(route string)
}

// Config wires the invalidator's collaborators. All are optional except
// Navigator: invalidation is best-effort per tier, but the navigation
// must always occur.
type Config struct {
	Gateway     CacheController
	Credentials CredentialStore
	Set         CredentialSet
	Claims      *ClaimsCache
	Queries     QueryCache
	Navigator   Navigator

	// LandingRoute is the recovery route. Default: "/".
	LandingRoute string

	// AckTimeout bounds the wait for the gateway clear. Default: 2s.
	AckTimeout time.Duration

	Logger   observe.Logger
	Recorder observe.Recorder
}

// Invalidator is the single choke point that clears every cache tier
// and credential location, then leaves exactly once.
type Invalidator struct {
	state atomic.Int32
	event atomic.Pointer[Event]

	gateway  CacheController
	creds    CredentialStore
	set      CredentialSet
	claims   *ClaimsCache
	queries  QueryCache
	nav      Navigator
	landing  string
	ackWait  time.Duration
	logger   observe.Logger
	recorder observe.Recorder
}

// NewInvalidator creates an Invalidator in the Idle state.
func NewInvalidator(cfg Config) (*Invalidator, error) {
	if cfg.Navigator == nil {
		return nil, ErrNoNavigator
	}
	if cfg.LandingRoute == "" {
		cfg.LandingRoute = DefaultLandingRoute
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = DefaultAckTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = observe.NopRecorder()
	}
	return &Invalidator{
		gateway:  cfg.Gateway,
		creds:    cfg.Credentials,
		set:      cfg.Set,
		claims:   cfg.Claims,
		queries:  cfg.Queries,
		nav:      cfg.Navigator,
		landing:  cfg.LandingRoute,
		ackWait:  cfg.AckTimeout,
		logger:   cfg.Logger.WithComponent("session"),
		recorder: cfg.Recorder,
	}, nil
}

// State returns the current invalidation state.
func (inv *Invalidator) State() int32 { return inv.state.Load() }

// InProgress reports whether an invalidation has started.
func (inv *Invalidator) InProgress() bool { return inv.state.Load() != StateIdle }

// LastEvent returns the trigger that won the guard, if any.
func (inv *Invalidator) LastEvent() (Event, bool) {
	ev := inv.event.Load()
	if ev == nil {
		return Event{}, false
	}
	return *ev, true
}

// Invalidate tears down all session state and navigates away. Exactly
// one caller per lifetime wins: re-entrant triggers return
// ErrAlreadyInvalidating and do nothing.
//
// The steps run in strict order so that a concurrently in-flight
// request has the smallest possible window to repopulate a cache with
// tainted data: (1) gateway clear with bounded acknowledgement wait,
// (2) credential and decoded-claim clear, (3) query-result purge,
// (4) navigation. Steps 1-3 are best-effort; step 4 always runs.
func (inv *Invalidator) Invalidate(ctx context.Context, reason Reason) error {
	if !inv.state.CompareAndSwap(StateIdle, StateInvalidating) {
		return ErrAlreadyInvalidating
	}
	inv.event.Store(&Event{Reason: reason, TriggeredAt: time.Now()})
	inv.recorder.Invalidation(ctx, string(reason))
	inv.logger.Info(ctx, "session invalidation started",
		observe.Field{Key: "reason", Value: string(reason)})

	// Step 1: broadcast the cache clear and await acknowledgement,
	// bounded so a wedged gateway cannot block the teardown.
	if inv.gateway != nil {
		ackCtx, cancel := context.WithTimeout(ctx, inv.ackWait)
		if err := inv.gateway.ClearAllCaches(ackCtx); err != nil {
			inv.logger.Warn(ctx, "gateway clear failed, continuing",
				observe.Field{Key: "error", Value: err.Error()})
		}
		cancel()
	}

	// Step 2: clear every credential location and the claim memo.
	if inv.creds != nil {
		if err := inv.creds.ClearAll(inv.set); err != nil {
			inv.logger.Warn(ctx, "credential clear failed, continuing",
				observe.Field{Key: "error", Value: err.Error()})
		}
	}
	if inv.claims != nil {
		inv.claims.Clear()
	}

	// Step 3: purge the query-result tier.
	if inv.queries != nil {
		inv.queries.Purge()
	}

	// Step 4: leave. Full navigation discards remaining in-memory state.
	inv.state.Store(StateDone)
	inv.logger.Info(ctx, "session invalidated, navigating",
		observe.Field{Key: "route", Value: inv.landing})
	inv.nav.Navigate(inv.landing)
	return nil
}
