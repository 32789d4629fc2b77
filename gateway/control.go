package gateway

import (
	"context"
	"errors"

	"github.com/jonwraymond/sessioncache/observe"
)

// Kind identifies a control message.
type Kind string

// The closed set of control message kinds.
const (
	// KindSkipWaiting promotes a newly installed store generation to
	// active immediately.
	KindSkipWaiting Kind = "SKIP_WAITING"

	// KindClearAllCaches deletes every entry in every store owned by
	// this gateway.
	KindClearAllCaches Kind = "CLEAR_ALL_CACHES"

	// KindClearScopedCache deletes only entries matching a named scope.
	KindClearScopedCache Kind = "CLEAR_SCOPED_CACHE"

	// KindCacheUpdated notifies callers that a previously served
	// resource has a fresher cached copy. Outbound only.
	KindCacheUpdated Kind = "CACHE_UPDATED"
)

// Sentinel errors for the control surface.
var (
	ErrUnknownMessage = errors.New("gateway: unknown message kind")
	ErrMissingScope   = errors.New("gateway: scoped clear requires a scope")
)

// Message is a control-surface command or notification.
type Message struct {
	Kind  Kind   `json:"kind"`
	Scope string `json:"scope,omitempty"`
	URL   string `json:"url,omitempty"`
}

// HandleMessage applies an inbound control command. Returning nil is
// the acknowledgement: the effect is complete when HandleMessage returns.
func (g *Gateway) HandleMessage(ctx context.Context, msg Message) error {
	switch msg.Kind {
	case KindSkipWaiting:
		return g.Activate(ctx)
	case KindClearAllCaches:
		return g.ClearAllCaches(ctx)
	case KindClearScopedCache:
		if msg.Scope == "" {
			return ErrMissingScope
		}
		return g.ClearScope(ctx, msg.Scope)
	case KindCacheUpdated:
		// Outbound notification; nothing to apply inbound.
		return nil
	default:
		return ErrUnknownMessage
	}
}

// ClearAllCaches deletes every entry in every owned store. Idempotent.
func (g *Gateway) ClearAllCaches(ctx context.Context) error {
	g.mu.Lock()
	stores := make([]Store, 0, len(g.stores))
	for _, st := range g.stores {
		stores = append(stores, st)
	}
	g.mu.Unlock()

	var errs []error
	for _, st := range stores {
		if err := st.Clear(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	g.logger.Info(ctx, "all caches cleared")
	return nil
}

// ClearScope deletes entries matching the scope label in every owned
// store, e.g. "immutable" for static assets.
func (g *Gateway) ClearScope(ctx context.Context, scope string) error {
	g.mu.Lock()
	stores := make([]Store, 0, len(g.stores))
	for _, st := range g.stores {
		stores = append(stores, st)
	}
	g.mu.Unlock()

	var errs []error
	for _, st := range stores {
		if err := st.DeleteScope(ctx, scope); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	g.logger.Info(ctx, "scoped cache cleared",
		observe.Field{Key: "scope", Value: scope})
	return nil
}
