package session

import (
	"context"
	"sync/atomic"

	"github.com/jonwraymond/sessioncache/observe"
)

// Monitor states. A fresh page load starts a new Monitor; there is no
// transition back to Idle within the same lifetime.
const (
	MonitorIdle int32 = iota
	MonitorDetecting
	MonitorInvalidating
	MonitorRedirected
)

// Monitor observes every completed operation flowing through the query
// client and triggers the invalidator exactly once when an auth-expiry
// signature appears.
type Monitor struct {
	state  atomic.Int32
	inv    *Invalidator
	logger observe.Logger
}

// NewMonitor creates a Monitor in the Idle state.
func NewMonitor(inv *Invalidator, logger observe.Logger) *Monitor {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &Monitor{inv: inv, logger: logger.WithComponent("session")}
}

// State returns the monitor's current state.
func (m *Monitor) State() int32 { return m.state.Load() }

// Observe inspects a completed operation's error. Non-auth errors and
// nil errors pass through untouched. The first auth-expiry signature
// wins the guard and triggers the invalidator; later signals are
// suppressed.
func (m *Monitor) Observe(ctx context.Context, err error) {
	if err == nil {
		return
	}
	sig, ok := ExpirySignature(err.Error())
	if !ok {
		return
	}

	// Only the first detection transitions the machine.
	if !m.state.CompareAndSwap(MonitorIdle, MonitorDetecting) {
		return
	}
	m.logger.Info(ctx, "auth expiry detected",
		observe.Field{Key: "signature", Value: sig})

	m.state.Store(MonitorInvalidating)
	if err := m.inv.Invalidate(ctx, ReasonForSignature(sig)); err != nil {
		// The invalidator was triggered elsewhere first; the redirect
		// is already on its way.
		m.logger.Debug(ctx, "invalidation already in progress")
	}
	m.state.Store(MonitorRedirected)
}
