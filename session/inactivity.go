package session

import (
	"context"
	"sync"
	"time"

	"github.com/jonwraymond/sessioncache/observe"
)

// DefaultIdleDuration is the idle period after which an armed
// InactivityMonitor invalidates the session.
const DefaultIdleDuration = 30 * time.Minute

// Signal is a user-activity event that resets the idle timer.
type Signal string

// The fixed set of activity signals.
const (
	SignalPointer Signal = "pointer"
	SignalKey     Signal = "key"
	SignalScroll  Signal = "scroll"
	SignalTouch   Signal = "touch"
	SignalWheel   Signal = "wheel"

	// SignalVisible fires when the tab transitions back to visible.
	SignalVisible Signal = "visible"
)

// InactivityMonitor invalidates the session after a fixed idle period.
// It is armed only while authenticated and fully disarmed when
// authentication ends through any path.
type InactivityMonitor struct {
	mu     sync.Mutex
	timer  *time.Timer
	armed  bool
	idle   time.Duration
	inv    *Invalidator
	logger observe.Logger
}

// NewInactivityMonitor creates a disarmed monitor. A zero idle duration
// falls back to DefaultIdleDuration.
func NewInactivityMonitor(inv *Invalidator, idle time.Duration, logger observe.Logger) *InactivityMonitor {
	if idle <= 0 {
		idle = DefaultIdleDuration
	}
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &InactivityMonitor{
		idle:   idle,
		inv:    inv,
		logger: logger.WithComponent("session"),
	}
}

// Arm starts the idle timer. Arming an armed monitor restarts it.
func (m *InactivityMonitor) Arm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
	}
	m.armed = true
	m.timer = time.AfterFunc(m.idle, m.fire)
}

// Disarm stops the timer and resets the monitor. Idempotent.
func (m *InactivityMonitor) Disarm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.armed = false
}

// Armed reports whether the monitor is currently armed.
func (m *InactivityMonitor) Armed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.armed
}

// Activity resets the idle timer. Signals on a disarmed monitor are
// ignored.
func (m *InactivityMonitor) Activity(sig Signal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.armed || m.timer == nil {
		return
	}
	m.timer.Reset(m.idle)
}

// fire runs when the idle period elapses without activity. The monitor
// disarms itself before triggering so the invalidation cannot recur.
func (m *InactivityMonitor) fire() {
	m.mu.Lock()
	if !m.armed {
		m.mu.Unlock()
		return
	}
	m.armed = false
	m.timer = nil
	m.mu.Unlock()

	ctx := context.Background()
	m.logger.Info(ctx, "idle period elapsed, invalidating session")
	if err := m.inv.Invalidate(ctx, ReasonInactivity); err != nil {
		m.logger.Debug(ctx, "invalidation already in progress")
	}
}
