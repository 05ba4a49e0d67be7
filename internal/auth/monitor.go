package auth

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultMonitorInterval = 2 * time.Minute
	DefaultTickTimeout     = 15 * time.Second
)

// NotificationKind labels a session lifecycle event emitted by the monitor
type NotificationKind string

const (
	NotificationRefreshed     NotificationKind = "refreshed"
	NotificationRefreshFailed NotificationKind = "refresh_failed"
	NotificationExpired       NotificationKind = "expired"
)

// Notification is a session lifecycle event pushed to the monitor's listener
type Notification struct {
	Kind   NotificationKind `json:"kind"`
	Status Status           `json:"status"`
	Reason string           `json:"reason,omitempty"`
}

// IntrospectFunc reports the monitored session's current state
type IntrospectFunc func(ctx context.Context) (Status, error)

// RefreshFunc re-issues the monitored session and returns its new state
type RefreshFunc func(ctx context.Context) (Status, error)

// MonitorConfig tunes a session refresh monitor
type MonitorConfig struct {
	Interval    time.Duration
	TickTimeout time.Duration
	Introspect  IntrospectFunc
	Refresh     RefreshFunc
}

// Monitor is a per-session background loop that polls session state and
// refreshes the artifact proactively before expiry. It re-derives truth from
// the introspector on every tick, so a session invalidated out-of-band (a
// logout from another tab) is detected on the next tick rather than trusted
// from cached local state.
type Monitor struct {
	interval    time.Duration
	tickTimeout time.Duration
	introspect  IntrospectFunc
	refresh     RefreshFunc
	notify      chan Notification

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewMonitor constructs a stopped monitor; call Start to begin ticking
func NewMonitor(cfg MonitorConfig) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultMonitorInterval
	}
	if cfg.TickTimeout <= 0 {
		cfg.TickTimeout = DefaultTickTimeout
	}
	return &Monitor{
		interval:    cfg.Interval,
		tickTimeout: cfg.TickTimeout,
		introspect:  cfg.Introspect,
		refresh:     cfg.Refresh,
		notify:      make(chan Notification, 8),
	}
}

// Notifications exposes the lifecycle event stream. Events are dropped rather
// than blocking a tick if the listener falls behind.
func (m *Monitor) Notifications() <-chan Notification {
	return m.notify
}

// Start begins the recurring check. Calling Start while already running is a
// no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running = true

	go m.run(ctx, m.done)
}

// Stop cancels the recurring check and releases the ticker. Safe to call
// repeatedly or when the monitor was never started.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	cancel()
	<-done
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !m.tick(ctx) {
				// Session is gone; monitoring is terminal for this instance.
				return
			}
		}
	}
}

// tick performs one introspect-and-maybe-refresh pass. It returns false only
// when the session turned out to be expired; transient failures (including a
// timed-out tick) report refresh_failed and keep the loop alive for a retry
// on the next tick.
func (m *Monitor) tick(ctx context.Context) bool {
	tctx, cancel := context.WithTimeout(ctx, m.tickTimeout)
	defer cancel()

	status, err := m.introspect(tctx)
	if err != nil {
		m.emit(Notification{Kind: NotificationRefreshFailed, Reason: err.Error()})
		return true
	}

	if !status.IsAuthenticated {
		m.emit(Notification{Kind: NotificationExpired, Status: status})
		return false
	}

	if !status.IsExpiringSoon {
		return true
	}

	refreshed, err := m.refresh(tctx)
	if err != nil {
		m.emit(Notification{Kind: NotificationRefreshFailed, Status: status, Reason: err.Error()})
		return true
	}

	m.emit(Notification{Kind: NotificationRefreshed, Status: refreshed})
	return true
}

// CheckAndRefreshIfNeeded runs a single on-demand pass of the same logic the
// ticker runs, for callers that want guaranteed freshness before an action
// instead of waiting for the next tick.
func (m *Monitor) CheckAndRefreshIfNeeded(ctx context.Context) (Status, error) {
	tctx, cancel := context.WithTimeout(ctx, m.tickTimeout)
	defer cancel()

	status, err := m.introspect(tctx)
	if err != nil {
		return Status{}, err
	}
	if !status.IsAuthenticated || !status.IsExpiringSoon {
		return status, nil
	}
	return m.refresh(tctx)
}

func (m *Monitor) emit(n Notification) {
	select {
	case m.notify <- n:
	default:
	}
}
