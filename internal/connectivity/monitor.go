// Package connectivity tracks whether the backend is reachable.
package connectivity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/matheus3301/chatroom/internal/bus"
	"go.uber.org/zap"
)

// Mode selects between probing and a forced state.
type Mode string

const (
	Auto         Mode = "auto"
	ForceOnline  Mode = "online"
	ForceOffline Mode = "offline"
)

// ParseMode accepts "auto", "online" or "offline".
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case Auto, ForceOnline, ForceOffline:
		return m, nil
	}
	return "", fmt.Errorf("unknown connectivity mode %q", s)
}

// Prober checks reachability once. A nil error means online.
type Prober interface {
	Probe(ctx context.Context) error
}

// Change is the payload for connectivity.changed events.
type Change struct {
	Online bool
}

// Monitor periodically probes reachability and notifies watchers on every
// transition. Probe errors count as offline.
type Monitor struct {
	prober   Prober
	interval time.Duration
	timeout  time.Duration
	bus      *bus.Bus
	logger   *zap.Logger

	mu       sync.Mutex
	mode     Mode
	probed   bool
	online   bool
	watchers map[int]func(bool)
	nextID   int

	// notifyMu serializes watcher callbacks so they observe transitions in order.
	notifyMu sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewMonitor creates a monitor. It reports offline until the first probe.
func NewMonitor(p Prober, interval, timeout time.Duration, b *bus.Bus, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Monitor{
		prober:   p,
		interval: interval,
		timeout:  timeout,
		bus:      b,
		logger:   logger,
		mode:     Auto,
		watchers: make(map[int]func(bool)),
	}
}

// Start runs one probe synchronously, then keeps probing in the background.
func (m *Monitor) Start(ctx context.Context) {
	m.Check(ctx)
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	go m.loop(ctx)
}

// Stop stops the probe loop and waits for it to exit.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}
}

func (m *Monitor) loop(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Check probes once and applies the result.
func (m *Monitor) Check(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.prober.Probe(pctx)
	cancel()
	if err != nil && ctx.Err() != nil {
		return
	}
	if err != nil {
		m.logger.Debug("connectivity probe failed", zap.Error(err))
	}

	m.mu.Lock()
	m.probed = err == nil
	m.mu.Unlock()
	m.apply()
}

// Online reports the current effective state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Mode returns the current override mode.
func (m *Monitor) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Override forces the state or returns to probing.
func (m *Monitor) Override(mode Mode) {
	m.mu.Lock()
	m.mode = mode
	m.mu.Unlock()
	m.logger.Info("connectivity mode set", zap.String("mode", string(mode)))
	m.apply()
}

// Watch registers fn for every online/offline transition. fn runs on the
// monitor's goroutine and must not block for long.
func (m *Monitor) Watch(fn func(online bool)) (unwatch func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.watchers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.watchers, id)
		m.mu.Unlock()
	}
}

func (m *Monitor) apply() {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	next := m.probed
	switch m.mode {
	case ForceOnline:
		next = true
	case ForceOffline:
		next = false
	}
	if next == m.online {
		m.mu.Unlock()
		return
	}
	m.online = next
	watchers := make([]func(bool), 0, len(m.watchers))
	for _, fn := range m.watchers {
		watchers = append(watchers, fn)
	}
	m.mu.Unlock()

	m.logger.Info("connectivity changed", zap.Bool("online", next))
	m.bus.Publish(bus.NewEvent(bus.KindConnectivityChanged, Change{Online: next}))
	for _, fn := range watchers {
		fn(next)
	}
}
