package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/chatroom/internal/bus"
)

// State represents the daemon's chat session state.
type State string

const (
	Booting       State = "BOOTING"
	LoginRequired State = "LOGIN_REQUIRED"
	Connecting    State = "CONNECTING"
	OnlineSynced  State = "ONLINE_SYNCED"
	OfflineCached State = "OFFLINE_CACHED"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Booting:       {LoginRequired, Connecting, OfflineCached},
	LoginRequired: {Connecting, OfflineCached},
	Connecting:    {OnlineSynced, OfflineCached, LoginRequired},
	OnlineSynced:  {OfflineCached, LoginRequired},
	OfflineCached: {Connecting, LoginRequired},
}

// Machine tracks and enforces daemon runtime state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Booting state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Booting,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
// Transitioning to the current state is a no-op.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == to {
		return nil
	}
	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	m.bus.Publish(bus.NewEvent(bus.KindStatusChanged, StatusChange{
		From: from,
		To:   to,
	}))
	return nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State
	To   State
}
