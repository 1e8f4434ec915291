package sync

import "sync/atomic"

// Monitor is the process-local view of the host's connectivity signal. The
// host environment flips it from whatever primitive it has (foreground event,
// background wake, manual toggle); the engine only ever reads it.
type Monitor struct {
	online atomic.Bool
}

// NewMonitor creates a Monitor with the given initial state.
func NewMonitor(online bool) *Monitor {
	m := &Monitor{}
	m.online.Store(online)
	return m
}

// Online reports the last known connectivity state.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// SetOnline records a connectivity change.
func (m *Monitor) SetOnline(online bool) {
	m.online.Store(online)
}
