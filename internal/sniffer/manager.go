package sniffer

import (
	"fmt"
	"log/slog"
	"sync"

	"firestige.xyz/eapsniffer/internal/core"
	"firestige.xyz/eapsniffer/internal/packet"
)

const (
	// DefaultAppID names the component towards the packet service.
	DefaultAppID = "nctu.winlab.eapsniffer"

	// PropSomeProperty is the key of the advisory property in Modified.
	PropSomeProperty = "some_property"
	// DefaultSomeProperty is its initial value.
	DefaultSomeProperty = "Some Default String Value"
)

// Options configures a Manager.
type Options struct {
	AppID        string
	Priority     packet.Priority
	Intercept    packet.InterceptPriority
	SomeProperty string
}

// Manager owns the component lifecycle: it registers the processor with the
// packet service on Activate and withdraws everything on Deactivate.
type Manager struct {
	svc       packet.Service
	processor *Processor
	flush     func()

	appID     string
	priority  packet.Priority
	intercept packet.InterceptPriority

	mu           sync.RWMutex
	active       bool
	someProperty string
}

// NewManager creates an inactive manager. flush, if set, runs on Deactivate
// to drop pending correlation state.
func NewManager(svc packet.Service, proc *Processor, flush func(), opts Options) *Manager {
	if opts.AppID == "" {
		opts.AppID = DefaultAppID
	}
	if opts.Priority == 0 {
		opts.Priority = packet.Director(2)
	}
	if opts.Intercept == 0 {
		opts.Intercept = packet.Reactive
	}
	if opts.SomeProperty == "" {
		opts.SomeProperty = DefaultSomeProperty
	}
	return &Manager{
		svc:          svc,
		processor:    proc,
		flush:        flush,
		appID:        opts.AppID,
		priority:     opts.Priority,
		intercept:    opts.Intercept,
		someProperty: opts.SomeProperty,
	}
}

// Activate adds the processor and requests IPv4 frames.
func (m *Manager) Activate() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active {
		return core.ErrAlreadyActive
	}

	if err := m.svc.AddProcessor(m.processor, m.priority); err != nil {
		return fmt.Errorf("add processor: %w", err)
	}
	m.svc.RequestPackets(packet.IPv4Selector, m.intercept, m.appID)
	m.active = true

	slog.Info("Started", "app", m.appID, "priority", m.priority.String(), "intercept", m.intercept.String())
	return nil
}

// Deactivate withdraws the packet request, removes the processor and drops
// any pending correlation entries.
func (m *Manager) Deactivate() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return core.ErrNotActive
	}

	m.svc.CancelPackets(packet.IPv4Selector, m.intercept, m.appID)
	m.svc.RemoveProcessor(m.processor)
	if m.flush != nil {
		m.flush()
	}
	m.active = false

	slog.Info("Stopped", "app", m.appID)
	return nil
}

// Modified applies reloaded properties. Unknown keys are ignored.
func (m *Manager) Modified(props map[string]string) {
	m.mu.Lock()
	if v, ok := props[PropSomeProperty]; ok {
		m.someProperty = v
	}
	m.mu.Unlock()

	slog.Info("Reconfigured", "app", m.appID)
}

// SomeProperty returns the advisory property.
func (m *Manager) SomeProperty() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.someProperty
}

// Active reports whether the manager is registered with the packet service.
func (m *Manager) Active() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}
