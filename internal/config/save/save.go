// Package save provides the save coordinator: a registry of named
// persistence callbacks invoked at flush time. Stores register
// themselves once at startup and never schedule their own saves; the
// host calls Save or SaveAll at a quiescent point such as shutdown.
package save

import (
	"errors"
	"fmt"
	"sync"
)

// Errors returned by the save coordinator.
var (
	// ErrDuplicateSaveable indicates a name was registered twice.
	ErrDuplicateSaveable = errors.New("saveable already registered")

	// ErrUnknownSaveable indicates the named saveable does not exist.
	ErrUnknownSaveable = errors.New("no saveable with this name")
)

// Func is a zero-argument persistence callback.
type Func func() error

// Manager coordinates saving of all registered persistence units.
type Manager struct {
	mu        sync.RWMutex
	order     []string
	saveables map[string]Func
}

// NewManager creates an empty save coordinator.
func NewManager() *Manager {
	return &Manager{saveables: make(map[string]Func)}
}

// AddSaveable registers a persistence callback under a stable name.
func (m *Manager) AddSaveable(name string, fn Func) error {
	if name == "" || fn == nil {
		return fmt.Errorf("add saveable: name and callback are required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.saveables[name]; exists {
		return fmt.Errorf("add saveable %s: %w", name, ErrDuplicateSaveable)
	}
	m.saveables[name] = fn
	m.order = append(m.order, name)
	return nil
}

// Save flushes one saveable by name.
func (m *Manager) Save(name string) error {
	m.mu.RLock()
	fn, ok := m.saveables[name]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("save %s: %w", name, ErrUnknownSaveable)
	}
	return fn()
}

// SaveAll flushes every saveable in registration order. All callbacks
// run even when earlier ones fail; the failures are joined into the
// returned error.
func (m *Manager) SaveAll() error {
	m.mu.RLock()
	names := make([]string, len(m.order))
	copy(names, m.order)
	fns := make([]Func, len(names))
	for i, name := range names {
		fns[i] = m.saveables[name]
	}
	m.mu.RUnlock()

	var errs []error
	for i, fn := range fns {
		if err := fn(); err != nil {
			errs = append(errs, fmt.Errorf("saving %s: %w", names[i], err))
		}
	}
	return errors.Join(errs...)
}

// Names returns the registered saveable names in registration order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, len(m.order))
	copy(names, m.order)
	return names
}
