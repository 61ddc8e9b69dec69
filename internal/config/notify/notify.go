// Package notify provides change notification for option updates.
//
// The notify package implements an observer pattern that allows host
// components to subscribe to option changes and receive callbacks when
// values are set or the configuration is reloaded from disk.
//
// Delivery is synchronous on the mutating goroutine: this engine's
// load/save/script operations are single-threaded by contract, so
// observers run in a deterministic order relative to mutations.
package notify

import "sync"

// ChangeType represents the type of configuration change.
type ChangeType int

const (
	// ChangeSet indicates an option value was set or updated.
	ChangeSet ChangeType = iota

	// ChangeReload indicates a configuration source was reloaded.
	ChangeReload
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeSet:
		return "set"
	case ChangeReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Change represents a configuration change event.
type Change struct {
	// Name is the option name. Empty for reload events.
	Name string

	// Type is the type of change.
	Type ChangeType

	// OldValue is the previous resolved value (may be nil).
	OldValue any

	// NewValue is the new resolved value (may be nil).
	NewValue any

	// Source identifies where the change came from, e.g. "script",
	// "autoconfig" or a file path for reload events.
	Source string
}

// Observer is called when a configuration change occurs.
type Observer func(change Change)

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uint64
	name     string
	notifier *Notifier
}

// Unsubscribe removes this subscription.
func (s *Subscription) Unsubscribe() {
	if s.notifier != nil {
		s.notifier.unsubscribe(s)
	}
}

// Notifier manages change subscriptions.
type Notifier struct {
	mu sync.RWMutex

	// Observers that receive all changes.
	global map[uint64]Observer

	// Observers keyed by option name.
	byName map[string]map[uint64]Observer

	nextID uint64
}

// New creates a new Notifier.
func New() *Notifier {
	return &Notifier{
		global: make(map[uint64]Observer),
		byName: make(map[string]map[uint64]Observer),
	}
}

// Subscribe registers an observer for all changes.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	n.global[n.nextID] = observer
	return &Subscription{id: n.nextID, notifier: n}
}

// SubscribeName registers an observer for changes to one option.
func (n *Notifier) SubscribeName(name string, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	if n.byName[name] == nil {
		n.byName[name] = make(map[uint64]Observer)
	}
	n.byName[name][n.nextID] = observer
	return &Subscription{id: n.nextID, name: name, notifier: n}
}

// NotifySet delivers a set event to matching observers.
func (n *Notifier) NotifySet(name string, oldValue, newValue any, source string) {
	n.deliver(Change{
		Name:     name,
		Type:     ChangeSet,
		OldValue: oldValue,
		NewValue: newValue,
		Source:   source,
	})
}

// NotifyReload delivers a reload event to all global observers.
func (n *Notifier) NotifyReload(source string) {
	n.deliver(Change{Type: ChangeReload, Source: source})
}

// deliver invokes observers outside the lock so an observer may
// subscribe or unsubscribe from within its callback.
func (n *Notifier) deliver(change Change) {
	n.mu.RLock()
	observers := make([]Observer, 0, len(n.global))
	for _, obs := range n.global {
		observers = append(observers, obs)
	}
	if change.Name != "" {
		for _, obs := range n.byName[change.Name] {
			observers = append(observers, obs)
		}
	}
	n.mu.RUnlock()

	for _, obs := range observers {
		obs(change)
	}
}

func (n *Notifier) unsubscribe(s *Subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if s.name == "" {
		delete(n.global, s.id)
		return
	}
	if m := n.byName[s.name]; m != nil {
		delete(m, s.id)
		if len(m) == 0 {
			delete(n.byName, s.name)
		}
	}
}
