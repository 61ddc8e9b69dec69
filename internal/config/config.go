package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dshills/confkit/internal/config/notify"
	"github.com/dshills/confkit/internal/config/schema"
)

// Config is the live in-memory configuration model. It holds the
// explicit option values accumulated from the override document and the
// user script, validates every write against the schema registry, and
// resolves reads through explicit value -> derived default -> built-in
// default.
//
// Derived defaults (settings declared with DefaultFrom) are snapshotted
// by Finalize rather than recomputed on every set, so a batch of script
// mutations pays the recomputation cost once.
type Config struct {
	mu sync.RWMutex

	reg      *schema.Registry
	values   map[string]any
	derived  map[string]any
	notifier *notify.Notifier
}

// Option configures a Config instance.
type Option func(*Config)

// WithNotifier attaches a change notifier; every successful Set emits
// a ChangeSet event through it.
func WithNotifier(n *notify.Notifier) Option {
	return func(c *Config) {
		c.notifier = n
	}
}

// New creates a live configuration model backed by the given registry.
func New(reg *schema.Registry, opts ...Option) *Config {
	c := &Config{
		reg:    reg,
		values: make(map[string]any),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Finalize()
	return c
}

// Registry returns the schema registry backing this model.
func (c *Config) Registry() *schema.Registry {
	return c.reg
}

// Known reports whether the name is a registered option.
func (c *Config) Known(name string) bool {
	return c.reg.IsKnown(name)
}

// Get returns the resolved value for an option.
func (c *Config) Get(name string) (any, error) {
	s, ok := c.reg.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("get %s: %w", name, ErrUnknownOption)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resolveLocked(s), nil
}

// Has reports whether the option has an explicit (non-default) value.
func (c *Config) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.values[name]
	return ok
}

// Set validates and applies an explicit value for an option, with the
// given source recorded on the change notification.
func (c *Config) Set(name string, value any, source string) error {
	if err := c.reg.Validate(name, value); err != nil {
		return err
	}

	c.mu.Lock()
	s, _ := c.reg.Lookup(name)
	oldValue := c.resolveLocked(s)
	c.values[name] = value
	newValue := c.resolveLocked(s)
	notifier := c.notifier
	c.mu.Unlock()

	if notifier != nil {
		notifier.NotifySet(name, oldValue, newValue, source)
	}
	return nil
}

// Finalize recomputes the derived-default snapshot. It must be called
// once after a batch of mutations (the script runner does this
// unconditionally after execution).
func (c *Config) Finalize() {
	c.mu.Lock()
	defer c.mu.Unlock()

	derived := make(map[string]any)
	for _, name := range c.reg.Names() {
		s, _ := c.reg.Lookup(name)
		if s.DefaultFrom == "" {
			continue
		}
		src, ok := c.reg.Lookup(s.DefaultFrom)
		if !ok {
			continue
		}
		if v, explicit := c.values[s.DefaultFrom]; explicit {
			derived[name] = v
		} else {
			derived[name] = src.Default
		}
	}
	c.derived = derived
}

// Names returns all option names with explicit values, sorted.
func (c *Config) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.values))
	for name := range c.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a copy of all resolved option values keyed by name.
func (c *Config) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]any)
	for _, name := range c.reg.Names() {
		s, _ := c.reg.Lookup(name)
		out[name] = c.resolveLocked(s)
	}
	return out
}

// resolveLocked resolves one setting. Caller holds at least the read
// lock.
func (c *Config) resolveLocked(s *schema.Setting) any {
	if v, ok := c.values[s.Name]; ok {
		return v
	}
	if s.DefaultFrom != "" {
		if v, ok := c.derived[s.Name]; ok {
			return v
		}
	}
	return s.Default
}
