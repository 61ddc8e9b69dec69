// Package schema holds the option registry: the authority on which
// option names exist, their declared types and their validation rules.
// The registry is populated once at startup and read-only afterwards.
package schema

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps option names to their setting descriptors.
type Registry struct {
	mu       sync.RWMutex
	settings map[string]*Setting
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{settings: make(map[string]*Setting)}
}

// Register adds a setting descriptor. Registering the same name twice
// returns ErrAlreadyRegistered.
func (r *Registry) Register(s *Setting) error {
	if s == nil || s.Name == "" {
		return fmt.Errorf("register: setting must have a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.settings[s.Name]; exists {
		return fmt.Errorf("register %s: %w", s.Name, ErrAlreadyRegistered)
	}
	r.settings[s.Name] = s
	return nil
}

// IsKnown reports whether an option with this name is registered.
func (r *Registry) IsKnown(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.settings[name]
	return ok
}

// Lookup returns the setting descriptor for a name.
func (r *Registry) Lookup(name string) (*Setting, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.settings[name]
	return s, ok
}

// Names returns all registered option names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.settings))
	for name := range r.settings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks a value against the named setting. An unregistered
// name yields a ValidationError matching ErrUnknownOption.
func (r *Registry) Validate(name string, value any) error {
	s, ok := r.Lookup(name)
	if !ok {
		return &ValidationError{
			Name:    name,
			Value:   value,
			Code:    CodeUnknownOption,
			Message: "no option with this name",
		}
	}
	return s.Validate(value)
}

func intBound(v float64) *float64 { return &v }

// Default returns a registry populated with the built-in settings
// catalog of the host application.
func Default() *Registry {
	r := NewRegistry()
	for _, s := range defaultCatalog() {
		// Names in the catalog are unique by construction.
		_ = r.Register(s)
	}
	return r
}

// defaultCatalog lists the built-in settings.
func defaultCatalog() []*Setting {
	return []*Setting{
		{
			Name:        "tabs.show",
			Type:        TypeEnum,
			Default:     "always",
			Enum:        []string{"always", "multiple", "switching", "never"},
			Description: "When to show the tab bar.",
		},
		{
			Name:        "tabs.position",
			Type:        TypeEnum,
			Default:     "top",
			Enum:        []string{"top", "bottom", "left", "right"},
			Description: "Position of the tab bar.",
		},
		{
			Name:        "ui.theme",
			Type:        TypeEnum,
			Default:     "dark",
			Enum:        []string{"dark", "light"},
			Description: "Color theme.",
		},
		{
			Name:        "ui.statusbar.hide",
			Type:        TypeBool,
			Default:     false,
			Description: "Hide the status bar unless a message is shown.",
		},
		{
			Name:        "fonts.default-family",
			Type:        TypeString,
			Default:     "monospace",
			Description: "Font family used when a font setting has no explicit value.",
		},
		{
			Name:        "fonts.default-size",
			Type:        TypeInt,
			Default:     12,
			Min:         intBound(6),
			Max:         intBound(72),
			Description: "Default font size in points.",
		},
		{
			Name:        "fonts.statusbar",
			Type:        TypeString,
			DefaultFrom: "fonts.default-family",
			Description: "Font family for the status bar.",
		},
		{
			Name:        "fonts.tabs",
			Type:        TypeString,
			DefaultFrom: "fonts.default-family",
			Description: "Font family for the tab bar.",
		},
		{
			Name:        "editor.word-wrap",
			Type:        TypeBool,
			Default:     false,
			Description: "Wrap long lines in the editor view.",
		},
		{
			Name:        "editor.scroll-offset",
			Type:        TypeInt,
			Default:     3,
			Min:         intBound(0),
			Max:         intBound(100),
			Description: "Minimum lines kept visible above and below the cursor.",
		},
		{
			Name:        "search.ignore-case",
			Type:        TypeEnum,
			Default:     "smart",
			Enum:        []string{"always", "never", "smart"},
			Description: "Case sensitivity of searches.",
		},
		{
			Name:        "session.lazy-restore",
			Type:        TypeBool,
			Default:     false,
			Description: "Restore session contents only when first focused.",
		},
		{
			Name:        "files.exclude",
			Type:        TypeStringList,
			Default:     []string{".git", "node_modules"},
			Description: "Path patterns excluded from file listings.",
		},
		{
			Name:        "input.insert-mode-on-open",
			Type:        TypeBool,
			Default:     false,
			Description: "Enter insert mode when opening an editable field.",
		},
		{
			Name:        "zoom.default",
			Type:        TypeFloat,
			Default:     1.0,
			Min:         intBound(0.25),
			Max:         intBound(5.0),
			Description: "Default zoom level.",
		},
	}
}
