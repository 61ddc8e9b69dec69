// Package state implements the persisted application state store: a
// sectioned key=value text file (TOML on disk) tracking ephemeral
// bookkeeping such as last-seen version and window geometry. The store
// is schema-free and general-purpose; user-facing options never live
// here.
package state

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/confkit/internal/config/save"
)

// SaveableName is the store's identifier in the save coordinator.
const SaveableName = "state-config"

// Sections guaranteed to exist after Load.
var requiredSections = []string{"general", "geometry"}

// deletedKeys are obsolete bookkeeping keys purged from the general
// section on every load.
var deletedKeys = []string{"welcome-shown", "crash-report-pending"}

// Store is the persisted state store. All mutation is in-memory; the
// file is rewritten only when the save coordinator invokes Save.
type Store struct {
	mu       sync.RWMutex
	path     string
	sections map[string]map[string]string
}

// New creates a store backed by the given file path. Call Load before
// first use.
func New(path string) *Store {
	return &Store{
		path:     path,
		sections: make(map[string]map[string]string),
	}
}

// Load reads the backing file. A missing file yields an empty store.
// After loading, the general and geometry sections exist and obsolete
// keys have been purged from general.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sections = make(map[string]map[string]string)

	data, err := os.ReadFile(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading state file %s: %w", s.path, err)
	}
	if err == nil && len(data) > 0 {
		if perr := s.parseLocked(data); perr != nil {
			return perr
		}
	}

	// Creating a section that already exists is a no-op, never an
	// error.
	for _, sect := range requiredSections {
		if s.sections[sect] == nil {
			s.sections[sect] = make(map[string]string)
		}
	}
	for _, key := range deletedKeys {
		delete(s.sections["general"], key)
	}
	return nil
}

// parseLocked decodes the sectioned file, tolerating entries the
// format allows but the store does not use: top-level scalars and
// nested tables are skipped, scalar section values are stringified.
func (s *Store) parseLocked(data []byte) error {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing state file %s: %w", s.path, err)
	}

	for name, entry := range raw {
		table, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		section := make(map[string]string, len(table))
		for key, value := range table {
			switch v := value.(type) {
			case string:
				section[key] = v
			case map[string]any:
				// Nested tables have no place in a flat section.
			default:
				section[key] = fmt.Sprint(v)
			}
		}
		s.sections[name] = section
	}
	return nil
}

// Get returns the value for a key in a section.
func (s *Store) Get(section, key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.sections[section][key]
	return value, ok
}

// Set stores a value, creating the section if needed. No validation is
// performed; the store is schema-free.
func (s *Store) Set(section, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sections[section] == nil {
		s.sections[section] = make(map[string]string)
	}
	s.sections[section][key] = value
}

// Delete removes a key from a section. Missing keys are ignored.
func (s *Store) Delete(section, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sections[section], key)
}

// Sections returns all section names, sorted.
func (s *Store) Sections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.sections))
	for name := range s.sections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Section returns a copy of one section's key=value mapping.
func (s *Store) Section(name string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.sections[name]))
	for key, value := range s.sections[name] {
		out[key] = value
	}
	return out
}

// Save serializes all sections back to the backing file. The write is
// unconditional; the store keeps no dirty flag. Safe to call
// repeatedly.
func (s *Store) Save() error {
	s.mu.RLock()
	data, err := toml.Marshal(s.sections)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encoding state file: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing state file %s: %w", s.path, err)
	}
	return nil
}

// RegisterSaveable exposes the store to the save coordinator so it is
// flushed at the host's lifecycle points. The store never schedules
// its own saves.
func (s *Store) RegisterSaveable(m *save.Manager) error {
	return m.AddSaveable(SaveableName, s.Save)
}
