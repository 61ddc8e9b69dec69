// Package autoconf implements the declarative override store: the
// auto-saved YAML snapshot of option overrides made through the script
// façade. The document is machine-managed; the host rewrites it
// wholesale and users are told to edit the config script instead.
package autoconf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/dshills/confkit/internal/config"
	"github.com/dshills/confkit/internal/config/save"
	"github.com/dshills/confkit/internal/config/schema"
)

// Version is the current document format version. It is written into
// every saved document; a future loader branches on it for migration.
const Version = 1

// SaveableName is the store's identifier in the save coordinator.
const SaveableName = "yaml-config"

// header precedes every saved document.
const header = `# DO NOT edit this file by hand, confkit will overwrite it.
# Instead, create a config script - see documentation for details.

`

// Entry is one (name, value) pair from the document.
type Entry struct {
	Name  string
	Value any
}

// Doc is the override document store. Values are schema-typed but
// opaque at this layer; validation happens in the façade before Set is
// called. Unknown option names are pruned on load so options removed
// from the schema vanish silently and are never written back.
type Doc struct {
	mu     sync.RWMutex
	path   string
	reg    *schema.Registry
	values map[string]any
	dirty  bool
}

// New creates an override store backed by the given file and pruned
// against the given registry.
func New(path string, reg *schema.Registry) *Doc {
	return &Doc{
		path:   path,
		reg:    reg,
		values: make(map[string]any),
	}
}

// Load reads the document and replaces the in-memory mapping
// wholesale. A missing file yields an empty store. Structural problems
// are reported as a *config.FileError keyed by the document's base
// name. A successful load clears the dirty flag.
func (d *Doc) Load() error {
	filename := filepath.Base(d.path)

	data, err := os.ReadFile(d.path)
	if errors.Is(err, os.ErrNotExist) {
		d.mu.Lock()
		d.values = make(map[string]any)
		d.dirty = false
		d.mu.Unlock()
		return nil
	}
	if err != nil {
		return config.NewFileError(filename, config.ErrorDesc{Action: "While reading", Err: err})
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return config.NewFileError(filename, config.ErrorDesc{Action: "While parsing", Err: err})
	}

	top, ok := raw.(map[string]any)
	if !ok {
		return config.NewFileError(filename, config.ErrorDesc{
			Action: "While loading data",
			Err:    errors.New("toplevel object is not a mapping"),
		})
	}

	globalObj, ok := top["global"]
	if !ok {
		return config.NewFileError(filename, config.ErrorDesc{
			Action: "While loading data",
			Err:    errors.New("toplevel object does not contain 'global' key"),
		})
	}

	global, ok := globalObj.(map[string]any)
	if !ok {
		return config.NewFileError(filename, config.ErrorDesc{
			Action: "While loading data",
			Err:    errors.New("'global' object is not a mapping"),
		})
	}

	// Options removed from the schema since the last save are dropped
	// silently.
	for name := range global {
		if !d.reg.IsKnown(name) {
			delete(global, name)
		}
	}

	d.mu.Lock()
	d.values = global
	d.dirty = false
	d.mu.Unlock()
	return nil
}

// Get returns the stored value for an option.
func (d *Doc) Get(name string) (any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.values[name]
	return v, ok
}

// Contains reports whether the option has a stored value.
func (d *Doc) Contains(name string) bool {
	_, ok := d.Get(name)
	return ok
}

// Set inserts or overwrites one entry and marks the store dirty. The
// value is not validated here; the façade validates before calling.
func (d *Doc) Set(name string, value any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.values[name] = value
	d.dirty = true
}

// Entries returns all (name, value) pairs sorted by name.
func (d *Doc) Entries() []Entry {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entries := make([]Entry, 0, len(d.values))
	for name, value := range d.values {
		entries = append(entries, Entry{Name: name, Value: value})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// Len returns the number of stored entries.
func (d *Doc) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.values)
}

// Dirty reports whether the in-memory mapping differs from the
// last-saved or last-loaded state.
func (d *Doc) Dirty() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dirty
}

// Save writes the document if it is dirty; otherwise it performs no
// filesystem writes at all. The write goes to a uniquely named
// temporary file in the target directory which then atomically
// replaces the document, so a crash mid-write never leaves a truncated
// file in place of a valid prior version.
func (d *Doc) Save() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.dirty {
		return nil
	}

	doc := map[string]any{
		"config_version": Version,
		"global":         d.values,
	}
	body, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(d.path), err)
	}

	tmp := fmt.Sprintf("%s.%s.tmp", d.path, uuid.NewString())
	if err := os.WriteFile(tmp, append([]byte(header), body...), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, d.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", d.path, err)
	}

	d.dirty = false
	return nil
}

// RegisterSaveable exposes the store to the save coordinator.
func (d *Doc) RegisterSaveable(m *save.Manager) error {
	return m.AddSaveable(SaveableName, d.Save)
}
