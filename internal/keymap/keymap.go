// Package keymap holds the key-binding model: a mode-scoped table of
// key sequence -> command mappings. Bindings come from the user's
// config script; conflicts are errors unless the caller forces the
// overwrite.
package keymap

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// DefaultMode is the mode used when none is given.
const DefaultMode = "normal"

// Errors returned by binding operations.
var (
	// ErrConflict indicates the key is already bound in the mode.
	ErrConflict = errors.New("key is already bound")

	// ErrNotBound indicates the key has no binding in the mode.
	ErrNotBound = errors.New("key is not bound")
)

// ConflictError reports an attempt to bind an already-bound key
// without force.
type ConflictError struct {
	// Key is the key sequence.
	Key string
	// Mode is the binding mode.
	Mode string
	// Existing is the command currently bound.
	Existing string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("%q is already bound to %q in %s mode (use force to overwrite)",
		e.Key, e.Existing, e.Mode)
}

// Is matches conflict errors against ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// KeyConfig stores key bindings per mode.
type KeyConfig struct {
	mu    sync.RWMutex
	modes map[string]map[string]string
}

// NewKeyConfig creates an empty binding table.
func NewKeyConfig() *KeyConfig {
	return &KeyConfig{modes: make(map[string]map[string]string)}
}

// Bind maps a key sequence to a command in the given mode. An existing
// binding for the key is an error unless force is set, in which case it
// is overwritten.
func (k *KeyConfig) Bind(key, command, mode string, force bool) error {
	if key == "" {
		return fmt.Errorf("bind: key must not be empty")
	}
	if command == "" {
		return fmt.Errorf("bind %q: command must not be empty", key)
	}
	if mode == "" {
		mode = DefaultMode
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	bindings := k.modes[mode]
	if bindings == nil {
		bindings = make(map[string]string)
		k.modes[mode] = bindings
	}

	if existing, bound := bindings[key]; bound && !force {
		return &ConflictError{Key: key, Mode: mode, Existing: existing}
	}
	bindings[key] = command
	return nil
}

// Unbind removes the binding for a key in the given mode.
func (k *KeyConfig) Unbind(key, mode string) error {
	if mode == "" {
		mode = DefaultMode
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	bindings := k.modes[mode]
	if _, bound := bindings[key]; !bound {
		return fmt.Errorf("unbind %q in %s mode: %w", key, mode, ErrNotBound)
	}
	delete(bindings, key)
	return nil
}

// Lookup returns the command bound to a key in the given mode.
func (k *KeyConfig) Lookup(key, mode string) (string, bool) {
	if mode == "" {
		mode = DefaultMode
	}

	k.mu.RLock()
	defer k.mu.RUnlock()

	command, ok := k.modes[mode][key]
	return command, ok
}

// Bindings returns a copy of the key -> command table for a mode.
func (k *KeyConfig) Bindings(mode string) map[string]string {
	if mode == "" {
		mode = DefaultMode
	}

	k.mu.RLock()
	defer k.mu.RUnlock()

	out := make(map[string]string, len(k.modes[mode]))
	for key, command := range k.modes[mode] {
		out[key] = command
	}
	return out
}

// Modes returns the modes that have at least one binding, sorted.
func (k *KeyConfig) Modes() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()

	modes := make([]string, 0, len(k.modes))
	for mode, bindings := range k.modes {
		if len(bindings) > 0 {
			modes = append(modes, mode)
		}
	}
	sort.Strings(modes)
	return modes
}
