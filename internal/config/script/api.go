// Package script loads and executes the user's configuration script in
// a sandboxed Lua runtime. The script sees a narrow façade (get, set,
// bind, unbind, load_autoconfig) instead of the host's internals, and
// every façade call is fault-isolated: an error is recorded on the
// façade's error list and the script keeps running.
package script

import (
	"fmt"

	"github.com/dshills/confkit/internal/config"
	"github.com/dshills/confkit/internal/keymap"
)

// Source is the change-notification source recorded for script
// mutations.
const Source = "script"

// API is the façade handed to the configuration script. It wraps the
// live configuration model and the key-binding model with shallow,
// fault-isolated operations.
type API struct {
	cfg  *config.Config
	keys *keymap.KeyConfig

	loadAutoconfig bool
	errs           []config.ErrorDesc
}

// NewAPI creates a façade over the given models. Autoconfig replay is
// enabled until the script turns it off.
func NewAPI(cfg *config.Config, keys *keymap.KeyConfig) *API {
	return &API{
		cfg:            cfg,
		keys:           keys,
		loadAutoconfig: true,
	}
}

// LoadAutoconfig reports whether the override document should be
// replayed on this and future startups. The orchestrator persists the
// flag; this layer only carries it.
func (a *API) LoadAutoconfig() bool {
	return a.loadAutoconfig
}

// SetLoadAutoconfig records the script's replay preference.
func (a *API) SetLoadAutoconfig(v bool) {
	a.loadAutoconfig = v
}

// Errors returns the descriptors accumulated during execution, in
// occurrence order.
func (a *API) Errors() []config.ErrorDesc {
	out := make([]config.ErrorDesc, len(a.errs))
	copy(out, a.errs)
	return out
}

// AddError appends a descriptor to the running error list.
func (a *API) AddError(desc config.ErrorDesc) {
	a.errs = append(a.errs, desc)
}

// Finalize applies the deferred bulk update the live model requires
// after a batch of mutations. The runner calls it unconditionally
// after execution, success or not.
func (a *API) Finalize() {
	a.cfg.Finalize()
}

// capture runs one façade action and records a descriptor on failure
// instead of propagating it. Every façade method reports through this
// single path so one failing call never stops the calls after it.
func (a *API) capture(action, name string, fn func() error) bool {
	if err := fn(); err != nil {
		a.errs = append(a.errs, config.ErrorDesc{
			Action: fmt.Sprintf("While %s '%s'", action, name),
			Err:    err,
		})
		return false
	}
	return true
}

// GetOption fetches the live resolved value for an option. A lookup
// failure is recorded and reported as (nil, false) so the script sees
// an error-signaling result, not a crash.
func (a *API) GetOption(name string) (any, bool) {
	var value any
	ok := a.capture("getting", name, func() error {
		v, err := a.cfg.Get(name)
		value = v
		return err
	})
	return value, ok
}

// SetOption validates and applies an option value.
func (a *API) SetOption(name string, value any) {
	a.capture("setting", name, func() error {
		return a.cfg.Set(name, value, Source)
	})
}

// Bind registers a key-to-command mapping. Without force, a key
// already bound in the mode is an error recorded on the list.
func (a *API) Bind(key, command, mode string, force bool) {
	a.capture("binding", key, func() error {
		return a.keys.Bind(key, command, mode, force)
	})
}

// Unbind removes a key binding.
func (a *API) Unbind(key, mode string) {
	a.capture("unbinding", key, func() error {
		return a.keys.Unbind(key, mode)
	})
}

// knownOption reports whether the name is a registered option. The
// attribute proxy uses it to tell option reads from namespace
// traversal.
func (a *API) knownOption(name string) bool {
	return a.cfg.Known(name)
}
