// Package files orchestrates the configuration channels at startup:
// the persisted state store, the declarative override document, and
// the user's configuration script. It owns the load order, the replay
// of persisted overrides into the live model, and the persistence of
// the script's replay preference for the next run.
package files

import (
	"fmt"
	"path/filepath"

	"github.com/dshills/confkit/internal/config"
	"github.com/dshills/confkit/internal/config/autoconf"
	"github.com/dshills/confkit/internal/config/notify"
	"github.com/dshills/confkit/internal/config/save"
	"github.com/dshills/confkit/internal/config/schema"
	"github.com/dshills/confkit/internal/config/script"
	"github.com/dshills/confkit/internal/config/state"
	"github.com/dshills/confkit/internal/keymap"
)

// Well-known file names under the configuration and data directories.
const (
	StateFileName    = "state.toml"
	AutoconfFileName = "autoconfig.yml"
)

// State-store keys owned by the orchestrator.
const (
	versionKey        = "version"
	loadAutoconfigKey = "load-autoconfig"
	generalSection    = "general"
)

// ReplaySource is the change-notification source recorded for values
// replayed from the override document.
const ReplaySource = "autoconfig"

// Option configures a Files handle.
type Option func(*Files)

// WithRegistry replaces the built-in settings catalog.
func WithRegistry(reg *schema.Registry) Option {
	return func(f *Files) {
		f.reg = reg
	}
}

// WithNotifier wires change notifications through the given notifier.
func WithNotifier(n *notify.Notifier) Option {
	return func(f *Files) {
		f.notifier = n
	}
}

// WithAppVersion records the application version in the state store on
// load, so the next run can detect upgrades.
func WithAppVersion(version string) Option {
	return func(f *Files) {
		f.version = version
	}
}

// WithScriptPath overrides the script location. By default the script
// is config.lua under the configuration directory, and optional.
func WithScriptPath(path string) Option {
	return func(f *Files) {
		f.scriptPath = path
	}
}

// Files is the explicit handle over all configuration channels. It is
// constructed once at startup and threaded through to every consumer.
type Files struct {
	configDir  string
	dataDir    string
	version    string
	scriptPath string

	reg      *schema.Registry
	notifier *notify.Notifier

	cfg   *config.Config
	keys  *keymap.KeyConfig
	state *state.Store
	auto  *autoconf.Doc

	prevVersion string
	loaded      bool
}

// New creates the handle. configDir holds the script and the override
// document; dataDir holds the persisted state.
func New(configDir, dataDir string, opts ...Option) *Files {
	f := &Files{
		configDir: configDir,
		dataDir:   dataDir,
		reg:       schema.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}

	var cfgOpts []config.Option
	if f.notifier != nil {
		cfgOpts = append(cfgOpts, config.WithNotifier(f.notifier))
	}
	f.cfg = config.New(f.reg, cfgOpts...)
	f.keys = keymap.NewKeyConfig()
	f.state = state.New(filepath.Join(dataDir, StateFileName))
	f.auto = autoconf.New(filepath.Join(configDir, AutoconfFileName), f.reg)
	return f
}

// Config returns the live configuration model.
func (f *Files) Config() *config.Config { return f.cfg }

// Keys returns the key-binding model.
func (f *Files) Keys() *keymap.KeyConfig { return f.keys }

// State returns the persisted state store.
func (f *Files) State() *state.Store { return f.state }

// Autoconf returns the override document.
func (f *Files) Autoconf() *autoconf.Doc { return f.auto }

// PreviousVersion returns the application version recorded by the
// previous run, or "" on first run. Valid after LoadAll.
func (f *Files) PreviousVersion() string { return f.prevVersion }

// ScriptPath returns the effective script location.
func (f *Files) ScriptPath() string {
	if f.scriptPath != "" {
		return f.scriptPath
	}
	return filepath.Join(f.configDir, script.DefaultScriptName)
}

// LoadAll runs the startup sequence: load and reconcile the state
// store, replay the override document into the live model unless
// replay is disabled, then execute the configuration script.
//
// The returned façade is non-nil whenever the script stage was
// reached; its Errors list carries every recoverable fault (bad
// override values, façade call failures, unhandled script errors) in
// occurrence order. A non-nil error means a structural failure that
// aborted the stage it names: an unreadable or malformed store, or a
// script that could not be compiled.
func (f *Files) LoadAll() (*script.API, error) {
	if err := f.state.Load(); err != nil {
		return nil, err
	}
	f.prevVersion, _ = f.state.Get(generalSection, versionKey)
	if f.version != "" {
		f.state.Set(generalSection, versionKey, f.version)
	}

	replay := true
	if v, ok := f.state.Get(generalSection, loadAutoconfigKey); ok && v == "false" {
		replay = false
	}

	api := script.NewAPI(f.cfg, f.keys)
	api.SetLoadAutoconfig(replay)

	if replay {
		if err := f.auto.Load(); err != nil {
			return api, err
		}
		for _, entry := range f.auto.Entries() {
			if err := f.cfg.Set(entry.Name, entry.Value, ReplaySource); err != nil {
				api.AddError(config.ErrorDesc{
					Action: fmt.Sprintf("While setting '%s'", entry.Name),
					Err:    err,
				})
			}
		}
		f.cfg.Finalize()
	}

	runner := script.NewRunner(api, f.configDir)
	if err := runner.Run(f.scriptPath); err != nil {
		return api, err
	}

	f.state.Set(generalSection, loadAutoconfigKey, fmt.Sprintf("%t", api.LoadAutoconfig()))
	f.loaded = true
	return api, nil
}

// Set validates and applies an option value as an interactive user
// change, and records it in the override document so it survives
// restarts once the document is saved.
func (f *Files) Set(name string, value any) error {
	if !f.loaded {
		return config.ErrNotInitialized
	}
	if err := f.cfg.Set(name, value, "user"); err != nil {
		return err
	}
	f.cfg.Finalize()
	f.auto.Set(name, value)
	return nil
}

// RegisterSaveables registers both persistence channels with the save
// coordinator.
func (f *Files) RegisterSaveables(m *save.Manager) error {
	if err := f.state.RegisterSaveable(m); err != nil {
		return err
	}
	return f.auto.RegisterSaveable(m)
}
