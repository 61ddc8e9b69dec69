package files

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dshills/confkit/internal/config"
	"github.com/dshills/confkit/internal/config/autoconf"
	"github.com/dshills/confkit/internal/config/save"
	"github.com/dshills/confkit/internal/config/state"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFirstRun(t *testing.T) {
	configDir := t.TempDir()
	dataDir := t.TempDir()

	f := New(configDir, dataDir, WithAppVersion("1.2.3"))
	api, err := f.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(api.Errors()) != 0 {
		t.Errorf("errors = %v, want none", api.Errors())
	}

	if f.PreviousVersion() != "" {
		t.Errorf("PreviousVersion() = %q, want empty on first run", f.PreviousVersion())
	}
	if v, _ := f.State().Get("general", "version"); v != "1.2.3" {
		t.Errorf("recorded version = %q, want 1.2.3", v)
	}

	// Defaults resolve without any file present.
	if v, _ := f.Config().Get("ui.theme"); v != "dark" {
		t.Errorf("ui.theme = %v, want dark", v)
	}
}

func TestPreviousVersionAcrossRuns(t *testing.T) {
	configDir := t.TempDir()
	dataDir := t.TempDir()

	f := New(configDir, dataDir, WithAppVersion("1.0.0"))
	if _, err := f.LoadAll(); err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if err := f.State().Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	f2 := New(configDir, dataDir, WithAppVersion("2.0.0"))
	if _, err := f2.LoadAll(); err != nil {
		t.Fatalf("second LoadAll() error = %v", err)
	}
	if f2.PreviousVersion() != "1.0.0" {
		t.Errorf("PreviousVersion() = %q, want 1.0.0", f2.PreviousVersion())
	}
	if v, _ := f2.State().Get("general", "version"); v != "2.0.0" {
		t.Errorf("recorded version = %q, want 2.0.0", v)
	}
}

func TestReplayAppliesOverrides(t *testing.T) {
	configDir := t.TempDir()
	dataDir := t.TempDir()
	writeFile(t, configDir, AutoconfFileName, `config_version: 1
global:
  ui.theme: light
  fonts.default-size: 20
`)

	f := New(configDir, dataDir)
	api, err := f.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(api.Errors()) != 0 {
		t.Errorf("errors = %v, want none", api.Errors())
	}
	if v, _ := f.Config().Get("ui.theme"); v != "light" {
		t.Errorf("ui.theme = %v, want light", v)
	}
	if v, _ := f.Config().Get("fonts.default-size"); v != 20 {
		t.Errorf("fonts.default-size = %v, want 20", v)
	}
}

func TestReplayBadValueRecorded(t *testing.T) {
	configDir := t.TempDir()
	dataDir := t.TempDir()
	writeFile(t, configDir, AutoconfFileName, `config_version: 1
global:
  fonts.default-size: 500
  ui.theme: light
`)

	f := New(configDir, dataDir)
	api, err := f.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}

	errs := api.Errors()
	if len(errs) != 1 || errs[0].Action != "While setting 'fonts.default-size'" {
		t.Fatalf("errors = %v", errs)
	}
	// The bad entry did not stop the good one.
	if v, _ := f.Config().Get("ui.theme"); v != "light" {
		t.Errorf("ui.theme = %v, want light", v)
	}
	if v, _ := f.Config().Get("fonts.default-size"); v != 12 {
		t.Errorf("fonts.default-size = %v, want default 12", v)
	}
}

func TestReplayDisabledByState(t *testing.T) {
	configDir := t.TempDir()
	dataDir := t.TempDir()
	writeFile(t, configDir, AutoconfFileName, `config_version: 1
global:
  ui.theme: light
`)
	writeFile(t, dataDir, StateFileName, "[general]\nload-autoconfig = \"false\"\n\n[geometry]\n")

	f := New(configDir, dataDir)
	api, err := f.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if api.LoadAutoconfig() {
		t.Error("replay flag should carry over as disabled")
	}
	if v, _ := f.Config().Get("ui.theme"); v != "dark" {
		t.Errorf("ui.theme = %v, want untouched default", v)
	}
}

func TestScriptDisablesFutureReplay(t *testing.T) {
	configDir := t.TempDir()
	dataDir := t.TempDir()
	writeFile(t, configDir, "config.lua", `config.load_autoconfig = false`)

	f := New(configDir, dataDir)
	api, err := f.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if api.LoadAutoconfig() {
		t.Error("script failed to disable replay")
	}
	if v, _ := f.State().Get("general", "load-autoconfig"); v != "false" {
		t.Errorf("persisted flag = %q, want false", v)
	}
}

func TestScriptWinsOverReplay(t *testing.T) {
	configDir := t.TempDir()
	dataDir := t.TempDir()
	writeFile(t, configDir, AutoconfFileName, `config_version: 1
global:
  ui.theme: light
`)
	writeFile(t, configDir, "config.lua", `config.set("ui.theme", "dark")`)

	f := New(configDir, dataDir)
	if _, err := f.LoadAll(); err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if v, _ := f.Config().Get("ui.theme"); v != "dark" {
		t.Errorf("ui.theme = %v, want the script's value", v)
	}
}

func TestMalformedOverrideDocument(t *testing.T) {
	configDir := t.TempDir()
	dataDir := t.TempDir()
	writeFile(t, configDir, AutoconfFileName, "- just\n- a\n- sequence\n")

	f := New(configDir, dataDir)
	api, err := f.LoadAll()

	var ferr *config.FileError
	if !errors.As(err, &ferr) {
		t.Fatalf("LoadAll() error = %v, want *config.FileError", err)
	}
	if ferr.Filename != AutoconfFileName {
		t.Errorf("Filename = %q, want %q", ferr.Filename, AutoconfFileName)
	}
	if api == nil {
		t.Fatal("façade should be returned even on structural failure")
	}
}

func TestScriptSyntaxErrorPropagates(t *testing.T) {
	configDir := t.TempDir()
	dataDir := t.TempDir()
	writeFile(t, configDir, "config.lua", "not valid lua (((")

	f := New(configDir, dataDir)
	api, err := f.LoadAll()

	var ferr *config.FileError
	if !errors.As(err, &ferr) {
		t.Fatalf("LoadAll() error = %v, want *config.FileError", err)
	}
	if !strings.Contains(ferr.Error(), "config.lua") {
		t.Errorf("error = %v, want it to name the script", ferr)
	}
	if api == nil {
		t.Fatal("façade should be returned even on structural failure")
	}
}

func TestScriptRuntimeErrorIsRecoverable(t *testing.T) {
	configDir := t.TempDir()
	dataDir := t.TempDir()
	writeFile(t, configDir, "config.lua", `
config.set("ui.theme", "light")
error("halfway through")
`)

	f := New(configDir, dataDir)
	api, err := f.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	errs := api.Errors()
	if len(errs) != 1 || errs[0].Action != "Unhandled exception" {
		t.Fatalf("errors = %v", errs)
	}
	if v, _ := f.Config().Get("ui.theme"); v != "light" {
		t.Errorf("ui.theme = %v, want light", v)
	}
}

func TestScriptPathOverride(t *testing.T) {
	configDir := t.TempDir()
	dataDir := t.TempDir()
	other := t.TempDir()
	writeFile(t, other, "alt.lua", `config.set("ui.theme", "light")`)

	f := New(configDir, dataDir, WithScriptPath(filepath.Join(other, "alt.lua")))
	if got, want := f.ScriptPath(), filepath.Join(other, "alt.lua"); got != want {
		t.Errorf("ScriptPath() = %q, want %q", got, want)
	}
	if _, err := f.LoadAll(); err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if v, _ := f.Config().Get("ui.theme"); v != "light" {
		t.Errorf("ui.theme = %v, want light", v)
	}
}

func TestSetBeforeLoad(t *testing.T) {
	f := New(t.TempDir(), t.TempDir())
	if err := f.Set("ui.theme", "light"); !errors.Is(err, config.ErrNotInitialized) {
		t.Errorf("Set() before LoadAll error = %v, want ErrNotInitialized", err)
	}
}

func TestSetRecordsOverride(t *testing.T) {
	f := New(t.TempDir(), t.TempDir())
	if _, err := f.LoadAll(); err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}

	if err := f.Set("tabs.show", "never"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if v, _ := f.Config().Get("tabs.show"); v != "never" {
		t.Errorf("tabs.show = %v, want never", v)
	}
	if !f.Autoconf().Contains("tabs.show") {
		t.Error("override document missing the new value")
	}
	if !f.Autoconf().Dirty() {
		t.Error("override document should be dirty after Set")
	}

	if err := f.Set("tabs.show", "nonsense"); err == nil {
		t.Error("Set() accepted an invalid enum value")
	}
}

func TestSetUpdatesDerivedDefaults(t *testing.T) {
	f := New(t.TempDir(), t.TempDir())
	if _, err := f.LoadAll(); err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}

	if err := f.Set("fonts.default-family", "Iosevka"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if v, _ := f.Config().Get("fonts.tabs"); v != "Iosevka" {
		t.Errorf("fonts.tabs = %v, want derived Iosevka", v)
	}
}

func TestRegisterSaveables(t *testing.T) {
	configDir := t.TempDir()
	dataDir := t.TempDir()

	f := New(configDir, dataDir, WithAppVersion("1.0.0"))
	if _, err := f.LoadAll(); err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if err := f.Set("ui.theme", "light"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	m := save.NewManager()
	if err := f.RegisterSaveables(m); err != nil {
		t.Fatalf("RegisterSaveables() error = %v", err)
	}
	names := m.Names()
	if len(names) != 2 {
		t.Fatalf("Names() = %v, want both stores", names)
	}
	for _, want := range []string{state.SaveableName, autoconf.SaveableName} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
			}
		}
		if !found {
			t.Errorf("Names() = %v, missing %q", names, want)
		}
	}

	if err := m.SaveAll(); err != nil {
		t.Fatalf("SaveAll() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dataDir, StateFileName)); err != nil {
		t.Errorf("state file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(configDir, AutoconfFileName)); err != nil {
		t.Errorf("override document missing: %v", err)
	}

	// The persisted override survives a fresh load.
	f2 := New(configDir, dataDir)
	if _, err := f2.LoadAll(); err != nil {
		t.Fatalf("reload LoadAll() error = %v", err)
	}
	if v, _ := f2.Config().Get("ui.theme"); v != "light" {
		t.Errorf("ui.theme after reload = %v, want light", v)
	}
}

func TestMalformedStateAborts(t *testing.T) {
	configDir := t.TempDir()
	dataDir := t.TempDir()
	writeFile(t, dataDir, StateFileName, "not toml [[[")

	f := New(configDir, dataDir)
	if _, err := f.LoadAll(); err == nil {
		t.Fatal("LoadAll() succeeded on a malformed state file")
	}
}
