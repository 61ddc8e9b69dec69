package config

import (
	"errors"
	"testing"

	"github.com/dshills/confkit/internal/config/notify"
	"github.com/dshills/confkit/internal/config/schema"
)

func TestGetDefault(t *testing.T) {
	c := New(schema.Default())

	v, err := c.Get("tabs.show")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if v != "always" {
		t.Errorf("tabs.show = %v, want always", v)
	}
}

func TestGetUnknown(t *testing.T) {
	c := New(schema.Default())

	_, err := c.Get("does-not-exist")
	if !errors.Is(err, ErrUnknownOption) {
		t.Errorf("Get() error = %v, want ErrUnknownOption", err)
	}
}

func TestSetAndGet(t *testing.T) {
	c := New(schema.Default())

	if err := c.Set("tabs.show", "never", "test"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	v, err := c.Get("tabs.show")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if v != "never" {
		t.Errorf("tabs.show = %v, want never", v)
	}
	if !c.Has("tabs.show") {
		t.Error("Has(tabs.show) = false after Set")
	}
}

func TestSetInvalid(t *testing.T) {
	c := New(schema.Default())

	if err := c.Set("tabs.show", "sometimes", "test"); err == nil {
		t.Error("Set() with invalid enum value succeeded")
	}
	if err := c.Set("unknown-option", 5, "test"); !errors.Is(err, schema.ErrUnknownOption) {
		t.Errorf("Set(unknown-option) error = %v, want ErrUnknownOption", err)
	}
	if c.Has("unknown-option") {
		t.Error("rejected Set left a value behind")
	}
}

func TestDerivedDefaults(t *testing.T) {
	c := New(schema.Default())

	// Before any mutation the derived font tracks the built-in default.
	v, err := c.Get("fonts.statusbar")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if v != "monospace" {
		t.Errorf("fonts.statusbar = %v, want monospace", v)
	}

	// Changing the source option is only visible after Finalize.
	if err := c.Set("fonts.default-family", "Iosevka", "test"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	v, _ = c.Get("fonts.statusbar")
	if v != "monospace" {
		t.Errorf("fonts.statusbar before Finalize = %v, want monospace", v)
	}

	c.Finalize()
	v, _ = c.Get("fonts.statusbar")
	if v != "Iosevka" {
		t.Errorf("fonts.statusbar after Finalize = %v, want Iosevka", v)
	}

	// An explicit value always wins over the derived default.
	if err := c.Set("fonts.statusbar", "Terminus", "test"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	v, _ = c.Get("fonts.statusbar")
	if v != "Terminus" {
		t.Errorf("fonts.statusbar = %v, want Terminus", v)
	}
}

func TestSetNotifies(t *testing.T) {
	n := notify.New()
	c := New(schema.Default(), WithNotifier(n))

	var got []notify.Change
	n.Subscribe(func(ch notify.Change) { got = append(got, ch) })

	if err := c.Set("ui.theme", "light", "script"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("received %d changes, want 1", len(got))
	}
	ch := got[0]
	if ch.Name != "ui.theme" || ch.OldValue != "dark" || ch.NewValue != "light" || ch.Source != "script" {
		t.Errorf("change = %+v", ch)
	}
}

func TestSnapshotCoversAllOptions(t *testing.T) {
	reg := schema.Default()
	c := New(reg)

	snap := c.Snapshot()
	for _, name := range reg.Names() {
		if _, ok := snap[name]; !ok {
			t.Errorf("Snapshot() missing %s", name)
		}
	}
}
