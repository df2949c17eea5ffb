package hotkey

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.design/x/hotkey"

	"snapdesk/internal/config"
)

type fakeHotkey struct {
	mu           sync.Mutex
	key          hotkey.Key
	registered   bool
	unregistered int
	failRegister bool
	keydown      chan hotkey.Event
}

func (f *fakeHotkey) Register() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRegister {
		return errors.New("combination in use")
	}
	f.registered = true
	return nil
}

func (f *fakeHotkey) Unregister() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = false
	f.unregistered++
	return nil
}

func (f *fakeHotkey) Keydown() <-chan hotkey.Event { return f.keydown }

type fakeFactory struct {
	mu      sync.Mutex
	created []*fakeHotkey
	failKey hotkey.Key
}

func (f *fakeFactory) new(_ []hotkey.Modifier, k hotkey.Key) registration {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := &fakeHotkey{key: k, keydown: make(chan hotkey.Event, 1), failRegister: f.failKey != 0 && k == f.failKey}
	f.created = append(f.created, h)
	return h
}

func newTestManager(f *fakeFactory) *Manager {
	return &Manager{newHotkey: f.new, log: zerolog.Nop()}
}

func bindings() map[string]config.Hotkey {
	return config.DefaultConfig().Hotkeys.ByAction()
}

func TestRegisterAll(t *testing.T) {
	f := &fakeFactory{}
	m := newTestManager(f)
	if err := m.Register(bindings(), func(string) {}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got := len(m.Bound()); got != len(config.Actions) {
		t.Fatalf("bound %d actions, want %d", got, len(config.Actions))
	}
	m.Unregister()
	for _, h := range f.created {
		if h.registered || h.unregistered != 1 {
			t.Fatalf("hotkey %v: registered=%v unregistered=%d", h.key, h.registered, h.unregistered)
		}
	}
}

func TestReRegisterReplacesBindings(t *testing.T) {
	f := &fakeFactory{}
	m := newTestManager(f)
	for i := 0; i < 3; i++ {
		if err := m.Register(bindings(), func(string) {}); err != nil {
			t.Fatalf("Register #%d: %v", i, err)
		}
	}
	live := 0
	for _, h := range f.created {
		if h.registered {
			live++
		}
	}
	if live != len(config.Actions) {
		t.Fatalf("%d live registrations, want %d", live, len(config.Actions))
	}
	if len(m.Bound()) != len(config.Actions) {
		t.Fatalf("Bound = %v", m.Bound())
	}
}

func TestKeydownTriggersAction(t *testing.T) {
	f := &fakeFactory{}
	m := newTestManager(f)
	got := make(chan string, 1)
	b := map[string]config.Hotkey{"region": {Modifiers: []string{"alt"}, Key: "1"}}
	if err := m.Register(b, func(a string) { got <- a }); err != nil {
		t.Fatal(err)
	}
	f.created[0].keydown <- hotkey.Event{}

	select {
	case a := <-got:
		if a != "region" {
			t.Fatalf("action = %q", a)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("trigger not called")
	}
	m.Unregister()
}

func TestRegisterReportsBadBindings(t *testing.T) {
	f := &fakeFactory{failKey: hotkey.Key3}
	m := newTestManager(f)
	b := map[string]config.Hotkey{
		"fullscreen": {Modifiers: []string{"alt"}, Key: "2"},
		"quick":      {Modifiers: []string{"alt"}, Key: "2"},
		"region":     {Modifiers: []string{"hyper"}, Key: "1"},
		"window":     {Modifiers: []string{"alt"}, Key: "3"},
		"cancel":     {Modifiers: []string{"ctrl"}, Key: "pause"},
	}
	err := m.Register(b, func(string) {})
	if err == nil {
		t.Fatal("expected errors")
	}
	bound := m.Bound()
	if len(bound) != 1 || bound["fullscreen"] != "alt+2" {
		t.Fatalf("Bound = %v, want only fullscreen", bound)
	}
}

func TestParse(t *testing.T) {
	if _, err := ParseKey("F5"); err != nil {
		t.Fatalf("ParseKey(F5): %v", err)
	}
	if _, err := ParseKey("pause"); err == nil {
		t.Fatal("ParseKey(pause) accepted")
	}
	mods, err := ParseModifiers([]string{"Ctrl", "shift"})
	if err != nil || len(mods) != 2 {
		t.Fatalf("ParseModifiers = %v, %v", mods, err)
	}
	if _, err := ParseModifiers([]string{"meta"}); err == nil {
		t.Fatal("meta accepted")
	}
}
