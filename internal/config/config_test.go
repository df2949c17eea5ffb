package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapdesk", "config.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Path() != path {
		t.Fatalf("Path = %q, want %q", cfg.Path(), path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default file not written: %v", err)
	}
	want := DefaultConfig()
	if cfg.Storage.Format != want.Storage.Format || cfg.Editor.MaxHistory != want.Editor.MaxHistory {
		t.Fatalf("got %+v, want defaults", cfg)
	}
	if cfg.Hotkeys.Region.String() != "alt+1" {
		t.Fatalf("region hotkey = %q", cfg.Hotkeys.Region.String())
	}
}

func TestLoadRepairsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	raw := map[string]interface{}{
		"storage": map[string]interface{}{
			"directory": "../../etc",
			"format":    "tiff",
			"quality":   500,
		},
		"capture": map[string]interface{}{"timeout_ms": -1},
		"editor": map[string]interface{}{
			"color":     "blue-ish",
			"tool":      "laser",
			"pen_width": 0,
		},
		"hotkeys": map[string]interface{}{
			"region": map[string]interface{}{"modifiers": []string{"hyper"}, "key": "a"},
		},
		"log": map[string]interface{}{"level": "LOUD"},
	}
	data, _ := json.Marshal(raw)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := DefaultConfig()
	checks := []struct {
		name      string
		got, want interface{}
	}{
		{"directory", cfg.Storage.Directory, def.Storage.Directory},
		{"format", cfg.Storage.Format, "png"},
		{"quality", cfg.Storage.Quality, 90},
		{"timeout", cfg.Capture.TimeoutMs, def.Capture.TimeoutMs},
		{"color", cfg.Editor.Color, def.Editor.Color},
		{"tool", cfg.Editor.Tool, def.Editor.Tool},
		{"pen width", cfg.Editor.PenWidth, def.Editor.PenWidth},
		{"region", cfg.Hotkeys.Region.String(), def.Hotkeys.Region.String()},
		{"log level", cfg.Log.Level, "info"},
		// 没改的键保持默认值
		{"stuck", cfg.Capture.StuckMs, def.Capture.StuckMs},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestLoadKeepsValidFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := DefaultConfig()
	cfg.path = path
	cfg.Storage.Format = "jpeg"
	cfg.Behavior.EditAfterCapture = false
	cfg.Editor.MaxHistory = 0
	if err := cfg.Save(); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Storage.Format != "jpg" {
		t.Errorf("format = %q, want jpg", got.Storage.Format)
	}
	if got.Behavior.EditAfterCapture {
		t.Error("edit_after_capture should stay false")
	}
	if got.Editor.MaxHistory != 0 {
		t.Errorf("max_history = %d, want 0 (unlimited)", got.Editor.MaxHistory)
	}
}

func TestEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	t.Setenv("SNAPDESK_STORAGE_FORMAT", "bmp")
	t.Setenv("SNAPDESK_CAPTURE_TIMEOUT_MS", "1500")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Format != "bmp" {
		t.Errorf("format = %q, want bmp", cfg.Storage.Format)
	}
	if cfg.Capture.TimeoutMs != 1500 {
		t.Errorf("timeout = %d, want 1500", cfg.Capture.TimeoutMs)
	}
}

func TestLoadBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err == nil {
		t.Fatal("expected a read error")
	}
	if cfg == nil || cfg.Storage.Format != "png" {
		t.Fatalf("want usable defaults, got %+v", cfg)
	}
}

func TestParseHotkey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"alt+1", "alt+1", false},
		{"Ctrl+Shift+S", "ctrl+shift+s", false},
		{"control+option+f5", "ctrl+alt+f5", false},
		{"super+space", "win+space", false},
		{"a", "", true},
		{"hyper+a", "", true},
		{"ctrl+", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h, err := ParseHotkey(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && h.String() != tt.want {
				t.Fatalf("got %q, want %q", h.String(), tt.want)
			}
		})
	}
}

func TestSetHotkey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	h, _ := ParseHotkey("ctrl+shift+w")
	if err := cfg.SetHotkey("window", h); err != nil {
		t.Fatalf("SetHotkey: %v", err)
	}
	if err := cfg.SetHotkey("teleport", h); err == nil {
		t.Fatal("unknown action accepted")
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := reloaded.Hotkey("window")
	if !ok || got.String() != "ctrl+shift+w" {
		t.Fatalf("window hotkey = %q", got.String())
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := loadDotEnv(filepath.Join(dir, ".env")); err != nil {
		t.Fatalf("missing .env: %v", err)
	}

	envPath := filepath.Join(dir, "set.env")
	if err := os.WriteFile(envPath, []byte("SNAPDESK_DOTENV_CHECK=on\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("SNAPDESK_DOTENV_CHECK") })
	if err := loadDotEnv(envPath); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := os.Getenv("SNAPDESK_DOTENV_CHECK"); got != "on" {
		t.Fatalf("variable = %q", got)
	}

	// 目录能打开但读不了, 必须报错
	if err := loadDotEnv(dir); err == nil {
		t.Fatal("unreadable .env reported no error")
	}
}
