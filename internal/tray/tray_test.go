package tray

import (
	"bytes"
	"encoding/binary"
	"image/png"
	"testing"
)

func TestMenuLabel(t *testing.T) {
	tests := []struct {
		e    Entry
		want string
	}{
		{Entry{Label: "Capture region", Hotkey: "alt+1"}, "Capture region (alt+1)"},
		{Entry{Label: "Quick capture"}, "Quick capture"},
	}
	for _, tt := range tests {
		if got := MenuLabel(tt.e); got != tt.want {
			t.Errorf("MenuLabel(%+v) = %q, want %q", tt.e, got, tt.want)
		}
	}
}

func TestSetHotkeyText(t *testing.T) {
	tr := NewTray()
	tr.SetHotkeyText("window", "alt+3")
	tr.SetHotkeyText("teleport", "alt+9")
	for _, e := range tr.Entries() {
		want := ""
		if e.Action == "window" {
			want = "alt+3"
		}
		if e.Hotkey != want {
			t.Errorf("%s hotkey = %q, want %q", e.Action, e.Hotkey, want)
		}
	}
	if len(tr.Entries()) != 4 {
		t.Fatalf("entries = %d, want 4", len(tr.Entries()))
	}
}

func TestIcon(t *testing.T) {
	img, err := png.Decode(bytes.NewReader(iconPNG))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 16 {
		t.Fatalf("icon bounds = %v", b)
	}
	if _, _, _, a := img.At(0, 0).RGBA(); a != 0 {
		t.Fatal("corner should be transparent")
	}

	ico := iconICO
	if got := binary.LittleEndian.Uint16(ico[2:4]); got != 1 {
		t.Fatalf("ico type = %d", got)
	}
	size := binary.LittleEndian.Uint32(ico[14:18])
	off := binary.LittleEndian.Uint32(ico[18:22])
	if int(off+size) != len(ico) {
		t.Fatalf("ico entry %d+%d overruns %d bytes", off, size, len(ico))
	}
	if _, err := png.Decode(bytes.NewReader(ico[off:])); err != nil {
		t.Fatalf("ico payload: %v", err)
	}
	if len(getIcon()) == 0 {
		t.Fatal("no icon for this platform")
	}
}
