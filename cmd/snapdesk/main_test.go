package main

import (
	"image/color"
	"testing"

	"snapdesk/internal/annotate"
	"snapdesk/internal/config"
)

func TestSessionSettings(t *testing.T) {
	c := config.DefaultConfig()
	c.Editor.Tool = "mosaic"
	c.Editor.Color = "#00ff00"
	c.Editor.PenWidth = 5
	c.Editor.MosaicBlock = 16
	c.Editor.FontSize = 28
	c.Behavior.EditAfterCapture = false

	s := sessionSettings(c)
	if s.Tool != annotate.ToolMosaic {
		t.Errorf("tool = %v, want mosaic", s.Tool)
	}
	if s.Params.Color != (color.RGBA{0, 255, 0, 255}) {
		t.Errorf("color = %v", s.Params.Color)
	}
	if s.Params.Width != 5 || s.Params.Block != 16 || s.Params.FontSize != 28 {
		t.Errorf("params = %+v", s.Params)
	}
	if s.EditAfterCapture {
		t.Error("edit after capture should be off")
	}
}

func TestSessionSettingsFallbacks(t *testing.T) {
	c := config.DefaultConfig()
	c.Editor.Tool = "laser"
	c.Editor.Color = "nope"

	s := sessionSettings(c)
	if s.Tool != annotate.ToolPen {
		t.Errorf("tool = %v, want pen", s.Tool)
	}
	if s.Params.Color != annotate.DefaultParams().Color {
		t.Errorf("color = %v, want default", s.Params.Color)
	}
}
