package overlay

import (
	"image"
	"image/color"
	"testing"

	"snapdesk/internal/annotate"
	"snapdesk/internal/framebuffer"
	"snapdesk/internal/input"
)

func solidPlate(t *testing.T, w, h int, c color.RGBA) *framebuffer.FrameBuffer {
	t.Helper()
	fb, err := framebuffer.New(w, h, framebuffer.RGBA32)
	if err != nil {
		t.Fatal(err)
	}
	fb.Fill(c)
	return fb
}

func bgraAt(buf []byte, w, x, y int) [4]byte {
	i := (y*w + x) * 4
	return [4]byte{buf[i], buf[i+1], buf[i+2], buf[i+3]}
}

func TestComposeDimsWithoutSelection(t *testing.T) {
	c := NewComposer(solidPlate(t, 40, 30, color.RGBA{200, 100, 50, 255}))
	w, h := c.Size()
	buf := make([]byte, w*h*4)
	c.Compose(buf)

	if got, want := bgraAt(buf, w, 5, 5), [4]byte{25, 50, 100, 255}; got != want {
		t.Fatalf("dimmed pixel = %v, want %v", got, want)
	}
}

func TestComposeSelection(t *testing.T) {
	plate := solidPlate(t, 200, 150, color.RGBA{200, 100, 50, 255})
	c := NewComposer(plate)
	sel := image.Rect(60, 60, 140, 120)
	dirty := c.SetSelection(sel)
	if !sel.In(dirty) {
		t.Fatalf("dirty %v does not cover selection %v", dirty, sel)
	}

	w, h := c.Size()
	buf := make([]byte, w*h*4)
	c.Compose(buf)

	tests := []struct {
		name string
		p    image.Point
		want [4]byte
	}{
		{"inside is full brightness", image.Pt(100, 90), [4]byte{50, 100, 200, 255}},
		{"border is green", image.Pt(60, 90), [4]byte{0, 200, 0, 255}},
		{"inner border row", image.Pt(100, 62), [4]byte{0, 200, 0, 255}},
		{"outside stays dim", image.Pt(10, 140), [4]byte{25, 50, 100, 255}},
	}
	for _, tt := range tests {
		if got := bgraAt(buf, w, tt.p.X, tt.p.Y); got != tt.want {
			t.Errorf("%s: pixel %v = %v, want %v", tt.name, tt.p, got, tt.want)
		}
	}

	// 尺寸标签在选区上方, 黑底白字
	_, box := c.labelBox(sel)
	if box.Max.Y > sel.Min.Y {
		t.Fatalf("label %v overlaps selection top %d", box, sel.Min.Y)
	}
	white := 0
	for y := box.Min.Y; y < box.Max.Y; y++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			if bgraAt(buf, w, x, y) == [4]byte{255, 255, 255, 255} {
				white++
			}
		}
	}
	if white == 0 {
		t.Fatal("label text not drawn")
	}
	if got := bgraAt(buf, w, box.Min.X, box.Min.Y); got != [4]byte{0, 0, 0, 255} {
		t.Fatalf("label corner = %v, want black", got)
	}
}

func TestLabelMovesInsideAtTopEdge(t *testing.T) {
	c := NewComposer(solidPlate(t, 100, 100, color.RGBA{A: 255}))
	sel := image.Rect(90, 0, 100, 40)
	_, box := c.labelBox(sel)
	if box.Min.Y < 0 || box.Max.X > 100 {
		t.Fatalf("label %v leaves the canvas", box)
	}
}

func TestSetSelectionReportsOldArea(t *testing.T) {
	c := NewComposer(solidPlate(t, 300, 300, color.RGBA{A: 255}))
	first := image.Rect(10, 50, 60, 90)
	c.SetSelection(first)
	dirty := c.SetSelection(image.Rect(200, 200, 250, 260))
	if !first.In(dirty) {
		t.Fatalf("dirty %v must include the previous selection %v", dirty, first)
	}
	dirty = c.SetSelection(image.Rectangle{})
	if dirty.Empty() {
		t.Fatal("clearing a selection must repaint it")
	}
}

func TestComposeEditPreview(t *testing.T) {
	// 足够大, 工具栏能放在截图下方
	c := NewComposer(solidPlate(t, 600, 400, color.RGBA{10, 10, 10, 255}))
	c.SetSelection(image.Rect(20, 20, 80, 70))
	preview := solidPlate(t, 60, 50, color.RGBA{255, 0, 0, 255})
	at := image.Rect(20, 20, 80, 70)
	c.SetEdit(preview, at, input.EditState{Tool: input.KeyToolPen})
	if !c.Editing() {
		t.Fatal("Editing() = false after SetEdit")
	}
	if d := c.SetCursor(image.Pt(50, 50)); !d.Empty() {
		t.Fatalf("crosshair should be hidden while editing, dirty %v", d)
	}

	w, h := c.Size()
	buf := make([]byte, w*h*4)
	c.Compose(buf)
	if got, want := bgraAt(buf, w, 50, 45), [4]byte{0, 0, 255, 255}; got != want {
		t.Fatalf("preview pixel = %v, want red in BGRA %v", got, want)
	}
	if got, want := bgraAt(buf, w, 5, 5), [4]byte{5, 5, 5, 255}; got != want {
		t.Fatalf("backdrop = %v, want dimmed %v", got, want)
	}
}

func TestCrosshair(t *testing.T) {
	c := NewComposer(solidPlate(t, 100, 100, color.RGBA{A: 255}))
	dirty := c.SetCursor(image.Pt(50, 50))
	if !image.Pt(50, 50).In(dirty) {
		t.Fatalf("dirty %v misses cursor", dirty)
	}
	moved := c.SetCursor(image.Pt(10, 10))
	if !image.Pt(50, 50).In(moved) || !image.Pt(10, 10).In(moved) {
		t.Fatalf("dirty %v must cover old and new cursor", moved)
	}

	buf := make([]byte, 100*100*4)
	c.Compose(buf)
	arm := 10 + crosshairGap + 1
	if got := bgraAt(buf, 100, 10, arm); got != [4]byte{0, 0, 255, 255} {
		t.Fatalf("arm pixel = %v, want red", got)
	}
	if got := bgraAt(buf, 100, 10, 10); got != [4]byte{0, 0, 0, 255} {
		t.Fatalf("centre gap = %v, want untouched", got)
	}
}

func TestToolbarLayout(t *testing.T) {
	tests := []struct {
		name  string
		shot  image.Rectangle
		check func(t *testing.T, bar, sub image.Rectangle)
	}{
		{"below, right aligned", image.Rect(400, 100, 900, 400), func(t *testing.T, bar, sub image.Rectangle) {
			if bar.Max.X != 900 || bar.Min.Y != 400+toolbarGap {
				t.Fatalf("bar = %v", bar)
			}
			if sub.Min.Y != bar.Max.Y+subGap {
				t.Fatalf("sub panel %v not under bar %v", sub, bar)
			}
		}},
		{"flips above at the bottom", image.Rect(400, 300, 900, 700), func(t *testing.T, bar, sub image.Rectangle) {
			if bar.Max.Y != 300-toolbarGap {
				t.Fatalf("bar = %v", bar)
			}
			if sub.Max.Y != bar.Min.Y-subGap {
				t.Fatalf("sub panel %v not above bar %v", sub, bar)
			}
		}},
		{"clamped at the left", image.Rect(0, 100, 50, 200), func(t *testing.T, bar, sub image.Rectangle) {
			if bar.Min.X != 0 || sub.Min.X < 0 {
				t.Fatalf("bar = %v sub = %v", bar, sub)
			}
		}},
		{"full screen shot overlaps", image.Rect(0, 0, 1000, 700), func(t *testing.T, bar, sub image.Rectangle) {
			if bar.Min.Y < 0 || bar.Max.Y > 700 || sub.Min.Y < 0 || sub.Max.Y > 700 {
				t.Fatalf("bar = %v sub = %v leaves the screen", bar, sub)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar, sub, buttons := layoutToolbar(tt.shot, 1000, 700, input.KeyToolRect)
			if bar.Dx() != toolbarWidth() || bar.Dy() != toolbarHeight || sub.Dy() != subHeight {
				t.Fatalf("bar size %v sub size %v", bar.Size(), sub.Size())
			}
			tt.check(t, bar, sub)
			// 10 个主按钮, 线宽, 颜色和填充开关
			want := 10 + len(annotate.DefaultLineWidths) + len(annotate.DefaultColors) + 1
			if len(buttons) != want {
				t.Fatalf("%d buttons, want %d", len(buttons), want)
			}
			for _, b := range buttons {
				if !b.rect.In(bar) && !b.rect.In(sub) {
					t.Fatalf("button %v %v outside both bars", b.key, b.rect)
				}
			}
		})
	}
}

func TestSubPanelPerTool(t *testing.T) {
	shot := image.Rect(100, 100, 800, 400)
	tests := []struct {
		tool  input.Key
		group input.Key
		n     int
		fill  bool
	}{
		{input.KeyToolPen, input.KeyWidth, len(annotate.DefaultLineWidths), false},
		{input.KeyToolText, input.KeyFont, len(annotate.DefaultFontSizes), false},
		{input.KeyToolEllipse, input.KeyWidth, len(annotate.DefaultLineWidths), true},
		{input.KeyToolMosaic, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.tool.String(), func(t *testing.T) {
			_, sub, buttons := layoutToolbar(shot, 1000, 700, tt.tool)
			if tt.tool == input.KeyToolMosaic {
				if !sub.Empty() || len(buttons) != 10 {
					t.Fatalf("mosaic sub panel %v with %d buttons", sub, len(buttons))
				}
				return
			}
			sizes, colours, fill := 0, 0, false
			for _, b := range buttons {
				if b.key == input.KeyFill {
					fill = true
				}
				if g, _, ok := b.key.Palette(); ok {
					switch g {
					case tt.group:
						sizes++
					case input.KeyColor:
						colours++
					default:
						t.Fatalf("unexpected %v for %v", b.key, tt.tool)
					}
				}
			}
			if sizes != tt.n || colours != len(annotate.DefaultColors) || fill != tt.fill {
				t.Fatalf("sizes=%d colours=%d fill=%v", sizes, colours, fill)
			}
		})
	}
}

func TestToolbarHit(t *testing.T) {
	c := NewComposer(solidPlate(t, 1000, 700, color.RGBA{A: 255}))
	if _, on := c.ToolbarHit(image.Pt(10, 10)); on {
		t.Fatal("no toolbar before editing")
	}
	at := image.Rect(100, 100, 800, 400)
	st := input.EditState{Tool: input.KeyToolRect, Color: 2, Width: 1, Font: -1}
	c.SetEdit(solidPlate(t, at.Dx(), at.Dy(), color.RGBA{A: 255}), at, st)

	for _, b := range c.buttons {
		key, on := c.ToolbarHit(b.rect.Min.Add(image.Pt(2, 2)))
		if !on || key != b.key {
			t.Fatalf("hit %v = (%v, %v)", b.key, key, on)
		}
	}
	if key, on := c.ToolbarHit(c.toolbar.Min); !on || key != -1 {
		t.Fatalf("bar padding = (%v, %v), want claimed with no key", key, on)
	}
	if key, on := c.ToolbarHit(c.sub.Min); !on || key != -1 {
		t.Fatalf("sub panel padding = (%v, %v), want claimed with no key", key, on)
	}
	if _, on := c.ToolbarHit(image.Pt(300, 200)); on {
		t.Fatal("canvas point claimed by toolbar")
	}

	w, _ := c.Size()
	buf := make([]byte, 1000*700*4)
	c.Compose(buf)
	if got := bgraAt(buf, w, c.toolbar.Min.X+1, c.toolbar.Min.Y+1); got != [4]byte{40, 40, 40, 255} {
		t.Fatalf("toolbar background = %v", got)
	}
	for _, b := range c.buttons {
		mid := b.rect.Min.Add(b.rect.Max).Div(2)
		switch {
		case b.key == input.KeyColor+2:
			sw := annotate.DefaultColors[2]
			if got := bgraAt(buf, w, mid.X, mid.Y); got != [4]byte{sw.B, sw.G, sw.R, 255} {
				t.Fatalf("swatch = %v, want %v in BGRA", got, sw)
			}
			if got := bgraAt(buf, w, b.rect.Min.X, b.rect.Min.Y); got != [4]byte{255, 255, 255, 255} {
				t.Fatalf("selected swatch not outlined: %v", got)
			}
		case b.key == input.KeyToolRect:
			if got := bgraAt(buf, w, b.rect.Min.X+1, b.rect.Min.Y+1); got != [4]byte{212, 120, 0, 255} {
				t.Fatalf("active tool background = %v", got)
			}
		case b.key == input.KeyToolPen:
			if got := bgraAt(buf, w, b.rect.Min.X+1, b.rect.Min.Y+1); got != [4]byte{70, 70, 70, 255} {
				t.Fatalf("idle tool background = %v", got)
			}
		}
	}
}
