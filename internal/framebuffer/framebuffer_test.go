package framebuffer

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func gradient(t *testing.T, w, h int, format Format) *FrameBuffer {
	t.Helper()
	fb, err := New(w, h, format)
	if err != nil {
		t.Fatalf("New(%d,%d): %v", w, h, err)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fb.SetRGBA(x, y, color.RGBA{uint8(x * 7), uint8(y * 13), uint8(x + y), 255})
		}
	}
	return fb
}

func TestNewRejectsInvalidDimensions(t *testing.T) {
	for _, tc := range []struct{ w, h int }{{0, 1}, {1, 0}, {-3, 4}, {4, -1}} {
		if _, err := New(tc.w, tc.h, RGBA32); !errors.Is(err, ErrInvalidDimensions) {
			t.Errorf("New(%d,%d) err=%v, want ErrInvalidDimensions", tc.w, tc.h, err)
		}
	}
}

func TestNewStoreLength(t *testing.T) {
	for _, f := range []Format{RGB24, RGBA32} {
		fb, err := New(5, 3, f)
		if err != nil {
			t.Fatal(err)
		}
		if got, want := len(fb.Pix), 5*3*f.BytesPerPixel(); got != want {
			t.Errorf("%v: len(Pix)=%d want %d", f, got, want)
		}
	}
}

func TestCropFullRectRoundTrip(t *testing.T) {
	for _, f := range []Format{RGB24, RGBA32} {
		for _, size := range []image.Point{{1, 1}, {7, 3}, {32, 17}} {
			src := gradient(t, size.X, size.Y, f)
			out, err := src.Crop(src.Rect())
			if err != nil {
				t.Fatalf("crop: %v", err)
			}
			if !out.Equal(src) {
				t.Errorf("%v %v: full crop differs from source", f, size)
			}
			out.Pix[0] ^= 0xFF
			if out.Equal(src) {
				t.Errorf("%v %v: crop aliases source storage", f, size)
			}
		}
	}
}

func TestCropClampsAndRejectsEmpty(t *testing.T) {
	src := gradient(t, 10, 10, RGBA32)

	out, err := src.Crop(image.Rect(-5, 6, 4, 40))
	if err != nil {
		t.Fatal(err)
	}
	if out.Width != 4 || out.Height != 4 {
		t.Fatalf("clamped crop %dx%d, want 4x4", out.Width, out.Height)
	}
	if out.RGBAAt(0, 0) != src.RGBAAt(0, 6) {
		t.Errorf("crop origin pixel mismatch")
	}

	if _, err := src.Crop(image.Rect(20, 20, 30, 30)); !errors.Is(err, ErrEmptyRegion) {
		t.Errorf("off-canvas crop err=%v, want ErrEmptyRegion", err)
	}
	if _, err := src.Crop(image.Rect(3, 3, 3, 9)); !errors.Is(err, ErrEmptyRegion) {
		t.Errorf("zero width crop err=%v, want ErrEmptyRegion", err)
	}
}

func TestCopyIsIndependent(t *testing.T) {
	src := gradient(t, 4, 4, RGB24)
	dup := src.Copy()
	dup.SetRGBA(1, 1, color.RGBA{1, 2, 3, 255})
	if src.RGBAAt(1, 1) == dup.RGBAAt(1, 1) {
		t.Fatal("copy shares storage with source")
	}
}

func TestBlitTruncatesOffCanvas(t *testing.T) {
	dst, _ := New(10, 10, RGBA32)
	src, _ := New(4, 4, RGBA32)
	red := color.RGBA{255, 0, 0, 255}
	src.Fill(red)

	// 左上角在两个方向上各超出画布两个像素
	dst.Blit(image.Rect(-2, -2, 2, 2), src, src.Rect())
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			want := color.RGBA{}
			if x < 2 && y < 2 {
				want = red
			}
			if got := dst.RGBAAt(x, y); got != want {
				t.Fatalf("(%d,%d)=%v want %v", x, y, got, want)
			}
		}
	}

	// 右下角溢出和过大的源矩形都会被截断
	dst.Blit(image.Rect(8, 8, 20, 20), src, image.Rect(0, 0, 50, 50))
	if dst.RGBAAt(9, 9) != red || dst.RGBAAt(7, 9) != (color.RGBA{}) {
		t.Fatal("bottom-right blit not truncated to canvas")
	}
}

func TestBlitAcrossFormats(t *testing.T) {
	dst, _ := New(3, 3, RGB24)
	src, _ := New(3, 3, RGBA32)
	src.Fill(color.RGBA{9, 8, 7, 255})
	dst.Blit(dst.Rect(), src, src.Rect())
	if got := dst.RGBAAt(2, 2); got != (color.RGBA{9, 8, 7, 255}) {
		t.Fatalf("converted pixel %v", got)
	}
}

func TestPixelateBlockOneIsIdentity(t *testing.T) {
	src := gradient(t, 9, 6, RGBA32)
	out := src.Copy()
	out.Pixelate(1)
	if !out.Equal(src) {
		t.Fatal("block 1 changed pixels")
	}
	out.Pixelate(0)
	out.Pixelate(-4)
	if !out.Equal(src) {
		t.Fatal("non-positive block changed pixels")
	}
}

func TestPixelateCollapsesToAverage(t *testing.T) {
	out, _ := New(4, 4, RGBA32)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			c := color.RGBA{0, 0, 0, 255}
			if x < 2 {
				c = color.RGBA{200, 100, 50, 255}
			}
			out.SetRGBA(x, y, c)
		}
	}
	out.Pixelate(8)

	want := color.RGBA{100, 50, 25, 255}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if got := out.RGBAAt(x, y); got != want {
				t.Fatalf("(%d,%d)=%v want %v", x, y, got, want)
			}
		}
	}
}

func TestPixelateAlignsBlocksToOrigin(t *testing.T) {
	// 10x7 按 4 分块: 列宽 4,4,2, 行高 4,3
	src := gradient(t, 10, 7, RGB24)
	out := src.Copy()
	out.Pixelate(4)

	for y0 := 0; y0 < 7; y0 += 4 {
		for x0 := 0; x0 < 10; x0 += 4 {
			cell := image.Rect(x0, y0, x0+4, y0+4).Intersect(out.Rect())
			want := src.average(cell)
			for y := cell.Min.Y; y < cell.Max.Y; y++ {
				for x := cell.Min.X; x < cell.Max.X; x++ {
					if got := out.RGBAAt(x, y); got != want {
						t.Fatalf("cell %v at (%d,%d)=%v want %v", cell, x, y, got, want)
					}
				}
			}
		}
	}
	if out.RGBAAt(3, 0) == out.RGBAAt(4, 0) {
		t.Fatal("cells 0 and 1 merged")
	}
}

func TestFromImageTranslatesOrigin(t *testing.T) {
	img := image.NewRGBA(image.Rect(-4, 10, 0, 12))
	img.SetRGBA(-4, 10, color.RGBA{1, 2, 3, 255})
	img.SetRGBA(-1, 11, color.RGBA{4, 5, 6, 255})

	for _, f := range []Format{RGB24, RGBA32} {
		fb, err := FromImage(img, f)
		if err != nil {
			t.Fatal(err)
		}
		if fb.Width != 4 || fb.Height != 2 {
			t.Fatalf("%v: size %dx%d", f, fb.Width, fb.Height)
		}
		if fb.RGBAAt(0, 0) != (color.RGBA{1, 2, 3, 255}) || fb.RGBAAt(3, 1) != (color.RGBA{4, 5, 6, 255}) {
			t.Errorf("%v: pixels not translated", f)
		}
	}
}

func TestBlendHalfAlpha(t *testing.T) {
	fb, _ := New(1, 1, RGB24)
	fb.Fill(color.RGBA{0, 0, 0, 255})
	fb.Blend(0, 0, color.RGBA{254, 0, 0, 128})
	if got := fb.RGBAAt(0, 0).R; got < 120 || got > 135 {
		t.Fatalf("blended red %d", got)
	}
}
