package storage

import (
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/image/bmp"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 16, 9))
	for y := 0; y < 9; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 16), uint8(y * 28), 200, 255})
		}
	}
	return img
}

func fixedStorage(t *testing.T, format string) *Storage {
	t.Helper()
	s := NewStorage(t.TempDir(), format, 90)
	s.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local) }
	return s
}

func TestSaveEachFormat(t *testing.T) {
	decoders := map[Format]func(*os.File) (image.Image, error){
		FormatPNG: func(f *os.File) (image.Image, error) { return png.Decode(f) },
		FormatJPG: func(f *os.File) (image.Image, error) { return jpeg.Decode(f) },
		FormatBMP: func(f *os.File) (image.Image, error) { return bmp.Decode(f) },
		FormatGIF: func(f *os.File) (image.Image, error) { return gif.Decode(f) },
	}
	for _, format := range Formats {
		t.Run(string(format), func(t *testing.T) {
			s := fixedStorage(t, string(format))
			path, err := s.Save(testImage())
			if err != nil {
				t.Fatal(err)
			}
			if want := "screenshot_20240309_140507." + string(format); filepath.Base(path) != want {
				t.Fatalf("name %s, want %s", filepath.Base(path), want)
			}
			f, err := os.Open(path)
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()
			img, err := decoders[format](f)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 9 {
				t.Fatalf("bounds %v", img.Bounds())
			}
		})
	}
}

func TestSaveUniqueWithinSecond(t *testing.T) {
	s := fixedStorage(t, "png")
	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		path, err := s.Save(testImage())
		if err != nil {
			t.Fatal(err)
		}
		if seen[path] {
			t.Fatalf("duplicate path %s", path)
		}
		seen[path] = true
	}
	if !seen[filepath.Join(s.Directory(), "screenshot_20240309_140507_2.png")] {
		t.Fatalf("suffix naming not used: %v", seen)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"PNG", FormatPNG, true},
		{".jpeg", FormatJPG, true},
		{"jpg", FormatJPG, true},
		{"bmp", FormatBMP, true},
		{"gif", FormatGIF, true},
		{"webp", "", false},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
	if NewStorage(t.TempDir(), "tiff", 0).Format() != FormatPNG {
		t.Error("unknown format did not fall back to png")
	}
}

func TestCleanupOnlyOldScreenshots(t *testing.T) {
	s := fixedStorage(t, "png")
	dir := s.Directory()
	old := s.now().Add(-72 * time.Hour)

	write := func(name string, mod time.Time) {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(p, mod, mod); err != nil {
			t.Fatal(err)
		}
	}
	write("screenshot_20240301_000000.png", old)
	write("screenshot_20240301_000001.jpg", old)
	write("notes.txt", old)
	write("screenshot_20240309_140000.png", s.now())

	removed, err := s.Cleanup(24 * time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Fatalf("removed %d, want 2", removed)
	}
	for _, keep := range []string{"notes.txt", "screenshot_20240309_140000.png"} {
		if _, err := os.Stat(filepath.Join(dir, keep)); err != nil {
			t.Errorf("%s removed", keep)
		}
	}
	if n, _ := s.Cleanup(0); n != 0 {
		t.Error("zero retention removed files")
	}
}
