// Package storage 把截图写入磁盘并清理旧文件
package storage

import (
	"errors"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/bmp"
)

// Format 输出文件格式
type Format string

const (
	FormatPNG Format = "png"
	FormatJPG Format = "jpg"
	FormatBMP Format = "bmp"
	FormatGIF Format = "gif"
)

// Formats 支持的格式
var Formats = []Format{FormatPNG, FormatJPG, FormatBMP, FormatGIF}

// ParseFormat 解析格式名或扩展名, 包括 "jpeg"
func ParseFormat(s string) (Format, error) {
	f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "."))
	if f == "jpeg" {
		f = FormatJPG
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported image format %q", s)
}

const filePrefix = "screenshot_"

// Storage 把截图保存到一个目录下
type Storage struct {
	directory string
	format    Format
	quality   int
	now       func() time.Time
}

// NewStorage 返回 Storage, 未知格式退回 PNG
func NewStorage(directory string, format string, quality int) *Storage {
	f, err := ParseFormat(format)
	if err != nil {
		f = FormatPNG
	}
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	return &Storage{
		directory: ExpandHome(directory),
		format:    f,
		quality:   quality,
		now:       time.Now,
	}
}

// ExpandHome 展开开头的 ~
func ExpandHome(dir string) string {
	if strings.HasPrefix(dir, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, dir[1:])
		}
	}
	return dir
}

// Directory 存储目录
func (s *Storage) Directory() string { return s.directory }

// Format 配置的输出格式
func (s *Storage) Format() Format { return s.format }

// Save 把 img 写为 screenshot_<时间戳>.<扩展名> 并返回路径, 同一秒内用数字后缀区分
func (s *Storage) Save(img image.Image) (string, error) {
	return s.SaveAs(img, s.format)
}

// SaveAs 指定格式的 Save
func (s *Storage) SaveAs(img image.Image, format Format) (string, error) {
	if err := os.MkdirAll(s.directory, 0755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}

	file, path, err := s.createUnique(format)
	if err != nil {
		return "", err
	}

	if err := encode(file, img, format, s.quality); err != nil {
		file.Close()
		os.Remove(path)
		return "", fmt.Errorf("encode %s: %w", format, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

func (s *Storage) createUnique(format Format) (*os.File, string, error) {
	stamp := s.now().Format("20060102_150405")
	for n := 0; n < 1000; n++ {
		name := fmt.Sprintf("%s%s.%s", filePrefix, stamp, format)
		if n > 0 {
			name = fmt.Sprintf("%s%s_%d.%s", filePrefix, stamp, n, format)
		}
		path := filepath.Join(s.directory, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("create file: %w", err)
		}
	}
	return nil, "", fmt.Errorf("no free file name for %s", stamp)
}

func encode(w io.Writer, img image.Image, format Format, quality int) error {
	switch format {
	case FormatJPG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatGIF:
		b := img.Bounds()
		p := image.NewPaletted(b, palette.Plan9)
		draw.FloydSteinberg.Draw(p, b, img, b.Min)
		return gif.Encode(w, p, nil)
	default:
		return png.Encode(w, img)
	}
}

// Cleanup 删除早于 olderThan 的截图, 返回删除数量. 不是 Save 写的文件不动
func (s *Storage) Cleanup(olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(s.directory)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := s.now().Add(-olderThan)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), filePrefix) {
			continue
		}
		if _, err := ParseFormat(filepath.Ext(entry.Name())); err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if os.Remove(filepath.Join(s.directory, entry.Name())) == nil {
				removed++
			}
		}
	}
	return removed, nil
}
