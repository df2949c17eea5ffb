// Package clipboard 通过 golang.design/x/clipboard 把截图和文字放到系统剪贴板
package clipboard

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"sync"

	"golang.design/x/clipboard"
)

// Clipboard 系统剪贴板
type Clipboard interface {
	SetImage(img image.Image) error
	SetText(text string) error
}

// System 进程剪贴板, 首次使用时初始化
type System struct {
	once    sync.Once
	initErr error

	init  func() error
	write func(clipboard.Format, []byte) <-chan struct{}
}

// NewClipboard 返回系统剪贴板
func NewClipboard() *System {
	return &System{
		init:  clipboard.Init,
		write: clipboard.Write,
	}
}

func (c *System) ready() error {
	c.once.Do(func() {
		if err := c.init(); err != nil {
			c.initErr = fmt.Errorf("clipboard unavailable: %w", err)
		}
	})
	return c.initErr
}

// SetImage 以 PNG 复制 img, Windows 上由库转换成原生位图格式
func (c *System) SetImage(img image.Image) error {
	if err := c.ready(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode clipboard image: %w", err)
	}
	c.write(clipboard.FmtImage, buf.Bytes())
	return nil
}

// SetText 用 text 替换剪贴板内容
func (c *System) SetText(text string) error {
	if err := c.ready(); err != nil {
		return err
	}
	c.write(clipboard.FmtText, []byte(text))
	return nil
}
