//go:build !windows

package capture

import "image"

type unsupportedWindows struct{}

// NewWindows 返回平台窗口后端, 窗口截图只在 Windows 上实现
func NewWindows() Windows { return unsupportedWindows{} }

func (unsupportedWindows) Rect(Handle) (image.Rectangle, error) { return image.Rectangle{}, ErrUnsupported }
func (unsupportedWindows) Title(Handle) string                  { return "" }
func (unsupportedWindows) Grab(Handle, image.Rectangle) (*image.RGBA, error) {
	return nil, ErrUnsupported
}

type noForeground struct{}

// NewForeground 返回永远找不到窗口的解析器, 窗口截图转为全屏
func NewForeground(string) ForegroundResolver { return noForeground{} }

func (noForeground) Foreground() Handle { return 0 }
func (noForeground) IsOwn(Handle) bool  { return false }
