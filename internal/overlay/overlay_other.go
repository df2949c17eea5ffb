//go:build !windows

package overlay

import (
	"errors"
	"image"

	"snapdesk/internal/framebuffer"
	"snapdesk/internal/input"
	"snapdesk/internal/ownerthread"
)

// ErrUnsupported 没有遮罩实现的平台上 Open 返回
var ErrUnsupported = errors.New("overlay: not supported on this platform")

// Window 占位实现, 拒绝打开. 区域截图会失败, 全屏和快速截图仍然可用
type Window struct{}

// New 返回占位窗口
func New(string, *ownerthread.Queue) *Window { return &Window{} }

func (*Window) Open(*framebuffer.FrameBuffer, input.Handler) error { return ErrUnsupported }
func (*Window) ShowSelection(image.Rectangle)                       {}
func (*Window) ShowEdit(*framebuffer.FrameBuffer, image.Rectangle, input.EditState) {}
func (*Window) Close()                                              {}
