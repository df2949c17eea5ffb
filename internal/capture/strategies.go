package capture

import (
	"fmt"
	"image"
	"strings"

	"snapdesk/internal/framebuffer"
)

// DisplayCompositor 逐个截取显示器, 按各自在虚拟桌面中的偏移拼合
type DisplayCompositor struct {
	Displays Displays
}

func (s *DisplayCompositor) ID() StrategyID { return StrategyDisplayCompositor }

func (s *DisplayCompositor) Capture(target Target) (*framebuffer.FrameBuffer, error) {
	displays := s.Displays.List()
	if len(displays) == 0 {
		return nil, ErrNoDisplays
	}
	switch target.Kind() {
	case KindPrimaryDisplay:
		displays = displays[:1]
	case KindFullVirtualDesktop:
	default:
		return nil, fmt.Errorf("%w: compositor cannot capture %s", ErrInvalidTarget, target)
	}

	union := VirtualBounds(displays)
	canvas, err := framebuffer.New(union.Dx(), union.Dy(), framebuffer.RGBA32)
	if err != nil {
		return nil, fmt.Errorf("%w: virtual desktop %v", ErrInvalidTarget, union)
	}

	for _, d := range displays {
		frame, err := checkFrame(s.Displays.CaptureDisplay(d.Index))
		if err != nil {
			return nil, fmt.Errorf("display %d: %w", d.Index, err)
		}
		at := d.Bounds.Sub(union.Min)
		canvas.Blit(at, frame, frame.Rect())
	}
	return canvas, nil
}

// WindowDeviceContext 直接从窗口设备上下文复制
type WindowDeviceContext struct {
	Windows Windows
	// OwnTitle 防止截到本程序自己的窗口
	OwnTitle string
}

func (s *WindowDeviceContext) ID() StrategyID { return StrategyWindowDeviceContext }

func (s *WindowDeviceContext) Capture(target Target) (*framebuffer.FrameBuffer, error) {
	if target.Kind() != KindWindow || target.Handle() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTarget, target)
	}
	h := target.Handle()

	r, err := s.Windows.Rect(h)
	if err != nil {
		return nil, err
	}
	if r.Dx() <= 0 || r.Dy() <= 0 {
		return nil, fmt.Errorf("%w: window rect %v", ErrInvalidTarget, r)
	}
	if IsOwnTitle(s.Windows.Title(h), s.OwnTitle) {
		return nil, fmt.Errorf("%w: refusing to capture own window", ErrInvalidTarget)
	}

	return checkFrame(s.Windows.Grab(h, r))
}

// PlatformFallback 通过通用截图接口一次截取整个矩形
type PlatformFallback struct {
	Displays Displays
	Windows  Windows
}

func (s *PlatformFallback) ID() StrategyID { return StrategyPlatformFallback }

func (s *PlatformFallback) Capture(target Target) (*framebuffer.FrameBuffer, error) {
	var r image.Rectangle
	switch target.Kind() {
	case KindWindow:
		if s.Windows == nil {
			return nil, ErrUnsupported
		}
		wr, err := s.Windows.Rect(target.Handle())
		if err != nil {
			return nil, err
		}
		r = wr
	case KindPrimaryDisplay, KindFullVirtualDesktop:
		displays := s.Displays.List()
		if len(displays) == 0 {
			return nil, ErrNoDisplays
		}
		if target.Kind() == KindPrimaryDisplay {
			displays = displays[:1]
		}
		r = VirtualBounds(displays)
	}
	if r.Dx() <= 0 || r.Dy() <= 0 {
		return nil, fmt.Errorf("%w: rect %v", ErrInvalidTarget, r)
	}
	return checkFrame(s.Displays.CaptureRect(r))
}

// IsOwnTitle 标题是否属于本程序
func IsOwnTitle(title, own string) bool {
	if own == "" || title == "" {
		return false
	}
	return strings.Contains(strings.ToLower(title), strings.ToLower(own))
}
