package capture

import (
	"errors"
	"fmt"
	"image"

	"snapdesk/internal/framebuffer"
)

// Handle 原生窗口句柄 (Windows 上是 HWND)
type Handle uintptr

// TargetKind 截图目标类型
type TargetKind int

const (
	KindFullVirtualDesktop TargetKind = iota // 所有活动显示器的并集
	KindPrimaryDisplay                       // 只截主显示器
	KindWindow                               // 单个顶层窗口
)

func (k TargetKind) String() string {
	switch k {
	case KindFullVirtualDesktop:
		return "full-virtual-desktop"
	case KindPrimaryDisplay:
		return "primary-display"
	case KindWindow:
		return "window"
	}
	return fmt.Sprintf("TargetKind(%d)", int(k))
}

// Target 创建后不可变. 几何信息在截图时由策略解析, 因为窗口在请求和执行之间可能移动.
type Target struct {
	kind   TargetKind
	handle Handle
}

// FullVirtualDesktop 截取所有显示器
func FullVirtualDesktop() Target { return Target{kind: KindFullVirtualDesktop} }

// PrimaryDisplay 截取主显示器
func PrimaryDisplay() Target { return Target{kind: KindPrimaryDisplay} }

// Window 截取单个窗口
func Window(h Handle) Target { return Target{kind: KindWindow, handle: h} }

func (t Target) Kind() TargetKind { return t.kind }
func (t Target) Handle() Handle   { return t.handle }

func (t Target) String() string {
	if t.kind == KindWindow {
		return fmt.Sprintf("window(0x%X)", uintptr(t.handle))
	}
	return t.kind.String()
}

// StrategyID 截图方式名称
type StrategyID string

const (
	StrategyDisplayCompositor   StrategyID = "display-compositor"
	StrategyWindowDeviceContext StrategyID = "window-device-context"
	StrategyPlatformFallback    StrategyID = "platform-fallback"
)

var (
	// ErrInvalidTarget 目标几何无效, 或者是本程序自己的窗口
	ErrInvalidTarget = errors.New("capture: invalid target")
	// ErrNoDisplays 没有可用显示器
	ErrNoDisplays = errors.New("capture: no active displays")
	// ErrEmptyFrame 策略没有返回可用画面
	ErrEmptyFrame = errors.New("capture: empty frame")
	// ErrUnsupported 当前平台没有该策略的实现
	ErrUnsupported = errors.New("capture: unsupported on this platform")

	ErrAllStrategiesExhausted = errors.New("capture: all strategies exhausted")
	ErrTimeout                = errors.New("capture: timed out")
)

// Strategy 为目标生成一帧画面. 实现除了系统调用本身, 不能改动程序状态
type Strategy interface {
	ID() StrategyID
	Capture(target Target) (*framebuffer.FrameBuffer, error)
}

// Result 一次策略尝试的结果: 成功时有 Frame, 否则有 Err
type Result struct {
	Strategy StrategyID
	Frame    *framebuffer.FrameBuffer
	Err      error
}

// OK 是否成功
func (r Result) OK() bool { return r.Err == nil && r.Frame != nil }

// FailedError 包装策略失败
type FailedError struct {
	Strategy StrategyID
	Reason   error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("capture strategy %s failed: %v", e.Strategy, e.Reason)
}

func (e *FailedError) Unwrap() error { return e.Reason }

// Display 虚拟桌面坐标下的一个显示器
type Display struct {
	Index  int
	Bounds image.Rectangle
}

// Displays 枚举并截取显示器
type Displays interface {
	List() []Display
	CaptureDisplay(index int) (*image.RGBA, error)
	CaptureRect(r image.Rectangle) (*image.RGBA, error)
}

// VirtualBounds 所有显示器边界的并集
func VirtualBounds(displays []Display) image.Rectangle {
	var union image.Rectangle
	for i, d := range displays {
		if i == 0 {
			union = d.Bounds
			continue
		}
		union = union.Union(d.Bounds)
	}
	return union
}

// Windows 读取窗口几何和像素
type Windows interface {
	// Rect 虚拟桌面坐标下的窗口矩形
	Rect(h Handle) (image.Rectangle, error)
	Title(h Handle) string
	// Grab 复制窗口内容, 包括分层和硬件加速的表面
	Grab(h Handle, r image.Rectangle) (*image.RGBA, error)
}

// ForegroundResolver 查找"窗口"截图的目标窗口
type ForegroundResolver interface {
	Foreground() Handle
	IsOwn(h Handle) bool
}

func checkFrame(img *image.RGBA, err error) (*framebuffer.FrameBuffer, error) {
	if err != nil {
		return nil, err
	}
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyFrame
	}
	return framebuffer.FromImage(img, framebuffer.RGBA32)
}
