//go:build windows

package overlay

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/rs/zerolog"
	"golang.org/x/sys/windows"

	"snapdesk/internal/framebuffer"
	"snapdesk/internal/input"
	"snapdesk/internal/logger"
	"snapdesk/internal/ownerthread"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	gdi32    = windows.NewLazySystemDLL("gdi32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	getModuleHandle     = kernel32.NewProc("GetModuleHandleW")
	registerClassExW    = user32.NewProc("RegisterClassExW")
	createWindowExW     = user32.NewProc("CreateWindowExW")
	showWindow          = user32.NewProc("ShowWindow")
	updateWindow        = user32.NewProc("UpdateWindow")
	destroyWindow       = user32.NewProc("DestroyWindow")
	setForegroundWindow = user32.NewProc("SetForegroundWindow")
	setFocus            = user32.NewProc("SetFocus")
	defWindowProcW      = user32.NewProc("DefWindowProcW")
	postQuitMessage     = user32.NewProc("PostQuitMessage")
	postMessageW        = user32.NewProc("PostMessageW")
	getMessageW         = user32.NewProc("GetMessageW")
	peekMessageW        = user32.NewProc("PeekMessageW")
	translateMessage    = user32.NewProc("TranslateMessage")
	dispatchMessageW    = user32.NewProc("DispatchMessageW")
	setCapture          = user32.NewProc("SetCapture")
	releaseCapture      = user32.NewProc("ReleaseCapture")
	setCursor           = user32.NewProc("SetCursor")
	loadCursorW         = user32.NewProc("LoadCursorW")
	invalidateRect      = user32.NewProc("InvalidateRect")
	beginPaint          = user32.NewProc("BeginPaint")
	endPaint            = user32.NewProc("EndPaint")
	getSystemMetrics    = user32.NewProc("GetSystemMetrics")
	getKeyState         = user32.NewProc("GetKeyState")

	createCompatibleDC = gdi32.NewProc("CreateCompatibleDC")
	createDIBSection   = gdi32.NewProc("CreateDIBSection")
	selectObject       = gdi32.NewProc("SelectObject")
	bitBlt             = gdi32.NewProc("BitBlt")
	deleteDC           = gdi32.NewProc("DeleteDC")
	deleteObject       = gdi32.NewProc("DeleteObject")
)

const (
	wsPopup        = 0x80000000
	wsVisible      = 0x10000000
	wsExTopmost    = 0x00000008
	wsExToolWindow = 0x00000080

	swShow = 5

	wmDestroy     = 0x0002
	wmQuit        = 0x0012
	pmRemove      = 0x0001
	wmClose       = 0x0010
	wmPaint       = 0x000F
	wmEraseBkgnd  = 0x0014
	wmSetCursor   = 0x0020
	wmKeyDown     = 0x0100
	wmMouseMove   = 0x0200
	wmLButtonDown = 0x0201
	wmLButtonUp   = 0x0202
	wmRButtonDown = 0x0204
	wmRButtonUp   = 0x0205
	wmMButtonDown = 0x0207
	wmMButtonUp   = 0x0208

	vkReturn  = 0x0D
	vkControl = 0x11
	vkShift   = 0x10
	vkEscape  = 0x1B

	idcCross = 32515

	smXVirtualScreen = 76
	smYVirtualScreen = 77

	srcCopy      = 0x00CC0020
	biRGB        = 0
	dibRGBColors = 0
)

type wndClassEx struct {
	CbSize        uint32
	Style         uint32
	LpfnWndProc   uintptr
	CbClsExtra    int32
	CbWndExtra    int32
	HInstance     uintptr
	HIcon         uintptr
	HCursor       uintptr
	HbrBackground uintptr
	LpszMenuName  *uint16
	LpszClassName *uint16
	HIconSm       uintptr
}

type point struct{ X, Y int32 }

type msg struct {
	HWnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      point
}

type rect struct{ Left, Top, Right, Bottom int32 }

type paintStruct struct {
	Hdc         uintptr
	FErase      int32
	RcPaint     rect
	FRestore    int32
	FIncUpdate  int32
	RgbReserved [32]byte
}

type bitmapInfoHeader struct {
	BiSize          uint32
	BiWidth         int32
	BiHeight        int32
	BiPlanes        uint16
	BiBitCount      uint16
	BiCompression   uint32
	BiSizeImage     uint32
	BiXPelsPerMeter int32
	BiYPelsPerMeter int32
	BiClrUsed       uint32
	BiClrImportant  uint32
}

type bitmapInfo struct {
	BmiHeader bitmapInfoHeader
	BmiColors [1]uint32
}

var (
	// ErrBusy 另一个遮罩还在屏幕上时 Open 返回
	ErrBusy = errors.New("overlay: another overlay is open")
	// ErrCreateWindow 无法创建弹出窗口
	ErrCreateWindow = errors.New("overlay: cannot create window")
)

// closeWait Open 等待上一个窗口退出的最长时间
const closeWait = 2 * time.Second

var (
	active     atomic.Pointer[Window]
	classOnce  sync.Once
	classErr   error
	className  = windows.StringToUTF16Ptr("SnapDeskOverlay")
	crossCurs  uintptr
	wndProcPtr uintptr
)

// Window 覆盖整个虚拟桌面的无边框置顶弹出窗口. 消息循环作为任务运行在 UI 线程上,
// 直到窗口销毁才释放该线程.
type Window struct {
	title *uint16
	ui    *ownerthread.Queue
	log   zerolog.Logger

	mu       sync.Mutex
	hwnd     uintptr
	composer *Composer
	handler  input.Handler
	closing  bool
	done     chan struct{}
	// 工具栏点击后的抬起事件不转发
	swallowUp bool

	// 后备缓冲, 归窗口线程所有
	memDC  uintptr
	bitmap uintptr
	bits   uintptr
}

// New 返回关闭状态的遮罩窗口, 标题为 title, 消息循环在 ui 上运行
func New(title string, ui *ownerthread.Queue) *Window {
	return &Window{
		title: windows.StringToUTF16Ptr(title),
		ui:    ui,
		log:   logger.WithComponent("overlay"),
	}
}

func registerClass() error {
	classOnce.Do(func() {
		hInstance, _, _ := getModuleHandle.Call(0)
		crossCurs, _, _ = loadCursorW.Call(0, idcCross)
		wndProcPtr = windows.NewCallback(wndProc)

		var wc wndClassEx
		wc.CbSize = uint32(unsafe.Sizeof(wc))
		wc.LpfnWndProc = wndProcPtr
		wc.HInstance = hInstance
		wc.HCursor = crossCurs
		wc.LpszClassName = className
		if r, _, err := registerClassExW.Call(uintptr(unsafe.Pointer(&wc))); r == 0 {
			classErr = fmt.Errorf("register overlay class: %w", err)
		}
	})
	return classErr
}

// Open 实现 session.Overlay
func (w *Window) Open(plate *framebuffer.FrameBuffer, h input.Handler) error {
	if err := registerClass(); err != nil {
		return err
	}

	w.mu.Lock()
	prev := w.done
	w.mu.Unlock()
	if prev != nil {
		select {
		case <-prev:
		case <-time.After(closeWait):
			return ErrBusy
		}
	}
	if !active.CompareAndSwap(nil, w) {
		return ErrBusy
	}

	done := make(chan struct{})
	w.mu.Lock()
	w.composer = NewComposer(plate)
	w.handler = h
	w.closing = false
	w.done = done
	w.mu.Unlock()

	ready := make(chan error, 1)
	if _, err := w.ui.Post(func() { w.loop(plate.Width, plate.Height, ready, done) }); err != nil {
		w.mu.Lock()
		w.composer, w.handler, w.done = nil, nil, nil
		w.mu.Unlock()
		active.CompareAndSwap(w, nil)
		return fmt.Errorf("start overlay: %w", err)
	}
	return <-ready
}

// loop 运行在 UI 线程上
func (w *Window) loop(width, height int, ready chan<- error, done chan struct{}) {
	defer close(done)
	drainQuitMessages()

	x, _, _ := getSystemMetrics.Call(smXVirtualScreen)
	y, _, _ := getSystemMetrics.Call(smYVirtualScreen)
	hInstance, _, _ := getModuleHandle.Call(0)

	hwnd, _, err := createWindowExW.Call(
		wsExTopmost|wsExToolWindow,
		uintptr(unsafe.Pointer(className)),
		uintptr(unsafe.Pointer(w.title)),
		wsPopup|wsVisible,
		uintptr(int32(x)), uintptr(int32(y)),
		uintptr(width), uintptr(height),
		0, 0, hInstance, 0,
	)
	if hwnd == 0 {
		w.mu.Lock()
		w.composer, w.handler = nil, nil
		w.mu.Unlock()
		active.CompareAndSwap(w, nil)
		ready <- fmt.Errorf("%w: %v", ErrCreateWindow, err)
		return
	}

	w.mu.Lock()
	w.hwnd = hwnd
	w.mu.Unlock()

	showWindow.Call(hwnd, swShow)
	updateWindow.Call(hwnd)
	setForegroundWindow.Call(hwnd)
	setFocus.Call(hwnd)
	w.log.Debug().Int("width", width).Int("height", height).Msg("overlay opened")
	ready <- nil

	var m msg
	for {
		r, _, _ := getMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		// 0 表示 WM_QUIT, -1 表示出错
		if r == 0 || int32(r) == -1 {
			break
		}
		translateMessage.Call(uintptr(unsafe.Pointer(&m)))
		dispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
	}

	w.releaseBackBuffer()
	w.mu.Lock()
	closing, h := w.closing, w.handler
	w.hwnd, w.composer, w.handler = 0, nil, nil
	w.mu.Unlock()
	active.CompareAndSwap(w, nil)
	w.log.Debug().Bool("requested", closing).Msg("overlay closed")

	if !closing && h != nil {
		// 协调器可能正忙, 不能阻塞本线程
		go h.Closed()
	}
}

// ShowSelection 实现 session.Overlay
func (w *Window) ShowSelection(r image.Rectangle) {
	w.mu.Lock()
	if w.composer == nil {
		w.mu.Unlock()
		return
	}
	dirty := w.composer.SetSelection(r)
	hwnd := w.hwnd
	w.mu.Unlock()
	invalidate(hwnd, dirty)
}

// ShowEdit 实现 session.Overlay
func (w *Window) ShowEdit(preview *framebuffer.FrameBuffer, at image.Rectangle, st input.EditState) {
	w.mu.Lock()
	if w.composer == nil {
		w.mu.Unlock()
		return
	}
	dirty := w.composer.SetEdit(preview, at, st)
	hwnd := w.hwnd
	w.mu.Unlock()
	invalidate(hwnd, dirty)
}

// Close 实现 session.Overlay, 不等待窗口线程退出
func (w *Window) Close() {
	w.mu.Lock()
	w.closing = true
	hwnd := w.hwnd
	w.mu.Unlock()
	if hwnd != 0 {
		postMessageW.Call(hwnd, wmClose, 0, 0)
	}
}

func invalidate(hwnd uintptr, r image.Rectangle) {
	if hwnd == 0 || r.Empty() {
		return
	}
	rc := rect{Left: int32(r.Min.X), Top: int32(r.Min.Y), Right: int32(r.Max.X), Bottom: int32(r.Max.Y)}
	invalidateRect.Call(hwnd, uintptr(unsafe.Pointer(&rc)), 0)
}

func (w *Window) ensureBackBuffer(hdc uintptr, width, height int) bool {
	if w.memDC != 0 {
		return true
	}
	w.memDC, _, _ = createCompatibleDC.Call(hdc)
	if w.memDC == 0 {
		return false
	}
	var bi bitmapInfo
	bi.BmiHeader.BiSize = uint32(unsafe.Sizeof(bi.BmiHeader))
	bi.BmiHeader.BiWidth = int32(width)
	bi.BmiHeader.BiHeight = -int32(height) // 自上而下
	bi.BmiHeader.BiPlanes = 1
	bi.BmiHeader.BiBitCount = 32
	bi.BmiHeader.BiCompression = biRGB

	w.bitmap, _, _ = createDIBSection.Call(w.memDC, uintptr(unsafe.Pointer(&bi)), dibRGBColors,
		uintptr(unsafe.Pointer(&w.bits)), 0, 0)
	if w.bitmap == 0 {
		w.releaseBackBuffer()
		return false
	}
	selectObject.Call(w.memDC, w.bitmap)
	return true
}

func (w *Window) releaseBackBuffer() {
	if w.bitmap != 0 {
		deleteObject.Call(w.bitmap)
		w.bitmap = 0
	}
	if w.memDC != 0 {
		deleteDC.Call(w.memDC)
		w.memDC = 0
	}
	w.bits = 0
}

func (w *Window) paint(hwnd uintptr) {
	var ps paintStruct
	hdc, _, _ := beginPaint.Call(hwnd, uintptr(unsafe.Pointer(&ps)))
	defer endPaint.Call(hwnd, uintptr(unsafe.Pointer(&ps)))

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.composer == nil {
		return
	}
	width, height := w.composer.Size()
	if !w.ensureBackBuffer(hdc, width, height) {
		w.log.Error().Msg("overlay back buffer allocation failed")
		return
	}
	w.composer.Compose(unsafe.Slice((*byte)(unsafe.Pointer(w.bits)), width*height*4))
	bitBlt.Call(hdc, 0, 0, uintptr(width), uintptr(height), w.memDC, 0, 0, srcCopy)
}

func pointFromLParam(lParam uintptr) image.Point {
	return image.Pt(int(int16(lParam&0xFFFF)), int(int16((lParam>>16)&0xFFFF)))
}

func keyDown(vk uintptr) bool {
	r, _, _ := getKeyState.Call(vk)
	return int16(r) < 0
}

// translateKey 把虚拟键转换为会话使用的按键
func translateKey(vk uintptr, ctrl, shift bool) (input.Key, bool) {
	switch {
	case vk == vkEscape:
		return input.KeyEscape, true
	case vk == vkReturn:
		return input.KeyEnter, true
	case ctrl && vk == 'Z' && shift, ctrl && vk == 'Y':
		return input.KeyRedo, true
	case ctrl && vk == 'Z':
		return input.KeyUndo, true
	case ctrl:
		return 0, false
	}
	switch vk {
	case 'P':
		return input.KeyToolPen, true
	case 'A':
		return input.KeyToolArrow, true
	case 'T':
		return input.KeyToolText, true
	case 'M':
		return input.KeyToolMosaic, true
	case 'R':
		return input.KeyToolRect, true
	case 'E':
		return input.KeyToolEllipse, true
	case 'F':
		return input.KeyFill, true
	}
	if vk >= '1' && vk <= '8' {
		return input.KeyColor + input.Key(vk-'1'), true
	}
	return 0, false
}

func wndProc(hwnd, message, wParam, lParam uintptr) uintptr {
	w := active.Load()
	if w == nil {
		r, _, _ := defWindowProcW.Call(hwnd, message, wParam, lParam)
		return r
	}
	w.mu.Lock()
	own := w.hwnd == hwnd
	h := w.handler
	closing := w.closing
	w.mu.Unlock()
	if !own {
		r, _, _ := defWindowProcW.Call(hwnd, message, wParam, lParam)
		return r
	}

	switch message {
	case wmPaint:
		w.paint(hwnd)
		return 0

	case wmEraseBkgnd:
		return 1

	case wmSetCursor:
		w.mu.Lock()
		editing := w.composer != nil && w.composer.Editing()
		w.mu.Unlock()
		if editing {
			setCursor.Call(crossCurs)
		} else {
			// 十字线画在帧里
			setCursor.Call(0)
		}
		return 1

	case wmMouseMove:
		p := pointFromLParam(lParam)
		w.mu.Lock()
		var dirty image.Rectangle
		if w.composer != nil {
			dirty = w.composer.SetCursor(p)
		}
		w.mu.Unlock()
		invalidate(hwnd, dirty)
		if !closing {
			h.PointerMove(p)
		}
		return 0

	case wmLButtonDown, wmRButtonDown, wmMButtonDown:
		p := pointFromLParam(lParam)
		w.mu.Lock()
		var key input.Key
		onBar := false
		if w.composer != nil {
			key, onBar = w.composer.ToolbarHit(p)
		}
		w.swallowUp = onBar
		w.mu.Unlock()
		if closing {
			return 0
		}
		if onBar {
			if key >= 0 && message == wmLButtonDown {
				h.KeyPress(key)
			}
			return 0
		}
		setCapture.Call(hwnd)
		h.PointerDown(p, buttonFor(message))
		return 0

	case wmLButtonUp, wmRButtonUp, wmMButtonUp:
		releaseCapture.Call()
		w.mu.Lock()
		swallow := w.swallowUp
		w.swallowUp = false
		w.mu.Unlock()
		if !closing && !swallow {
			h.PointerUp(pointFromLParam(lParam), buttonFor(message))
		}
		return 0

	case wmKeyDown:
		if k, ok := translateKey(wParam, keyDown(vkControl), keyDown(vkShift)); ok && !closing {
			h.KeyPress(k)
		}
		return 0

	case wmClose:
		destroyWindow.Call(hwnd)
		return 0

	case wmDestroy:
		// 结束本窗口的消息循环, 下一个窗口启动前会清掉残留的 WM_QUIT
		postQuitMessage.Call(0)
		return 0
	}

	r, _, _ := defWindowProcW.Call(hwnd, message, wParam, lParam)
	return r
}

// drainQuitMessages 清理 UI 线程消息队列中残留的 WM_QUIT
func drainQuitMessages() {
	var m msg
	for {
		r, _, _ := peekMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, wmQuit, wmQuit, pmRemove)
		if r == 0 {
			return
		}
	}
}

func buttonFor(message uintptr) input.Button {
	switch message {
	case wmRButtonDown, wmRButtonUp:
		return input.ButtonSecondary
	case wmMButtonDown, wmMButtonUp:
		return input.ButtonMiddle
	}
	return input.ButtonPrimary
}
