//go:build windows

package capture

import (
	"fmt"
	"image"
	"os"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")
	gdi32  = windows.NewLazySystemDLL("gdi32.dll")

	getWindowDC              = user32.NewProc("GetWindowDC")
	releaseDC                = user32.NewProc("ReleaseDC")
	getWindowRect            = user32.NewProc("GetWindowRect")
	getWindowTextW           = user32.NewProc("GetWindowTextW")
	getWindowTextLengthW     = user32.NewProc("GetWindowTextLengthW")
	getForegroundWindow      = user32.NewProc("GetForegroundWindow")
	getWindowThreadProcessID = user32.NewProc("GetWindowThreadProcessId")
	isWindowVisible          = user32.NewProc("IsWindowVisible")
	printWindow              = user32.NewProc("PrintWindow")

	createCompatibleDC = gdi32.NewProc("CreateCompatibleDC")
	createDIBSection   = gdi32.NewProc("CreateDIBSection")
	selectObject       = gdi32.NewProc("SelectObject")
	bitBlt             = gdi32.NewProc("BitBlt")
	deleteDC           = gdi32.NewProc("DeleteDC")
	deleteObject       = gdi32.NewProc("DeleteObject")
)

const (
	srcCopy             = 0x00CC0020
	captureBlt          = 0x40000000
	biRGB               = 0
	dibRGBColors        = 0
	pwRenderFullContent = 0x00000002
)

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

type rect struct {
	Left, Top, Right, Bottom int32
}

// Win32Windows 通过 user32 和 GDI 读取窗口
type Win32Windows struct{}

// NewWindows 返回平台窗口后端
func NewWindows() Windows { return Win32Windows{} }

func (Win32Windows) Rect(h Handle) (image.Rectangle, error) {
	var r rect
	ret, _, err := getWindowRect.Call(uintptr(h), uintptr(unsafe.Pointer(&r)))
	if ret == 0 {
		return image.Rectangle{}, fmt.Errorf("GetWindowRect: %v", err)
	}
	return image.Rect(int(r.Left), int(r.Top), int(r.Right), int(r.Bottom)), nil
}

func (Win32Windows) Title(h Handle) string {
	n, _, _ := getWindowTextLengthW.Call(uintptr(h))
	if n == 0 {
		return ""
	}
	buf := make([]uint16, n+1)
	getWindowTextW.Call(uintptr(h), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf)
}

// Grab 把窗口渲染到自上而下的 32 位 DIB. PrintWindow 加 PW_RENDERFULLCONTENT
// 能拿到 DirectComposition 和分层窗口的内容, 失败时改用 BitBlt 复制窗口 DC.
func (Win32Windows) Grab(h Handle, r image.Rectangle) (*image.RGBA, error) {
	w, ht := r.Dx(), r.Dy()

	hdcWin, _, err := getWindowDC.Call(uintptr(h))
	if hdcWin == 0 {
		return nil, fmt.Errorf("GetWindowDC: %v", err)
	}
	defer releaseDC.Call(uintptr(h), hdcWin)

	hdcMem, _, err := createCompatibleDC.Call(hdcWin)
	if hdcMem == 0 {
		return nil, fmt.Errorf("CreateCompatibleDC: %v", err)
	}
	defer deleteDC.Call(hdcMem)

	hBitmap, pBits, err := newDIBSection(hdcMem, w, ht)
	if err != nil {
		return nil, err
	}
	defer deleteObject.Call(hBitmap)

	old, _, _ := selectObject.Call(hdcMem, hBitmap)
	defer selectObject.Call(hdcMem, old)

	ok, _, _ := printWindow.Call(uintptr(h), hdcMem, pwRenderFullContent)
	if ok == 0 {
		ok, _, _ = bitBlt.Call(hdcMem, 0, 0, uintptr(w), uintptr(ht), hdcWin, 0, 0, srcCopy|captureBlt)
		if ok == 0 {
			return nil, fmt.Errorf("PrintWindow and BitBlt both failed")
		}
	}

	return decodeBGRA(pBits, w, ht), nil
}

func newDIBSection(hdc uintptr, w, h int) (uintptr, uintptr, error) {
	var bi bitmapInfo
	bi.BmiHeader.BiSize = uint32(unsafe.Sizeof(bi.BmiHeader))
	bi.BmiHeader.BiWidth = int32(w)
	bi.BmiHeader.BiHeight = -int32(h) // 自上而下
	bi.BmiHeader.BiPlanes = 1
	bi.BmiHeader.BiBitCount = 32
	bi.BmiHeader.BiCompression = biRGB

	var pBits uintptr
	hBitmap, _, _ := createDIBSection.Call(
		hdc,
		uintptr(unsafe.Pointer(&bi)),
		dibRGBColors,
		uintptr(unsafe.Pointer(&pBits)),
		0, 0,
	)
	if hBitmap == 0 || pBits == 0 {
		return 0, 0, fmt.Errorf("CreateDIBSection %dx%d failed", w, h)
	}
	return hBitmap, pBits, nil
}

// decodeBGRA 把 DIB 原始像素复制成不透明的 RGBA 图像
func decodeBGRA(pBits uintptr, w, h int) *image.RGBA {
	pixels := unsafe.Slice((*byte)(unsafe.Pointer(pBits)), w*h*4)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = pixels[i+2]
		img.Pix[i+1] = pixels[i+1]
		img.Pix[i+2] = pixels[i+0]
		img.Pix[i+3] = 255
	}
	return img
}

// Foreground 解析前台窗口, 通过 pid 或标题识别本进程自己的窗口
type Foreground struct {
	Windows  Windows
	OwnTitle string
}

// NewForeground 返回平台前台窗口解析器
func NewForeground(ownTitle string) ForegroundResolver {
	return &Foreground{Windows: Win32Windows{}, OwnTitle: ownTitle}
}

func (f *Foreground) Foreground() Handle {
	h, _, _ := getForegroundWindow.Call()
	if h == 0 {
		return 0
	}
	if vis, _, _ := isWindowVisible.Call(h); vis == 0 {
		return 0
	}
	return Handle(h)
}

func (f *Foreground) IsOwn(h Handle) bool {
	if h == 0 {
		return false
	}
	var pid uint32
	getWindowThreadProcessID.Call(uintptr(h), uintptr(unsafe.Pointer(&pid)))
	if pid != 0 && int(pid) == os.Getpid() {
		return true
	}
	return IsOwnTitle(strings.TrimSpace(f.Windows.Title(h)), f.OwnTitle)
}
