package capture

import (
	"image"

	"github.com/kbinani/screenshot"
)

// ScreenDisplays 通过 kbinani/screenshot 枚举和截取显示器, 0 号是主显示器
type ScreenDisplays struct{}

func (ScreenDisplays) List() []Display {
	n := screenshot.NumActiveDisplays()
	displays := make([]Display, 0, n)
	for i := 0; i < n; i++ {
		b := screenshot.GetDisplayBounds(i)
		if b.Empty() {
			continue
		}
		displays = append(displays, Display{Index: i, Bounds: b})
	}
	return displays
}

func (ScreenDisplays) CaptureDisplay(index int) (*image.RGBA, error) {
	return screenshot.CaptureDisplay(index)
}

func (ScreenDisplays) CaptureRect(r image.Rectangle) (*image.RGBA, error) {
	return screenshot.CaptureRect(r)
}
