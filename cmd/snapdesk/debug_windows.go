package main

import (
	"unsafe"

	"github.com/rs/zerolog"
	"golang.org/x/sys/windows"
)

// logDPIInfo 记录最能解释坐标错位的系统指标
func logDPIInfo(log zerolog.Logger) {
	if zerolog.GlobalLevel() > zerolog.DebugLevel {
		return
	}
	user32 := windows.NewLazySystemDLL("user32.dll")
	shcore := windows.NewLazySystemDLL("shcore.dll")
	gsm := user32.NewProc("GetSystemMetrics")

	metric := func(i uintptr) int {
		r, _, _ := gsm.Call(i)
		// GetSystemMetrics 返回有符号整数
		return int(int32(r))
	}

	ev := log.Debug().
		Int("screen_w", metric(0)).
		Int("screen_h", metric(1)).
		Int("virtual_x", metric(76)).
		Int("virtual_y", metric(77)).
		Int("virtual_w", metric(78)).
		Int("virtual_h", metric(79))

	if p := user32.NewProc("GetDpiForSystem"); p.Find() == nil {
		dpi, _, _ := p.Call()
		ev = ev.Uint64("system_dpi", uint64(dpi)).Uint64("scale_pct", uint64(dpi*100/96))
	}
	if p := shcore.NewProc("GetProcessDpiAwareness"); p.Find() == nil {
		var awareness uint32
		p.Call(0, uintptr(unsafe.Pointer(&awareness)))
		ev = ev.Uint32("process_awareness", awareness)
	}
	ev.Msg("display metrics")
}
