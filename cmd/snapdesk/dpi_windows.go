package main

import "golang.org/x/sys/windows"

// 必须在创建任何窗口或 DC 之前设置 Per-monitor DPI 感知, 否则截图和遮罩坐标会被缩放
func init() {
	user32 := windows.NewLazySystemDLL("user32.dll")

	// Windows 10 1703+
	ctx := user32.NewProc("SetProcessDpiAwarenessContext")
	if ctx.Find() == nil {
		// 优先 DPI_AWARENESS_CONTEXT_PER_MONITOR_AWARE_V2 (-4), 失败再用 V1 (-3)
		if r, _, _ := ctx.Call(^uintptr(3)); r != 0 {
			return
		}
		if r, _, _ := ctx.Call(^uintptr(2)); r != 0 {
			return
		}
	}

	// Windows 8.1+
	shcore := windows.NewLazySystemDLL("shcore.dll")
	awareness := shcore.NewProc("SetProcessDpiAwareness")
	if awareness.Find() == nil {
		// PROCESS_PER_MONITOR_DPI_AWARE; E_ACCESSDENIED 表示已经设置过
		if r, _, _ := awareness.Call(2); r == 0 {
			return
		}
		awareness.Call(1)
		return
	}

	user32.NewProc("SetProcessDPIAware").Call()
}
