package tray

import (
	_ "embed"
	"runtime"
)

// 托盘图标: Windows 用 ICO, 其他平台用 PNG
var (
	//go:embed icon.ico
	iconICO []byte
	//go:embed icon.png
	iconPNG []byte
)

func getIcon() []byte {
	if runtime.GOOS == "windows" {
		return iconICO
	}
	return iconPNG
}
