package hotkey

import "golang.design/x/hotkey"

// 常见布局下 X11 把 alt 映射到 Mod1, super 键映射到 Mod4
var modifiers = map[string]hotkey.Modifier{
	"ctrl":  hotkey.ModCtrl,
	"alt":   hotkey.Mod1,
	"shift": hotkey.ModShift,
	"win":   hotkey.Mod4,
}
