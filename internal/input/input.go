// Package input 遮罩窗口和截图会话共用的指针和按键定义
package input

import (
	"fmt"
	"image"
)

// Button 指针按键
type Button int

const (
	ButtonPrimary Button = iota
	ButtonSecondary
	ButtonMiddle
)

// Key 遮罩转发的逻辑按键
type Key int

const (
	KeyEscape Key = iota
	KeyEnter
	KeyUndo
	KeyRedo
	KeyToolPen
	KeyToolArrow
	KeyToolText
	KeyToolMosaic
	KeyToolRect
	KeyToolEllipse
	KeyFill
)

// 调色板按键: 分组加上下标
const (
	KeyColor Key = 1 << 8
	KeyWidth Key = 2 << 8
	KeyFont  Key = 3 << 8
)

// Palette 把调色板按键拆成分组和下标
func (k Key) Palette() (group Key, index int, ok bool) {
	if k < KeyColor || k >= KeyFont+1<<8 {
		return 0, 0, false
	}
	return k &^ 0xff, int(k & 0xff), true
}

func (k Key) String() string {
	switch k {
	case KeyEscape:
		return "esc"
	case KeyEnter:
		return "enter"
	case KeyUndo:
		return "undo"
	case KeyRedo:
		return "redo"
	case KeyToolPen:
		return "pen"
	case KeyToolArrow:
		return "arrow"
	case KeyToolText:
		return "text"
	case KeyToolMosaic:
		return "mosaic"
	case KeyToolRect:
		return "rect"
	case KeyToolEllipse:
		return "ellipse"
	case KeyFill:
		return "fill"
	}
	if group, i, ok := k.Palette(); ok {
		name := map[Key]string{KeyColor: "color", KeyWidth: "width", KeyFont: "font"}[group]
		return fmt.Sprintf("%s%d", name, i)
	}
	return "unknown"
}

// EditState 编辑工具栏要高亮的状态. 当前值不在调色板中时下标为 -1
type EditState struct {
	Tool   Key
	Color  int
	Width  int
	Font   int
	Filled bool
}

// Handler 接收遮罩的输入, 坐标为 plate 坐标
type Handler interface {
	PointerDown(p image.Point, b Button)
	PointerMove(p image.Point)
	PointerUp(p image.Point, b Button)
	KeyPress(k Key)
	// Closed 遮罩窗口自行关闭时调用
	Closed()
}
