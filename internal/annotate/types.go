package annotate

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"
)

// Tool 标注工具类型
type Tool int

const (
	ToolPen Tool = iota
	ToolArrow
	ToolText
	ToolMosaic
	ToolRect
	ToolEllipse
	ToolCount
)

var toolNames = [ToolCount]string{
	ToolPen:     "pen",
	ToolArrow:   "arrow",
	ToolText:    "text",
	ToolMosaic:  "mosaic",
	ToolRect:    "rect",
	ToolEllipse: "ellipse",
}

func (t Tool) String() string {
	if t >= 0 && t < ToolCount {
		return toolNames[t]
	}
	return fmt.Sprintf("Tool(%d)", int(t))
}

// ParseTool Tool.String 的反向解析
func ParseTool(s string) (Tool, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range toolNames {
		if name == s {
			return Tool(i), nil
		}
	}
	return 0, fmt.Errorf("unknown tool %q", s)
}

// Gesture 是否为拖动绘制的工具
func (t Tool) Gesture() bool { return t != ToolText }

// Params 在笔画开始时复制, 之后修改不会影响已画的像素
type Params struct {
	Color    color.RGBA
	Width    int
	FontSize int
	Block    int
	Filled   bool
}

// DefaultParams 与配置文件中的编辑器默认值一致
func DefaultParams() Params {
	return Params{
		Color:    DefaultColors[0],
		Width:    DefaultLineWidths[0],
		FontSize: DefaultFontSizes[0],
		Block:    10,
	}
}

// Stroke 进行中的一个手势
type Stroke struct {
	Tool   Tool
	Params Params
	Points []image.Point
}

// DefaultColors 预设颜色面板
var DefaultColors = []color.RGBA{
	{255, 0, 0, 255},
	{0, 180, 0, 255},
	{0, 120, 255, 255},
	{255, 200, 0, 255},
	{255, 128, 0, 255},
	{180, 0, 255, 255},
	{255, 255, 255, 255},
	{0, 0, 0, 255},
}

// DefaultLineWidths 预设线宽
var DefaultLineWidths = []int{2, 3, 5, 8}

// DefaultFontSizes 预设字号, 13 使用位图字体
var DefaultFontSizes = []int{13, 20, 28, 36}

// ParseColor 支持 #rgb, #rrggbb 和 #rrggbbaa
func ParseColor(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
