package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"snapdesk/internal/annotate"
	"snapdesk/internal/input"
)

const (
	toolbarBtnSize  = 32
	toolbarBtnGap   = 4
	toolbarPadding  = 6
	toolbarSepWidth = 12
	toolbarHeight   = toolbarBtnSize + 2*toolbarPadding
	toolbarGap      = 8

	// 二级面板: 线宽/字号 | 颜色 | 填充
	subSwatchSize = 24
	subSwatchGap  = 5
	subHeight     = subSwatchSize + 2*toolbarPadding
	subGap        = 4
)

var (
	toolbarBg      = color.RGBA{40, 40, 40, 255}
	toolbarButton  = color.RGBA{70, 70, 70, 255}
	toolbarActive  = color.RGBA{0, 120, 212, 255}
	toolbarOutline = color.RGBA{255, 255, 255, 255}
)

type buttonKind int

const (
	kindLabel buttonKind = iota
	kindColor
	kindDot
)

type button struct {
	rect   image.Rectangle
	key    input.Key
	label  string
	kind   buttonKind
	swatch color.RGBA
	dot    int
}

// 主工具栏: 工具 | 撤销 重做 | 确认 取消
var toolbarGroups = [][]button{
	{
		{key: input.KeyToolPen, label: "Pen"},
		{key: input.KeyToolArrow, label: "Arr"},
		{key: input.KeyToolText, label: "Txt"},
		{key: input.KeyToolMosaic, label: "Mos"},
		{key: input.KeyToolRect, label: "Rec"},
		{key: input.KeyToolEllipse, label: "Ell"},
	},
	{
		{key: input.KeyUndo, label: "Und"},
		{key: input.KeyRedo, label: "Red"},
	},
	{
		{key: input.KeyEnter, label: "OK"},
		{key: input.KeyEscape, label: "Esc"},
	},
}

// subGroups 根据当前工具返回二级面板内容, 马赛克没有二级面板
func subGroups(tool input.Key) [][]button {
	colors := make([]button, len(annotate.DefaultColors))
	for i, c := range annotate.DefaultColors {
		colors[i] = button{key: input.KeyColor + input.Key(i), kind: kindColor, swatch: c}
	}

	switch tool {
	case input.KeyToolMosaic:
		return nil
	case input.KeyToolText:
		fonts := make([]button, len(annotate.DefaultFontSizes))
		for i, size := range annotate.DefaultFontSizes {
			fonts[i] = button{key: input.KeyFont + input.Key(i), label: fmt.Sprint(size)}
		}
		return [][]button{fonts, colors}
	}

	widths := make([]button, len(annotate.DefaultLineWidths))
	for i, w := range annotate.DefaultLineWidths {
		widths[i] = button{key: input.KeyWidth + input.Key(i), kind: kindDot, dot: min(2*w, subSwatchSize-6)}
	}
	groups := [][]button{widths, colors}
	if tool == input.KeyToolRect || tool == input.KeyToolEllipse {
		groups = append(groups, []button{{key: input.KeyFill, label: "F"}})
	}
	return groups
}

func panelWidth(groups [][]button, size, gap int) int {
	w := 2 * toolbarPadding
	for i, g := range groups {
		if i > 0 {
			w += toolbarSepWidth
		}
		w += len(g)*size + (len(g)-1)*gap
	}
	return w
}

func toolbarWidth() int { return panelWidth(toolbarGroups, toolbarBtnSize, toolbarBtnGap) }

// placePanel 从 origin 开始横向排列按钮
func placePanel(groups [][]button, origin image.Point, size, gap int) []button {
	var out []button
	x := origin.X + toolbarPadding
	y := origin.Y + toolbarPadding
	for i, g := range groups {
		if i > 0 {
			x += toolbarSepWidth - gap
		}
		for _, b := range g {
			b.rect = image.Rect(x, y, x+size, y+size)
			out = append(out, b)
			x += size + gap
		}
	}
	return out
}

// layoutToolbar 主工具栏右对齐放在截图下方, 超出屏幕时翻到上方, 水平方向限制在屏幕内.
// 二级面板放在主工具栏远离截图的一侧.
func layoutToolbar(shot image.Rectangle, screenW, screenH int, tool input.Key) (bar, sub image.Rectangle, buttons []button) {
	w, h := toolbarWidth(), toolbarHeight
	left := shot.Max.X - w
	top := shot.Max.Y + toolbarGap
	if top+h > screenH {
		top = shot.Min.Y - toolbarGap - h
		if top < 0 {
			// 上下都放不下, 压在截图底部
			top = max(0, min(shot.Max.Y, screenH)-h)
		}
	}
	left = max(min(left, screenW-w), 0)
	bar = image.Rect(left, top, left+w, top+h)
	buttons = placePanel(toolbarGroups, bar.Min, toolbarBtnSize, toolbarBtnGap)

	groups := subGroups(tool)
	if len(groups) == 0 {
		return bar, image.Rectangle{}, buttons
	}
	sw := panelWidth(groups, subSwatchSize, subSwatchGap)
	sl := max(min(bar.Max.X-sw, screenW-sw), 0)
	st := bar.Max.Y + subGap
	if bar.Min.Y < shot.Max.Y || st+subHeight > screenH {
		st = bar.Min.Y - subGap - subHeight
	}
	st = max(min(st, screenH-subHeight), 0)
	sub = image.Rect(sl, st, sl+sw, st+subHeight)
	buttons = append(buttons, placePanel(groups, sub.Min, subSwatchSize, subSwatchGap)...)
	return bar, sub, buttons
}

// active 按钮是否对应当前工具或参数
func (b button) active(st input.EditState) bool {
	if b.key == input.KeyFill {
		return st.Filled
	}
	if group, i, ok := b.key.Palette(); ok {
		switch group {
		case input.KeyColor:
			return i == st.Color
		case input.KeyWidth:
			return i == st.Width
		case input.KeyFont:
			return i == st.Font
		}
		return false
	}
	return b.key == st.Tool && st.Tool >= input.KeyToolPen && st.Tool <= input.KeyToolEllipse
}

// bgra 交换红蓝通道, 让 c 在 BGRA 后备缓冲中显示正确
func bgra(c color.RGBA) color.RGBA {
	c.R, c.B = c.B, c.R
	return c
}

func fill(canvas *image.RGBA, r image.Rectangle, c color.RGBA) {
	draw.Draw(canvas, r, image.NewUniform(bgra(c)), image.Point{}, draw.Src)
}

func outline(canvas *image.RGBA, r image.Rectangle, c color.RGBA) {
	const t = 2
	fill(canvas, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t), c)
	fill(canvas, image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y), c)
	fill(canvas, image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y), c)
	fill(canvas, image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y), c)
}

func drawToolbar(canvas *image.RGBA, bars []image.Rectangle, buttons []button, st input.EditState) {
	for _, bar := range bars {
		if !bar.Empty() {
			fill(canvas, bar, toolbarBg)
		}
	}
	face := basicfont.Face7x13
	ascent := face.Metrics().Ascent.Ceil()
	for _, b := range buttons {
		on := b.active(st)
		switch b.kind {
		case kindColor:
			fill(canvas, b.rect.Inset(3), b.swatch)
			if on {
				outline(canvas, b.rect, toolbarOutline)
			}
			continue
		case kindDot:
			fill(canvas, b.rect, toolbarButton)
			drawDot(canvas, b.rect, b.dot)
			if on {
				outline(canvas, b.rect, toolbarOutline)
			}
			continue
		}

		bg := toolbarButton
		if on {
			bg = toolbarActive
		}
		fill(canvas, b.rect, bg)
		tw := font.MeasureString(face, b.label).Ceil()
		d := font.Drawer{
			Dst:  canvas,
			Src:  image.White,
			Face: face,
			Dot: fixed.P(
				b.rect.Min.X+(b.rect.Dx()-tw)/2,
				b.rect.Min.Y+(b.rect.Dy()-face.Metrics().Height.Ceil())/2+ascent,
			),
		}
		d.DrawString(b.label)
	}
}

// drawDot 在按钮中央画一个直径为 d 的白色圆点, 表示线宽
func drawDot(canvas *image.RGBA, r image.Rectangle, d int) {
	c := r.Min.Add(r.Max).Div(2)
	rad2 := d * d / 4
	for y := -d / 2; y <= d/2; y++ {
		for x := -d / 2; x <= d/2; x++ {
			if x*x+y*y <= rad2 {
				canvas.SetRGBA(c.X+x, c.Y+y, toolbarOutline)
			}
		}
	}
}
