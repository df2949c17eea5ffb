// Package overlay 全屏遮罩: 显示冻结的桌面, 当前选区和编辑预览, 并把输入转发给会话
package overlay

import (
	"fmt"
	"image"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"snapdesk/internal/framebuffer"
	"snapdesk/internal/input"
)

const (
	borderWidth  = 3
	crosshairArm = 15
	crosshairGap = 3
	labelPadding = 4
)

// BGRA 字节序, 与自上而下的 32 位 DIB 一致
var (
	borderBGR  = [3]byte{0, 200, 0}
	outlineBGR = [3]byte{255, 255, 255}
	centerBGR  = [3]byte{0, 0, 255}
)

// Composer 把遮罩画面渲染到 BGRA 缓冲. 每次 Open 预先算好变暗和原亮度两份 plate
type Composer struct {
	w, h   int
	dark   []byte
	bright []byte

	sel        image.Rectangle
	edit       *framebuffer.FrameBuffer
	editAt     image.Rectangle
	cursor     image.Point
	showCursor bool

	toolbar image.Rectangle
	sub     image.Rectangle
	buttons []button
	state   input.EditState
}

// NewComposer 准备要显示的 plate
func NewComposer(plate *framebuffer.FrameBuffer) *Composer {
	c := &Composer{w: plate.Width, h: plate.Height}
	size := c.w * c.h * 4
	c.dark = make([]byte, size)
	c.bright = make([]byte, size)
	for y := 0; y < c.h; y++ {
		for x := 0; x < c.w; x++ {
			i := (y*c.w + x) * 4
			p := plate.RGBAAt(x, y)
			c.dark[i+0], c.dark[i+1], c.dark[i+2], c.dark[i+3] = p.B/2, p.G/2, p.R/2, 255
			c.bright[i+0], c.bright[i+1], c.bright[i+2], c.bright[i+3] = p.B, p.G, p.R, 255
		}
	}
	return c
}

// Size 画面像素尺寸
func (c *Composer) Size() (int, int) { return c.w, c.h }

func (c *Composer) bounds() image.Rectangle { return image.Rect(0, 0, c.w, c.h) }

// SetSelection 替换高亮矩形, 返回需要重绘的区域
func (c *Composer) SetSelection(r image.Rectangle) image.Rectangle {
	old := c.selectionDirty(c.sel)
	c.sel = r.Canon().Intersect(c.bounds())
	return old.Union(c.selectionDirty(c.sel))
}

// selectionDirty 覆盖边框和矩形上方的尺寸标签
func (c *Composer) selectionDirty(r image.Rectangle) image.Rectangle {
	if r.Empty() {
		return image.Rectangle{}
	}
	_, label := c.labelBox(r)
	return r.Inset(-borderWidth).Union(label).Intersect(c.bounds())
}

// SetEdit 在 at 处显示 preview, 离开选区模式. st 决定工具栏高亮和显示哪个二级面板
func (c *Composer) SetEdit(preview *framebuffer.FrameBuffer, at image.Rectangle, st input.EditState) image.Rectangle {
	dirty := c.selectionDirty(c.sel).Union(c.editAt.Inset(-borderWidth))
	dirty = dirty.Union(c.toolbar).Union(c.sub)
	c.sel = image.Rectangle{}
	c.edit = preview
	c.editAt = at
	c.state = st
	c.showCursor = false
	c.toolbar, c.sub, c.buttons = layoutToolbar(at, c.w, c.h, st.Tool)
	return dirty.Union(at.Inset(-borderWidth)).Union(c.toolbar).Union(c.sub).Intersect(c.bounds())
}

// ToolbarHit 返回 p 下的工具栏按钮. 两个面板上的任意点都算命中, 按钮间隙的点击不会落到画布上
func (c *Composer) ToolbarHit(p image.Point) (key input.Key, onBar bool) {
	if c.edit == nil || !(p.In(c.toolbar) || p.In(c.sub)) {
		return 0, false
	}
	for _, b := range c.buttons {
		if p.In(b.rect) {
			return b.key, true
		}
	}
	return -1, true
}

// Editing 是否在显示编辑预览
func (c *Composer) Editing() bool { return c.edit != nil }

// SetCursor 移动十字线. 只有选区时画十字线, 编辑时用系统光标
func (c *Composer) SetCursor(p image.Point) image.Rectangle {
	if c.edit != nil {
		return image.Rectangle{}
	}
	dirty := image.Rectangle{}
	if c.showCursor {
		dirty = cursorRect(c.cursor)
	}
	c.cursor = p
	c.showCursor = true
	return dirty.Union(cursorRect(p)).Intersect(c.bounds())
}

func cursorRect(p image.Point) image.Rectangle {
	size := crosshairArm + crosshairGap + 2
	return image.Rect(p.X-size, p.Y-size, p.X+size+1, p.Y+size+1)
}

// Compose 把当前帧写入 dst, dst 必须有 w*h*4 字节
func (c *Composer) Compose(dst []byte) {
	copy(dst, c.dark)

	switch {
	case c.edit != nil:
		c.drawEdit(dst)
		c.drawBorder(dst, c.editAt)
		drawToolbar(c.canvas(dst), []image.Rectangle{c.toolbar, c.sub}, c.buttons, c.state)
	case !c.sel.Empty():
		c.copyBright(dst, c.sel)
		c.drawBorder(dst, c.sel)
		c.drawLabel(dst, c.sel)
	}
	if c.showCursor && c.edit == nil {
		c.drawCrosshair(dst, c.cursor)
	}
}

func (c *Composer) copyBright(dst []byte, r image.Rectangle) {
	r = r.Intersect(c.bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		start := (y*c.w + r.Min.X) * 4
		end := (y*c.w + r.Max.X) * 4
		copy(dst[start:end], c.bright[start:end])
	}
}

func (c *Composer) drawEdit(dst []byte) {
	r := c.editAt.Intersect(c.bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			p := c.edit.RGBAAt(x-c.editAt.Min.X, y-c.editAt.Min.Y)
			i := (y*c.w + x) * 4
			dst[i+0], dst[i+1], dst[i+2], dst[i+3] = p.B, p.G, p.R, 255
		}
	}
}

func (c *Composer) setPixel(dst []byte, x, y int, bgr [3]byte) {
	if x < 0 || x >= c.w || y < 0 || y >= c.h {
		return
	}
	i := (y*c.w + x) * 4
	dst[i+0], dst[i+1], dst[i+2] = bgr[0], bgr[1], bgr[2]
}

// drawBorder 在 r 内侧画绿色边框
func (c *Composer) drawBorder(dst []byte, r image.Rectangle) {
	for t := 0; t < borderWidth; t++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c.setPixel(dst, x, r.Min.Y+t, borderBGR)
			c.setPixel(dst, x, r.Max.Y-1-t, borderBGR)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			c.setPixel(dst, r.Min.X+t, y, borderBGR)
			c.setPixel(dst, r.Max.X-1-t, y, borderBGR)
		}
	}
}

// labelBox 把 "W x H" 标签放在 r 上方, 上方放不下时放在 r 内顶部
func (c *Composer) labelBox(r image.Rectangle) (string, image.Rectangle) {
	text := fmt.Sprintf("%d x %d", r.Dx(), r.Dy())
	face := basicfont.Face7x13
	w := font.MeasureString(face, text).Ceil() + 2*labelPadding
	h := face.Metrics().Height.Ceil() + 2*labelPadding

	box := image.Rect(r.Min.X, r.Min.Y-h-1, r.Min.X+w, r.Min.Y-1)
	if box.Min.Y < 0 {
		box = box.Add(image.Pt(0, h+1+borderWidth))
	}
	if box.Max.X > c.w {
		box = box.Sub(image.Pt(box.Max.X-c.w, 0))
	}
	return text, box
}

// canvas 把 dst 当作 *image.RGBA. 实际字节是 BGRA, 非灰色的颜色要先经过 bgra
func (c *Composer) canvas(dst []byte) *image.RGBA {
	return &image.RGBA{Pix: dst, Stride: c.w * 4, Rect: c.bounds()}
}

// drawLabel 只用黑白两色, BGRA 和 RGBA 下一样, 所以缓冲可以当作 *image.RGBA 交给 image/draw
func (c *Composer) drawLabel(dst []byte, r image.Rectangle) {
	text, box := c.labelBox(r)
	canvas := c.canvas(dst)
	draw.Draw(canvas, box, image.Black, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	d := font.Drawer{
		Dst:  canvas,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(box.Min.X+labelPadding, box.Min.Y+labelPadding+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
}

// drawCrosshair 在 p 周围画四段带描边的线, 中心留空
func (c *Composer) drawCrosshair(dst []byte, p image.Point) {
	if !p.In(c.bounds()) {
		return
	}
	vertical := func(x, y0, y1 int) {
		for y := y0; y <= y1; y++ {
			c.setPixel(dst, x-1, y, outlineBGR)
			c.setPixel(dst, x+1, y, outlineBGR)
			c.setPixel(dst, x, y, centerBGR)
		}
		c.setPixel(dst, x, y0-1, outlineBGR)
		c.setPixel(dst, x, y1+1, outlineBGR)
	}
	horizontal := func(y, x0, x1 int) {
		for x := x0; x <= x1; x++ {
			c.setPixel(dst, x, y-1, outlineBGR)
			c.setPixel(dst, x, y+1, outlineBGR)
			c.setPixel(dst, x, y, centerBGR)
		}
		c.setPixel(dst, x0-1, y, outlineBGR)
		c.setPixel(dst, x1+1, y, outlineBGR)
	}
	vertical(p.X, p.Y-crosshairGap-crosshairArm, p.Y-crosshairGap)
	vertical(p.X, p.Y+crosshairGap, p.Y+crosshairGap+crosshairArm)
	horizontal(p.Y, p.X-crosshairGap-crosshairArm, p.X-crosshairGap)
	horizontal(p.Y, p.X+crosshairGap, p.X+crosshairGap+crosshairArm)
}
